package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

type mockThesisRepo struct {
	records map[string]*models.ThesisSupervisionDetail
	defense struct {
		defense        models.Defense
		status         models.ThesisStatus
		completionDate *time.Time
	}
}

func (m *mockThesisRepo) List(ctx context.Context, filter models.ThesisFilter) ([]models.ThesisSupervisionDetail, int, error) {
	return nil, 0, nil
}

func (m *mockThesisRepo) FindByID(ctx context.Context, id string) (*models.ThesisSupervisionDetail, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (m *mockThesisRepo) Create(ctx context.Context, thesis *models.ThesisSupervision) error {
	thesis.ID = "th-1"
	return nil
}

func (m *mockThesisRepo) Update(ctx context.Context, thesis *models.ThesisSupervision) error {
	if rec, ok := m.records[thesis.ID]; ok {
		rec.ThesisSupervision = *thesis
	}
	return nil
}

func (m *mockThesisRepo) SetDefense(ctx context.Context, id string, defense models.Defense, status models.ThesisStatus, completionDate *time.Time) error {
	m.defense.defense = defense
	m.defense.status = status
	m.defense.completionDate = completionDate
	if rec, ok := m.records[id]; ok {
		rec.Defense = defense
		rec.Status = status
		rec.CompletionDate = completionDate
	}
	return nil
}

func (m *mockThesisRepo) SetReview(ctx context.Context, id string, status models.ThesisStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	if rec, ok := m.records[id]; ok {
		rec.Status = status
	}
	return nil
}

func (m *mockThesisRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockThesisRepo) Stats(ctx context.Context) (*models.ThesisStats, error) { return nil, nil }

func thesisFixture(id, supervisor string, status models.ThesisStatus) *models.ThesisSupervisionDetail {
	supervisorID := supervisor
	return &models.ThesisSupervisionDetail{ThesisSupervision: models.ThesisSupervision{
		ID:         id,
		Title:      "Energy-Aware Scheduling in Edge Networks",
		Student:    models.ThesisStudent{Name: "N. Akter", RegistrationNo: "GS-2023-114"},
		Supervisor: &supervisorID,
		Degree:     "PhD",
		Department: "CSE",
		Status:     status,
	}}
}

func TestThesisDefensePassCompletesSupervision(t *testing.T) {
	repo := &mockThesisRepo{records: map[string]*models.ThesisSupervisionDetail{
		"th-1": thesisFixture("th-1", "sup-1", models.ThesisSubmitted),
	}}
	svc := NewThesisService(repo, validator.New(), zap.NewNop())

	detail, err := svc.RecordDefense(context.Background(), models.Actor{ID: "sup-1", Role: models.RoleFaculty}, "th-1", DefenseRequest{
		Result:   models.DefenseResultPass,
		Comments: "unanimous pass",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ThesisCompleted, detail.Status)
	require.NotNil(t, detail.CompletionDate)
	assert.NotNil(t, repo.defense.defense.Date)
}

func TestThesisDefenseRevisionsKeepsSupervisionOpen(t *testing.T) {
	repo := &mockThesisRepo{records: map[string]*models.ThesisSupervisionDetail{
		"th-1": thesisFixture("th-1", "sup-1", models.ThesisSubmitted),
	}}
	svc := NewThesisService(repo, validator.New(), zap.NewNop())

	detail, err := svc.RecordDefense(context.Background(), models.Actor{ID: "sup-1", Role: models.RoleFaculty}, "th-1", DefenseRequest{
		Result: "Revisions Required",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ThesisDefended, detail.Status)
	assert.Nil(t, detail.CompletionDate)
}

func TestThesisDefenseRejectsUnknownResult(t *testing.T) {
	repo := &mockThesisRepo{records: map[string]*models.ThesisSupervisionDetail{
		"th-1": thesisFixture("th-1", "sup-1", models.ThesisSubmitted),
	}}
	svc := NewThesisService(repo, validator.New(), zap.NewNop())

	_, err := svc.RecordDefense(context.Background(), models.Actor{ID: "sup-1"}, "th-1", DefenseRequest{Result: "Maybe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestThesisDefenseForbiddenForNonSupervisor(t *testing.T) {
	repo := &mockThesisRepo{records: map[string]*models.ThesisSupervisionDetail{
		"th-1": thesisFixture("th-1", "sup-1", models.ThesisSubmitted),
	}}
	svc := NewThesisService(repo, validator.New(), zap.NewNop())

	_, err := svc.RecordDefense(context.Background(), models.Actor{ID: "someone-else", Role: models.RoleFaculty}, "th-1", DefenseRequest{
		Result: models.DefenseResultPass,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestThesisCommitteeMemberMayEdit(t *testing.T) {
	member := "committee-1"
	fixture := thesisFixture("th-1", "sup-1", models.ThesisInProgress)
	fixture.Committee = models.Members{{UserID: &member, Name: "Member"}}
	repo := &mockThesisRepo{records: map[string]*models.ThesisSupervisionDetail{"th-1": fixture}}
	svc := NewThesisService(repo, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), models.Actor{ID: member, Role: models.RoleFaculty}, "th-1", UpdateThesisRequest{
		Title:      "Energy-Aware Scheduling in Edge Networks: Revised",
		Student:    models.ThesisStudent{Name: "N. Akter", RegistrationNo: "GS-2023-114"},
		Committee:  models.Members{{UserID: &member, Name: "Member"}},
		Degree:     "PhD",
		Department: "CSE",
	})
	require.NoError(t, err)
	assert.Equal(t, "Energy-Aware Scheduling in Edge Networks: Revised", updated.Title)
}

func TestThesisApproveFromProposed(t *testing.T) {
	repo := &mockThesisRepo{records: map[string]*models.ThesisSupervisionDetail{
		"th-1": thesisFixture("th-1", "sup-1", models.ThesisProposed),
	}}
	svc := NewThesisService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Approve(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "th-1", ReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ThesisApproved, detail.Status)
}
