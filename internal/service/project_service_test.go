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

type mockProjectRepo struct {
	records map[string]*models.FundedProjectDetail
	created *models.FundedProject
}

func (m *mockProjectRepo) List(ctx context.Context, filter models.ProjectFilter) ([]models.FundedProjectDetail, int, error) {
	return nil, 0, nil
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*models.FundedProjectDetail, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.FundedProject) error {
	project.ID = "prj-1"
	m.created = project
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.FundedProject) error {
	if rec, ok := m.records[project.ID]; ok {
		rec.FundedProject = *project
	}
	return nil
}

func (m *mockProjectRepo) SetReview(ctx context.Context, id string, status models.ProjectStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	if rec, ok := m.records[id]; ok {
		rec.Status = status
	}
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockProjectRepo) Stats(ctx context.Context) (*models.ProjectStats, error) { return nil, nil }

func projectFixture(id, pi string, status models.ProjectStatus) *models.FundedProjectDetail {
	piID := pi
	return &models.FundedProjectDetail{FundedProject: models.FundedProject{
		ID:                    id,
		Title:                 "Low-Cost Water Quality Sensors",
		PrincipalInvestigator: &piID,
		FundingAgency:         "National Science Foundation",
		Department:            "CEE",
		TotalBudget:           250000,
		Status:                status,
	}}
}

func TestProjectCreateSetsActorAsPI(t *testing.T) {
	repo := &mockProjectRepo{}
	svc := NewProjectService(repo, validator.New(), zap.NewNop())

	project, err := svc.Create(context.Background(), models.Actor{ID: "pi-1", Role: models.RoleFaculty}, CreateProjectRequest{
		Title:         "Low-Cost Water Quality Sensors",
		FundingAgency: "National Science Foundation",
		Department:    "CEE",
		TotalBudget:   250000,
	})
	require.NoError(t, err)
	require.NotNil(t, project.PrincipalInvestigator)
	assert.Equal(t, "pi-1", *project.PrincipalInvestigator)
	assert.Equal(t, models.ProjectStatus(models.ProjectWorkflow.Initial), project.Status)
}

func TestProjectCreateRejectsReversedDates(t *testing.T) {
	repo := &mockProjectRepo{}
	svc := NewProjectService(repo, validator.New(), zap.NewNop())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	_, err := svc.Create(context.Background(), models.Actor{ID: "pi-1"}, CreateProjectRequest{
		Title:         "Low-Cost Water Quality Sensors",
		FundingAgency: "NSF",
		Department:    "CEE",
		StartDate:     &start,
		EndDate:       &end,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "endDate", appErr.Fields[0].Field)
}

func TestProjectOpenEndedWindowAllowed(t *testing.T) {
	repo := &mockProjectRepo{}
	svc := NewProjectService(repo, validator.New(), zap.NewNop())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), models.Actor{ID: "pi-1"}, CreateProjectRequest{
		Title:         "Low-Cost Water Quality Sensors",
		FundingAgency: "NSF",
		Department:    "CEE",
		StartDate:     &start,
	})
	require.NoError(t, err)
}

func TestProjectApproveFromSubmitted(t *testing.T) {
	repo := &mockProjectRepo{records: map[string]*models.FundedProjectDetail{
		"prj-1": projectFixture("prj-1", "pi-1", models.ProjectSubmitted),
	}}
	svc := NewProjectService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Approve(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "prj-1", ReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectApproved, detail.Status)
}

func TestProjectUpdateCoPIAllowed(t *testing.T) {
	coPI := "copi-1"
	fixture := projectFixture("prj-1", "pi-1", models.ProjectActive)
	fixture.CoPIs = models.Members{{UserID: &coPI, Name: "Co-PI"}}
	repo := &mockProjectRepo{records: map[string]*models.FundedProjectDetail{"prj-1": fixture}}
	svc := NewProjectService(repo, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), models.Actor{ID: coPI, Role: models.RoleFaculty}, "prj-1", UpdateProjectRequest{
		Title:         "Low-Cost Water Quality Sensors, Phase II",
		FundingAgency: "NSF",
		Department:    "CEE",
		CoPIs:         models.Members{{UserID: &coPI, Name: "Co-PI"}},
		TotalBudget:   300000,
	})
	require.NoError(t, err)
	assert.Equal(t, 300000.0, updated.TotalBudget)
}
