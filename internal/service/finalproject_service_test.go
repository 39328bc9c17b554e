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

type mockFinalProjectRepo struct {
	records    map[string]*models.FinalYearProjectDetail
	evaluation models.Evaluation
	gradedTo   models.FinalProjectStatus
}

func (m *mockFinalProjectRepo) List(ctx context.Context, filter models.FinalProjectFilter) ([]models.FinalYearProjectDetail, int, error) {
	return nil, 0, nil
}

func (m *mockFinalProjectRepo) FindByID(ctx context.Context, id string) (*models.FinalYearProjectDetail, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (m *mockFinalProjectRepo) Create(ctx context.Context, project *models.FinalYearProject) error {
	project.ID = "fyp-1"
	return nil
}

func (m *mockFinalProjectRepo) Update(ctx context.Context, project *models.FinalYearProject) error {
	if rec, ok := m.records[project.ID]; ok {
		rec.FinalYearProject = *project
	}
	return nil
}

func (m *mockFinalProjectRepo) SetEvaluation(ctx context.Context, id string, evaluation models.Evaluation, status models.FinalProjectStatus) error {
	m.evaluation = evaluation
	m.gradedTo = status
	if rec, ok := m.records[id]; ok {
		rec.Evaluation = evaluation
		rec.Status = status
	}
	return nil
}

func (m *mockFinalProjectRepo) SetReview(ctx context.Context, id string, status models.FinalProjectStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	if rec, ok := m.records[id]; ok {
		rec.Status = status
	}
	return nil
}

func (m *mockFinalProjectRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockFinalProjectRepo) Stats(ctx context.Context) (*models.FinalProjectStats, error) {
	return nil, nil
}

func finalProjectFixture(id, supervisor string, status models.FinalProjectStatus) *models.FinalYearProjectDetail {
	supervisorID := supervisor
	return &models.FinalYearProjectDetail{FinalYearProject: models.FinalYearProject{
		ID:         id,
		Title:      "Smart Irrigation Controller",
		Supervisor: &supervisorID,
		Students:   models.ProjectStudents{{Name: "Team Member", RollNo: "2020-1-60-001"}},
		Batch:      "2020",
		Department: "CSE",
		Status:     status,
	}}
}

func TestFinalProjectGradeMovesToGraded(t *testing.T) {
	repo := &mockFinalProjectRepo{records: map[string]*models.FinalYearProjectDetail{
		"fyp-1": finalProjectFixture("fyp-1", "sup-1", models.FinalProjectCompleted),
	}}
	svc := NewFinalProjectService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Grade(context.Background(), models.Actor{ID: "sup-1", Role: models.RoleFaculty}, "fyp-1", GradeRequest{
		Grade:   "A",
		Marks:   92,
		Remarks: "excellent delivery",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FinalProjectGraded, detail.Status)
	assert.Equal(t, "A", detail.Evaluation.Grade)
	require.NotNil(t, repo.evaluation.EvaluatedBy)
	assert.Equal(t, "sup-1", *repo.evaluation.EvaluatedBy)
	assert.NotNil(t, repo.evaluation.EvaluatedAt)
}

func TestFinalProjectGradeRejectsMarksOutOfRange(t *testing.T) {
	repo := &mockFinalProjectRepo{records: map[string]*models.FinalYearProjectDetail{
		"fyp-1": finalProjectFixture("fyp-1", "sup-1", models.FinalProjectCompleted),
	}}
	svc := NewFinalProjectService(repo, validator.New(), zap.NewNop())

	_, err := svc.Grade(context.Background(), models.Actor{ID: "sup-1"}, "fyp-1", GradeRequest{Grade: "A", Marks: 140})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFinalProjectGradeForbiddenForOutsider(t *testing.T) {
	repo := &mockFinalProjectRepo{records: map[string]*models.FinalYearProjectDetail{
		"fyp-1": finalProjectFixture("fyp-1", "sup-1", models.FinalProjectCompleted),
	}}
	svc := NewFinalProjectService(repo, validator.New(), zap.NewNop())

	_, err := svc.Grade(context.Background(), models.Actor{ID: "other", Role: models.RoleFaculty}, "fyp-1", GradeRequest{Grade: "B", Marks: 70})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFinalProjectCreateRequiresStudents(t *testing.T) {
	repo := &mockFinalProjectRepo{}
	svc := NewFinalProjectService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.Actor{ID: "sup-1"}, CreateFinalProjectRequest{
		Title:      "Smart Irrigation Controller",
		Batch:      "2020",
		Department: "CSE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFinalProjectRejectFromProposed(t *testing.T) {
	repo := &mockFinalProjectRepo{records: map[string]*models.FinalYearProjectDetail{
		"fyp-1": finalProjectFixture("fyp-1", "sup-1", models.FinalProjectProposed),
	}}
	svc := NewFinalProjectService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Reject(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "fyp-1", ReviewRequest{Comments: "out of scope"})
	require.NoError(t, err)
	assert.Equal(t, models.FinalProjectRejected, detail.Status)
}
