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

type mockTravelGrantRepo struct {
	records    map[string]*models.TravelGrantDetail
	postTravel models.PostTravel
	movedTo    models.TravelGrantStatus
}

func (m *mockTravelGrantRepo) List(ctx context.Context, filter models.TravelGrantFilter) ([]models.TravelGrantDetail, int, error) {
	return nil, 0, nil
}

func (m *mockTravelGrantRepo) FindByID(ctx context.Context, id string) (*models.TravelGrantDetail, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (m *mockTravelGrantRepo) Create(ctx context.Context, grant *models.TravelGrant) error {
	grant.ID = "tg-1"
	return nil
}

func (m *mockTravelGrantRepo) Update(ctx context.Context, grant *models.TravelGrant) error {
	if rec, ok := m.records[grant.ID]; ok {
		rec.TravelGrant = *grant
	}
	return nil
}

func (m *mockTravelGrantRepo) SetPostTravel(ctx context.Context, id string, report models.PostTravel, status models.TravelGrantStatus) error {
	m.postTravel = report
	m.movedTo = status
	if rec, ok := m.records[id]; ok {
		rec.PostTravel = report
		rec.Status = status
	}
	return nil
}

func (m *mockTravelGrantRepo) SetReview(ctx context.Context, id string, status models.TravelGrantStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	if rec, ok := m.records[id]; ok {
		rec.Status = status
		rec.ReviewComments = comments
	}
	return nil
}

func (m *mockTravelGrantRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockTravelGrantRepo) Stats(ctx context.Context) (*models.TravelGrantStats, error) {
	return nil, nil
}

func travelGrantFixture(id, applicant string, status models.TravelGrantStatus) *models.TravelGrantDetail {
	applicantID := applicant
	return &models.TravelGrantDetail{TravelGrant: models.TravelGrant{
		ID:         id,
		Applicant:  &applicantID,
		Purpose:    "Present accepted paper",
		Department: "CSE",
		Event:      models.TravelEvent{Name: "ICML 2026", City: "Vienna", Country: "Austria"},
		Status:     status,
	}}
}

func TestTravelGrantPostTravelCompletesGrant(t *testing.T) {
	repo := &mockTravelGrantRepo{records: map[string]*models.TravelGrantDetail{
		"tg-1": travelGrantFixture("tg-1", "app-1", models.TravelGrantApproved),
	}}
	svc := NewTravelGrantService(repo, validator.New(), zap.NewNop())

	detail, err := svc.FilePostTravel(context.Background(), models.Actor{ID: "app-1", Role: models.RoleFaculty}, "tg-1", PostTravelRequest{
		Summary:       "Presented the paper and attended three workshops.",
		ActualExpense: 1850.50,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TravelGrantCompleted, detail.Status)
	assert.True(t, detail.PostTravel.ReportSubmitted)
	assert.NotNil(t, repo.postTravel.ReportDate)
	assert.Equal(t, 1850.50, repo.postTravel.ActualExpense)
}

func TestTravelGrantPostTravelRequiresApprovedState(t *testing.T) {
	repo := &mockTravelGrantRepo{records: map[string]*models.TravelGrantDetail{
		"tg-1": travelGrantFixture("tg-1", "app-1", models.TravelGrantSubmitted),
	}}
	svc := NewTravelGrantService(repo, validator.New(), zap.NewNop())

	_, err := svc.FilePostTravel(context.Background(), models.Actor{ID: "app-1"}, "tg-1", PostTravelRequest{Summary: "report"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestTravelGrantPostTravelApplicantOnly(t *testing.T) {
	repo := &mockTravelGrantRepo{records: map[string]*models.TravelGrantDetail{
		"tg-1": travelGrantFixture("tg-1", "app-1", models.TravelGrantApproved),
	}}
	svc := NewTravelGrantService(repo, validator.New(), zap.NewNop())

	_, err := svc.FilePostTravel(context.Background(), models.Actor{ID: "someone-else", Role: models.RoleFaculty}, "tg-1", PostTravelRequest{Summary: "report"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTravelGrantApproveRecordsComments(t *testing.T) {
	repo := &mockTravelGrantRepo{records: map[string]*models.TravelGrantDetail{
		"tg-1": travelGrantFixture("tg-1", "app-1", models.TravelGrantSubmitted),
	}}
	svc := NewTravelGrantService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Approve(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "tg-1", ReviewRequest{Comments: "within budget"})
	require.NoError(t, err)
	assert.Equal(t, models.TravelGrantApproved, detail.Status)
}

func TestTravelGrantBudgetDerivedOnCreate(t *testing.T) {
	repo := &mockTravelGrantRepo{}
	svc := NewTravelGrantService(repo, validator.New(), zap.NewNop())

	grant, err := svc.Create(context.Background(), models.Actor{ID: "app-1"}, CreateTravelGrantRequest{
		Purpose:    "Present accepted paper",
		Department: "CSE",
		Event:      models.TravelEvent{Name: "ICML 2026"},
		BudgetBreakdown: models.BudgetBreakdown{
			Airfare:       1200,
			Accommodation: 600,
			Registration:  300,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2100.0, grant.TotalBudget)
}
