package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

type mockContactRepo struct {
	records    map[string]*models.Contact
	bulkIDs    []string
	bulkStatus models.ContactStatus
	bulkResult *models.BulkUpdateResult
}

func (m *mockContactRepo) List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error) {
	return nil, 0, nil
}

func (m *mockContactRepo) FindByID(ctx context.Context, id string) (*models.Contact, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (m *mockContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	contact.ID = "ct-1"
	return nil
}

func (m *mockContactRepo) SetStatus(ctx context.Context, id string, status models.ContactStatus) error {
	if rec, ok := m.records[id]; ok {
		rec.Status = status
	}
	return nil
}

func (m *mockContactRepo) SetResponse(ctx context.Context, id string, response models.ContactResponse, status models.ContactStatus) error {
	if rec, ok := m.records[id]; ok {
		rec.Response = response
		rec.Status = status
	}
	return nil
}

func (m *mockContactRepo) BulkUpdateStatus(ctx context.Context, ids []string, status models.ContactStatus) (*models.BulkUpdateResult, error) {
	m.bulkIDs = ids
	m.bulkStatus = status
	return m.bulkResult, nil
}

func (m *mockContactRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockContactRepo) Stats(ctx context.Context) (*models.ContactStats, error) { return nil, nil }

func TestContactSubmitDefaultsCategoryAndStatus(t *testing.T) {
	repo := &mockContactRepo{}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	contact, err := svc.Submit(context.Background(), SubmitContactRequest{
		Name:    "Visitor",
		Email:   "visitor@example.com",
		Subject: "Collaboration inquiry",
		Message: "We would like to discuss a joint research programme.",
	})
	require.NoError(t, err)
	assert.Equal(t, "General", contact.Category)
	assert.Equal(t, models.ContactNew, contact.Status)
}

func TestContactSubmitRejectsShortMessage(t *testing.T) {
	repo := &mockContactRepo{}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), SubmitContactRequest{
		Name:    "Visitor",
		Email:   "visitor@example.com",
		Subject: "Hi",
		Message: "short",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestContactRespondMovesToResponded(t *testing.T) {
	repo := &mockContactRepo{records: map[string]*models.Contact{
		"ct-1": {ID: "ct-1", Name: "Visitor", Email: "visitor@example.com", Status: models.ContactNew},
	}}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	contact, err := svc.Respond(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "ct-1", RespondContactRequest{
		Message: "Thanks for reaching out, we will follow up shortly.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContactResponded, contact.Status)
	require.NotNil(t, contact.Response.RespondedBy)
	assert.Equal(t, "admin-1", *contact.Response.RespondedBy)
	assert.NotNil(t, contact.Response.RespondedAt)
}

func TestContactRespondWithExplicitStatus(t *testing.T) {
	repo := &mockContactRepo{records: map[string]*models.Contact{
		"ct-1": {ID: "ct-1", Status: models.ContactNew},
	}}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	contact, err := svc.Respond(context.Background(), models.Actor{ID: "admin-1"}, "ct-1", RespondContactRequest{
		Message: "Resolved over the phone.",
		Status:  string(models.ContactClosed),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContactClosed, contact.Status)
}

func TestContactBulkSetStatus(t *testing.T) {
	repo := &mockContactRepo{bulkResult: &models.BulkUpdateResult{MatchedCount: 2, ModifiedCount: 2}}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	result, err := svc.BulkSetStatus(context.Background(), BulkContactStatusRequest{
		IDs:    []string{"ct-1", "ct-2", "missing"},
		Status: string(models.ContactClosed),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.MatchedCount)
	assert.Equal(t, []string{"ct-1", "ct-2", "missing"}, repo.bulkIDs)
	assert.Equal(t, models.ContactClosed, repo.bulkStatus)
}

func TestContactBulkSetStatusRejectsIllegalStatus(t *testing.T) {
	repo := &mockContactRepo{}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	_, err := svc.BulkSetStatus(context.Background(), BulkContactStatusRequest{
		IDs:    []string{"ct-1"},
		Status: "Archived",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestContactSetStatusUnknownID(t *testing.T) {
	repo := &mockContactRepo{records: map[string]*models.Contact{}}
	svc := NewContactService(repo, validator.New(), zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "missing", StatusUpdateRequest{Status: string(models.ContactInProgress)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
