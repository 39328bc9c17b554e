package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

type contactRepository interface {
	List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error)
	FindByID(ctx context.Context, id string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	SetStatus(ctx context.Context, id string, status models.ContactStatus) error
	SetResponse(ctx context.Context, id string, response models.ContactResponse, status models.ContactStatus) error
	BulkUpdateStatus(ctx context.Context, ids []string, status models.ContactStatus) (*models.BulkUpdateResult, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ContactStats, error)
}

// SubmitContactRequest holds the public inquiry payload.
type SubmitContactRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Subject  string `json:"subject" validate:"required"`
	Message  string `json:"message" validate:"required,min=10"`
	Category string `json:"category"`
}

// RespondContactRequest holds an admin reply to an inquiry.
type RespondContactRequest struct {
	Message string `json:"message" validate:"required"`
	Status  string `json:"status"`
}

// BulkContactStatusRequest moves several inquiries to one status.
type BulkContactStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required"`
}

// ContactService handles contact inquiry use-cases.
type ContactService struct {
	repo      contactRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs the contact service.
func NewContactService(repo contactRepository, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{repo: repo, validator: validate, logger: logger}
}

// List returns contact inquiries and pagination metadata.
func (s *ContactService) List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one contact inquiry.
func (s *ContactService) Get(ctx context.Context, id string) (*models.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact")
	}
	return contact, nil
}

// Submit files a new public inquiry. No authentication is required.
func (s *ContactService) Submit(ctx context.Context, req SubmitContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid contact payload")
	}
	category := req.Category
	if category == "" {
		category = "General"
	}
	contact := &models.Contact{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Subject:  req.Subject,
		Message:  req.Message,
		Category: category,
		Status:   models.ContactNew,
	}
	if err := s.repo.Create(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit contact")
	}
	s.logger.Info("contact inquiry submitted", zap.String("id", contact.ID), zap.String("category", category))
	return contact, nil
}

// Respond stores an admin reply. The inquiry moves to Responded unless the
// request names another legal status.
func (s *ContactService) Respond(ctx context.Context, actor models.Actor, id string, req RespondContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid response payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	status := models.ContactResponded
	if req.Status != "" {
		if !models.ContactWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = models.ContactStatus(req.Status)
	}
	now := time.Now().UTC()
	respondedBy := actor.ID
	response := models.ContactResponse{
		RespondedBy: &respondedBy,
		Message:     req.Message,
		RespondedAt: &now,
	}
	if err := s.repo.SetResponse(ctx, id, response, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to respond to contact")
	}
	s.logger.Info("contact inquiry answered", zap.String("id", id), zap.String("by", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus moves an inquiry to any legal status.
func (s *ContactService) SetStatus(ctx context.Context, id string, req StatusUpdateRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if !models.ContactWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	if err := s.repo.SetStatus(ctx, id, models.ContactStatus(req.Status)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact status")
	}
	return s.Get(ctx, id)
}

// BulkSetStatus moves every matched inquiry to one status and reports the
// matched and modified counts. Ids that do not exist are skipped.
func (s *ContactService) BulkSetStatus(ctx context.Context, req BulkContactStatusRequest) (*models.BulkUpdateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid bulk status payload")
	}
	if !models.ContactWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	result, err := s.repo.BulkUpdateStatus(ctx, req.IDs, models.ContactStatus(req.Status))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk update contacts")
	}
	s.logger.Info("contact inquiries bulk updated",
		zap.Int("matched", result.MatchedCount), zap.Int("modified", result.ModifiedCount), zap.String("status", req.Status))
	return result, nil
}

// Delete removes an inquiry permanently.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contact")
	}
	return nil
}

// Stats returns aggregate contact inquiry counts.
func (s *ContactService) Stats(ctx context.Context) (*models.ContactStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contact stats")
	}
	return stats, nil
}
