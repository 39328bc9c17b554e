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

type publicationRepository interface {
	List(ctx context.Context, filter models.PublicationFilter) ([]models.PublicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.PublicationDetail, error)
	Create(ctx context.Context, publication *models.Publication) error
	Update(ctx context.Context, publication *models.Publication) error
	SetReview(ctx context.Context, id string, status models.PublicationStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.PublicationStats, error)
}

// CreatePublicationRequest holds the payload for creating publications.
type CreatePublicationRequest struct {
	Title           string          `json:"title" validate:"required,min=3"`
	Abstract        string          `json:"abstract"`
	Keywords        models.Keywords `json:"keywords"`
	PublicationType string          `json:"publicationType" validate:"required"`
	Authors         models.Authors  `json:"authors" validate:"required,min=1,dive"`
	JournalName     string          `json:"journalName"`
	Volume          string          `json:"volume"`
	Issue           string          `json:"issue"`
	Pages           string          `json:"pages"`
	DOI             string          `json:"doi"`
	PublicationDate *time.Time      `json:"publicationDate"`
	Status          string          `json:"status"`
}

// UpdatePublicationRequest holds the payload for updating publications.
type UpdatePublicationRequest struct {
	Title           string          `json:"title" validate:"required,min=3"`
	Abstract        string          `json:"abstract"`
	Keywords        models.Keywords `json:"keywords"`
	PublicationType string          `json:"publicationType" validate:"required"`
	Authors         models.Authors  `json:"authors" validate:"required,min=1,dive"`
	JournalName     string          `json:"journalName"`
	Volume          string          `json:"volume"`
	Issue           string          `json:"issue"`
	Pages           string          `json:"pages"`
	DOI             string          `json:"doi"`
	PublicationDate *time.Time      `json:"publicationDate"`
	Status          string          `json:"status"`
}

// ReviewRequest is the shared payload for workflow decision endpoints.
type ReviewRequest struct {
	Comments string `json:"comments"`
}

// StatusUpdateRequest is the payload for the permissive status endpoint.
type StatusUpdateRequest struct {
	Status   string `json:"status" validate:"required"`
	Comments string `json:"comments"`
}

// PublicationService handles publication use-cases.
type PublicationService struct {
	repo      publicationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPublicationService constructs the publication service.
func NewPublicationService(repo publicationRepository, validate *validator.Validate, logger *zap.Logger) *PublicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicationService{repo: repo, validator: validate, logger: logger}
}

// List returns publications and pagination metadata.
func (s *PublicationService) List(ctx context.Context, filter models.PublicationFilter) ([]models.PublicationDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list publications")
	}
	for i := range records {
		records[i].ApplyDerived()
		records[i].Submitter = ownerRef(records[i].SubmittedBy, records[i].SubmitterName, records[i].SubmitterEmail)
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one publication with resolved owner display fields.
func (s *PublicationService) Get(ctx context.Context, id string) (*models.PublicationDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publication not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}
	detail.ApplyDerived()
	detail.Submitter = ownerRef(detail.SubmittedBy, detail.SubmitterName, detail.SubmitterEmail)
	return detail, nil
}

// Create registers a new publication owned by the actor.
func (s *PublicationService) Create(ctx context.Context, actor models.Actor, req CreatePublicationRequest) (*models.Publication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid publication payload")
	}
	status := models.PublicationWorkflow.Initial
	if req.Status != "" {
		if !models.PublicationWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = req.Status
	}
	submittedBy := actor.ID
	publication := &models.Publication{
		Title:           req.Title,
		Abstract:        req.Abstract,
		Keywords:        req.Keywords,
		PublicationType: req.PublicationType,
		Authors:         req.Authors,
		SubmittedBy:     &submittedBy,
		JournalName:     req.JournalName,
		Volume:          req.Volume,
		Issue:           req.Issue,
		Pages:           req.Pages,
		DOI:             req.DOI,
		PublicationDate: req.PublicationDate,
		Status:          models.PublicationStatus(status),
	}
	if err := s.repo.Create(ctx, publication); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create publication")
	}
	publication.ApplyDerived()
	s.logger.Info("publication created", zap.String("id", publication.ID), zap.String("by", actor.ID))
	return publication, nil
}

// Update modifies a publication the actor owns or co-authors.
func (s *PublicationService) Update(ctx context.Context, actor models.Actor, id string, req UpdatePublicationRequest) (*models.Publication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid publication payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publication not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}
	if err := authorizeEdit(&detail.Publication, actor); err != nil {
		return nil, err
	}
	publication := detail.Publication
	publication.Title = req.Title
	publication.Abstract = req.Abstract
	publication.Keywords = req.Keywords
	publication.PublicationType = req.PublicationType
	publication.Authors = req.Authors
	publication.JournalName = req.JournalName
	publication.Volume = req.Volume
	publication.Issue = req.Issue
	publication.Pages = req.Pages
	publication.DOI = req.DOI
	publication.PublicationDate = req.PublicationDate
	if req.Status != "" {
		if !models.PublicationWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		publication.Status = models.PublicationStatus(req.Status)
	}
	if err := s.repo.Update(ctx, &publication); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publication")
	}
	publication.ApplyDerived()
	return &publication, nil
}

// Approve moves a pending publication to the approved state, stamping the
// reviewer and decision time together.
func (s *PublicationService) Approve(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.PublicationDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, true)
}

// Reject moves a pending publication to the rejected state.
func (s *PublicationService) Reject(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.PublicationDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, false)
}

func (s *PublicationService) decide(ctx context.Context, actor models.Actor, id, comments string, approve bool) (*models.PublicationDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publication not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}
	if !models.PublicationWorkflow.CanDecide(string(detail.Status)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "publication is already in a final state")
	}
	status, approvedAt, rejectedAt := reviewStamp(models.PublicationWorkflow, approve)
	if err := s.repo.SetReview(ctx, id, models.PublicationStatus(status), actor.ID, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review publication")
	}
	s.logger.Info("publication reviewed",
		zap.String("id", id), zap.String("status", status), zap.String("reviewer", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus applies any legal workflow status directly. Unlike approve and
// reject it does not require the record to be pending.
func (s *PublicationService) SetStatus(ctx context.Context, actor models.Actor, id string, req StatusUpdateRequest) (*models.PublicationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "publication not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}
	if !models.PublicationWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	reviewer, comments, approvedAt, rejectedAt := statusStamp(models.PublicationWorkflow, req, actor,
		detail.ReviewedBy, detail.ReviewComments, detail.ApprovedAt, detail.RejectedAt)
	if err := s.repo.SetReview(ctx, id, models.PublicationStatus(req.Status), reviewer, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publication status")
	}
	return s.Get(ctx, id)
}

// Delete removes a publication the actor owns, or any publication for admins.
func (s *PublicationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "publication not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication")
	}
	if err := authorizeEdit(&detail.Publication, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete publication")
	}
	s.logger.Info("publication deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Stats returns aggregate publication counts.
func (s *PublicationService) Stats(ctx context.Context) (*models.PublicationStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load publication stats")
	}
	return stats, nil
}

// ownerRef builds the resolved owner display reference. A nil id or a
// dangling reference yields nil so the JSON field is omitted.
func ownerRef(id *string, name, email string) *models.OwnerRef {
	if id == nil || *id == "" {
		return nil
	}
	return &models.OwnerRef{ID: *id, Name: name, Email: email}
}
