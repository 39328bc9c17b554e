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

type travelGrantRepository interface {
	List(ctx context.Context, filter models.TravelGrantFilter) ([]models.TravelGrantDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TravelGrantDetail, error)
	Create(ctx context.Context, grant *models.TravelGrant) error
	Update(ctx context.Context, grant *models.TravelGrant) error
	SetPostTravel(ctx context.Context, id string, report models.PostTravel, status models.TravelGrantStatus) error
	SetReview(ctx context.Context, id string, status models.TravelGrantStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.TravelGrantStats, error)
}

// CreateTravelGrantRequest holds the payload for creating travel grants.
type CreateTravelGrantRequest struct {
	Purpose         string                 `json:"purpose" validate:"required"`
	Justification   string                 `json:"justification"`
	Department      string                 `json:"department" validate:"required"`
	Event           models.TravelEvent     `json:"event" validate:"required"`
	TravelDetails   models.TravelDetails   `json:"travelDetails"`
	Funding         models.GrantFunding    `json:"funding"`
	BudgetBreakdown models.BudgetBreakdown `json:"budgetBreakdown"`
	Status          string                 `json:"status"`
}

// UpdateTravelGrantRequest holds the payload for updating travel grants.
type UpdateTravelGrantRequest struct {
	Purpose         string                 `json:"purpose" validate:"required"`
	Justification   string                 `json:"justification"`
	Department      string                 `json:"department" validate:"required"`
	Event           models.TravelEvent     `json:"event" validate:"required"`
	TravelDetails   models.TravelDetails   `json:"travelDetails"`
	Funding         models.GrantFunding    `json:"funding"`
	BudgetBreakdown models.BudgetBreakdown `json:"budgetBreakdown"`
	Status          string                 `json:"status"`
}

// PostTravelRequest holds the payload for filing the post-travel report.
type PostTravelRequest struct {
	Summary       string  `json:"summary" validate:"required"`
	ActualExpense float64 `json:"actualExpense" validate:"gte=0"`
}

// TravelGrantService handles travel-grant use-cases.
type TravelGrantService struct {
	repo      travelGrantRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTravelGrantService constructs the travel-grant service.
func NewTravelGrantService(repo travelGrantRepository, validate *validator.Validate, logger *zap.Logger) *TravelGrantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TravelGrantService{repo: repo, validator: validate, logger: logger}
}

// List returns travel grants and pagination metadata.
func (s *TravelGrantService) List(ctx context.Context, filter models.TravelGrantFilter) ([]models.TravelGrantDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list travel grants")
	}
	for i := range records {
		records[i].ApplyDerived()
		records[i].ApplicantInfo = ownerRef(records[i].Applicant, records[i].ApplicantName, records[i].ApplicantEmail)
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one travel grant with resolved applicant display fields.
func (s *TravelGrantService) Get(ctx context.Context, id string) (*models.TravelGrantDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant")
	}
	detail.ApplyDerived()
	detail.ApplicantInfo = ownerRef(detail.Applicant, detail.ApplicantName, detail.ApplicantEmail)
	return detail, nil
}

// Create registers a new travel grant with the actor as applicant.
func (s *TravelGrantService) Create(ctx context.Context, actor models.Actor, req CreateTravelGrantRequest) (*models.TravelGrant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid travel grant payload")
	}
	status := models.TravelGrantWorkflow.Initial
	if req.Status != "" {
		if !models.TravelGrantWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = req.Status
	}
	applicant := actor.ID
	grant := &models.TravelGrant{
		Applicant:       &applicant,
		Purpose:         req.Purpose,
		Justification:   req.Justification,
		Department:      req.Department,
		Event:           req.Event,
		TravelDetails:   req.TravelDetails,
		Funding:         req.Funding,
		BudgetBreakdown: req.BudgetBreakdown,
		Status:          models.TravelGrantStatus(status),
	}
	if err := s.repo.Create(ctx, grant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create travel grant")
	}
	grant.ApplyDerived()
	s.logger.Info("travel grant created", zap.String("id", grant.ID), zap.String("by", actor.ID))
	return grant, nil
}

// Update modifies a travel grant the actor applied for.
func (s *TravelGrantService) Update(ctx context.Context, actor models.Actor, id string, req UpdateTravelGrantRequest) (*models.TravelGrant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid travel grant payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant")
	}
	if err := authorizeEdit(&detail.TravelGrant, actor); err != nil {
		return nil, err
	}
	grant := detail.TravelGrant
	grant.Purpose = req.Purpose
	grant.Justification = req.Justification
	grant.Department = req.Department
	grant.Event = req.Event
	grant.TravelDetails = req.TravelDetails
	grant.Funding = req.Funding
	grant.BudgetBreakdown = req.BudgetBreakdown
	if req.Status != "" {
		if !models.TravelGrantWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		grant.Status = models.TravelGrantStatus(req.Status)
	}
	if err := s.repo.Update(ctx, &grant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update travel grant")
	}
	grant.ApplyDerived()
	return &grant, nil
}

// FilePostTravel records the post-travel report on an approved grant and
// completes it in the same write.
func (s *TravelGrantService) FilePostTravel(ctx context.Context, actor models.Actor, id string, req PostTravelRequest) (*models.TravelGrantDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid post travel payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant")
	}
	if err := authorizeEdit(&detail.TravelGrant, actor); err != nil {
		return nil, err
	}
	if detail.Status != models.TravelGrantApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "post travel report requires an approved grant")
	}
	now := time.Now().UTC()
	report := models.PostTravel{
		ReportSubmitted: true,
		ReportDate:      &now,
		Summary:         req.Summary,
		ActualExpense:   req.ActualExpense,
	}
	if err := s.repo.SetPostTravel(ctx, id, report, models.TravelGrantCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file post travel report")
	}
	s.logger.Info("post travel report filed", zap.String("id", id), zap.String("by", actor.ID))
	return s.Get(ctx, id)
}

// Approve moves a pending travel grant to the approved state.
func (s *TravelGrantService) Approve(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.TravelGrantDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, true)
}

// Reject moves a pending travel grant to the rejected state.
func (s *TravelGrantService) Reject(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.TravelGrantDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, false)
}

func (s *TravelGrantService) decide(ctx context.Context, actor models.Actor, id, comments string, approve bool) (*models.TravelGrantDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant")
	}
	if !models.TravelGrantWorkflow.CanDecide(string(detail.Status)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "travel grant is already in a final state")
	}
	status, approvedAt, rejectedAt := reviewStamp(models.TravelGrantWorkflow, approve)
	if err := s.repo.SetReview(ctx, id, models.TravelGrantStatus(status), actor.ID, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review travel grant")
	}
	s.logger.Info("travel grant reviewed",
		zap.String("id", id), zap.String("status", status), zap.String("reviewer", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus applies any legal workflow status directly.
func (s *TravelGrantService) SetStatus(ctx context.Context, actor models.Actor, id string, req StatusUpdateRequest) (*models.TravelGrantDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "travel grant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant")
	}
	if !models.TravelGrantWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	reviewer, comments, approvedAt, rejectedAt := statusStamp(models.TravelGrantWorkflow, req, actor,
		detail.ReviewedBy, detail.ReviewComments, detail.ApprovedAt, detail.RejectedAt)
	if err := s.repo.SetReview(ctx, id, models.TravelGrantStatus(req.Status), reviewer, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update travel grant status")
	}
	return s.Get(ctx, id)
}

// Delete removes a travel grant the actor applied for, or any for admins.
func (s *TravelGrantService) Delete(ctx context.Context, actor models.Actor, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "travel grant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant")
	}
	if err := authorizeEdit(&detail.TravelGrant, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete travel grant")
	}
	s.logger.Info("travel grant deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Stats returns aggregate travel grant counts and requested funding.
func (s *TravelGrantService) Stats(ctx context.Context) (*models.TravelGrantStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel grant stats")
	}
	return stats, nil
}
