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

type projectRepository interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.FundedProjectDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.FundedProjectDetail, error)
	Create(ctx context.Context, project *models.FundedProject) error
	Update(ctx context.Context, project *models.FundedProject) error
	SetReview(ctx context.Context, id string, status models.ProjectStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ProjectStats, error)
}

// CreateProjectRequest holds the payload for creating funded projects.
type CreateProjectRequest struct {
	Title         string         `json:"title" validate:"required,min=3"`
	Description   string         `json:"description"`
	CoPIs         models.Members `json:"coPIs"`
	TeamMembers   models.Members `json:"teamMembers"`
	FundingAgency string         `json:"fundingAgency" validate:"required"`
	GrantNumber   string         `json:"grantNumber"`
	Department    string         `json:"department" validate:"required"`
	TotalBudget   float64        `json:"totalBudget" validate:"gte=0"`
	StartDate     *time.Time     `json:"startDate"`
	EndDate       *time.Time     `json:"endDate"`
	Status        string         `json:"status"`
}

// UpdateProjectRequest holds the payload for updating funded projects.
type UpdateProjectRequest struct {
	Title         string         `json:"title" validate:"required,min=3"`
	Description   string         `json:"description"`
	CoPIs         models.Members `json:"coPIs"`
	TeamMembers   models.Members `json:"teamMembers"`
	FundingAgency string         `json:"fundingAgency" validate:"required"`
	GrantNumber   string         `json:"grantNumber"`
	Department    string         `json:"department" validate:"required"`
	TotalBudget   float64        `json:"totalBudget" validate:"gte=0"`
	StartDate     *time.Time     `json:"startDate"`
	EndDate       *time.Time     `json:"endDate"`
	Status        string         `json:"status"`
}

// ProjectService handles funded-project use-cases.
type ProjectService struct {
	repo      projectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProjectService constructs the funded-project service.
func NewProjectService(repo projectRepository, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{repo: repo, validator: validate, logger: logger}
}

// List returns funded projects and pagination metadata.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.FundedProjectDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list funded projects")
	}
	for i := range records {
		records[i].ApplyDerived()
		records[i].Investigator = ownerRef(records[i].PrincipalInvestigator, records[i].PIName, records[i].PIEmail)
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one funded project with resolved investigator display fields.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.FundedProjectDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "funded project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funded project")
	}
	detail.ApplyDerived()
	detail.Investigator = ownerRef(detail.PrincipalInvestigator, detail.PIName, detail.PIEmail)
	return detail, nil
}

// Create registers a new funded project with the actor as principal investigator.
func (s *ProjectService) Create(ctx context.Context, actor models.Actor, req CreateProjectRequest) (*models.FundedProject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid funded project payload")
	}
	if err := validateDateOrder(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	status := models.ProjectWorkflow.Initial
	if req.Status != "" {
		if !models.ProjectWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = req.Status
	}
	pi := actor.ID
	project := &models.FundedProject{
		Title:                 req.Title,
		Description:           req.Description,
		PrincipalInvestigator: &pi,
		CoPIs:                 req.CoPIs,
		TeamMembers:           req.TeamMembers,
		FundingAgency:         req.FundingAgency,
		GrantNumber:           req.GrantNumber,
		Department:            req.Department,
		TotalBudget:           req.TotalBudget,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		Status:                models.ProjectStatus(status),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create funded project")
	}
	project.ApplyDerived()
	s.logger.Info("funded project created", zap.String("id", project.ID), zap.String("by", actor.ID))
	return project, nil
}

// Update modifies a funded project the actor participates in.
func (s *ProjectService) Update(ctx context.Context, actor models.Actor, id string, req UpdateProjectRequest) (*models.FundedProject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid funded project payload")
	}
	if err := validateDateOrder(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "funded project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funded project")
	}
	if err := authorizeEdit(&detail.FundedProject, actor); err != nil {
		return nil, err
	}
	project := detail.FundedProject
	project.Title = req.Title
	project.Description = req.Description
	project.CoPIs = req.CoPIs
	project.TeamMembers = req.TeamMembers
	project.FundingAgency = req.FundingAgency
	project.GrantNumber = req.GrantNumber
	project.Department = req.Department
	project.TotalBudget = req.TotalBudget
	project.StartDate = req.StartDate
	project.EndDate = req.EndDate
	if req.Status != "" {
		if !models.ProjectWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		project.Status = models.ProjectStatus(req.Status)
	}
	if err := s.repo.Update(ctx, &project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update funded project")
	}
	project.ApplyDerived()
	return &project, nil
}

// Approve moves a pending project to the approved state.
func (s *ProjectService) Approve(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.FundedProjectDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, true)
}

// Reject moves a pending project to the rejected state.
func (s *ProjectService) Reject(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.FundedProjectDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, false)
}

func (s *ProjectService) decide(ctx context.Context, actor models.Actor, id, comments string, approve bool) (*models.FundedProjectDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "funded project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funded project")
	}
	if !models.ProjectWorkflow.CanDecide(string(detail.Status)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "funded project is already in a final state")
	}
	status, approvedAt, rejectedAt := reviewStamp(models.ProjectWorkflow, approve)
	if err := s.repo.SetReview(ctx, id, models.ProjectStatus(status), actor.ID, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review funded project")
	}
	s.logger.Info("funded project reviewed",
		zap.String("id", id), zap.String("status", status), zap.String("reviewer", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus applies any legal workflow status directly.
func (s *ProjectService) SetStatus(ctx context.Context, actor models.Actor, id string, req StatusUpdateRequest) (*models.FundedProjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "funded project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funded project")
	}
	if !models.ProjectWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	reviewer, comments, approvedAt, rejectedAt := statusStamp(models.ProjectWorkflow, req, actor,
		detail.ReviewedBy, detail.ReviewComments, detail.ApprovedAt, detail.RejectedAt)
	if err := s.repo.SetReview(ctx, id, models.ProjectStatus(req.Status), reviewer, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update funded project status")
	}
	return s.Get(ctx, id)
}

// Delete removes a funded project the actor participates in, or any for admins.
func (s *ProjectService) Delete(ctx context.Context, actor models.Actor, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "funded project not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funded project")
	}
	if err := authorizeEdit(&detail.FundedProject, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete funded project")
	}
	s.logger.Info("funded project deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Stats returns aggregate funded-project counts and totals.
func (s *ProjectService) Stats(ctx context.Context) (*models.ProjectStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funded project stats")
	}
	return stats, nil
}

// validateDateOrder rejects windows that end before they begin. Open-ended
// windows are allowed.
func validateDateOrder(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return appErrors.ValidationFields("invalid date range",
			appErrors.FieldError{Field: "endDate", Message: "must not be before startDate"})
	}
	return nil
}
