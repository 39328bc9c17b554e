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

type finalProjectRepository interface {
	List(ctx context.Context, filter models.FinalProjectFilter) ([]models.FinalYearProjectDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.FinalYearProjectDetail, error)
	Create(ctx context.Context, project *models.FinalYearProject) error
	Update(ctx context.Context, project *models.FinalYearProject) error
	SetEvaluation(ctx context.Context, id string, evaluation models.Evaluation, status models.FinalProjectStatus) error
	SetReview(ctx context.Context, id string, status models.FinalProjectStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.FinalProjectStats, error)
}

// CreateFinalProjectRequest holds the payload for creating final-year projects.
type CreateFinalProjectRequest struct {
	Title         string                 `json:"title" validate:"required,min=3"`
	Description   string                 `json:"description"`
	CoSupervisors models.Members         `json:"coSupervisors"`
	Students      models.ProjectStudents `json:"students" validate:"required,min=1,dive"`
	Batch         string                 `json:"batch" validate:"required"`
	Department    string                 `json:"department" validate:"required"`
	Technologies  models.Keywords        `json:"technologies"`
	Deliverables  models.Deliverables    `json:"deliverables"`
	StartDate     *time.Time             `json:"startDate"`
	EndDate       *time.Time             `json:"endDate"`
	Status        string                 `json:"status"`
}

// UpdateFinalProjectRequest holds the payload for updating final-year projects.
type UpdateFinalProjectRequest struct {
	Title         string                 `json:"title" validate:"required,min=3"`
	Description   string                 `json:"description"`
	CoSupervisors models.Members         `json:"coSupervisors"`
	Students      models.ProjectStudents `json:"students" validate:"required,min=1,dive"`
	Batch         string                 `json:"batch" validate:"required"`
	Department    string                 `json:"department" validate:"required"`
	Technologies  models.Keywords        `json:"technologies"`
	Deliverables  models.Deliverables    `json:"deliverables"`
	StartDate     *time.Time             `json:"startDate"`
	EndDate       *time.Time             `json:"endDate"`
	Status        string                 `json:"status"`
}

// GradeRequest holds the payload for grading a final-year project.
type GradeRequest struct {
	Grade   string  `json:"grade" validate:"required"`
	Marks   float64 `json:"marks" validate:"gte=0,lte=100"`
	Remarks string  `json:"remarks"`
}

// FinalProjectService handles final-year project use-cases.
type FinalProjectService struct {
	repo      finalProjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFinalProjectService constructs the final-year project service.
func NewFinalProjectService(repo finalProjectRepository, validate *validator.Validate, logger *zap.Logger) *FinalProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinalProjectService{repo: repo, validator: validate, logger: logger}
}

// List returns final-year projects and pagination metadata.
func (s *FinalProjectService) List(ctx context.Context, filter models.FinalProjectFilter) ([]models.FinalYearProjectDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list final year projects")
	}
	for i := range records {
		records[i].ApplyDerived()
		records[i].SupervisorInfo = ownerRef(records[i].Supervisor, records[i].SupervisorName, records[i].SupervisorEmail)
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one final-year project with resolved supervisor display fields.
func (s *FinalProjectService) Get(ctx context.Context, id string) (*models.FinalYearProjectDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "final year project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project")
	}
	detail.ApplyDerived()
	detail.SupervisorInfo = ownerRef(detail.Supervisor, detail.SupervisorName, detail.SupervisorEmail)
	return detail, nil
}

// Create registers a new final-year project with the actor as supervisor.
func (s *FinalProjectService) Create(ctx context.Context, actor models.Actor, req CreateFinalProjectRequest) (*models.FinalYearProject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid final year project payload")
	}
	if err := validateDateOrder(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	status := models.FinalProjectWorkflow.Initial
	if req.Status != "" {
		if !models.FinalProjectWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = req.Status
	}
	supervisor := actor.ID
	project := &models.FinalYearProject{
		Title:         req.Title,
		Description:   req.Description,
		Supervisor:    &supervisor,
		CoSupervisors: req.CoSupervisors,
		Students:      req.Students,
		Batch:         req.Batch,
		Department:    req.Department,
		Technologies:  req.Technologies,
		Deliverables:  req.Deliverables,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        models.FinalProjectStatus(status),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create final year project")
	}
	project.ApplyDerived()
	s.logger.Info("final year project created", zap.String("id", project.ID), zap.String("by", actor.ID))
	return project, nil
}

// Update modifies a final-year project the actor supervises.
func (s *FinalProjectService) Update(ctx context.Context, actor models.Actor, id string, req UpdateFinalProjectRequest) (*models.FinalYearProject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid final year project payload")
	}
	if err := validateDateOrder(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "final year project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project")
	}
	if err := authorizeEdit(&detail.FinalYearProject, actor); err != nil {
		return nil, err
	}
	project := detail.FinalYearProject
	project.Title = req.Title
	project.Description = req.Description
	project.CoSupervisors = req.CoSupervisors
	project.Students = req.Students
	project.Batch = req.Batch
	project.Department = req.Department
	project.Technologies = req.Technologies
	project.Deliverables = req.Deliverables
	project.StartDate = req.StartDate
	project.EndDate = req.EndDate
	if req.Status != "" {
		if !models.FinalProjectWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		project.Status = models.FinalProjectStatus(req.Status)
	}
	if err := s.repo.Update(ctx, &project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update final year project")
	}
	project.ApplyDerived()
	return &project, nil
}

// Grade records the evaluation outcome and moves the project to Graded in the
// same write. Only the supervising staff or admins may grade.
func (s *FinalProjectService) Grade(ctx context.Context, actor models.Actor, id string, req GradeRequest) (*models.FinalYearProjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid grade payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "final year project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project")
	}
	if err := authorizeEdit(&detail.FinalYearProject, actor); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	evaluatedBy := actor.ID
	evaluation := models.Evaluation{
		Grade:       req.Grade,
		Marks:       req.Marks,
		Remarks:     req.Remarks,
		EvaluatedBy: &evaluatedBy,
		EvaluatedAt: &now,
	}
	if err := s.repo.SetEvaluation(ctx, id, evaluation, models.FinalProjectGraded); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade final year project")
	}
	s.logger.Info("final year project graded",
		zap.String("id", id), zap.String("grade", req.Grade), zap.String("by", actor.ID))
	return s.Get(ctx, id)
}

// Approve moves a pending final-year project to the approved state.
func (s *FinalProjectService) Approve(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.FinalYearProjectDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, true)
}

// Reject moves a pending final-year project to the rejected state.
func (s *FinalProjectService) Reject(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.FinalYearProjectDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, false)
}

func (s *FinalProjectService) decide(ctx context.Context, actor models.Actor, id, comments string, approve bool) (*models.FinalYearProjectDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "final year project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project")
	}
	if !models.FinalProjectWorkflow.CanDecide(string(detail.Status)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "final year project is already in a final state")
	}
	status, approvedAt, rejectedAt := reviewStamp(models.FinalProjectWorkflow, approve)
	if err := s.repo.SetReview(ctx, id, models.FinalProjectStatus(status), actor.ID, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review final year project")
	}
	s.logger.Info("final year project reviewed",
		zap.String("id", id), zap.String("status", status), zap.String("reviewer", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus applies any legal workflow status directly.
func (s *FinalProjectService) SetStatus(ctx context.Context, actor models.Actor, id string, req StatusUpdateRequest) (*models.FinalYearProjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "final year project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project")
	}
	if !models.FinalProjectWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	reviewer, comments, approvedAt, rejectedAt := statusStamp(models.FinalProjectWorkflow, req, actor,
		detail.ReviewedBy, detail.ReviewComments, detail.ApprovedAt, detail.RejectedAt)
	if err := s.repo.SetReview(ctx, id, models.FinalProjectStatus(req.Status), reviewer, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update final year project status")
	}
	return s.Get(ctx, id)
}

// Delete removes a final-year project the actor supervises, or any for admins.
func (s *FinalProjectService) Delete(ctx context.Context, actor models.Actor, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "final year project not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project")
	}
	if err := authorizeEdit(&detail.FinalYearProject, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete final year project")
	}
	s.logger.Info("final year project deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Stats returns aggregate final-year project counts.
func (s *FinalProjectService) Stats(ctx context.Context) (*models.FinalProjectStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load final year project stats")
	}
	return stats, nil
}
