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

type thesisRepository interface {
	List(ctx context.Context, filter models.ThesisFilter) ([]models.ThesisSupervisionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ThesisSupervisionDetail, error)
	Create(ctx context.Context, thesis *models.ThesisSupervision) error
	Update(ctx context.Context, thesis *models.ThesisSupervision) error
	SetDefense(ctx context.Context, id string, defense models.Defense, status models.ThesisStatus, completionDate *time.Time) error
	SetReview(ctx context.Context, id string, status models.ThesisStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ThesisStats, error)
}

// CreateThesisRequest holds the payload for creating thesis supervisions.
type CreateThesisRequest struct {
	Title              string               `json:"title" validate:"required,min=3"`
	Abstract           string               `json:"abstract"`
	Student            models.ThesisStudent `json:"student" validate:"required"`
	Committee          models.Members       `json:"committee"`
	Degree             string               `json:"degree" validate:"required,oneof=MS MPhil PhD"`
	Department         string               `json:"department" validate:"required"`
	ResearchArea       string               `json:"researchArea"`
	StartDate          *time.Time           `json:"startDate"`
	ExpectedCompletion *time.Time           `json:"expectedCompletion"`
	Status             string               `json:"status"`
}

// UpdateThesisRequest holds the payload for updating thesis supervisions.
type UpdateThesisRequest struct {
	Title              string               `json:"title" validate:"required,min=3"`
	Abstract           string               `json:"abstract"`
	Student            models.ThesisStudent `json:"student" validate:"required"`
	Committee          models.Members       `json:"committee"`
	Degree             string               `json:"degree" validate:"required,oneof=MS MPhil PhD"`
	Department         string               `json:"department" validate:"required"`
	ResearchArea       string               `json:"researchArea"`
	StartDate          *time.Time           `json:"startDate"`
	ExpectedCompletion *time.Time           `json:"expectedCompletion"`
	Status             string               `json:"status"`
}

// DefenseRequest holds the payload for recording a thesis defense outcome.
type DefenseRequest struct {
	Date     *time.Time `json:"date"`
	Result   string     `json:"result" validate:"required,oneof=Pass Fail 'Revisions Required'"`
	Comments string     `json:"comments"`
}

// ThesisService handles thesis supervision use-cases.
type ThesisService struct {
	repo      thesisRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewThesisService constructs the thesis supervision service.
func NewThesisService(repo thesisRepository, validate *validator.Validate, logger *zap.Logger) *ThesisService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThesisService{repo: repo, validator: validate, logger: logger}
}

// List returns thesis supervisions and pagination metadata.
func (s *ThesisService) List(ctx context.Context, filter models.ThesisFilter) ([]models.ThesisSupervisionDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list thesis supervisions")
	}
	for i := range records {
		records[i].ApplyDerived()
		records[i].SupervisorInfo = ownerRef(records[i].Supervisor, records[i].SupervisorName, records[i].SupervisorEmail)
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one thesis supervision with resolved supervisor display fields.
func (s *ThesisService) Get(ctx context.Context, id string) (*models.ThesisSupervisionDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis supervision not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision")
	}
	detail.ApplyDerived()
	detail.SupervisorInfo = ownerRef(detail.Supervisor, detail.SupervisorName, detail.SupervisorEmail)
	return detail, nil
}

// Create registers a new thesis supervision with the actor as supervisor.
func (s *ThesisService) Create(ctx context.Context, actor models.Actor, req CreateThesisRequest) (*models.ThesisSupervision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid thesis supervision payload")
	}
	if err := validateDateOrder(req.StartDate, req.ExpectedCompletion); err != nil {
		return nil, err
	}
	status := models.ThesisWorkflow.Initial
	if req.Status != "" {
		if !models.ThesisWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = req.Status
	}
	supervisor := actor.ID
	thesis := &models.ThesisSupervision{
		Title:              req.Title,
		Abstract:           req.Abstract,
		Student:            req.Student,
		Supervisor:         &supervisor,
		Committee:          req.Committee,
		Degree:             req.Degree,
		Department:         req.Department,
		ResearchArea:       req.ResearchArea,
		StartDate:          req.StartDate,
		ExpectedCompletion: req.ExpectedCompletion,
		Status:             models.ThesisStatus(status),
	}
	if err := s.repo.Create(ctx, thesis); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create thesis supervision")
	}
	thesis.ApplyDerived()
	s.logger.Info("thesis supervision created", zap.String("id", thesis.ID), zap.String("by", actor.ID))
	return thesis, nil
}

// Update modifies a thesis supervision the actor supervises.
func (s *ThesisService) Update(ctx context.Context, actor models.Actor, id string, req UpdateThesisRequest) (*models.ThesisSupervision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid thesis supervision payload")
	}
	if err := validateDateOrder(req.StartDate, req.ExpectedCompletion); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis supervision not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision")
	}
	if err := authorizeEdit(&detail.ThesisSupervision, actor); err != nil {
		return nil, err
	}
	thesis := detail.ThesisSupervision
	thesis.Title = req.Title
	thesis.Abstract = req.Abstract
	thesis.Student = req.Student
	thesis.Committee = req.Committee
	thesis.Degree = req.Degree
	thesis.Department = req.Department
	thesis.ResearchArea = req.ResearchArea
	thesis.StartDate = req.StartDate
	thesis.ExpectedCompletion = req.ExpectedCompletion
	if req.Status != "" {
		if !models.ThesisWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		thesis.Status = models.ThesisStatus(req.Status)
	}
	if err := s.repo.Update(ctx, &thesis); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update thesis supervision")
	}
	thesis.ApplyDerived()
	return &thesis, nil
}

// RecordDefense stores the defense outcome. A Pass result completes the
// supervision and stamps the completion date; any other result moves the
// thesis to Defended and leaves it open.
func (s *ThesisService) RecordDefense(ctx context.Context, actor models.Actor, id string, req DefenseRequest) (*models.ThesisSupervisionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid defense payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis supervision not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision")
	}
	if err := authorizeEdit(&detail.ThesisSupervision, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	date := req.Date
	if date == nil {
		date = &now
	}
	defense := models.Defense{Date: date, Result: req.Result, Comments: req.Comments}

	status := models.ThesisDefended
	var completionDate *time.Time
	if req.Result == models.DefenseResultPass {
		status = models.ThesisCompleted
		completionDate = &now
	}
	if err := s.repo.SetDefense(ctx, id, defense, status, completionDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record thesis defense")
	}
	s.logger.Info("thesis defense recorded",
		zap.String("id", id), zap.String("result", req.Result), zap.String("by", actor.ID))
	return s.Get(ctx, id)
}

// Approve moves a pending thesis to the approved state.
func (s *ThesisService) Approve(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.ThesisSupervisionDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, true)
}

// Reject moves a pending thesis to the rejected state.
func (s *ThesisService) Reject(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.ThesisSupervisionDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, false)
}

func (s *ThesisService) decide(ctx context.Context, actor models.Actor, id, comments string, approve bool) (*models.ThesisSupervisionDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis supervision not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision")
	}
	if !models.ThesisWorkflow.CanDecide(string(detail.Status)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "thesis supervision is already in a final state")
	}
	status, approvedAt, rejectedAt := reviewStamp(models.ThesisWorkflow, approve)
	if err := s.repo.SetReview(ctx, id, models.ThesisStatus(status), actor.ID, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review thesis supervision")
	}
	s.logger.Info("thesis supervision reviewed",
		zap.String("id", id), zap.String("status", status), zap.String("reviewer", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus applies any legal workflow status directly. This is how a thesis
// moves through its research phases.
func (s *ThesisService) SetStatus(ctx context.Context, actor models.Actor, id string, req StatusUpdateRequest) (*models.ThesisSupervisionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis supervision not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision")
	}
	if !models.ThesisWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	reviewer, comments, approvedAt, rejectedAt := statusStamp(models.ThesisWorkflow, req, actor,
		detail.ReviewedBy, detail.ReviewComments, detail.ApprovedAt, detail.RejectedAt)
	if err := s.repo.SetReview(ctx, id, models.ThesisStatus(req.Status), reviewer, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update thesis supervision status")
	}
	return s.Get(ctx, id)
}

// Delete removes a thesis supervision the actor supervises, or any for admins.
func (s *ThesisService) Delete(ctx context.Context, actor models.Actor, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "thesis supervision not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision")
	}
	if err := authorizeEdit(&detail.ThesisSupervision, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete thesis supervision")
	}
	s.logger.Info("thesis supervision deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Stats returns aggregate thesis supervision counts.
func (s *ThesisService) Stats(ctx context.Context) (*models.ThesisStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis supervision stats")
	}
	return stats, nil
}
