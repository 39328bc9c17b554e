package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EventDetail, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	SetRegistrations(ctx context.Context, id string, registrations models.Registrations) error
	SetReview(ctx context.Context, id string, status models.EventStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.EventStats, error)
}

// CreateEventRequest holds the payload for creating events.
type CreateEventRequest struct {
	Title        string         `json:"title" validate:"required,min=3"`
	Description  string         `json:"description"`
	Abstract     string         `json:"abstract"`
	EventType    string         `json:"eventType" validate:"required"`
	CoOrganizers models.Members `json:"coOrganizers"`
	Venue        string         `json:"venue"`
	Department   string         `json:"department" validate:"required"`
	StartDate    *time.Time     `json:"startDate"`
	EndDate      *time.Time     `json:"endDate"`
	Capacity     int            `json:"capacity" validate:"gte=0"`
	Status       string         `json:"status"`
}

// UpdateEventRequest holds the payload for updating events.
type UpdateEventRequest struct {
	Title        string         `json:"title" validate:"required,min=3"`
	Description  string         `json:"description"`
	Abstract     string         `json:"abstract"`
	EventType    string         `json:"eventType" validate:"required"`
	CoOrganizers models.Members `json:"coOrganizers"`
	Venue        string         `json:"venue"`
	Department   string         `json:"department" validate:"required"`
	StartDate    *time.Time     `json:"startDate"`
	EndDate      *time.Time     `json:"endDate"`
	Capacity     int            `json:"capacity" validate:"gte=0"`
	Status       string         `json:"status"`
}

// RegisterRequest holds the payload for event registration.
type RegisterRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Affiliation string `json:"affiliation"`
}

// AttendanceRequest marks a registrant's attendance by email.
type AttendanceRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Attended bool   `json:"attended"`
}

// EventService handles event use-cases.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the event service.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, validator: validate, logger: logger}
}

// List returns events and pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	for i := range records {
		records[i].ApplyDerived()
		records[i].OrganizerInfo = ownerRef(records[i].Organizer, records[i].OrganizerName, records[i].OrganizerEmail)
	}
	return records, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one event with resolved organizer display fields.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	detail.ApplyDerived()
	detail.OrganizerInfo = ownerRef(detail.Organizer, detail.OrganizerName, detail.OrganizerEmail)
	return detail, nil
}

// Create registers a new event with the actor as organizer.
func (s *EventService) Create(ctx context.Context, actor models.Actor, req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	if err := validateDateOrder(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	status := models.EventWorkflow.Initial
	if req.Status != "" {
		if !models.EventWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		status = req.Status
	}
	organizer := actor.ID
	event := &models.Event{
		Title:        req.Title,
		Description:  req.Description,
		Abstract:     req.Abstract,
		EventType:    req.EventType,
		Organizer:    &organizer,
		CoOrganizers: req.CoOrganizers,
		Venue:        req.Venue,
		Department:   req.Department,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Capacity:     req.Capacity,
		Status:       models.EventStatus(status),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	event.ApplyDerived()
	s.logger.Info("event created", zap.String("id", event.ID), zap.String("by", actor.ID))
	return event, nil
}

// Update modifies an event the actor organizes.
func (s *EventService) Update(ctx context.Context, actor models.Actor, id string, req UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	if err := validateDateOrder(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if err := authorizeEdit(&detail.Event, actor); err != nil {
		return nil, err
	}
	event := detail.Event
	event.Title = req.Title
	event.Description = req.Description
	event.Abstract = req.Abstract
	event.EventType = req.EventType
	event.CoOrganizers = req.CoOrganizers
	event.Venue = req.Venue
	event.Department = req.Department
	event.StartDate = req.StartDate
	event.EndDate = req.EndDate
	event.Capacity = req.Capacity
	if req.Status != "" {
		if !models.EventWorkflow.Legal(req.Status) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
		}
		event.Status = models.EventStatus(req.Status)
	}
	if err := s.repo.Update(ctx, &event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	event.ApplyDerived()
	return &event, nil
}

// Register adds an attendee to the event. Duplicate emails are rejected and a
// full event refuses further registrations.
func (s *EventService) Register(ctx context.Context, actor models.Actor, id string, req RegisterRequest) (*models.EventDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid registration payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	for _, reg := range detail.Registrations {
		if strings.EqualFold(reg.Email, email) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this email is already registered for the event")
		}
	}
	if detail.Capacity > 0 && len(detail.Registrations) >= detail.Capacity {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event has reached its registration capacity")
	}
	now := time.Now().UTC()
	registration := models.Registration{
		Name:         req.Name,
		Email:        email,
		Affiliation:  req.Affiliation,
		RegisteredAt: &now,
	}
	if actor.ID != "" {
		userID := actor.ID
		registration.UserID = &userID
	}
	registrations := append(detail.Registrations, registration)
	if err := s.repo.SetRegistrations(ctx, id, registrations); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for event")
	}
	s.logger.Info("event registration added", zap.String("event", id), zap.String("email", email))
	return s.Get(ctx, id)
}

// MarkAttendance flips the attended flag for a registrant.
func (s *EventService) MarkAttendance(ctx context.Context, actor models.Actor, id string, req AttendanceRequest) (*models.EventDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid attendance payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if err := authorizeEdit(&detail.Event, actor); err != nil {
		return nil, err
	}
	found := false
	registrations := detail.Registrations
	for i := range registrations {
		if strings.EqualFold(registrations[i].Email, req.Email) {
			registrations[i].Attended = req.Attended
			found = true
			break
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no registration found for this email")
	}
	if err := s.repo.SetRegistrations(ctx, id, registrations); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	return s.Get(ctx, id)
}

// Approve moves a pending event to the approved state.
func (s *EventService) Approve(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.EventDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, true)
}

// Reject moves a pending event to the rejected state.
func (s *EventService) Reject(ctx context.Context, actor models.Actor, id string, req ReviewRequest) (*models.EventDetail, error) {
	return s.decide(ctx, actor, id, req.Comments, false)
}

func (s *EventService) decide(ctx context.Context, actor models.Actor, id, comments string, approve bool) (*models.EventDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !models.EventWorkflow.CanDecide(string(detail.Status)) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "event is already in a final state")
	}
	status, approvedAt, rejectedAt := reviewStamp(models.EventWorkflow, approve)
	if err := s.repo.SetReview(ctx, id, models.EventStatus(status), actor.ID, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review event")
	}
	s.logger.Info("event reviewed",
		zap.String("id", id), zap.String("status", status), zap.String("reviewer", actor.ID))
	return s.Get(ctx, id)
}

// SetStatus applies any legal workflow status directly.
func (s *EventService) SetStatus(ctx context.Context, actor models.Actor, id string, req StatusUpdateRequest) (*models.EventDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid status payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !models.EventWorkflow.Legal(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "")
	}
	reviewer, comments, approvedAt, rejectedAt := statusStamp(models.EventWorkflow, req, actor,
		detail.ReviewedBy, detail.ReviewComments, detail.ApprovedAt, detail.RejectedAt)
	if err := s.repo.SetReview(ctx, id, models.EventStatus(req.Status), reviewer, comments, approvedAt, rejectedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}
	return s.Get(ctx, id)
}

// Delete removes an event the actor organizes, or any for admins.
func (s *EventService) Delete(ctx context.Context, actor models.Actor, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if err := authorizeEdit(&detail.Event, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.logger.Info("event deleted", zap.String("id", id), zap.String("by", actor.ID))
	return nil
}

// Stats returns aggregate event counts.
func (s *EventService) Stats(ctx context.Context) (*models.EventStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event stats")
	}
	return stats, nil
}
