package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/research-admin-api/internal/models"
)

// EventRepository manages persistence for academic events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.abstract, e.event_type, e.organizer, e.co_organizers, e.venue,
        e.start_date, e.end_date, e.capacity, e.registrations, e.department, e.status,
        e.reviewed_by, e.review_comments, e.approved_at, e.rejected_at, e.created_at, e.updated_at,
        COALESCE(u.first_name || ' ' || u.last_name, '') AS organizer_name, COALESCE(u.email, '') AS organizer_email`

// List returns events matching the provided filters.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error) {
	base := "FROM events e LEFT JOIN users u ON u.id = e.organizer"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if filter.EventType != "" {
		args = append(args, filter.EventType)
		conditions = append(conditions, fmt.Sprintf("e.event_type = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("e.department = $%d", len(args)))
	}
	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(e.organizer = $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements(e.co_organizers) m WHERE m->>'userId' = $%d))", n, n))
	}
	if filter.Upcoming {
		args = append(args, time.Now().UTC())
		conditions = append(conditions, fmt.Sprintf("e.start_date >= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(e.title) LIKE $%d OR LOWER(e.description) LIKE $%d OR LOWER(e.venue) LIKE $%d)", n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"title":      "e.title",
		"event_type": "e.event_type",
		"start_date": "e.start_date",
		"status":     "e.status",
		"created_at": "e.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "e.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := clampPage(filter.Page, filter.Limit)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d",
		eventColumns, base, column, order, size, offset)

	var records []models.EventDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return records, total, nil
}

// FindByID fetches an event with its organizer resolved.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.EventDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM events e LEFT JOIN users u ON u.id = e.organizer WHERE e.id = $1", eventColumns)
	var detail models.EventDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, abstract, event_type, organizer, co_organizers, venue,
        start_date, end_date, capacity, registrations, department, status, review_comments, created_at, updated_at)
        VALUES (:id, :title, :description, :abstract, :event_type, :organizer, :co_organizers, :venue,
        :start_date, :end_date, :capacity, :registrations, :department, :status, :review_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies descriptive fields.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, abstract = :abstract, event_type = :event_type,
        co_organizers = :co_organizers, venue = :venue, start_date = :start_date, end_date = :end_date,
        capacity = :capacity, department = :department, status = :status, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// SetRegistrations replaces the registration list.
func (r *EventRepository) SetRegistrations(ctx context.Context, id string, registrations models.Registrations) error {
	const query = `UPDATE events SET registrations = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, registrations, time.Now().UTC()); err != nil {
		return fmt.Errorf("update event registrations: %w", err)
	}
	return nil
}

// SetReview stamps the workflow decision in a single atomic update.
func (r *EventRepository) SetReview(ctx context.Context, id string, status models.EventStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	const query = `UPDATE events SET status = $2, reviewed_by = $3, review_comments = $4,
        approved_at = $5, rejected_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comments, approvedAt, rejectedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("review event: %w", err)
	}
	return nil
}

// Delete removes an event permanently.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Stats aggregates event counts.
func (r *EventRepository) Stats(ctx context.Context) (*models.EventStats, error) {
	stats := &models.EventStats{ByStatus: map[string]int{}, ByType: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM events"); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM events GROUP BY status"); err != nil {
		return nil, fmt.Errorf("events by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var typeRows []bucketRow
	if err := r.db.SelectContext(ctx, &typeRows, "SELECT event_type AS key, COUNT(*) AS count FROM events GROUP BY event_type"); err != nil {
		return nil, fmt.Errorf("events by type: %w", err)
	}
	for _, row := range typeRows {
		stats.ByType[row.Key] = row.Count
	}

	now := time.Now().UTC()
	if err := r.db.GetContext(ctx, &stats.Upcoming, "SELECT COUNT(*) FROM events WHERE start_date >= $1", now); err != nil {
		return nil, fmt.Errorf("upcoming events: %w", err)
	}

	cutoff := now.AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM events WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return stats, nil
}

// ListInWindow returns events whose start date falls in the window.
func (r *EventRepository) ListInWindow(ctx context.Context, start, end *time.Time) ([]models.Event, error) {
	query := "SELECT e.id, e.title, e.description, e.abstract, e.event_type, e.organizer, e.co_organizers, e.venue, e.start_date, e.end_date, e.capacity, e.registrations, e.department, e.status, e.reviewed_by, e.review_comments, e.approved_at, e.rejected_at, e.created_at, e.updated_at FROM events e"
	conditions, args := windowConditions("COALESCE(e.start_date, e.created_at)", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(e.start_date, e.created_at) DESC"

	var records []models.Event
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("events in window: %w", err)
	}
	return records, nil
}
