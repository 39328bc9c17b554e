package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/research-admin-api/internal/models"
)

// ContactRepository manages persistence for contact inquiries.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `c.id, c.name, c.email, c.phone, c.subject, c.message, c.category, c.status, c.response, c.created_at, c.updated_at`

// List returns contact inquiries matching the provided filters.
func (r *ContactRepository) List(ctx context.Context, filter models.ContactFilter) ([]models.Contact, int, error) {
	base := "FROM contacts c"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(c.name) LIKE $%d OR LOWER(c.email) LIKE $%d OR LOWER(c.subject) LIKE $%d OR LOWER(c.message) LIKE $%d)", n, n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"name":       "c.name",
		"category":   "c.category",
		"status":     "c.status",
		"created_at": "c.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := clampPage(filter.Page, filter.Limit)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		contactColumns, base, column, order, size, offset)

	var records []models.Contact
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}
	return records, total, nil
}

// FindByID fetches one contact inquiry.
func (r *ContactRepository) FindByID(ctx context.Context, id string) (*models.Contact, error) {
	query := fmt.Sprintf("SELECT %s FROM contacts c WHERE c.id = $1", contactColumns)
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		return nil, err
	}
	return &contact, nil
}

// Create inserts a new contact inquiry.
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	const query = `INSERT INTO contacts (id, name, email, phone, subject, message, category, status, response, created_at, updated_at)
        VALUES (:id, :name, :email, :phone, :subject, :message, :category, :status, :response, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contact); err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// SetStatus updates the inquiry status only.
func (r *ContactRepository) SetStatus(ctx context.Context, id string, status models.ContactStatus) error {
	const query = `UPDATE contacts SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update contact status: %w", err)
	}
	return nil
}

// SetResponse stores the reply and the resulting status together.
func (r *ContactRepository) SetResponse(ctx context.Context, id string, response models.ContactResponse, status models.ContactStatus) error {
	const query = `UPDATE contacts SET response = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, response, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("respond to contact: %w", err)
	}
	return nil
}

// BulkUpdateStatus moves every matched inquiry to the given status and reports
// how many of the requested ids existed and how many rows changed. Unknown ids
// are skipped, not rejected.
func (r *ContactRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.ContactStatus) (*models.BulkUpdateResult, error) {
	result := &models.BulkUpdateResult{}

	if err := r.db.GetContext(ctx, &result.MatchedCount,
		"SELECT COUNT(*) FROM contacts WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("match contacts for bulk update: %w", err)
	}

	// status <> $1 keeps rows already in the target status out of
	// ModifiedCount; MatchedCount above still counts them.
	res, err := r.db.ExecContext(ctx,
		"UPDATE contacts SET status = $1, updated_at = $2 WHERE id = ANY($3) AND status <> $1",
		status, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("bulk update contacts: %w", err)
	}
	modified, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("bulk update contacts: %w", err)
	}
	result.ModifiedCount = int(modified)
	return result, nil
}

// Delete removes a contact inquiry permanently.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// Stats aggregates contact inquiry counts.
func (r *ContactRepository) Stats(ctx context.Context) (*models.ContactStats, error) {
	stats := &models.ContactStats{ByStatus: map[string]int{}, ByCategory: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM contacts"); err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM contacts GROUP BY status"); err != nil {
		return nil, fmt.Errorf("contacts by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var categoryRows []bucketRow
	if err := r.db.SelectContext(ctx, &categoryRows, "SELECT category AS key, COUNT(*) AS count FROM contacts GROUP BY category"); err != nil {
		return nil, fmt.Errorf("contacts by category: %w", err)
	}
	for _, row := range categoryRows {
		stats.ByCategory[row.Key] = row.Count
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM contacts WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent contacts: %w", err)
	}
	return stats, nil
}
