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

// TravelGrantRepository manages persistence for travel grants.
type TravelGrantRepository struct {
	db *sqlx.DB
}

// NewTravelGrantRepository constructs a TravelGrantRepository.
func NewTravelGrantRepository(db *sqlx.DB) *TravelGrantRepository {
	return &TravelGrantRepository{db: db}
}

const travelGrantColumns = `g.id, g.applicant, g.purpose, g.event, g.travel_details, g.funding, g.budget_breakdown,
        g.justification, g.post_travel, g.department, g.status,
        g.reviewed_by, g.review_comments, g.approved_at, g.rejected_at, g.created_at, g.updated_at,
        COALESCE(u.first_name || ' ' || u.last_name, '') AS applicant_name, COALESCE(u.email, '') AS applicant_email`

// List returns travel grants matching the provided filters.
func (r *TravelGrantRepository) List(ctx context.Context, filter models.TravelGrantFilter) ([]models.TravelGrantDetail, int, error) {
	base := "FROM travel_grants g LEFT JOIN users u ON u.id = g.applicant"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("g.status = $%d", len(args)))
	}
	if filter.Purpose != "" {
		args = append(args, filter.Purpose)
		conditions = append(conditions, fmt.Sprintf("g.purpose = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("g.department = $%d", len(args)))
	}
	if filter.ApplicantID != "" {
		args = append(args, filter.ApplicantID)
		conditions = append(conditions, fmt.Sprintf("g.applicant = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(g.event->>'name') LIKE $%d OR LOWER(g.justification) LIKE $%d OR LOWER(g.event->>'city') LIKE $%d)", n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"purpose":    "g.purpose",
		"status":     "g.status",
		"created_at": "g.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "g.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := clampPage(filter.Page, filter.Limit)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d",
		travelGrantColumns, base, column, order, size, offset)

	var records []models.TravelGrantDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list travel grants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count travel grants: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a travel grant with its applicant resolved.
func (r *TravelGrantRepository) FindByID(ctx context.Context, id string) (*models.TravelGrantDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM travel_grants g LEFT JOIN users u ON u.id = g.applicant WHERE g.id = $1", travelGrantColumns)
	var detail models.TravelGrantDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new travel grant.
func (r *TravelGrantRepository) Create(ctx context.Context, grant *models.TravelGrant) error {
	if grant.ID == "" {
		grant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grant.CreatedAt = now
	grant.UpdatedAt = now
	const query = `INSERT INTO travel_grants (id, applicant, purpose, event, travel_details, funding, budget_breakdown,
        justification, post_travel, department, status, review_comments, created_at, updated_at)
        VALUES (:id, :applicant, :purpose, :event, :travel_details, :funding, :budget_breakdown,
        :justification, :post_travel, :department, :status, :review_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("create travel grant: %w", err)
	}
	return nil
}

// Update modifies descriptive fields.
func (r *TravelGrantRepository) Update(ctx context.Context, grant *models.TravelGrant) error {
	grant.UpdatedAt = time.Now().UTC()
	const query = `UPDATE travel_grants SET purpose = :purpose, event = :event, travel_details = :travel_details,
        funding = :funding, budget_breakdown = :budget_breakdown, justification = :justification,
        department = :department, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, grant); err != nil {
		return fmt.Errorf("update travel grant: %w", err)
	}
	return nil
}

// SetPostTravel stores the post-travel report and the resulting status together.
func (r *TravelGrantRepository) SetPostTravel(ctx context.Context, id string, report models.PostTravel, status models.TravelGrantStatus) error {
	const query = `UPDATE travel_grants SET post_travel = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, report, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("record post travel report: %w", err)
	}
	return nil
}

// SetReview stamps the workflow decision in a single atomic update.
func (r *TravelGrantRepository) SetReview(ctx context.Context, id string, status models.TravelGrantStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	const query = `UPDATE travel_grants SET status = $2, reviewed_by = $3, review_comments = $4,
        approved_at = $5, rejected_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comments, approvedAt, rejectedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("review travel grant: %w", err)
	}
	return nil
}

// Delete removes a travel grant permanently.
func (r *TravelGrantRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM travel_grants WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete travel grant: %w", err)
	}
	return nil
}

// Stats aggregates travel grant counts and requested funding.
func (r *TravelGrantRepository) Stats(ctx context.Context) (*models.TravelGrantStats, error) {
	stats := &models.TravelGrantStats{ByStatus: map[string]int{}, ByPurpose: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM travel_grants"); err != nil {
		return nil, fmt.Errorf("count travel grants: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM travel_grants GROUP BY status"); err != nil {
		return nil, fmt.Errorf("travel grants by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var purposeRows []bucketRow
	if err := r.db.SelectContext(ctx, &purposeRows, "SELECT purpose AS key, COUNT(*) AS count FROM travel_grants GROUP BY purpose"); err != nil {
		return nil, fmt.Errorf("travel grants by purpose: %w", err)
	}
	for _, row := range purposeRows {
		stats.ByPurpose[row.Key] = row.Count
	}

	const requestedQuery = `SELECT COALESCE(SUM((funding->>'amount')::numeric), 0) FROM travel_grants`
	if err := r.db.GetContext(ctx, &stats.TotalRequested, requestedQuery); err != nil {
		return nil, fmt.Errorf("total requested travel funding: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM travel_grants WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent travel grants: %w", err)
	}
	return stats, nil
}

// ListInWindow returns travel grants created in the window.
func (r *TravelGrantRepository) ListInWindow(ctx context.Context, start, end *time.Time) ([]models.TravelGrant, error) {
	query := "SELECT g.id, g.applicant, g.purpose, g.event, g.travel_details, g.funding, g.budget_breakdown, g.justification, g.post_travel, g.department, g.status, g.reviewed_by, g.review_comments, g.approved_at, g.rejected_at, g.created_at, g.updated_at FROM travel_grants g"
	conditions, args := windowConditions("g.created_at", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY g.created_at DESC"

	var records []models.TravelGrant
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("travel grants in window: %w", err)
	}
	return records, nil
}
