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

// PublicationRepository manages persistence for publication records.
type PublicationRepository struct {
	db *sqlx.DB
}

// NewPublicationRepository constructs a PublicationRepository.
func NewPublicationRepository(db *sqlx.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

const publicationColumns = `p.id, p.title, p.abstract, p.keywords, p.publication_type, p.authors, p.submitted_by,
        p.journal_name, p.volume, p.issue, p.pages, p.doi, p.publication_date, p.status,
        p.reviewed_by, p.review_comments, p.approved_at, p.rejected_at, p.created_at, p.updated_at,
        COALESCE(u.first_name || ' ' || u.last_name, '') AS submitter_name, COALESCE(u.email, '') AS submitter_email`

// List returns publications matching the provided filters.
func (r *PublicationRepository) List(ctx context.Context, filter models.PublicationFilter) ([]models.PublicationDetail, int, error) {
	base := "FROM publications p LEFT JOIN users u ON u.id = p.submitted_by"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.PublicationType != "" {
		args = append(args, filter.PublicationType)
		conditions = append(conditions, fmt.Sprintf("p.publication_type = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.submitted_by = $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements(p.authors) a WHERE a->>'userId' = $%d))", n, n))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM p.publication_date) = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(p.title) LIKE $%d OR LOWER(p.abstract) LIKE $%d OR LOWER(p.keywords::text) LIKE $%d)", n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"title":            "p.title",
		"publication_date": "p.publication_date",
		"status":           "p.status",
		"created_at":       "p.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.publication_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := clampPage(filter.Page, filter.Limit)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d",
		publicationColumns, base, column, order, size, offset)

	var records []models.PublicationDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list publications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count publications: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a publication with its submitter resolved.
func (r *PublicationRepository) FindByID(ctx context.Context, id string) (*models.PublicationDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM publications p LEFT JOIN users u ON u.id = p.submitted_by WHERE p.id = $1", publicationColumns)
	var detail models.PublicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new publication record.
func (r *PublicationRepository) Create(ctx context.Context, pub *models.Publication) error {
	if pub.ID == "" {
		pub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pub.CreatedAt = now
	pub.UpdatedAt = now
	const query = `INSERT INTO publications (id, title, abstract, keywords, publication_type, authors, submitted_by,
        journal_name, volume, issue, pages, doi, publication_date, status, review_comments, created_at, updated_at)
        VALUES (:id, :title, :abstract, :keywords, :publication_type, :authors, :submitted_by,
        :journal_name, :volume, :issue, :pages, :doi, :publication_date, :status, :review_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pub); err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	return nil
}

// Update modifies descriptive fields. Review metadata is only written by
// the workflow methods.
func (r *PublicationRepository) Update(ctx context.Context, pub *models.Publication) error {
	pub.UpdatedAt = time.Now().UTC()
	const query = `UPDATE publications SET title = :title, abstract = :abstract, keywords = :keywords,
        publication_type = :publication_type, authors = :authors, journal_name = :journal_name,
        volume = :volume, issue = :issue, pages = :pages, doi = :doi, publication_date = :publication_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, pub); err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	return nil
}

// SetReview stamps the workflow decision in a single atomic update.
func (r *PublicationRepository) SetReview(ctx context.Context, id string, status models.PublicationStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	const query = `UPDATE publications SET status = $2, reviewed_by = $3, review_comments = $4,
        approved_at = $5, rejected_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comments, approvedAt, rejectedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("review publication: %w", err)
	}
	return nil
}

// Delete removes a publication permanently.
func (r *PublicationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM publications WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete publication: %w", err)
	}
	return nil
}

// Stats aggregates publication counts.
func (r *PublicationRepository) Stats(ctx context.Context) (*models.PublicationStats, error) {
	stats := &models.PublicationStats{ByStatus: map[string]int{}, ByType: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM publications"); err != nil {
		return nil, fmt.Errorf("count publications: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM publications GROUP BY status"); err != nil {
		return nil, fmt.Errorf("publications by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var typeRows []bucketRow
	if err := r.db.SelectContext(ctx, &typeRows, "SELECT publication_type AS key, COUNT(*) AS count FROM publications GROUP BY publication_type"); err != nil {
		return nil, fmt.Errorf("publications by type: %w", err)
	}
	for _, row := range typeRows {
		stats.ByType[row.Key] = row.Count
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM publications WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent publications: %w", err)
	}
	return stats, nil
}

// ListInWindow returns every publication whose primary date falls in the
// given window, for report assembly.
func (r *PublicationRepository) ListInWindow(ctx context.Context, start, end *time.Time) ([]models.Publication, error) {
	query := "SELECT p.id, p.title, p.abstract, p.keywords, p.publication_type, p.authors, p.submitted_by, p.journal_name, p.volume, p.issue, p.pages, p.doi, p.publication_date, p.status, p.reviewed_by, p.review_comments, p.approved_at, p.rejected_at, p.created_at, p.updated_at FROM publications p"
	conditions, args := windowConditions("COALESCE(p.publication_date, p.created_at)", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(p.publication_date, p.created_at) DESC"

	var records []models.Publication
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("publications in window: %w", err)
	}
	return records, nil
}
