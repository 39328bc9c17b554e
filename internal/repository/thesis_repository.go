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

// ThesisRepository manages persistence for thesis supervisions.
type ThesisRepository struct {
	db *sqlx.DB
}

// NewThesisRepository constructs a ThesisRepository.
func NewThesisRepository(db *sqlx.DB) *ThesisRepository {
	return &ThesisRepository{db: db}
}

const thesisColumns = `t.id, t.title, t.abstract, t.student, t.supervisor, t.committee, t.degree,
        t.department, t.research_area, t.start_date, t.expected_completion, t.completion_date, t.defense, t.status,
        t.reviewed_by, t.review_comments, t.approved_at, t.rejected_at, t.created_at, t.updated_at,
        COALESCE(u.first_name || ' ' || u.last_name, '') AS supervisor_name, COALESCE(u.email, '') AS supervisor_email`

// List returns thesis supervisions matching the provided filters.
func (r *ThesisRepository) List(ctx context.Context, filter models.ThesisFilter) ([]models.ThesisSupervisionDetail, int, error) {
	base := "FROM thesis_supervisions t LEFT JOIN users u ON u.id = t.supervisor"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Degree != "" {
		args = append(args, filter.Degree)
		conditions = append(conditions, fmt.Sprintf("t.degree = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("t.department = $%d", len(args)))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(t.supervisor = $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements(t.committee) m WHERE m->>'userId' = $%d))", n, n))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(t.title) LIKE $%d OR LOWER(t.abstract) LIKE $%d OR LOWER(t.research_area) LIKE $%d)", n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"title":               "t.title",
		"degree":              "t.degree",
		"start_date":          "t.start_date",
		"expected_completion": "t.expected_completion",
		"status":              "t.status",
		"created_at":          "t.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "t.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := clampPage(filter.Page, filter.Limit)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d",
		thesisColumns, base, column, order, size, offset)

	var records []models.ThesisSupervisionDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list thesis supervisions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count thesis supervisions: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a thesis supervision with its supervisor resolved.
func (r *ThesisRepository) FindByID(ctx context.Context, id string) (*models.ThesisSupervisionDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM thesis_supervisions t LEFT JOIN users u ON u.id = t.supervisor WHERE t.id = $1", thesisColumns)
	var detail models.ThesisSupervisionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new thesis supervision.
func (r *ThesisRepository) Create(ctx context.Context, thesis *models.ThesisSupervision) error {
	if thesis.ID == "" {
		thesis.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	thesis.CreatedAt = now
	thesis.UpdatedAt = now
	const query = `INSERT INTO thesis_supervisions (id, title, abstract, student, supervisor, committee, degree,
        department, research_area, start_date, expected_completion, completion_date, defense, status, review_comments, created_at, updated_at)
        VALUES (:id, :title, :abstract, :student, :supervisor, :committee, :degree,
        :department, :research_area, :start_date, :expected_completion, :completion_date, :defense, :status, :review_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, thesis); err != nil {
		return fmt.Errorf("create thesis supervision: %w", err)
	}
	return nil
}

// Update modifies descriptive fields.
func (r *ThesisRepository) Update(ctx context.Context, thesis *models.ThesisSupervision) error {
	thesis.UpdatedAt = time.Now().UTC()
	const query = `UPDATE thesis_supervisions SET title = :title, abstract = :abstract, student = :student,
        committee = :committee, degree = :degree, department = :department, research_area = :research_area,
        start_date = :start_date, expected_completion = :expected_completion, completion_date = :completion_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, thesis); err != nil {
		return fmt.Errorf("update thesis supervision: %w", err)
	}
	return nil
}

// SetDefense records a defense outcome, the resulting status, and the
// completion date when the defense concludes the supervision.
func (r *ThesisRepository) SetDefense(ctx context.Context, id string, defense models.Defense, status models.ThesisStatus, completionDate *time.Time) error {
	const query = `UPDATE thesis_supervisions SET defense = $2, status = $3, completion_date = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, defense, status, completionDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("record thesis defense: %w", err)
	}
	return nil
}

// SetReview stamps the workflow decision in a single atomic update.
func (r *ThesisRepository) SetReview(ctx context.Context, id string, status models.ThesisStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	const query = `UPDATE thesis_supervisions SET status = $2, reviewed_by = $3, review_comments = $4,
        approved_at = $5, rejected_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comments, approvedAt, rejectedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("review thesis supervision: %w", err)
	}
	return nil
}

// Delete removes a thesis supervision permanently.
func (r *ThesisRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM thesis_supervisions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete thesis supervision: %w", err)
	}
	return nil
}

// Stats aggregates thesis supervision counts.
func (r *ThesisRepository) Stats(ctx context.Context) (*models.ThesisStats, error) {
	stats := &models.ThesisStats{ByStatus: map[string]int{}, ByDegree: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM thesis_supervisions"); err != nil {
		return nil, fmt.Errorf("count thesis supervisions: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM thesis_supervisions GROUP BY status"); err != nil {
		return nil, fmt.Errorf("thesis supervisions by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var degreeRows []bucketRow
	if err := r.db.SelectContext(ctx, &degreeRows, "SELECT degree AS key, COUNT(*) AS count FROM thesis_supervisions GROUP BY degree"); err != nil {
		return nil, fmt.Errorf("thesis supervisions by degree: %w", err)
	}
	for _, row := range degreeRows {
		stats.ByDegree[row.Key] = row.Count
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM thesis_supervisions WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent thesis supervisions: %w", err)
	}
	return stats, nil
}

// ListInWindow returns thesis supervisions whose start date falls in the window.
func (r *ThesisRepository) ListInWindow(ctx context.Context, start, end *time.Time) ([]models.ThesisSupervision, error) {
	query := "SELECT t.id, t.title, t.abstract, t.student, t.supervisor, t.committee, t.degree, t.department, t.research_area, t.start_date, t.expected_completion, t.completion_date, t.defense, t.status, t.reviewed_by, t.review_comments, t.approved_at, t.rejected_at, t.created_at, t.updated_at FROM thesis_supervisions t"
	conditions, args := windowConditions("COALESCE(t.start_date, t.created_at)", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(t.start_date, t.created_at) DESC"

	var records []models.ThesisSupervision
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("thesis supervisions in window: %w", err)
	}
	return records, nil
}
