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

// FinalProjectRepository manages persistence for final-year projects.
type FinalProjectRepository struct {
	db *sqlx.DB
}

// NewFinalProjectRepository constructs a FinalProjectRepository.
func NewFinalProjectRepository(db *sqlx.DB) *FinalProjectRepository {
	return &FinalProjectRepository{db: db}
}

const finalProjectColumns = `p.id, p.title, p.description, p.supervisor, p.co_supervisors, p.students,
        p.batch, p.department, p.technologies, p.evaluation, p.deliverables, p.start_date, p.end_date, p.status,
        p.reviewed_by, p.review_comments, p.approved_at, p.rejected_at, p.created_at, p.updated_at,
        COALESCE(u.first_name || ' ' || u.last_name, '') AS supervisor_name, COALESCE(u.email, '') AS supervisor_email`

// List returns final-year projects matching the provided filters.
func (r *FinalProjectRepository) List(ctx context.Context, filter models.FinalProjectFilter) ([]models.FinalYearProjectDetail, int, error) {
	base := "FROM final_year_projects p LEFT JOIN users u ON u.id = p.supervisor"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.Batch != "" {
		args = append(args, filter.Batch)
		conditions = append(conditions, fmt.Sprintf("p.batch = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("p.department = $%d", len(args)))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.supervisor = $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements(p.co_supervisors) m WHERE m->>'userId' = $%d))", n, n))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(p.title) LIKE $%d OR LOWER(p.description) LIKE $%d OR LOWER(p.technologies::text) LIKE $%d)", n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"title":      "p.title",
		"batch":      "p.batch",
		"start_date": "p.start_date",
		"status":     "p.status",
		"created_at": "p.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := clampPage(filter.Page, filter.Limit)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d",
		finalProjectColumns, base, column, order, size, offset)

	var records []models.FinalYearProjectDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list final year projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count final year projects: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a final-year project with its supervisor resolved.
func (r *FinalProjectRepository) FindByID(ctx context.Context, id string) (*models.FinalYearProjectDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM final_year_projects p LEFT JOIN users u ON u.id = p.supervisor WHERE p.id = $1", finalProjectColumns)
	var detail models.FinalYearProjectDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new final-year project.
func (r *FinalProjectRepository) Create(ctx context.Context, project *models.FinalYearProject) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	const query = `INSERT INTO final_year_projects (id, title, description, supervisor, co_supervisors, students,
        batch, department, technologies, evaluation, deliverables, start_date, end_date, status, review_comments, created_at, updated_at)
        VALUES (:id, :title, :description, :supervisor, :co_supervisors, :students,
        :batch, :department, :technologies, :evaluation, :deliverables, :start_date, :end_date, :status, :review_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create final year project: %w", err)
	}
	return nil
}

// Update modifies descriptive fields.
func (r *FinalProjectRepository) Update(ctx context.Context, project *models.FinalYearProject) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE final_year_projects SET title = :title, description = :description,
        co_supervisors = :co_supervisors, students = :students, batch = :batch, department = :department,
        technologies = :technologies, deliverables = :deliverables, start_date = :start_date, end_date = :end_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update final year project: %w", err)
	}
	return nil
}

// SetEvaluation stores the grading outcome and resulting status together.
func (r *FinalProjectRepository) SetEvaluation(ctx context.Context, id string, evaluation models.Evaluation, status models.FinalProjectStatus) error {
	const query = `UPDATE final_year_projects SET evaluation = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, evaluation, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("grade final year project: %w", err)
	}
	return nil
}

// SetReview stamps the workflow decision in a single atomic update.
func (r *FinalProjectRepository) SetReview(ctx context.Context, id string, status models.FinalProjectStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	const query = `UPDATE final_year_projects SET status = $2, reviewed_by = $3, review_comments = $4,
        approved_at = $5, rejected_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comments, approvedAt, rejectedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("review final year project: %w", err)
	}
	return nil
}

// Delete removes a final-year project permanently.
func (r *FinalProjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM final_year_projects WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete final year project: %w", err)
	}
	return nil
}

// Stats aggregates final-year project counts.
func (r *FinalProjectRepository) Stats(ctx context.Context) (*models.FinalProjectStats, error) {
	stats := &models.FinalProjectStats{ByStatus: map[string]int{}, ByBatch: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM final_year_projects"); err != nil {
		return nil, fmt.Errorf("count final year projects: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM final_year_projects GROUP BY status"); err != nil {
		return nil, fmt.Errorf("final year projects by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var batchRows []bucketRow
	if err := r.db.SelectContext(ctx, &batchRows, "SELECT batch AS key, COUNT(*) AS count FROM final_year_projects GROUP BY batch"); err != nil {
		return nil, fmt.Errorf("final year projects by batch: %w", err)
	}
	for _, row := range batchRows {
		stats.ByBatch[row.Key] = row.Count
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM final_year_projects WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent final year projects: %w", err)
	}
	return stats, nil
}

// ListInWindow returns final-year projects whose start date falls in the window.
func (r *FinalProjectRepository) ListInWindow(ctx context.Context, start, end *time.Time) ([]models.FinalYearProject, error) {
	query := "SELECT p.id, p.title, p.description, p.supervisor, p.co_supervisors, p.students, p.batch, p.department, p.technologies, p.evaluation, p.deliverables, p.start_date, p.end_date, p.status, p.reviewed_by, p.review_comments, p.approved_at, p.rejected_at, p.created_at, p.updated_at FROM final_year_projects p"
	conditions, args := windowConditions("COALESCE(p.start_date, p.created_at)", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(p.start_date, p.created_at) DESC"

	var records []models.FinalYearProject
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("final year projects in window: %w", err)
	}
	return records, nil
}
