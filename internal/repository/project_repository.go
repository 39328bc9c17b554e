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

// ProjectRepository manages persistence for funded projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs a ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `p.id, p.title, p.description, p.principal_investigator, p.co_pis, p.team_members,
        p.funding_agency, p.grant_number, p.department, p.total_budget, p.start_date, p.end_date, p.status,
        p.reviewed_by, p.review_comments, p.approved_at, p.rejected_at, p.created_at, p.updated_at,
        COALESCE(u.first_name || ' ' || u.last_name, '') AS pi_name, COALESCE(u.email, '') AS pi_email`

// List returns funded projects matching the provided filters.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.FundedProjectDetail, int, error) {
	base := "FROM funded_projects p LEFT JOIN users u ON u.id = p.principal_investigator"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.FundingAgency != "" {
		args = append(args, filter.FundingAgency)
		conditions = append(conditions, fmt.Sprintf("p.funding_agency = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("p.department = $%d", len(args)))
	}
	if filter.InvestigatorID != "" {
		args = append(args, filter.InvestigatorID)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.principal_investigator = $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements(p.co_pis) m WHERE m->>'userId' = $%d))", n, n))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(p.title) LIKE $%d OR LOWER(p.description) LIKE $%d OR LOWER(p.funding_agency) LIKE $%d)", n, n, n))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"title":        "p.title",
		"start_date":   "p.start_date",
		"total_budget": "p.total_budget",
		"status":       "p.status",
		"created_at":   "p.created_at",
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
		projectColumns, base, column, order, size, offset)

	var records []models.FundedProjectDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	return records, total, nil
}

// FindByID fetches a project with its PI resolved.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.FundedProjectDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM funded_projects p LEFT JOIN users u ON u.id = p.principal_investigator WHERE p.id = $1", projectColumns)
	var detail models.FundedProjectDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new funded project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.FundedProject) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	const query = `INSERT INTO funded_projects (id, title, description, principal_investigator, co_pis, team_members,
        funding_agency, grant_number, department, total_budget, start_date, end_date, status, review_comments, created_at, updated_at)
        VALUES (:id, :title, :description, :principal_investigator, :co_pis, :team_members,
        :funding_agency, :grant_number, :department, :total_budget, :start_date, :end_date, :status, :review_comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// Update modifies descriptive fields.
func (r *ProjectRepository) Update(ctx context.Context, project *models.FundedProject) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE funded_projects SET title = :title, description = :description, co_pis = :co_pis,
        team_members = :team_members, funding_agency = :funding_agency, grant_number = :grant_number,
        department = :department, total_budget = :total_budget, start_date = :start_date, end_date = :end_date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// SetReview stamps the workflow decision in a single atomic update.
func (r *ProjectRepository) SetReview(ctx context.Context, id string, status models.ProjectStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	const query = `UPDATE funded_projects SET status = $2, reviewed_by = $3, review_comments = $4,
        approved_at = $5, rejected_at = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, comments, approvedAt, rejectedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("review project: %w", err)
	}
	return nil
}

// Delete removes a project permanently.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM funded_projects WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Stats aggregates funded-project counts and total funding.
func (r *ProjectRepository) Stats(ctx context.Context) (*models.ProjectStats, error) {
	stats := &models.ProjectStats{ByStatus: map[string]int{}, ByDepartment: map[string]int{}}

	if err := r.db.GetContext(ctx, &stats.Total, "SELECT COUNT(*) FROM funded_projects"); err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	var statusRows []bucketRow
	if err := r.db.SelectContext(ctx, &statusRows, "SELECT status AS key, COUNT(*) AS count FROM funded_projects GROUP BY status"); err != nil {
		return nil, fmt.Errorf("projects by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Key] = row.Count
	}

	var deptRows []bucketRow
	if err := r.db.SelectContext(ctx, &deptRows, "SELECT department AS key, COUNT(*) AS count FROM funded_projects GROUP BY department"); err != nil {
		return nil, fmt.Errorf("projects by department: %w", err)
	}
	for _, row := range deptRows {
		stats.ByDepartment[row.Key] = row.Count
	}

	if err := r.db.GetContext(ctx, &stats.TotalFunding, "SELECT COALESCE(SUM(total_budget), 0) FROM funded_projects"); err != nil {
		return nil, fmt.Errorf("projects total funding: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	if err := r.db.GetContext(ctx, &stats.Recent, "SELECT COUNT(*) FROM funded_projects WHERE created_at >= $1", cutoff); err != nil {
		return nil, fmt.Errorf("recent projects: %w", err)
	}
	return stats, nil
}

// ListInWindow returns projects whose start date falls in the window.
func (r *ProjectRepository) ListInWindow(ctx context.Context, start, end *time.Time) ([]models.FundedProject, error) {
	query := "SELECT p.id, p.title, p.description, p.principal_investigator, p.co_pis, p.team_members, p.funding_agency, p.grant_number, p.department, p.total_budget, p.start_date, p.end_date, p.status, p.reviewed_by, p.review_comments, p.approved_at, p.rejected_at, p.created_at, p.updated_at FROM funded_projects p"
	conditions, args := windowConditions("COALESCE(p.start_date, p.created_at)", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY COALESCE(p.start_date, p.created_at) DESC"

	var records []models.FundedProject
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("projects in window: %w", err)
	}
	return records, nil
}
