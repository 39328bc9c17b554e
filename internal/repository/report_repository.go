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

// ReportRepository reads cross-entity projections for the reporting engine
// and persists asynchronous export job metadata.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// FundingRecords returns the flat funding projection across funded projects
// and travel grants. Grouping, ranking, and year-over-year math happen in the
// service so the rollup stays unit-testable.
func (r *ReportRepository) FundingRecords(ctx context.Context, start, end *time.Time) ([]models.FundingRecord, error) {
	const projectQuery = `SELECT 'project' AS source, COALESCE(funding_agency, '') AS agency,
        COALESCE(department, '') AS department, COALESCE(total_budget, 0) AS amount,
        COALESCE(start_date, created_at) AS funded_at FROM funded_projects`
	const grantQuery = `SELECT 'travelGrant' AS source, COALESCE(funding->>'agency', '') AS agency,
        COALESCE(department, '') AS department, COALESCE((funding->>'amount')::numeric, 0) AS amount,
        created_at AS funded_at FROM travel_grants`

	query := fmt.Sprintf("SELECT source, agency, department, amount, funded_at FROM (%s UNION ALL %s) funding",
		projectQuery, grantQuery)

	conditions, args := windowConditions("funded_at", start, end)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY funded_at DESC"

	var records []models.FundingRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("funding records: %w", err)
	}
	return records, nil
}

// CreateJob inserts a new export job row with generated defaults.
func (r *ReportRepository) CreateJob(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (id, module, params, status, progress, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :module, :params, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// JobByID returns a job row by its identifier.
func (r *ReportRepository) JobByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, module, params, status, progress, result_url, created_by, created_at, finished_at, error_message
FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateReportJobParams defines the mutable fields of a job row.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// UpdateJob persists the provided changes for a job row.
func (r *ReportRepository) UpdateJob(ctx context.Context, id string, params UpdateReportJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.Progress != nil {
		set = append(set, fmt.Sprintf("progress = $%d", argPos))
		args = append(args, *params.Progress)
		argPos++
	}
	if params.ResultURL != nil {
		set = append(set, fmt.Sprintf("result_url = $%d", argPos))
		args = append(args, *params.ResultURL)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE report_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListQueuedJobs fetches queued jobs (used for cold start recovery).
func (r *ReportRepository) ListQueuedJobs(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, module, params, status, progress, result_url, created_by, created_at, finished_at, error_message
FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	return jobs, nil
}

// ListJobsFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ReportRepository) ListJobsFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, module, params, status, progress, result_url, created_by, created_at, finished_at, error_message
FROM report_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}
