package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/research-admin-api/internal/models"
)

func reportJobRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "module", "params", "status", "progress", "result_url",
		"created_by", "created_at", "finished_at", "error_message",
	}).AddRow(
		"job-1", "publications", []byte(`{"module":"publications","range":"this-year","format":"csv"}`),
		"QUEUED", 0, nil, "u1", now, nil, nil,
	)
}

func TestReportRepositoryFundingRecordsWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"source", "agency", "department", "amount", "funded_at"}).
		AddRow("project", "NSF", "CS", 100000.0, start.AddDate(0, 2, 0)).
		AddRow("travelGrant", "DAAD", "Physics", 2500.0, start.AddDate(0, 5, 0))

	mock.ExpectQuery(`SELECT source, agency, department, amount, funded_at FROM \(.+UNION ALL.+\) funding WHERE funded_at >= \$1 ORDER BY funded_at DESC`).
		WithArgs(start).
		WillReturnRows(rows)

	records, err := repo.FundingRecords(context.Background(), &start, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "project", records[0].Source)
	assert.Equal(t, 2500.0, records[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCreateJobDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db)

	mock.ExpectExec(`INSERT INTO report_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.ReportJob{
		Module: models.ModulePublications,
		Params: models.ReportJobParams{
			Module: models.ModulePublications,
			Range:  models.RangeThisYear,
			Format: models.ReportFormatCSV,
		},
		CreatedBy: "u1",
	}
	require.NoError(t, repo.CreateJob(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryJobByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM report_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(reportJobRows())

	job, err := repo.JobByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, models.ReportFormatCSV, job.Params.Format)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateJobBuildsSetClause(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db)

	status := models.ReportStatusFinished
	progress := 100
	url := "/api/v1/reports/download/tok"
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE report_jobs SET status = \$1, progress = \$2, result_url = \$3, finished_at = \$4 WHERE id = \$5`).
		WithArgs("FINISHED", 100, url, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateJob(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &url,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateJobNoFieldsIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db)

	require.NoError(t, repo.UpdateJob(context.Background(), "job-1", UpdateReportJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueuedJobs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT \$1`).
		WithArgs(25).
		WillReturnRows(reportJobRows())

	jobs, err := repo.ListQueuedJobs(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
