package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/repository"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/jobs"
)

type mockReportJobStore struct {
	jobs    map[string]*models.ReportJob
	updates []repository.UpdateReportJobParams
	created *models.ReportJob
	queued  []models.ReportJob
}

func newMockReportJobStore() *mockReportJobStore {
	return &mockReportJobStore{jobs: map[string]*models.ReportJob{}}
}

func (m *mockReportJobStore) CreateJob(_ context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	m.created = job
	m.jobs[job.ID] = job
	return nil
}

func (m *mockReportJobStore) JobByID(_ context.Context, id string) (*models.ReportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportJobStore) UpdateJob(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	m.updates = append(m.updates, params)
	if job, ok := m.jobs[id]; ok {
		if params.Status != nil {
			job.Status = *params.Status
		}
		if params.Progress != nil {
			job.Progress = *params.Progress
		}
		if params.ResultURL != nil {
			job.ResultURL = params.ResultURL
		}
	}
	return nil
}

func (m *mockReportJobStore) ListQueuedJobs(_ context.Context, _ int) ([]models.ReportJob, error) {
	return m.queued, nil
}

func (m *mockReportJobStore) ListJobsFinishedBefore(_ context.Context, _ time.Time, _ int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockFundingSource struct {
	records []models.FundingRecord
	start   *time.Time
	end     *time.Time
}

func (m *mockFundingSource) FundingRecords(_ context.Context, start, end *time.Time) ([]models.FundingRecord, error) {
	m.start, m.end = start, end
	return m.records, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockExportGenerator struct {
	result *ExportResult
	err    error
	calls  int
}

func (m *mockExportGenerator) Generate(_ context.Context, _ *models.ReportJob) (*ExportResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func dateAt(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestComputeFundingStatsAggregates(t *testing.T) {
	records := []models.FundingRecord{
		{Source: "project", Agency: "NSF", Department: "CS", Amount: 100000, Date: dateAt(2024, 3, 1)},
		{Source: "project", Agency: "NSF", Department: "Physics", Amount: 50000, Date: dateAt(2024, 7, 1)},
		{Source: "project", Agency: "UGC", Department: "CS", Amount: 150000, Date: dateAt(2025, 1, 15)},
		{Source: "travelGrant", Agency: "", Department: "CS", Amount: 2000, Date: dateAt(2025, 4, 2)},
		{Source: "travelGrant", Agency: "DAAD", Department: "", Amount: 3000, Date: nil},
	}

	stats := computeFundingStats(records)

	assert.Equal(t, 305000.0, stats.GrandTotal)

	assert.Equal(t, 3, stats.Projects.Count)
	assert.Equal(t, 300000.0, stats.Projects.TotalAmount)
	assert.Equal(t, 100000.0, stats.Projects.AverageAmount)
	assert.Equal(t, 50000.0, stats.Projects.MinAmount)
	assert.Equal(t, 150000.0, stats.Projects.MaxAmount)

	assert.Equal(t, 2, stats.TravelGrants.Count)
	assert.Equal(t, 5000.0, stats.TravelGrants.TotalAmount)

	// Agencies rank by amount descending; the empty agency is skipped.
	require.Len(t, stats.ByAgency, 3)
	assert.Equal(t, "NSF", stats.ByAgency[0].Key)
	assert.Equal(t, 150000.0, stats.ByAgency[0].Amount)
	assert.Equal(t, 2, stats.ByAgency[0].Count)
	assert.Equal(t, "UGC", stats.ByAgency[1].Key)
	assert.Equal(t, "DAAD", stats.ByAgency[2].Key)

	// Years sort ascending; the undated record contributes to no year.
	require.Len(t, stats.ByYear, 2)
	assert.Equal(t, "2024", stats.ByYear[0].Key)
	assert.Equal(t, 150000.0, stats.ByYear[0].Amount)
	assert.Equal(t, "2025", stats.ByYear[1].Key)
	assert.Equal(t, 152000.0, stats.ByYear[1].Amount)

	// (152000-150000)/150000 rounds to 1 percent.
	assert.Equal(t, 1, stats.YoYGrowthPercent)
}

func TestComputeFundingStatsRanksTiesByKey(t *testing.T) {
	records := []models.FundingRecord{
		{Source: "project", Agency: "Beta", Amount: 500},
		{Source: "project", Agency: "Alpha", Amount: 500},
	}

	stats := computeFundingStats(records)

	require.Len(t, stats.ByAgency, 2)
	assert.Equal(t, "Alpha", stats.ByAgency[0].Key)
	assert.Equal(t, "Beta", stats.ByAgency[1].Key)
}

func TestYearOverYearGrowthEdges(t *testing.T) {
	assert.Equal(t, 0, yearOverYearGrowth(nil))
	assert.Equal(t, 0, yearOverYearGrowth([]models.FundingBucket{{Key: "2025", Amount: 100}}))
	assert.Equal(t, 100, yearOverYearGrowth([]models.FundingBucket{
		{Key: "2024", Amount: 0},
		{Key: "2025", Amount: 900},
	}))
	assert.Equal(t, -50, yearOverYearGrowth([]models.FundingBucket{
		{Key: "2024", Amount: 1000},
		{Key: "2025", Amount: 500},
	}))
}

func TestResolveWindowDefaultsToThisYear(t *testing.T) {
	window, rng, err := resolveWindow("", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RangeThisYear, rng)
	require.NotNil(t, window.Start)
	assert.Nil(t, window.End)
	assert.Equal(t, time.Now().UTC().Year(), window.Start.Year())
	assert.Equal(t, time.January, window.Start.Month())
	assert.Equal(t, 1, window.Start.Day())
}

func TestResolveWindowLastYearIsBounded(t *testing.T) {
	window, rng, err := resolveWindow(models.RangeLastYear, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, models.RangeLastYear, rng)
	require.NotNil(t, window.Start)
	require.NotNil(t, window.End)
	assert.Equal(t, time.Now().UTC().Year()-1, window.Start.Year())
	assert.Equal(t, time.Now().UTC().Year()-1, window.End.Year())
}

func TestResolveWindowCustomValidatesOrder(t *testing.T) {
	start := dateAt(2025, 6, 1)
	end := dateAt(2025, 1, 1)

	_, _, err := resolveWindow(models.RangeCustom, start, end)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Open-ended custom windows are permitted.
	window, _, err := resolveWindow(models.RangeCustom, start, nil)
	require.NoError(t, err)
	assert.Equal(t, start, window.Start)
	assert.Nil(t, window.End)
}

func TestResolveWindowRejectsUnknownRange(t *testing.T) {
	_, _, err := resolveWindow("next-decade", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFundingStatsUsesResolvedWindow(t *testing.T) {
	funding := &mockFundingSource{records: []models.FundingRecord{
		{Source: "project", Agency: "NSF", Amount: 1000, Date: dateAt(2025, 2, 1)},
	}}
	svc := NewReportService(newMockReportJobStore(), funding, StatsSources{}, nil, &mockDispatcher{}, zap.NewNop(), ReportServiceConfig{})

	stats, err := svc.FundingStats(context.Background(), models.RangeThisYear, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stats.GrandTotal)
	assert.Equal(t, 1, stats.Projects.Count)
	require.NotNil(t, funding.start)
}

func TestFundingStatsDefaultsToFullHistory(t *testing.T) {
	funding := &mockFundingSource{records: []models.FundingRecord{
		{Source: "project", Agency: "NSF", Amount: 1000, Date: dateAt(2024, 6, 1)},
		{Source: "project", Agency: "UGC", Amount: 2000, Date: dateAt(2025, 6, 1)},
	}}
	svc := NewReportService(newMockReportJobStore(), funding, StatsSources{}, nil, &mockDispatcher{}, zap.NewNop(), ReportServiceConfig{})

	stats, err := svc.FundingStats(context.Background(), "", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, funding.start)
	assert.Nil(t, funding.end)
	assert.Len(t, stats.ByYear, 2)
	assert.Equal(t, 100, stats.YoYGrowthPercent)

	_, err = svc.FundingStats(context.Background(), models.RangeAllTime, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, funding.start)
}

func TestCreateExportJobQueuesJob(t *testing.T) {
	store := newMockReportJobStore()
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, &mockFundingSource{}, StatsSources{}, nil, dispatcher, zap.NewNop(), ReportServiceConfig{})

	job, err := svc.CreateExportJob(context.Background(), GenerateReportRequest{
		Module: models.ModulePublications,
		Range:  models.RangeLastYear,
		Format: "csv",
	}, models.Actor{ID: "u1", Role: models.RoleFaculty})
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, "u1", job.CreatedBy)
	assert.Equal(t, models.ReportFormatCSV, job.Params.Format)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, job.ID, dispatcher.enqueued[0].ID)
	assert.Equal(t, models.ModulePublications, dispatcher.enqueued[0].Type)
}

func TestCreateExportJobRequiresFormat(t *testing.T) {
	svc := NewReportService(newMockReportJobStore(), &mockFundingSource{}, StatsSources{}, nil, &mockDispatcher{}, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateExportJob(context.Background(), GenerateReportRequest{
		Module: models.ModuleAll,
	}, models.Actor{ID: "u1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateExportJobMarksFailedWhenEnqueueFails(t *testing.T) {
	store := newMockReportJobStore()
	dispatcher := &mockDispatcher{err: errors.New("queue closed")}
	svc := NewReportService(store, &mockFundingSource{}, StatsSources{}, nil, dispatcher, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateExportJob(context.Background(), GenerateReportRequest{
		Module: models.ModuleEvents,
		Format: "pdf",
	}, models.Actor{ID: "u1"})
	require.Error(t, err)

	require.NotNil(t, store.created)
	assert.Equal(t, models.ReportStatusFailed, store.jobs[store.created.ID].Status)
	assert.Equal(t, 100, store.jobs[store.created.ID].Progress)
}

func TestJobStatusOwnership(t *testing.T) {
	store := newMockReportJobStore()
	store.jobs["job-9"] = &models.ReportJob{ID: "job-9", CreatedBy: "owner", Status: models.ReportStatusProcessing}
	svc := NewReportService(store, &mockFundingSource{}, StatsSources{}, nil, &mockDispatcher{}, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.JobStatus(context.Background(), "job-9", models.Actor{ID: "someone-else", Role: models.RoleFaculty})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	job, err := svc.JobStatus(context.Background(), "job-9", models.Actor{ID: "owner", Role: models.RoleFaculty})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, job.Status)

	_, err = svc.JobStatus(context.Background(), "job-9", models.Actor{ID: "root", Role: models.RoleAdmin})
	assert.NoError(t, err)

	_, err = svc.JobStatus(context.Background(), "missing", models.Actor{ID: "owner"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportWorkerFinishesJob(t *testing.T) {
	store := newMockReportJobStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Module: models.ModuleAll, Status: models.ReportStatusQueued}
	exporter := &mockExportGenerator{result: &ExportResult{URL: "/api/v1/reports/download/tok123"}}
	worker := NewReportWorker(store, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: models.ModuleAll, Attempt: 0})
	require.NoError(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/reports/download/tok123", *job.ResultURL)
	assert.Equal(t, 1, exporter.calls)
}

func TestReportWorkerRequeuesUntilRetriesExhausted(t *testing.T) {
	store := newMockReportJobStore()
	store.jobs["job-1"] = &models.ReportJob{ID: "job-1", Module: models.ModuleAll, Status: models.ReportStatusQueued}
	exporter := &mockExportGenerator{err: errors.New("render failed")}
	worker := NewReportWorker(store, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job-1"].Status)
	assert.Equal(t, 0, store.jobs["job-1"].Progress)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
	assert.Equal(t, 100, store.jobs["job-1"].Progress)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	store := newMockReportJobStore()
	store.queued = []models.ReportJob{
		{ID: "job-a", Module: models.ModulePublications},
		{ID: "job-b", Module: models.ModuleEvents},
	}
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, &mockFundingSource{}, StatsSources{}, nil, dispatcher, zap.NewNop(), ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())

	require.Len(t, dispatcher.enqueued, 2)
	assert.Equal(t, "job-a", dispatcher.enqueued[0].ID)
	assert.Equal(t, models.ModuleEvents, dispatcher.enqueued[1].Type)
}

func TestExtractTokenTakesLastSegment(t *testing.T) {
	assert.Equal(t, "tok123", extractToken("/api/v1/reports/download/tok123"))
	assert.Equal(t, "", extractToken(""))
}
