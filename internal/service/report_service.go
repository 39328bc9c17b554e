package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/repository"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/jobs"
)

type reportJobStore interface {
	CreateJob(ctx context.Context, job *models.ReportJob) error
	JobByID(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateJob(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueuedJobs(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListJobsFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type fundingSource interface {
	FundingRecords(ctx context.Context, start, end *time.Time) ([]models.FundingRecord, error)
}

type publicationStatsSource interface {
	Stats(ctx context.Context) (*models.PublicationStats, error)
}

type projectStatsSource interface {
	Stats(ctx context.Context) (*models.ProjectStats, error)
}

type finalProjectStatsSource interface {
	Stats(ctx context.Context) (*models.FinalProjectStats, error)
}

type thesisStatsSource interface {
	Stats(ctx context.Context) (*models.ThesisStats, error)
}

type eventStatsSource interface {
	Stats(ctx context.Context) (*models.EventStats, error)
}

type travelGrantStatsSource interface {
	Stats(ctx context.Context) (*models.TravelGrantStats, error)
}

type contactStatsSource interface {
	Stats(ctx context.Context) (*models.ContactStats, error)
}

// StatsSources groups the per-entity stats providers the comprehensive
// rollup fans out over.
type StatsSources struct {
	Publications  publicationStatsSource
	Projects      projectStatsSource
	FinalProjects finalProjectStatsSource
	Theses        thesisStatsSource
	Events        eventStatsSource
	TravelGrants  travelGrantStatsSource
	Contacts      contactStatsSource
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// GenerateReportRequest selects the module, window and format of a report.
type GenerateReportRequest struct {
	Module    string     `json:"module" form:"module"`
	Range     string     `json:"range" form:"range"`
	StartDate *time.Time `json:"startDate" form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time `json:"endDate" form:"endDate" time_format:"2006-01-02"`
	Format    string     `json:"format" form:"format"`
}

// ExportPayload is a synchronously rendered report ready to stream.
type ExportPayload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService computes cross-entity rollups and orchestrates report
// generation, both synchronous and through the background export queue.
type ReportService struct {
	jobStore reportJobStore
	funding  fundingSource
	stats    StatsSources
	exporter *ExportService
	queue    jobDispatcher
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(jobStore reportJobStore, funding fundingSource, stats StatsSources, exporter *ExportService, queue jobDispatcher, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		jobStore: jobStore,
		funding:  funding,
		stats:    stats,
		exporter: exporter,
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
	}
}

// WithCache enables read-through caching for the stats rollups.
func (s *ReportService) WithCache(cache *CacheService, ttl time.Duration) *ReportService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// FundingStats aggregates project and travel-grant funding. Without a
// named range the rollup covers the full record set, so the by-year series
// and growth rate see every year on file.
func (s *ReportService) FundingStats(ctx context.Context, rng string, start, end *time.Time) (*models.FundingStats, error) {
	window, rngName := models.ReportWindow{}, models.RangeAllTime
	if rng != "" && rng != models.RangeAllTime {
		var err error
		window, rngName, err = resolveWindow(rng, start, end)
		if err != nil {
			return nil, err
		}
	}

	cacheKey := fundingCacheKey(rngName, window)
	if s.cache.Enabled() {
		var cached models.FundingStats
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	records, err := s.funding.FundingRecords(ctx, window.Start, window.End)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load funding records")
	}
	stats := computeFundingStats(records)
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, stats, s.cacheTTL)
	}
	return stats, nil
}

func fundingCacheKey(rng string, window models.ReportWindow) string {
	start, end := "", ""
	if window.Start != nil {
		start = window.Start.UTC().Format("2006-01-02")
	}
	if window.End != nil {
		end = window.End.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("stats:funding:%s:%s:%s", rng, start, end)
}

// ComprehensiveStats fans out over every per-entity stats provider and
// merges the results. Any single failure fails the whole response.
func (s *ReportService) ComprehensiveStats(ctx context.Context) (*models.ComprehensiveStats, error) {
	const cacheKey = "stats:comprehensive"
	if s.cache.Enabled() {
		var cached models.ComprehensiveStats
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		out      models.ComprehensiveStats
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(7)
	go func() {
		defer wg.Done()
		stats, err := s.stats.Publications.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("publications: %w", err))
			return
		}
		mu.Lock()
		out.Publications = *stats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := s.stats.Projects.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("projects: %w", err))
			return
		}
		mu.Lock()
		out.Projects = *stats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := s.stats.FinalProjects.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("final projects: %w", err))
			return
		}
		mu.Lock()
		out.FinalProjects = *stats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := s.stats.Theses.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("theses: %w", err))
			return
		}
		mu.Lock()
		out.Theses = *stats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := s.stats.Events.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("events: %w", err))
			return
		}
		mu.Lock()
		out.Events = *stats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := s.stats.TravelGrants.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("travel grants: %w", err))
			return
		}
		mu.Lock()
		out.TravelGrants = *stats
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		stats, err := s.stats.Contacts.Stats(ctx)
		if err != nil {
			fail(fmt.Errorf("contacts: %w", err))
			return
		}
		mu.Lock()
		out.Contacts = *stats
		mu.Unlock()
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, appErrors.Wrap(firstErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute comprehensive stats")
	}

	out.Summary = models.StatsSummary{
		TotalRecords: out.Publications.Total + out.Projects.Total + out.FinalProjects.Total +
			out.Theses.Total + out.Events.Total + out.TravelGrants.Total,
		TotalFunding: out.Projects.TotalFunding + out.TravelGrants.TotalRequested,
		GeneratedAt:  time.Now().UTC(),
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, &out, s.cacheTTL)
	}
	return &out, nil
}

// Generate assembles the report bundle for the requested module and window.
func (s *ReportService) Generate(ctx context.Context, req GenerateReportRequest) (*models.ReportBundle, error) {
	params, err := s.resolveParams(req, false)
	if err != nil {
		return nil, err
	}
	bundle, err := s.exporter.Bundle(ctx, params)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate report")
	}
	return bundle, nil
}

// Export renders the report synchronously in the requested format.
func (s *ReportService) Export(ctx context.Context, req GenerateReportRequest) (*ExportPayload, error) {
	params, err := s.resolveParams(req, true)
	if err != nil {
		return nil, err
	}
	data, filename, err := s.exporter.RenderPayload(ctx, params)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportPayload{
		Data:        data,
		Filename:    filename,
		ContentType: exportContentType(params.Format),
	}, nil
}

// CreateExportJob persists a background export job and enqueues it.
func (s *ReportService) CreateExportJob(ctx context.Context, req GenerateReportRequest, actor models.Actor) (*models.ReportJob, error) {
	params, err := s.resolveParams(req, true)
	if err != nil {
		return nil, err
	}
	job := &models.ReportJob{
		Module:    params.Module,
		Params:    params,
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: actor.ID,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.Module}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.jobStore.UpdateJob(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("report job queued",
		zap.String("job_id", job.ID),
		zap.String("module", job.Module),
		zap.String("format", string(params.Format)),
		zap.String("actor_id", actor.ID))
	return job, nil
}

// JobStatus exposes job metadata, restricting non-admins to their own jobs.
func (s *ReportService) JobStatus(ctx context.Context, id string, actor models.Actor) (*models.ReportJob, error) {
	job, err := s.jobStore.JobByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if !actor.IsAdmin() && job.CreatedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this report job")
	}
	return job, nil
}

// ResolveDownload validates a signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.jobStore.JobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs (e.g. after process restart).
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.jobStore.ListQueuedJobs(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.Module}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		finished, err := s.jobStore.ListJobsFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		if len(finished) == 0 {
			break
		}
		for _, job := range finished {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.exporter.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.exporter.Delete(relPath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(finished) < 100 {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ReportService) resolveParams(req GenerateReportRequest, requireFormat bool) (models.ReportJobParams, error) {
	module := req.Module
	if module == "" {
		module = models.ModuleAll
	}
	if _, err := selectedModules(module); err != nil {
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report module")
	}
	window, rng, err := resolveWindow(req.Range, req.StartDate, req.EndDate)
	if err != nil {
		return models.ReportJobParams{}, err
	}
	format := models.ReportFormat(strings.ToLower(req.Format))
	if format == "" && !requireFormat {
		format = models.ReportFormatJSON
	}
	switch format {
	case models.ReportFormatJSON, models.ReportFormatCSV, models.ReportFormatPDF:
	default:
		return models.ReportJobParams{}, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	return models.ReportJobParams{
		Module: module,
		Range:  rng,
		Start:  window.Start,
		End:    window.End,
		Format: format,
	}, nil
}

// resolveWindow maps a named range to concrete bounds. Custom ranges pass
// the caller's bounds through unchanged; nil bounds stay unbounded.
func resolveWindow(rng string, start, end *time.Time) (models.ReportWindow, string, error) {
	now := time.Now().UTC()
	switch rng {
	case "", models.RangeThisYear:
		from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return models.ReportWindow{Start: &from}, models.RangeThisYear, nil
	case models.RangeLastYear:
		from := time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
		return models.ReportWindow{Start: &from, End: &to}, models.RangeLastYear, nil
	case models.RangeLast6Months:
		from := now.AddDate(0, -6, 0)
		return models.ReportWindow{Start: &from}, models.RangeLast6Months, nil
	case models.RangeLast3Months:
		from := now.AddDate(0, -3, 0)
		return models.ReportWindow{Start: &from}, models.RangeLast3Months, nil
	case models.RangeCustom:
		if err := validateDateOrder(start, end); err != nil {
			return models.ReportWindow{}, "", err
		}
		return models.ReportWindow{Start: start, End: end}, models.RangeCustom, nil
	default:
		return models.ReportWindow{}, "", appErrors.Clone(appErrors.ErrValidation, "unsupported report range")
	}
}

func computeFundingStats(records []models.FundingRecord) *models.FundingStats {
	stats := &models.FundingStats{
		ByAgency:     []models.FundingBucket{},
		ByDepartment: []models.FundingBucket{},
		ByYear:       []models.FundingBucket{},
	}

	agencies := map[string]*models.FundingBucket{}
	departments := map[string]*models.FundingBucket{}
	years := map[string]*models.FundingBucket{}

	var projectAmounts, grantAmounts []float64
	for _, rec := range records {
		stats.GrandTotal += rec.Amount
		switch rec.Source {
		case "project":
			projectAmounts = append(projectAmounts, rec.Amount)
		case "travelGrant":
			grantAmounts = append(grantAmounts, rec.Amount)
		}
		if rec.Agency != "" {
			accumulateBucket(agencies, rec.Agency, rec.Amount)
		}
		if rec.Department != "" {
			accumulateBucket(departments, rec.Department, rec.Amount)
		}
		if rec.Date != nil {
			accumulateBucket(years, strconv.Itoa(rec.Date.Year()), rec.Amount)
		}
	}

	stats.Projects = summariseAmounts(projectAmounts)
	stats.TravelGrants = summariseAmounts(grantAmounts)
	stats.ByAgency = rankBuckets(agencies, 10)
	stats.ByDepartment = rankBuckets(departments, 0)
	stats.ByYear = sortBucketsByKey(years)
	stats.YoYGrowthPercent = yearOverYearGrowth(stats.ByYear)
	return stats
}

func accumulateBucket(buckets map[string]*models.FundingBucket, key string, amount float64) {
	bucket, ok := buckets[key]
	if !ok {
		bucket = &models.FundingBucket{Key: key}
		buckets[key] = bucket
	}
	bucket.Amount += amount
	bucket.Count++
}

func summariseAmounts(amounts []float64) models.FundingTypeStats {
	out := models.FundingTypeStats{Count: len(amounts)}
	if len(amounts) == 0 {
		return out
	}
	out.MinAmount = amounts[0]
	out.MaxAmount = amounts[0]
	for _, amount := range amounts {
		out.TotalAmount += amount
		if amount < out.MinAmount {
			out.MinAmount = amount
		}
		if amount > out.MaxAmount {
			out.MaxAmount = amount
		}
	}
	out.AverageAmount = out.TotalAmount / float64(len(amounts))
	return out
}

// rankBuckets orders by amount descending, key ascending on ties. A limit
// of zero keeps every bucket.
func rankBuckets(buckets map[string]*models.FundingBucket, limit int) []models.FundingBucket {
	out := make([]models.FundingBucket, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount == out[j].Amount {
			return out[i].Key < out[j].Key
		}
		return out[i].Amount > out[j].Amount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortBucketsByKey(buckets map[string]*models.FundingBucket) []models.FundingBucket {
	out := make([]models.FundingBucket, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// yearOverYearGrowth compares the two most recent years. A zero prior-year
// total reports 100; fewer than two years of data reports 0.
func yearOverYearGrowth(byYear []models.FundingBucket) int {
	if len(byYear) < 2 {
		return 0
	}
	prev := byYear[len(byYear)-2].Amount
	cur := byYear[len(byYear)-1].Amount
	if prev == 0 {
		return 100
	}
	return int(math.Round((cur - prev) / prev * 100))
}

func exportContentType(format models.ReportFormat) string {
	switch format {
	case models.ReportFormatCSV:
		return "text/csv"
	case models.ReportFormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to the exporter.
type ReportWorker struct {
	jobStore   reportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(jobStore reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		jobStore:   jobStore,
		exporter:   exporter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.jobStore.JobByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.jobStore.UpdateJob(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.jobStore.UpdateJob(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.jobStore.UpdateJob(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}
	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.jobStore.UpdateJob(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}
