package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/pkg/export"
	"github.com/noah-isme/research-admin-api/pkg/storage"
)

type publicationWindowReader interface {
	ListInWindow(ctx context.Context, start, end *time.Time) ([]models.Publication, error)
}

type projectWindowReader interface {
	ListInWindow(ctx context.Context, start, end *time.Time) ([]models.FundedProject, error)
}

type finalProjectWindowReader interface {
	ListInWindow(ctx context.Context, start, end *time.Time) ([]models.FinalYearProject, error)
}

type thesisWindowReader interface {
	ListInWindow(ctx context.Context, start, end *time.Time) ([]models.ThesisSupervision, error)
}

type eventWindowReader interface {
	ListInWindow(ctx context.Context, start, end *time.Time) ([]models.Event, error)
}

type travelGrantWindowReader interface {
	ListInWindow(ctx context.Context, start, end *time.Time) ([]models.TravelGrant, error)
}

// ExportSources groups the per-module record readers feeding report payloads.
type ExportSources struct {
	Publications  publicationWindowReader
	Projects      projectWindowReader
	FinalProjects finalProjectWindowReader
	Theses        thesisWindowReader
	Events        eventWindowReader
	TravelGrants  travelGrantWindowReader
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService assembles report bundles and persists rendered files.
type ExportService struct {
	sources ExportSources
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sources: sources,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Bundle collects the records of the requested module (or every module)
// within the params window and attaches per-module counts.
func (s *ExportService) Bundle(ctx context.Context, params models.ReportJobParams) (*models.ReportBundle, error) {
	modules, err := selectedModules(params.Module)
	if err != nil {
		return nil, err
	}
	bundle := &models.ReportBundle{
		Modules: make(map[string][]interface{}, len(modules)),
		Summary: models.ReportSummary{
			Counts:      make(map[string]int, len(modules)),
			Range:       params.Range,
			GeneratedAt: time.Now().UTC(),
		},
	}
	for _, module := range modules {
		records, err := s.moduleRecords(ctx, module, params.Start, params.End)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", module, err)
		}
		bundle.Modules[module] = records
		bundle.Summary.Counts[module] = len(records)
		bundle.Summary.Total += len(records)
	}
	return bundle, nil
}

// RenderPayload renders the bundle for the requested format and proposes a
// download filename. Callers decide whether the bytes are stored or streamed.
func (s *ExportService) RenderPayload(ctx context.Context, params models.ReportJobParams) ([]byte, string, error) {
	bundle, err := s.Bundle(ctx, params)
	if err != nil {
		return nil, "", err
	}

	var payload []byte
	switch params.Format {
	case models.ReportFormatJSON:
		payload, err = json.MarshalIndent(bundle, "", "  ")
	case models.ReportFormatCSV:
		payload, err = s.renderCSV(bundle)
	case models.ReportFormatPDF:
		payload, err = s.renderPDF(bundle, params)
	default:
		err = fmt.Errorf("unsupported format %s", params.Format)
	}
	if err != nil {
		return nil, "", err
	}
	return payload, buildExportFilename(params), nil
}

// Generate renders the job's report, stores the file and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	payload, filename, err := s.RenderPayload(ctx, job.Params)
	if err != nil {
		return nil, err
	}
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) moduleRecords(ctx context.Context, module string, start, end *time.Time) ([]interface{}, error) {
	switch module {
	case models.ModulePublications:
		rows, err := s.sources.Publications.ListInWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return boxPublications(rows), nil
	case models.ModuleProjects:
		rows, err := s.sources.Projects.ListInWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return boxProjects(rows), nil
	case models.ModuleFinalProjects:
		rows, err := s.sources.FinalProjects.ListInWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return boxFinalProjects(rows), nil
	case models.ModuleTheses:
		rows, err := s.sources.Theses.ListInWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return boxTheses(rows), nil
	case models.ModuleEvents:
		rows, err := s.sources.Events.ListInWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return boxEvents(rows), nil
	case models.ModuleTravelGrants:
		rows, err := s.sources.TravelGrants.ListInWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return boxTravelGrants(rows), nil
	default:
		return nil, fmt.Errorf("unsupported module %s", module)
	}
}

// renderCSV writes one section per module. Sections start with a comment
// line naming the module, and columns follow the first record of each
// section in its JSON encoding order.
func (s *ExportService) renderCSV(bundle *models.ReportBundle) ([]byte, error) {
	var buf bytes.Buffer
	first := true
	for _, module := range models.ReportModules {
		records, ok := bundle.Modules[module]
		if !ok || len(records) == 0 {
			continue
		}
		dataset, err := export.RecordsToDataset(records)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", module, err)
		}
		section, err := s.csv.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", module, err)
		}
		if !first {
			buf.WriteString("\n")
		}
		first = false
		fmt.Fprintf(&buf, "# %s\n", module)
		buf.Write(section)
	}
	if first {
		// Keep empty exports distinguishable from failed downloads.
		buf.WriteString("# no records in range\n")
	}
	return buf.Bytes(), nil
}

// renderPDF lays out a single-module report as its record table. Combined
// reports render the per-module count summary instead, since heterogeneous
// record shapes do not share one table layout.
func (s *ExportService) renderPDF(bundle *models.ReportBundle, params models.ReportJobParams) ([]byte, error) {
	if params.Module != models.ModuleAll && params.Module != "" {
		records := bundle.Modules[params.Module]
		if len(records) == 0 {
			empty := export.Dataset{
				Headers: []string{"module", "records"},
				Rows:    []map[string]string{{"module": params.Module, "records": "0"}},
			}
			return s.pdf.Render(empty, reportTitle(params))
		}
		dataset, err := export.RecordsToDataset(records)
		if err != nil {
			return nil, err
		}
		return s.pdf.Render(dataset, reportTitle(params))
	}

	rows := make([]map[string]string, 0, len(models.ReportModules)+1)
	for _, module := range models.ReportModules {
		rows = append(rows, map[string]string{
			"module":  module,
			"records": strconv.Itoa(bundle.Summary.Counts[module]),
		})
	}
	rows = append(rows, map[string]string{
		"module":  "total",
		"records": strconv.Itoa(bundle.Summary.Total),
	})
	dataset := export.Dataset{Headers: []string{"module", "records"}, Rows: rows}
	return s.pdf.Render(dataset, reportTitle(params))
}

func reportTitle(params models.ReportJobParams) string {
	module := params.Module
	if module == "" || module == models.ModuleAll {
		module = "research portfolio"
	}
	rng := params.Range
	if rng == "" {
		rng = models.RangeThisYear
	}
	return fmt.Sprintf("%s report (%s)", module, rng)
}

func buildExportFilename(params models.ReportJobParams) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	module := params.Module
	if module == "" {
		module = models.ModuleAll
	}
	rng := params.Range
	if rng == "" {
		rng = models.RangeThisYear
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(module), rng, timestamp, params.Format)
}

func selectedModules(module string) ([]string, error) {
	if module == "" || module == models.ModuleAll {
		return models.ReportModules, nil
	}
	for _, known := range models.ReportModules {
		if module == known {
			return []string{module}, nil
		}
	}
	return nil, fmt.Errorf("unsupported module %s", module)
}

func boxPublications(rows []models.Publication) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		rows[i].ApplyDerived()
		out = append(out, rows[i])
	}
	return out
}

func boxProjects(rows []models.FundedProject) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		rows[i].ApplyDerived()
		out = append(out, rows[i])
	}
	return out
}

func boxFinalProjects(rows []models.FinalYearProject) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		rows[i].ApplyDerived()
		out = append(out, rows[i])
	}
	return out
}

func boxTheses(rows []models.ThesisSupervision) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		rows[i].ApplyDerived()
		out = append(out, rows[i])
	}
	return out
}

func boxEvents(rows []models.Event) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		rows[i].ApplyDerived()
		out = append(out, rows[i])
	}
	return out
}

func boxTravelGrants(rows []models.TravelGrant) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for i := range rows {
		rows[i].ApplyDerived()
		out = append(out, rows[i])
	}
	return out
}
