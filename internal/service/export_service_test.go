package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/pkg/storage"
)

type stubPublicationReader struct{ rows []models.Publication }

func (s *stubPublicationReader) ListInWindow(_ context.Context, _, _ *time.Time) ([]models.Publication, error) {
	return s.rows, nil
}

type stubProjectReader struct{ rows []models.FundedProject }

func (s *stubProjectReader) ListInWindow(_ context.Context, _, _ *time.Time) ([]models.FundedProject, error) {
	return s.rows, nil
}

type stubFinalProjectReader struct{ rows []models.FinalYearProject }

func (s *stubFinalProjectReader) ListInWindow(_ context.Context, _, _ *time.Time) ([]models.FinalYearProject, error) {
	return s.rows, nil
}

type stubThesisReader struct{ rows []models.ThesisSupervision }

func (s *stubThesisReader) ListInWindow(_ context.Context, _, _ *time.Time) ([]models.ThesisSupervision, error) {
	return s.rows, nil
}

type stubEventReader struct{ rows []models.Event }

func (s *stubEventReader) ListInWindow(_ context.Context, _, _ *time.Time) ([]models.Event, error) {
	return s.rows, nil
}

type stubTravelGrantReader struct{ rows []models.TravelGrant }

func (s *stubTravelGrantReader) ListInWindow(_ context.Context, _, _ *time.Time) ([]models.TravelGrant, error) {
	return s.rows, nil
}

type memoryStorage struct {
	saved map[string][]byte
}

func (m *memoryStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *memoryStorage) Open(_ string) (*os.File, error) { return nil, os.ErrNotExist }

func (m *memoryStorage) Delete(_ string) error { return nil }

func (m *memoryStorage) CleanupOlderThan(_ time.Duration) ([]string, error) { return nil, nil }

func exportSourcesFixture() ExportSources {
	return ExportSources{
		Publications: &stubPublicationReader{rows: []models.Publication{
			{ID: "p1", Title: "Sparse Retrieval at Scale", Status: models.PublicationApproved},
			{ID: "p2", Title: "Streaming Graph Sketches", Status: models.PublicationPublished},
		}},
		Projects: &stubProjectReader{rows: []models.FundedProject{
			{ID: "fp1", Title: "Coastal Erosion Sensing", Status: models.ProjectActive, TotalBudget: 120000},
		}},
		FinalProjects: &stubFinalProjectReader{},
		Theses:        &stubThesisReader{},
		Events: &stubEventReader{rows: []models.Event{
			{ID: "e1", Title: "Research Methods Workshop", Status: models.EventCompleted},
		}},
		TravelGrants: &stubTravelGrantReader{},
	}
}

func newExportService(t *testing.T, store fileStorage) *ExportService {
	t.Helper()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(exportSourcesFixture(), store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil, nil)
}

func TestBundleCountsEveryModule(t *testing.T) {
	svc := newExportService(t, &memoryStorage{})

	bundle, err := svc.Bundle(context.Background(), models.ReportJobParams{
		Module: models.ModuleAll,
		Range:  models.RangeThisYear,
	})
	require.NoError(t, err)

	assert.Len(t, bundle.Modules, 6)
	assert.Equal(t, 2, bundle.Summary.Counts[models.ModulePublications])
	assert.Equal(t, 1, bundle.Summary.Counts[models.ModuleProjects])
	assert.Equal(t, 0, bundle.Summary.Counts[models.ModuleTheses])
	assert.Equal(t, 4, bundle.Summary.Total)
	assert.Equal(t, models.RangeThisYear, bundle.Summary.Range)
}

func TestBundleSingleModule(t *testing.T) {
	svc := newExportService(t, &memoryStorage{})

	bundle, err := svc.Bundle(context.Background(), models.ReportJobParams{Module: models.ModuleEvents})
	require.NoError(t, err)

	assert.Len(t, bundle.Modules, 1)
	assert.Equal(t, 1, bundle.Summary.Total)
}

func TestBundleRejectsUnknownModule(t *testing.T) {
	svc := newExportService(t, &memoryStorage{})

	_, err := svc.Bundle(context.Background(), models.ReportJobParams{Module: "grades"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported module")
}

func TestRenderPayloadJSON(t *testing.T) {
	svc := newExportService(t, &memoryStorage{})

	payload, filename, err := svc.RenderPayload(context.Background(), models.ReportJobParams{
		Module: models.ModulePublications,
		Range:  models.RangeLastYear,
		Format: models.ReportFormatJSON,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filename, "publications_last-year_"))
	assert.True(t, strings.HasSuffix(filename, ".json"))

	var bundle models.ReportBundle
	require.NoError(t, json.Unmarshal(payload, &bundle))
	assert.Equal(t, 2, bundle.Summary.Total)
}

func TestRenderPayloadCSVSections(t *testing.T) {
	svc := newExportService(t, &memoryStorage{})

	payload, _, err := svc.RenderPayload(context.Background(), models.ReportJobParams{
		Module: models.ModuleAll,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)

	text := string(payload)
	assert.Contains(t, text, "# publications\n")
	assert.Contains(t, text, "# projects\n")
	assert.Contains(t, text, "# events\n")
	// Empty modules contribute no section.
	assert.NotContains(t, text, "# theses")
	assert.Contains(t, text, "Sparse Retrieval at Scale")
}

func TestRenderPayloadCSVEmptyWindow(t *testing.T) {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	sources := ExportSources{
		Publications:  &stubPublicationReader{},
		Projects:      &stubProjectReader{},
		FinalProjects: &stubFinalProjectReader{},
		Theses:        &stubThesisReader{},
		Events:        &stubEventReader{},
		TravelGrants:  &stubTravelGrantReader{},
	}
	svc := NewExportService(sources, &memoryStorage{}, signer, ExportConfig{}, zap.NewNop(), nil, nil)

	payload, _, err := svc.RenderPayload(context.Background(), models.ReportJobParams{
		Module: models.ModuleAll,
		Format: models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, "# no records in range\n", string(payload))
}

func TestGenerateStoresFileAndSignsURL(t *testing.T) {
	store := &memoryStorage{}
	svc := newExportService(t, store)

	job := &models.ReportJob{
		ID: "job-7",
		Params: models.ReportJobParams{
			Module: models.ModulePublications,
			Range:  models.RangeThisYear,
			Format: models.ReportFormatJSON,
		},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	assert.Len(t, store.saved, 1)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "/api/v1/reports/download/"+result.Token, result.URL)
	assert.Equal(t, models.ReportFormatJSON, result.Format)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestBuildExportFilenameDefaults(t *testing.T) {
	name := buildExportFilename(models.ReportJobParams{Format: models.ReportFormatCSV})
	assert.True(t, strings.HasPrefix(name, "all_this-year_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}
