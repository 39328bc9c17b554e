package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/middleware"
	"github.com/noah-isme/research-admin-api/internal/service"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

// ReportHandler exposes reporting and export endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// bindReportRequest accepts the selection either as a JSON body (POST) or as
// query parameters, whichever the caller sent.
func bindReportRequest(c *gin.Context) service.GenerateReportRequest {
	var req service.GenerateReportRequest
	if c.Request.Body != nil && c.ContentType() == "application/json" {
		if err := c.ShouldBindJSON(&req); err == nil {
			return req
		}
	}
	req = service.GenerateReportRequest{
		Module: c.Query("module"),
		Range:  c.Query("range"),
		Format: c.Query("format"),
	}
	if raw := c.Query("startDate"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			req.StartDate = &parsed
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			end := parsed.Add(24*time.Hour - time.Second)
			req.EndDate = &end
		}
	}
	return req
}

// Generate godoc
// @Summary Generate a report bundle
// @Tags Reports
// @Accept json
// @Produce json
// @Param module query string false "Report module or 'all'"
// @Param range query string false "this-year, last-year, last-6-months, last-3-months or custom"
// @Param startDate query string false "Custom range start (YYYY-MM-DD)"
// @Param endDate query string false "Custom range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/generate [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	bundle, err := h.reports.Generate(c.Request.Context(), bindReportRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bundle, nil)
}

// Export godoc
// @Summary Export a report synchronously
// @Tags Reports
// @Accept json
// @Produce json
// @Param module query string false "Report module or 'all'"
// @Param range query string false "Named date range"
// @Param format query string true "json, csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	payload, err := h.reports.Export(c.Request.Context(), bindReportRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, payload.Filename, payload.ContentType, payload.Data)
}

// CreateExportJob godoc
// @Summary Queue a background report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.GenerateReportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/export/jobs [post]
func (h *ReportHandler) CreateExportJob(c *gin.Context) {
	var req service.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.reports.CreateExportJob(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// JobStatus godoc
// @Summary Report export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/export/jobs/{id} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	job, err := h.reports.JobStatus(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished report export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", "attachment; filename=\""+download.Filename+"\"")
	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, download.Filename, time.Time{}, download.File)
}

// FundingStats godoc
// @Summary Cross-entity funding rollup
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param range query string false "Named date range; omit for the full history"
// @Param startDate query string false "Custom range start (YYYY-MM-DD)"
// @Param endDate query string false "Custom range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/stats [get]
func (h *ReportHandler) FundingStats(c *gin.Context) {
	req := bindReportRequest(c)
	stats, err := h.reports.FundingStats(c.Request.Context(), req.Range, req.StartDate, req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// ComprehensiveStats godoc
// @Summary Portal-wide statistics
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/comprehensive [get]
func (h *ReportHandler) ComprehensiveStats(c *gin.Context) {
	stats, err := h.reports.ComprehensiveStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
