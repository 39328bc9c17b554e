package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/service"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

// ThesisHandler exposes thesis supervision endpoints.
type ThesisHandler struct {
	theses *service.ThesisService
}

// NewThesisHandler constructs ThesisHandler.
func NewThesisHandler(theses *service.ThesisService) *ThesisHandler {
	return &ThesisHandler{theses: theses}
}

// List godoc
// @Summary List thesis supervisions
// @Tags Theses
// @Produce json
// @Param status query string false "Filter by workflow status"
// @Param degree query string false "Filter by degree (MS/MPhil/PhD)"
// @Param department query string false "Filter by department"
// @Param supervisorId query string false "Filter by supervisor or committee member"
// @Param search query string false "Search title, abstract or research area"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /theses [get]
func (h *ThesisHandler) List(c *gin.Context) {
	filter := models.ThesisFilter{
		Status:       c.Query("status"),
		Degree:       c.Query("degree"),
		Department:   c.Query("department"),
		SupervisorID: c.Query("supervisorId"),
		Search:       querySearch(c),
		Page:         queryInt(c, "page", 1),
		Limit:        queryInt(c, "limit", 10),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}

	theses, pagination, err := h.theses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, theses, pagination)
}

// Get godoc
// @Summary Get thesis supervision detail
// @Tags Theses
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Router /theses/{id} [get]
func (h *ThesisHandler) Get(c *gin.Context) {
	thesis, err := h.theses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// Create godoc
// @Summary Create thesis supervision
// @Tags Theses
// @Accept json
// @Param payload body service.CreateThesisRequest true "Thesis payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /theses [post]
func (h *ThesisHandler) Create(c *gin.Context) {
	var req service.CreateThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thesis, err := h.theses.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, thesis)
}

// Update godoc
// @Summary Update thesis supervision
// @Tags Theses
// @Accept json
// @Param id path string true "Thesis ID"
// @Param payload body service.UpdateThesisRequest true "Thesis payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /theses/{id} [put]
func (h *ThesisHandler) Update(c *gin.Context) {
	var req service.UpdateThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thesis, err := h.theses.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// RecordDefense godoc
// @Summary Record thesis defense outcome
// @Tags Theses
// @Accept json
// @Param id path string true "Thesis ID"
// @Param payload body service.DefenseRequest true "Defense payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /theses/{id}/defense [put]
func (h *ThesisHandler) RecordDefense(c *gin.Context) {
	var req service.DefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thesis, err := h.theses.RecordDefense(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// Approve godoc
// @Summary Approve thesis supervision
// @Tags Theses
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /theses/{id}/approve [put]
func (h *ThesisHandler) Approve(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thesis, err := h.theses.Approve(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// Reject godoc
// @Summary Reject thesis supervision
// @Tags Theses
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /theses/{id}/reject [put]
func (h *ThesisHandler) Reject(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thesis, err := h.theses.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// SetStatus godoc
// @Summary Set thesis supervision status
// @Tags Theses
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /theses/{id}/status [put]
func (h *ThesisHandler) SetStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	thesis, err := h.theses.SetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// Delete godoc
// @Summary Delete thesis supervision
// @Tags Theses
// @Param id path string true "Thesis ID"
// @Success 204
// @Security BearerAuth
// @Router /theses/{id} [delete]
func (h *ThesisHandler) Delete(c *gin.Context) {
	if err := h.theses.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Thesis supervision statistics
// @Tags Theses
// @Success 200 {object} response.Envelope
// @Router /theses/stats [get]
func (h *ThesisHandler) Stats(c *gin.Context) {
	stats, err := h.theses.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
