package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/service"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

// TravelGrantHandler exposes travel grant endpoints.
type TravelGrantHandler struct {
	grants *service.TravelGrantService
}

// NewTravelGrantHandler constructs TravelGrantHandler.
func NewTravelGrantHandler(grants *service.TravelGrantService) *TravelGrantHandler {
	return &TravelGrantHandler{grants: grants}
}

// List godoc
// @Summary List travel grants
// @Tags TravelGrants
// @Produce json
// @Param status query string false "Filter by workflow status"
// @Param purpose query string false "Filter by travel purpose"
// @Param department query string false "Filter by department"
// @Param applicantId query string false "Filter by applicant"
// @Param search query string false "Search event name, city or justification"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /travel-grants [get]
func (h *TravelGrantHandler) List(c *gin.Context) {
	filter := models.TravelGrantFilter{
		Status:      c.Query("status"),
		Purpose:     c.Query("purpose"),
		Department:  c.Query("department"),
		ApplicantID: c.Query("applicantId"),
		Search:      querySearch(c),
		Page:        queryInt(c, "page", 1),
		Limit:       queryInt(c, "limit", 10),
		SortBy:      c.Query("sort"),
		SortOrder:   c.Query("order"),
	}

	grants, pagination, err := h.grants.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, pagination)
}

// Get godoc
// @Summary Get travel grant detail
// @Tags TravelGrants
// @Param id path string true "Travel grant ID"
// @Success 200 {object} response.Envelope
// @Router /travel-grants/{id} [get]
func (h *TravelGrantHandler) Get(c *gin.Context) {
	grant, err := h.grants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Create godoc
// @Summary Create travel grant application
// @Tags TravelGrants
// @Accept json
// @Param payload body service.CreateTravelGrantRequest true "Travel grant payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /travel-grants [post]
func (h *TravelGrantHandler) Create(c *gin.Context) {
	var req service.CreateTravelGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grant)
}

// Update godoc
// @Summary Update travel grant application
// @Tags TravelGrants
// @Accept json
// @Param id path string true "Travel grant ID"
// @Param payload body service.UpdateTravelGrantRequest true "Travel grant payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /travel-grants/{id} [put]
func (h *TravelGrantHandler) Update(c *gin.Context) {
	var req service.UpdateTravelGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// FilePostTravel godoc
// @Summary File post-travel report
// @Tags TravelGrants
// @Accept json
// @Param id path string true "Travel grant ID"
// @Param payload body service.PostTravelRequest true "Post-travel report payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /travel-grants/{id}/post-travel [put]
func (h *TravelGrantHandler) FilePostTravel(c *gin.Context) {
	var req service.PostTravelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.FilePostTravel(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Approve godoc
// @Summary Approve travel grant
// @Tags TravelGrants
// @Param id path string true "Travel grant ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /travel-grants/{id}/approve [put]
func (h *TravelGrantHandler) Approve(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.Approve(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Reject godoc
// @Summary Reject travel grant
// @Tags TravelGrants
// @Param id path string true "Travel grant ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /travel-grants/{id}/reject [put]
func (h *TravelGrantHandler) Reject(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// SetStatus godoc
// @Summary Set travel grant status
// @Tags TravelGrants
// @Param id path string true "Travel grant ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /travel-grants/{id}/review [put]
func (h *TravelGrantHandler) SetStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grant, err := h.grants.SetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Delete godoc
// @Summary Delete travel grant
// @Tags TravelGrants
// @Param id path string true "Travel grant ID"
// @Success 204
// @Security BearerAuth
// @Router /travel-grants/{id} [delete]
func (h *TravelGrantHandler) Delete(c *gin.Context) {
	if err := h.grants.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Travel grant statistics
// @Tags TravelGrants
// @Success 200 {object} response.Envelope
// @Router /travel-grants/stats [get]
func (h *TravelGrantHandler) Stats(c *gin.Context) {
	stats, err := h.grants.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
