package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/service"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

// PublicationHandler exposes publication endpoints.
type PublicationHandler struct {
	publications *service.PublicationService
}

// NewPublicationHandler constructs PublicationHandler.
func NewPublicationHandler(publications *service.PublicationService) *PublicationHandler {
	return &PublicationHandler{publications: publications}
}

// List godoc
// @Summary List publications
// @Tags Publications
// @Produce json
// @Param status query string false "Filter by workflow status"
// @Param publicationType query string false "Filter by publication type"
// @Param authorId query string false "Filter by author or co-author"
// @Param year query int false "Filter by publication year"
// @Param search query string false "Search title, abstract or venue"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /publications [get]
func (h *PublicationHandler) List(c *gin.Context) {
	filter := models.PublicationFilter{
		Status:          c.Query("status"),
		PublicationType: c.Query("publicationType"),
		AuthorID:        c.Query("authorId"),
		Search:          querySearch(c),
		Page:            queryInt(c, "page", 1),
		Limit:           queryInt(c, "limit", 10),
		SortBy:          c.Query("sort"),
		SortOrder:       c.Query("order"),
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}

	publications, pagination, err := h.publications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publications, pagination)
}

// Get godoc
// @Summary Get publication detail
// @Tags Publications
// @Produce json
// @Param id path string true "Publication ID"
// @Success 200 {object} response.Envelope
// @Router /publications/{id} [get]
func (h *PublicationHandler) Get(c *gin.Context) {
	publication, err := h.publications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// Create godoc
// @Summary Create publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param payload body service.CreatePublicationRequest true "Publication payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /publications [post]
func (h *PublicationHandler) Create(c *gin.Context) {
	var req service.CreatePublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.publications.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, publication)
}

// Update godoc
// @Summary Update publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path string true "Publication ID"
// @Param payload body service.UpdatePublicationRequest true "Publication payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publications/{id} [put]
func (h *PublicationHandler) Update(c *gin.Context) {
	var req service.UpdatePublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.publications.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// Approve godoc
// @Summary Approve publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path string true "Publication ID"
// @Param payload body service.ReviewRequest false "Review comments"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publications/{id}/approve [put]
func (h *PublicationHandler) Approve(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.publications.Approve(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// Reject godoc
// @Summary Reject publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path string true "Publication ID"
// @Param payload body service.ReviewRequest false "Review comments"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publications/{id}/reject [put]
func (h *PublicationHandler) Reject(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.publications.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// SetStatus godoc
// @Summary Set publication status
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path string true "Publication ID"
// @Param payload body service.StatusUpdateRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publications/{id}/review [put]
func (h *PublicationHandler) SetStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	publication, err := h.publications.SetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, publication, nil)
}

// Delete godoc
// @Summary Delete publication
// @Tags Publications
// @Produce json
// @Param id path string true "Publication ID"
// @Success 204
// @Security BearerAuth
// @Router /publications/{id} [delete]
func (h *PublicationHandler) Delete(c *gin.Context) {
	if err := h.publications.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Publication statistics
// @Tags Publications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /publications/stats [get]
func (h *PublicationHandler) Stats(c *gin.Context) {
	stats, err := h.publications.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
