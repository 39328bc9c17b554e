package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/service"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

// FinalProjectHandler exposes final year project endpoints.
type FinalProjectHandler struct {
	projects *service.FinalProjectService
}

// NewFinalProjectHandler constructs FinalProjectHandler.
func NewFinalProjectHandler(projects *service.FinalProjectService) *FinalProjectHandler {
	return &FinalProjectHandler{projects: projects}
}

// List godoc
// @Summary List final year projects
// @Tags FinalProjects
// @Produce json
// @Param status query string false "Filter by workflow status"
// @Param batch query string false "Filter by student batch"
// @Param department query string false "Filter by department"
// @Param supervisorId query string false "Filter by supervisor or co-supervisor"
// @Param search query string false "Search title, description or technologies"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /final-projects [get]
func (h *FinalProjectHandler) List(c *gin.Context) {
	filter := models.FinalProjectFilter{
		Status:       c.Query("status"),
		Batch:        c.Query("batch"),
		Department:   c.Query("department"),
		SupervisorID: c.Query("supervisorId"),
		Search:       querySearch(c),
		Page:         queryInt(c, "page", 1),
		Limit:        queryInt(c, "limit", 10),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}

	projects, pagination, err := h.projects.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Get godoc
// @Summary Get final year project detail
// @Tags FinalProjects
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /final-projects/{id} [get]
func (h *FinalProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Create godoc
// @Summary Create final year project
// @Tags FinalProjects
// @Accept json
// @Param payload body service.CreateFinalProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /final-projects [post]
func (h *FinalProjectHandler) Create(c *gin.Context) {
	var req service.CreateFinalProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update godoc
// @Summary Update final year project
// @Tags FinalProjects
// @Accept json
// @Param id path string true "Project ID"
// @Param payload body service.UpdateFinalProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /final-projects/{id} [put]
func (h *FinalProjectHandler) Update(c *gin.Context) {
	var req service.UpdateFinalProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Grade godoc
// @Summary Record final year project evaluation
// @Tags FinalProjects
// @Accept json
// @Param id path string true "Project ID"
// @Param payload body service.GradeRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /final-projects/{id}/grade [put]
func (h *FinalProjectHandler) Grade(c *gin.Context) {
	var req service.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Grade(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Approve godoc
// @Summary Approve final year project
// @Tags FinalProjects
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /final-projects/{id}/approve [put]
func (h *FinalProjectHandler) Approve(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Approve(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Reject godoc
// @Summary Reject final year project
// @Tags FinalProjects
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /final-projects/{id}/reject [put]
func (h *FinalProjectHandler) Reject(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// SetStatus godoc
// @Summary Set final year project status
// @Tags FinalProjects
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /final-projects/{id}/status [put]
func (h *FinalProjectHandler) SetStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.SetStatus(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Delete godoc
// @Summary Delete final year project
// @Tags FinalProjects
// @Param id path string true "Project ID"
// @Success 204
// @Security BearerAuth
// @Router /final-projects/{id} [delete]
func (h *FinalProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Final year project statistics
// @Tags FinalProjects
// @Success 200 {object} response.Envelope
// @Router /final-projects/stats [get]
func (h *FinalProjectHandler) Stats(c *gin.Context) {
	stats, err := h.projects.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
