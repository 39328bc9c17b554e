package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/service"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

// ContactHandler exposes the public inquiry inbox endpoints.
type ContactHandler struct {
	contacts *service.ContactService
}

// NewContactHandler constructs ContactHandler.
func NewContactHandler(contacts *service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

// Submit godoc
// @Summary Submit a contact inquiry
// @Tags Contacts
// @Accept json
// @Param payload body service.SubmitContactRequest true "Inquiry payload"
// @Success 201 {object} response.Envelope
// @Router /contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req service.SubmitContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	contact, err := h.contacts.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contact)
}

// List godoc
// @Summary List contact inquiries
// @Tags Contacts
// @Produce json
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param search query string false "Search name, email or subject"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact [get]
func (h *ContactHandler) List(c *gin.Context) {
	filter := models.ContactFilter{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Search:    querySearch(c),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}

	contacts, pagination, err := h.contacts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, pagination)
}

// Get godoc
// @Summary Get a contact inquiry
// @Tags Contacts
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Respond godoc
// @Summary Respond to a contact inquiry
// @Tags Contacts
// @Accept json
// @Param id path string true "Contact ID"
// @Param payload body service.RespondContactRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/{id}/respond [put]
func (h *ContactHandler) Respond(c *gin.Context) {
	var req service.RespondContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	contact, err := h.contacts.Respond(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// SetStatus godoc
// @Summary Set contact inquiry status
// @Tags Contacts
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/{id}/status [put]
func (h *ContactHandler) SetStatus(c *gin.Context) {
	var req service.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	contact, err := h.contacts.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Resolve godoc
// @Summary Mark a contact inquiry resolved
// @Tags Contacts
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/{id}/resolve [put]
func (h *ContactHandler) Resolve(c *gin.Context) {
	contact, err := h.contacts.SetStatus(c.Request.Context(), c.Param("id"), service.StatusUpdateRequest{Status: string(models.ContactResolved)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Close godoc
// @Summary Close a contact inquiry
// @Tags Contacts
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/{id}/close [put]
func (h *ContactHandler) Close(c *gin.Context) {
	contact, err := h.contacts.SetStatus(c.Request.Context(), c.Param("id"), service.StatusUpdateRequest{Status: string(models.ContactClosed)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// BulkSetStatus godoc
// @Summary Bulk update contact inquiry statuses
// @Tags Contacts
// @Accept json
// @Param payload body service.BulkContactStatusRequest true "Bulk status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/bulk/update [put]
func (h *ContactHandler) BulkSetStatus(c *gin.Context) {
	var req service.BulkContactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.contacts.BulkSetStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a contact inquiry
// @Tags Contacts
// @Param id path string true "Contact ID"
// @Success 204
// @Security BearerAuth
// @Router /contact/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Contact inquiry statistics
// @Tags Contacts
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contact/stats [get]
func (h *ContactHandler) Stats(c *gin.Context) {
	stats, err := h.contacts.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
