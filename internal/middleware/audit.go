package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/repository"
)

// Audit records an audit log row for every successful mutating request in
// the group it is attached to. Reads and failed requests are skipped.
func Audit(repo *repository.UserRepository, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		action := auditAction(c.Request.Method, c.FullPath())
		if action == "" || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				userID = &user.UserID
			}
		}
		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}

// auditAction maps a mutating request to its audit action; "" means the
// request is not audited. Workflow endpoints log as reviews rather than
// plain updates.
func auditAction(method, path string) string {
	switch method {
	case http.MethodPost:
		return models.AuditActionRecordCreate
	case http.MethodPut, http.MethodPatch:
		for _, suffix := range []string{"/approve", "/reject", "/review", "/status"} {
			if strings.HasSuffix(path, suffix) {
				return models.AuditActionRecordReview
			}
		}
		return models.AuditActionRecordUpdate
	case http.MethodDelete:
		return models.AuditActionRecordDelete
	default:
		return ""
	}
}
