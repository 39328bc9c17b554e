package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/repository"
)

func newAuditRepo(t *testing.T) (*repository.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewUserRepository(sqlx.NewDb(db, "postgres")), mock
}

func auditRouter(repo *repository.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/publications", Audit(repo, "publications"))
	grp.GET("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	grp.PUT("/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	grp.PUT("/:id/approve", func(c *gin.Context) { c.Status(http.StatusOK) })
	grp.POST("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	return r
}

func TestAuditLogsSuccessfulMutation(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnResult(sqlmock.NewResult(1, 1))

	w := httptest.NewRecorder()
	auditRouter(repo).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/publications/pub-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSkipsReadsAndFailures(t *testing.T) {
	repo, mock := newAuditRepo(t)
	// no INSERT expected for either request

	r := auditRouter(repo)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/publications/pub-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/publications/fail", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditActionMapping(t *testing.T) {
	assert.Equal(t, models.AuditActionRecordCreate, auditAction(http.MethodPost, "/publications"))
	assert.Equal(t, models.AuditActionRecordUpdate, auditAction(http.MethodPut, "/publications/:id"))
	assert.Equal(t, models.AuditActionRecordReview, auditAction(http.MethodPut, "/publications/:id/approve"))
	assert.Equal(t, models.AuditActionRecordReview, auditAction(http.MethodPut, "/travel-grants/:id/review"))
	assert.Equal(t, models.AuditActionRecordDelete, auditAction(http.MethodDelete, "/publications/:id"))
	assert.Equal(t, "", auditAction(http.MethodGet, "/publications"))
}
