package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/middleware"
	"github.com/noah-isme/research-admin-api/internal/models"
	"github.com/noah-isme/research-admin-api/internal/service"
	"github.com/noah-isme/research-admin-api/pkg/response"
)

type stubPublicationRepo struct {
	detail  *models.PublicationDetail
	list    []models.PublicationDetail
	total   int
	created *models.Publication
}

func (s *stubPublicationRepo) List(_ context.Context, _ models.PublicationFilter) ([]models.PublicationDetail, int, error) {
	return s.list, s.total, nil
}

func (s *stubPublicationRepo) FindByID(_ context.Context, _ string) (*models.PublicationDetail, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.detail
	return &copied, nil
}

func (s *stubPublicationRepo) Create(_ context.Context, publication *models.Publication) error {
	s.created = publication
	return nil
}

func (s *stubPublicationRepo) Update(_ context.Context, _ *models.Publication) error { return nil }

func (s *stubPublicationRepo) SetReview(_ context.Context, _ string, status models.PublicationStatus, _, _ string, _, _ *time.Time) error {
	if s.detail != nil {
		s.detail.Status = status
	}
	return nil
}

func (s *stubPublicationRepo) Delete(_ context.Context, _ string) error { return nil }

func (s *stubPublicationRepo) Stats(_ context.Context) (*models.PublicationStats, error) {
	return &models.PublicationStats{Total: s.total}, nil
}

func publicationRouter(repo *stubPublicationRepo, actor *models.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewPublicationService(repo, nil, zap.NewNop())
	h := NewPublicationHandler(svc)

	r := gin.New()
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: actor.ID, Role: actor.Role})
		})
	}
	r.GET("/publications", h.List)
	r.GET("/publications/:id", h.Get)
	r.POST("/publications", h.Create)
	r.PUT("/publications/:id/approve", h.Approve)
	return r
}

func TestPublicationHandlerListEnvelope(t *testing.T) {
	repo := &stubPublicationRepo{
		list: []models.PublicationDetail{
			{Publication: models.Publication{ID: "p1", Title: "Federated Learning on Edge Devices"}},
		},
		total: 15,
	}
	router := publicationRouter(repo, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/publications?page=2&limit=5", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 15, envelope.Pagination.Total)
	assert.Equal(t, 3, envelope.Pagination.TotalPages)
	assert.True(t, envelope.Pagination.HasPrev)
}

func TestPublicationHandlerGetNotFound(t *testing.T) {
	router := publicationRouter(&stubPublicationRepo{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/publications/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
}

func TestPublicationHandlerCreate(t *testing.T) {
	repo := &stubPublicationRepo{}
	actor := &models.Actor{ID: "u1", Role: models.RoleFaculty}
	router := publicationRouter(repo, actor)

	payload := map[string]interface{}{
		"title":           "Low-Power Wide-Area Sensing",
		"publicationType": "Journal Article",
		"authors": []map[string]interface{}{
			{"name": "Nadia Rahman", "email": "nadia.rahman@example.edu", "authorOrder": 1},
		},
	}
	body, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/publications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.PublicationDraft, repo.created.Status)
	require.NotNil(t, repo.created.SubmittedBy)
	assert.Equal(t, "u1", *repo.created.SubmittedBy)
}

func TestPublicationHandlerCreateInvalidPayload(t *testing.T) {
	router := publicationRouter(&stubPublicationRepo{}, &models.Actor{ID: "u1", Role: models.RoleFaculty})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/publications", bytes.NewReader([]byte(`{"title":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicationHandlerApproveWithEmptyBody(t *testing.T) {
	repo := &stubPublicationRepo{detail: &models.PublicationDetail{
		Publication: models.Publication{ID: "p1", Title: "Queueing Models", Status: models.PublicationSubmitted},
	}}
	router := publicationRouter(repo, &models.Actor{ID: "admin-1", Role: models.RoleAdmin})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/publications/p1/approve", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PublicationApproved, repo.detail.Status)
}
