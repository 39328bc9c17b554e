package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

type mockPublicationRepo struct {
	records   map[string]*models.PublicationDetail
	listItems []models.PublicationDetail
	listTotal int
	created   *models.Publication
	updated   *models.Publication
	deletedID string
	review    struct {
		status     models.PublicationStatus
		reviewerID string
		comments   string
		approvedAt *time.Time
		rejectedAt *time.Time
	}
	stats *models.PublicationStats
}

func (m *mockPublicationRepo) List(ctx context.Context, filter models.PublicationFilter) ([]models.PublicationDetail, int, error) {
	return m.listItems, m.listTotal, nil
}

func (m *mockPublicationRepo) FindByID(ctx context.Context, id string) (*models.PublicationDetail, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (m *mockPublicationRepo) Create(ctx context.Context, publication *models.Publication) error {
	publication.ID = "pub-1"
	m.created = publication
	return nil
}

func (m *mockPublicationRepo) Update(ctx context.Context, publication *models.Publication) error {
	m.updated = publication
	if rec, ok := m.records[publication.ID]; ok {
		rec.Publication = *publication
	}
	return nil
}

func (m *mockPublicationRepo) SetReview(ctx context.Context, id string, status models.PublicationStatus, reviewerID, comments string, approvedAt, rejectedAt *time.Time) error {
	m.review.status = status
	m.review.reviewerID = reviewerID
	m.review.comments = comments
	m.review.approvedAt = approvedAt
	m.review.rejectedAt = rejectedAt
	if rec, ok := m.records[id]; ok {
		rec.Status = status
		rec.ReviewedBy = &reviewerID
		rec.ApprovedAt = approvedAt
		rec.RejectedAt = rejectedAt
	}
	return nil
}

func (m *mockPublicationRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockPublicationRepo) Stats(ctx context.Context) (*models.PublicationStats, error) {
	return m.stats, nil
}

func publicationFixture(id, owner string, status models.PublicationStatus) *models.PublicationDetail {
	ownerID := owner
	return &models.PublicationDetail{Publication: models.Publication{
		ID:              id,
		Title:           "Deep Learning for Crop Yield Prediction",
		PublicationType: "Journal Article",
		Authors:         models.Authors{{Name: "A. Rahman", AuthorOrder: 1}},
		SubmittedBy:     &ownerID,
		Status:          status,
	}}
}

func TestPublicationCreateDefaultsToDraft(t *testing.T) {
	repo := &mockPublicationRepo{}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	pub, err := svc.Create(context.Background(), models.Actor{ID: "u1", Role: models.RoleFaculty}, CreatePublicationRequest{
		Title:           "Deep Learning for Crop Yield Prediction",
		PublicationType: "Journal Article",
		Authors:         models.Authors{{Name: "A. Rahman", AuthorOrder: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationDraft, pub.Status)
	assert.Equal(t, "u1", *pub.SubmittedBy)
	assert.Equal(t, 1, pub.TotalAuthors)
}

func TestPublicationCreateRejectsUnknownStatus(t *testing.T) {
	repo := &mockPublicationRepo{}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.Actor{ID: "u1"}, CreatePublicationRequest{
		Title:           "Valid Title",
		PublicationType: "Journal Article",
		Authors:         models.Authors{{Name: "A"}},
		Status:          "Archived",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestPublicationCreateValidation(t *testing.T) {
	repo := &mockPublicationRepo{}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.Actor{ID: "u1"}, CreatePublicationRequest{Title: "ab"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Fields)
}

func TestPublicationUpdateForbiddenForStranger(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{
		"pub-1": publicationFixture("pub-1", "owner", models.PublicationDraft),
	}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), models.Actor{ID: "intruder", Role: models.RoleFaculty}, "pub-1", UpdatePublicationRequest{
		Title:           "Changed Title",
		PublicationType: "Journal Article",
		Authors:         models.Authors{{Name: "A"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPublicationUpdateAllowedForCoAuthor(t *testing.T) {
	coAuthor := "coauthor"
	fixture := publicationFixture("pub-1", "owner", models.PublicationDraft)
	fixture.Authors = models.Authors{{UserID: &coAuthor, Name: "Co"}}
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{"pub-1": fixture}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	pub, err := svc.Update(context.Background(), models.Actor{ID: coAuthor, Role: models.RoleFaculty}, "pub-1", UpdatePublicationRequest{
		Title:           "Changed Title",
		PublicationType: "Journal Article",
		Authors:         models.Authors{{UserID: &coAuthor, Name: "Co"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Changed Title", pub.Title)
}

func TestPublicationApproveStampsReviewer(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{
		"pub-1": publicationFixture("pub-1", "owner", models.PublicationSubmitted),
	}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	detail, err := svc.Approve(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "pub-1", ReviewRequest{Comments: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationApproved, detail.Status)
	assert.Equal(t, "admin-1", repo.review.reviewerID)
	assert.NotNil(t, repo.review.approvedAt)
	assert.Nil(t, repo.review.rejectedAt)
}

func TestPublicationRejectFromTerminalState(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{
		"pub-1": publicationFixture("pub-1", "owner", models.PublicationApproved),
	}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	_, err := svc.Reject(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "pub-1", ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestPublicationSetStatusBypassesPendingRule(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{
		"pub-1": publicationFixture("pub-1", "owner", models.PublicationApproved),
	}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	detail, err := svc.SetStatus(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "pub-1", StatusUpdateRequest{Status: string(models.PublicationPublished)})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationPublished, detail.Status)
}

func TestPublicationSetStatusPersistsReviewerStamp(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{
		"pub-1": publicationFixture("pub-1", "owner", models.PublicationDraft),
	}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	detail, err := svc.SetStatus(context.Background(), models.Actor{ID: "admin-2", Role: models.RoleAdmin}, "pub-1", StatusUpdateRequest{Status: string(models.PublicationApproved), Comments: "fast-tracked"})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationApproved, detail.Status)
	assert.Equal(t, "admin-2", repo.review.reviewerID)
	assert.Equal(t, "fast-tracked", repo.review.comments)
	require.NotNil(t, repo.review.approvedAt)
	assert.Nil(t, repo.review.rejectedAt)
}

func TestPublicationSetStatusKeepsPriorDecisionStamp(t *testing.T) {
	approved := time.Now().UTC().Add(-48 * time.Hour)
	reviewer := "admin-1"
	fixture := publicationFixture("pub-1", "owner", models.PublicationApproved)
	fixture.ReviewedBy = &reviewer
	fixture.ApprovedAt = &approved
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{"pub-1": fixture}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	_, err := svc.SetStatus(context.Background(), models.Actor{ID: "admin-2", Role: models.RoleAdmin}, "pub-1", StatusUpdateRequest{Status: string(models.PublicationPublished)})
	require.NoError(t, err)
	assert.Equal(t, "admin-2", repo.review.reviewerID)
	require.NotNil(t, repo.review.approvedAt)
	assert.True(t, repo.review.approvedAt.Equal(approved))
}

func TestPublicationGetNotFound(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPublicationListPagination(t *testing.T) {
	repo := &mockPublicationRepo{
		listItems: []models.PublicationDetail{*publicationFixture("pub-1", "owner", models.PublicationDraft)},
		listTotal: 25,
	}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	items, pagination, err := svc.List(context.Background(), models.PublicationFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 3, pagination.TotalPages)
}

func TestPublicationDeleteByAdmin(t *testing.T) {
	repo := &mockPublicationRepo{records: map[string]*models.PublicationDetail{
		"pub-1": publicationFixture("pub-1", "owner", models.PublicationDraft),
	}}
	svc := NewPublicationService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "pub-1")
	require.NoError(t, err)
	assert.Equal(t, "pub-1", repo.deletedID)
}
