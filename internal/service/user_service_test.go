package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	byEmail   map[string]*models.User
	listUsers []models.User
	listTotal int
	created   *models.User
	updated   *models.User
	deletedID string
	audits    []*models.AuditLog
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}, byEmail: map[string]*models.User{}}
}

func (m *mockUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	return m.listUsers, m.listTotal, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	m.created = user
	m.users[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	m.updated = user
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockUserRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func TestUserServiceRegisterDefaultsToFaculty(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, zap.NewNop())

	user, err := svc.Register(context.Background(), SignupRequest{
		Email:      "Nadia.Rahman@Example.edu",
		Password:   "s3cretpw",
		FirstName:  "Nadia",
		LastName:   "Rahman",
		Department: "Computer Science",
	}, models.LoginRequest{IP: "10.0.0.4"})
	require.NoError(t, err)

	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.Equal(t, "nadia.rahman@example.edu", user.Email)
	assert.True(t, user.Active)
	assert.NotEmpty(t, user.ID)
	require.NotNil(t, repo.created)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("s3cretpw")))
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.audits[0].Action)
}

func TestUserServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.byEmail["nadia.rahman@example.edu"] = &models.User{ID: "u1", Email: "nadia.rahman@example.edu"}
	svc := NewUserService(repo, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), SignupRequest{
		Email:      "NADIA.RAHMAN@example.edu",
		Password:   "s3cretpw",
		FirstName:  "Nadia",
		LastName:   "Rahman",
		Department: "Computer Science",
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceRegisterRejectsAdminRole(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), SignupRequest{
		Email:      "mallory@example.edu",
		Password:   "s3cretpw",
		FirstName:  "Mallory",
		LastName:   "Gray",
		Role:       models.RoleAdmin,
		Department: "Physics",
	}, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestUserServiceCreateByAdmin(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, zap.NewNop())

	inactive := false
	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:      "ops@example.edu",
		Password:   "s3cretpw",
		FirstName:  "Opal",
		LastName:   "Singh",
		Role:       models.RoleStaff,
		Department: "Research Office",
		Active:     &inactive,
	}, "admin-1", models.LoginRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.RoleStaff, user.Role)
	assert.False(t, user.Active)
	require.Len(t, repo.audits, 1)
	require.NotNil(t, repo.audits[0].UserID)
	assert.Equal(t, "admin-1", *repo.audits[0].UserID)
}

func TestUserServiceUpdateProfileKeepsRole(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u1"] = &models.User{
		ID:         "u1",
		Email:      "nadia.rahman@example.edu",
		FirstName:  "Nadia",
		LastName:   "Rahman",
		Role:       models.RoleFaculty,
		Department: "Computer Science",
		Active:     true,
	}
	svc := NewUserService(repo, nil, zap.NewNop())

	user, err := svc.UpdateProfile(context.Background(), "u1", UpdateProfileRequest{
		FirstName:   "Nadia",
		LastName:    "Rahman-Kazi",
		Department:  "Data Science",
		Designation: "Associate Professor",
		ORCID:       "0000-0002-1825-0097",
	})
	require.NoError(t, err)

	assert.Equal(t, "Rahman-Kazi", user.LastName)
	assert.Equal(t, "Data Science", user.Department)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.True(t, user.Active)
}

func TestUserServiceListPagination(t *testing.T) {
	repo := newMockUserRepo()
	repo.listUsers = []models.User{{ID: "u1"}, {ID: "u2"}}
	repo.listTotal = 42
	svc := NewUserService(repo, nil, zap.NewNop())

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 3, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, users, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 42, pagination.Total)
	assert.Equal(t, 5, pagination.TotalPages)
	assert.True(t, pagination.HasNext)
	assert.True(t, pagination.HasPrev)
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
