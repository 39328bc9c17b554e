package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/research-admin-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func userRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name", "role",
		"department", "designation", "phone", "orcid", "active", "last_login",
		"created_at", "updated_at",
	}).AddRow(
		"u1", "nadia.rahman@example.edu", "$2a$10$hash", "Nadia", "Rahman",
		"faculty", "Computer Science", "Professor", "", "", true, nil, now, now,
	)
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("nadia.rahman@example.edu").
		WillReturnRows(userRows())

	user, err := repo.FindByEmail(context.Background(), "nadia.rahman@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByIDNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1 LIMIT 1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFiltersAndCounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	role := models.RoleFaculty
	mock.ExpectQuery(`SELECT .+ FROM users WHERE 1=1 AND role = \$1 AND department = \$2 ORDER BY last_name ASC, first_name ASC LIMIT 10 OFFSET 10`).
		WithArgs("faculty", "Computer Science").
		WillReturnRows(userRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE 1=1 AND role = \$1 AND department = \$2`).
		WithArgs("faculty", "Computer Science").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	users, total, err := repo.List(context.Background(), models.UserFilter{
		Role:       &role,
		Department: "Computer Science",
		Page:       2,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListSearch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE 1=1 AND \(LOWER\(email\) LIKE \$1 OR LOWER\(first_name \|\| ' ' \|\| last_name\) LIKE \$1 OR LOWER\(department\) LIKE \$1\)`).
		WithArgs("%rahman%").
		WillReturnRows(userRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WithArgs("%rahman%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Search: "Rahman", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{
		Email:        "new@example.edu",
		PasswordHash: "hash",
		FirstName:    "New",
		LastName:     "User",
		Role:         models.RoleStaff,
		Department:   "Research Office",
		Active:       true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteIsSoft(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET active = FALSE, updated_at = \$2 WHERE id = \$1`).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
