package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/research-admin-api/internal/models"
)

func TestPublicationRepositorySetReviewStampsReviewer(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPublicationRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE publications SET status = \$2, reviewed_by = \$3, review_comments = \$4,\s*approved_at = \$5, rejected_at = \$6`).
		WithArgs("pub-1", sqlmock.AnyArg(), "admin-1", "methodology sound", &now, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetReview(context.Background(), "pub-1", models.PublicationApproved, "admin-1", "methodology sound", &now, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicationRepositorySetReviewAcceptsAnyLegalStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPublicationRepository(db)

	mock.ExpectExec(`UPDATE publications SET status = \$2, reviewed_by = \$3`).
		WithArgs("pub-1", sqlmock.AnyArg(), "admin-1", "", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetReview(context.Background(), "pub-1", models.PublicationPublished, "admin-1", "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
