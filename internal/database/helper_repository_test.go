package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touresta/touresta-backend/internal/models"
)

var helperColumns = []string{
	"id", "helper_id", "user_id", "full_name", "gender", "birth_date",
	"profile_image_url", "national_id_photo", "criminal_record_url",
	"has_car", "is_active", "is_approved", "approval_status",
	"rejection_reason", "reviewed_by_admin_id", "reviewed_at",
	"created_at", "updated_at",
}

func helperRow(id int64, status models.ApprovalStatus, isActive, isApproved bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(helperColumns).AddRow(
		id, fmt.Sprintf("uuid-%d", id), int64(7), "Ahmed", "male", time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		nil, nil, nil,
		false, isActive, isApproved, status,
		nil, nil, nil,
		now, now,
	)
}

func TestCreateHelper(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHelperRepository(newMockDatabase(db))

	t.Run("Success - Starts Pending And Inactive", func(t *testing.T) {
		birthDate := time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`INSERT INTO helpers`).
			WithArgs(sqlmock.AnyArg(), int64(7), "Ahmed", "male", birthDate,
				false, false, false, "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

		helper, err := repo.CreateHelper(7, "Ahmed", models.GenderMale, birthDate)
		require.NoError(t, err)
		assert.NotNil(t, helper)
		assert.Equal(t, int64(1), helper.ID)
		assert.Equal(t, models.ApprovalPending, helper.ApprovalStatus)
		assert.False(t, helper.IsActive)
		assert.False(t, helper.IsApproved)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO helpers`).
			WillReturnError(fmt.Errorf("database error"))

		helper, err := repo.CreateHelper(7, "Ahmed", models.GenderMale, time.Now())
		assert.Error(t, err)
		assert.Nil(t, helper)
		assert.Contains(t, err.Error(), "failed to create helper")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestGetHelperByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHelperRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM helpers WHERE user_id`).
			WithArgs(int64(7)).
			WillReturnRows(helperRow(1, models.ApprovalPending, false, false))

		helper, err := repo.GetHelperByUserID(7)
		require.NoError(t, err)
		assert.NotNil(t, helper)
		assert.Equal(t, "Ahmed", helper.FullName)
		assert.Equal(t, models.ApprovalPending, helper.ApprovalStatus)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("No Helper Yet", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM helpers WHERE user_id`).
			WithArgs(int64(8)).
			WillReturnError(sql.ErrNoRows)

		helper, err := repo.GetHelperByUserID(8)
		require.NoError(t, err)
		assert.Nil(t, helper)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestApprove(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHelperRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE helpers`).
			WithArgs("approved", int64(3), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Approve(1, 3)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE helpers`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.Approve(1, 3)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to approve helper")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestSetReviewOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHelperRepository(newMockDatabase(db))

	t.Run("Reject Without Deactivation", func(t *testing.T) {
		mock.ExpectExec(`UPDATE helpers`).
			WithArgs("rejected", "incomplete documents", int64(3), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetReviewOutcome(1, 3, models.ApprovalRejected, "incomplete documents", false)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Reject With Deactivation Policy", func(t *testing.T) {
		mock.ExpectExec(`UPDATE helpers(.+)is_approved = FALSE`).
			WithArgs("rejected", "fraudulent record", int64(3), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetReviewOutcome(1, 3, models.ApprovalRejected, "fraudulent record", true)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Request Changes", func(t *testing.T) {
		mock.ExpectExec(`UPDATE helpers`).
			WithArgs("changes_requested", "photo unreadable", int64(3), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetReviewOutcome(1, 3, models.ApprovalChangesRequested, "photo unreadable", false)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestGetPendingHelpers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHelperRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`SELECT h.id, h.helper_id, h.full_name`).
			WithArgs("pending", "under_review").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "helper_id", "full_name", "user_email", "approval_status",
				"created_at", "has_drug_test", "verified_languages",
			}).
				AddRow(int64(1), "uuid-1", "Ahmed", "ahmed@example.com", "pending", now, true, 2).
				AddRow(int64(2), "uuid-2", "Maria", "maria@example.com", "under_review", now, false, 1))

		items, err := repo.GetPendingHelpers()
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, "Ahmed", items[0].FullName)
		assert.True(t, items[0].HasDrugTest)
		assert.Equal(t, 1, items[1].VerifiedLanguages)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Empty Queue", func(t *testing.T) {
		mock.ExpectQuery(`SELECT h.id, h.helper_id, h.full_name`).
			WithArgs("pending", "under_review").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "helper_id", "full_name", "user_email", "approval_status",
				"created_at", "has_drug_test", "verified_languages",
			}))

		items, err := repo.GetPendingHelpers()
		require.NoError(t, err)
		assert.Len(t, items, 0)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestDeactivateExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHelperRepository(newMockDatabase(db))

	t.Run("Deactivates Lapsed Helpers In One Batch", func(t *testing.T) {
		now := time.Now()

		mock.ExpectExec(`UPDATE helpers h`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 4))

		count, err := repo.DeactivateExpired(now)
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("No Expired Helpers", func(t *testing.T) {
		now := time.Now()

		mock.ExpectExec(`UPDATE helpers h`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		count, err := repo.DeactivateExpired(now)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}
