package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{
	"id", "user_id", "email", "user_name", "password_hash", "phone_number",
	"gender", "birth_date", "country", "google_id", "profile_image_url",
	"is_verified", "verification_code", "verification_code_expiry",
	"created_at", "updated_at",
}

func TestCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "ahmed@example.com", "ahmed", sqlmock.AnyArg(),
				false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

		user, err := repo.CreateUser("ahmed@example.com", "ahmed", "$2a$12$hash")
		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "ahmed@example.com", user.Email)
		assert.NotEmpty(t, user.UserID)
		assert.False(t, user.IsVerified)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.CreateUser("ahmed@example.com", "ahmed", "$2a$12$hash")
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to create user")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestCreateGoogleUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(newMockDatabase(db))

	t.Run("Success - Arrives Verified", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "maria@example.com", "maria", "google-sub-123",
				true, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

		user, err := repo.CreateGoogleUser("maria@example.com", "maria", "google-sub-123")
		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.True(t, user.IsVerified)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestGetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("ahmed@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
				int64(7), "uuid-7", "ahmed@example.com", "ahmed", "$2a$12$hash", nil,
				nil, nil, nil, nil, nil,
				true, nil, nil,
				now, now,
			))

		user, err := repo.GetUserByEmail("ahmed@example.com")
		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "ahmed", user.UserName)
		assert.True(t, user.IsVerified)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("User Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetUserByEmail("nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email`).
			WithArgs("ahmed@example.com").
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.GetUserByEmail("ahmed@example.com")
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to get user by email")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestMarkVerified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkVerified(7)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users`).
			WithArgs(int64(7)).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.MarkVerified(7)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to mark user verified")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestDeleteUnverifiedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(newMockDatabase(db))

	t.Run("Removes Stale Users", func(t *testing.T) {
		cutoff := time.Now().Add(-24 * time.Hour)

		mock.ExpectExec(`DELETE FROM users WHERE is_verified = FALSE`).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := repo.DeleteUnverifiedBefore(cutoff)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Nothing To Remove", func(t *testing.T) {
		cutoff := time.Now().Add(-24 * time.Hour)

		mock.ExpectExec(`DELETE FROM users WHERE is_verified = FALSE`).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, 0))

		count, err := repo.DeleteUnverifiedBefore(cutoff)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestClearExpiredVerificationCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUserRepository(newMockDatabase(db))

	t.Run("Clears Lapsed Codes", func(t *testing.T) {
		now := time.Now()

		mock.ExpectExec(`UPDATE users`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 2))

		count, err := repo.ClearExpiredVerificationCodes(now)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

// Mock database implementation for testing. Get/Select delegate through
// sqlx so struct scanning behaves as in production.
type mockDatabase struct {
	db *sqlx.DB
}

func newMockDatabase(db *sql.DB) *mockDatabase {
	return &mockDatabase{db: sqlx.NewDb(db, "sqlmock")}
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return m.db.Get(dest, query, args...)
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return m.db.Select(dest, query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
