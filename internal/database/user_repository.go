package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/touresta/touresta-backend/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// CreateUser creates a new unverified user with a password credential
func (r *UserRepository) CreateUser(email, userName, passwordHash string) (*models.User, error) {
	user := &models.User{
		UserID:       uuid.New().String(),
		Email:        email,
		UserName:     userName,
		PasswordHash: models.NewNullString(passwordHash),
		IsVerified:   false,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
		INSERT INTO users (
			user_id, email, user_name, password_hash, is_verified,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		user.UserID,
		user.Email,
		user.UserName,
		user.PasswordHash,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// CreateGoogleUser creates a user from a verified Google identity.
// Google accounts arrive verified, so no verification code is issued.
func (r *UserRepository) CreateGoogleUser(email, userName, googleID string) (*models.User, error) {
	user := &models.User{
		UserID:     uuid.New().String(),
		Email:      email,
		UserName:   userName,
		GoogleID:   models.NewNullString(googleID),
		IsVerified: true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	query := `
		INSERT INTO users (
			user_id, email, user_name, google_id, is_verified,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		user.UserID,
		user.Email,
		user.UserName,
		user.GoogleID,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create google user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by internal ID
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.Get(&user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetUserByExternalID retrieves a user by external UUID
func (r *UserRepository) GetUserByExternalID(userID string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE user_id = $1`

	err := r.db.Get(&user, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by external id: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.Get(&user, query, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// GetUserByGoogleID retrieves a user by Google account ID
func (r *UserRepository) GetUserByGoogleID(googleID string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE google_id = $1`

	err := r.db.Get(&user, query, googleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by google id: %w", err)
	}

	return &user, nil
}

// SetVerificationCode stores a fresh verification code and its expiry
func (r *UserRepository) SetVerificationCode(userID int64, code string, expiry time.Time) error {
	query := `
		UPDATE users
		SET verification_code = $1, verification_code_expiry = $2, updated_at = NOW()
		WHERE id = $3
	`

	_, err := r.db.Exec(query, code, expiry, userID)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}

	return nil
}

// MarkVerified flips is_verified and clears the verification code
func (r *UserRepository) MarkVerified(userID int64) error {
	query := `
		UPDATE users
		SET is_verified = TRUE, verification_code = NULL,
		    verification_code_expiry = NULL, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(query, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	return nil
}

// UpdateProfileImage stores the uploaded profile image URL on the user row
func (r *UserRepository) UpdateProfileImage(userID int64, url string) error {
	query := `
		UPDATE users
		SET profile_image_url = $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := r.db.Exec(query, url, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile image: %w", err)
	}

	return nil
}

// DeleteUnverifiedBefore hard-deletes users that never verified within the
// grace window. Returns the number of rows removed.
func (r *UserRepository) DeleteUnverifiedBefore(cutoff time.Time) (int, error) {
	query := `DELETE FROM users WHERE is_verified = FALSE AND created_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unverified users: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// ClearExpiredVerificationCodes nulls out dangling codes whose expiry has
// passed. Returns the number of rows touched.
func (r *UserRepository) ClearExpiredVerificationCodes(now time.Time) (int, error) {
	query := `
		UPDATE users
		SET verification_code = NULL, verification_code_expiry = NULL, updated_at = NOW()
		WHERE verification_code_expiry IS NOT NULL AND verification_code_expiry < $1
	`

	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired verification codes: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
