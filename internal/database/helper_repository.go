package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/touresta/touresta-backend/internal/models"
)

// HelperRepository handles helper database operations
type HelperRepository struct {
	db DB
}

// NewHelperRepository creates a new helper repository
func NewHelperRepository(db DB) *HelperRepository {
	return &HelperRepository{
		db: db,
	}
}

// CreateHelper creates a new helper application in pending state
func (r *HelperRepository) CreateHelper(userID int64, fullName string, gender models.Gender, birthDate time.Time) (*models.Helper, error) {
	helper := &models.Helper{
		HelperID:       uuid.New().String(),
		UserID:         userID,
		FullName:       fullName,
		Gender:         gender,
		BirthDate:      birthDate,
		IsActive:       false,
		IsApproved:     false,
		ApprovalStatus: models.ApprovalPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	query := `
		INSERT INTO helpers (
			helper_id, user_id, full_name, gender, birth_date,
			has_car, is_active, is_approved, approval_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		helper.HelperID,
		helper.UserID,
		helper.FullName,
		helper.Gender,
		helper.BirthDate,
		helper.HasCar,
		helper.IsActive,
		helper.IsApproved,
		helper.ApprovalStatus,
		helper.CreatedAt,
		helper.UpdatedAt,
	).Scan(&helper.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create helper: %w", err)
	}

	return helper, nil
}

// GetHelperByID retrieves a helper by internal ID
func (r *HelperRepository) GetHelperByID(id int64) (*models.Helper, error) {
	var helper models.Helper
	query := `SELECT * FROM helpers WHERE id = $1`

	err := r.db.Get(&helper, query, id)
	if err == sql.ErrNoRows {
		return nil, nil // Helper not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get helper by id: %w", err)
	}

	return &helper, nil
}

// GetHelperByExternalID retrieves a helper by external UUID
func (r *HelperRepository) GetHelperByExternalID(helperID string) (*models.Helper, error) {
	var helper models.Helper
	query := `SELECT * FROM helpers WHERE helper_id = $1`

	err := r.db.Get(&helper, query, helperID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get helper by external id: %w", err)
	}

	return &helper, nil
}

// GetHelperByUserID retrieves the helper owned by a user, if any
func (r *HelperRepository) GetHelperByUserID(userID int64) (*models.Helper, error) {
	var helper models.Helper
	query := `SELECT * FROM helpers WHERE user_id = $1`

	err := r.db.Get(&helper, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get helper by user id: %w", err)
	}

	return &helper, nil
}

// UpdateProfile persists the mutable profile columns of a helper in one
// statement. Callers stage document URLs before invoking this so a failed
// upload never leaves a partially-updated row.
func (r *HelperRepository) UpdateProfile(helper *models.Helper) error {
	query := `
		UPDATE helpers
		SET full_name = $1, gender = $2, birth_date = $3,
		    profile_image_url = $4, national_id_photo = $5,
		    criminal_record_url = $6, approval_status = $7,
		    rejection_reason = $8, updated_at = NOW()
		WHERE id = $9
	`

	_, err := r.db.Exec(
		query,
		helper.FullName,
		helper.Gender,
		helper.BirthDate,
		helper.ProfileImageURL,
		helper.NationalIDPhoto,
		helper.CriminalRecordURL,
		helper.ApprovalStatus,
		helper.RejectionReason,
		helper.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update helper profile: %w", err)
	}

	return nil
}

// SetActive flips the helper's active flag (gate deactivation and
// drug-test reactivation both land here)
func (r *HelperRepository) SetActive(helperID int64, active bool) error {
	query := `UPDATE helpers SET is_active = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.db.Exec(query, active, helperID)
	if err != nil {
		return fmt.Errorf("failed to set helper active flag: %w", err)
	}

	return nil
}

// SetHasCar updates the has_car flag
func (r *HelperRepository) SetHasCar(helperID int64, hasCar bool) error {
	query := `UPDATE helpers SET has_car = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.db.Exec(query, hasCar, helperID)
	if err != nil {
		return fmt.Errorf("failed to set helper has_car flag: %w", err)
	}

	return nil
}

// Approve marks the helper approved and active, clears any rejection
// reason, and stamps the reviewer
func (r *HelperRepository) Approve(helperID, adminID int64) error {
	query := `
		UPDATE helpers
		SET is_approved = TRUE, is_active = TRUE, approval_status = $1,
		    rejection_reason = NULL, reviewed_by_admin_id = $2,
		    reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $3
	`

	_, err := r.db.Exec(query, models.ApprovalApproved, adminID, helperID)
	if err != nil {
		return fmt.Errorf("failed to approve helper: %w", err)
	}

	return nil
}

// SetReviewOutcome records a rejection or changes-requested decision with
// its reason. When deactivate is true the helper also loses its approved
// and active flags.
func (r *HelperRepository) SetReviewOutcome(helperID, adminID int64, status models.ApprovalStatus, reason string, deactivate bool) error {
	query := `
		UPDATE helpers
		SET approval_status = $1, rejection_reason = $2,
		    reviewed_by_admin_id = $3, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $4
	`
	if deactivate {
		query = `
		UPDATE helpers
		SET approval_status = $1, rejection_reason = $2,
		    reviewed_by_admin_id = $3, reviewed_at = NOW(), updated_at = NOW(),
		    is_approved = FALSE, is_active = FALSE
		WHERE id = $4
	`
	}

	_, err := r.db.Exec(query, status, reason, adminID, helperID)
	if err != nil {
		return fmt.Errorf("failed to set review outcome: %w", err)
	}

	return nil
}

// GetPendingHelpers returns the review queue (pending and under-review
// applications) with document counters for the list view
func (r *HelperRepository) GetPendingHelpers() ([]models.HelperQueueItem, error) {
	var items []models.HelperQueueItem
	query := `
		SELECT h.id, h.helper_id, h.full_name, u.email AS user_email,
		       h.approval_status, h.created_at,
		       EXISTS (
		           SELECT 1 FROM drug_tests dt
		           WHERE dt.helper_id = h.id AND dt.is_current = TRUE
		       ) AS has_drug_test,
		       (
		           SELECT COUNT(*) FROM helper_languages hl
		           WHERE hl.helper_id = h.id AND hl.is_verified = TRUE
		       ) AS verified_languages
		FROM helpers h
		JOIN users u ON u.id = h.user_id
		WHERE h.approval_status IN ($1, $2)
		ORDER BY h.created_at ASC
	`

	err := r.db.Select(&items, query, models.ApprovalPending, models.ApprovalUnderReview)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending helpers: %w", err)
	}

	return items, nil
}

// DeactivateExpired batch-deactivates every active helper whose current
// drug test is missing or has lapsed. Returns the number of helpers
// deactivated.
func (r *HelperRepository) DeactivateExpired(now time.Time) (int, error) {
	query := `
		UPDATE helpers h
		SET is_active = FALSE, updated_at = NOW()
		WHERE h.is_active = TRUE
		  AND NOT EXISTS (
		      SELECT 1 FROM drug_tests dt
		      WHERE dt.helper_id = h.id AND dt.is_current = TRUE AND dt.expiry_date > $1
		  )
	`

	result, err := r.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired helpers: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
