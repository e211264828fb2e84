package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/touresta/touresta-backend/internal/models"
)

// DrugTestRepository handles drug test database operations. It takes the
// raw sqlx handle because replacing the current test is transactional.
type DrugTestRepository struct {
	db *sqlx.DB
}

// NewDrugTestRepository creates a new DrugTestRepository
func NewDrugTestRepository(db *sqlx.DB) *DrugTestRepository {
	return &DrugTestRepository{db: db}
}

// GetCurrent returns the helper's single current drug test, if any
func (r *DrugTestRepository) GetCurrent(helperID int64) (*models.DrugTest, error) {
	var test models.DrugTest
	query := `SELECT * FROM drug_tests WHERE helper_id = $1 AND is_current = TRUE`

	err := r.db.Get(&test, query, helperID)
	if err == sql.ErrNoRows {
		return nil, nil // No current drug test
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current drug test: %w", err)
	}

	return &test, nil
}

// ListByHelper returns the full drug test history, newest first
func (r *DrugTestRepository) ListByHelper(helperID int64) ([]models.DrugTest, error) {
	var tests []models.DrugTest
	query := `SELECT * FROM drug_tests WHERE helper_id = $1 ORDER BY uploaded_at DESC`

	err := r.db.Select(&tests, query, helperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drug tests: %w", err)
	}

	return tests, nil
}

// ReplaceCurrent atomically retires the previous current test, inserts the
// new one, and (when reactivate is set) restores the approved helper's
// active flag. Concurrent uploads can never leave zero or two current
// rows: both writes happen inside one transaction and the retire step is
// conditional on is_current.
func (r *DrugTestRepository) ReplaceCurrent(helperID int64, fileURL string, uploadedAt, expiryDate time.Time, reactivate bool) (*models.DrugTest, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Retire the previous current test
	_, err = tx.Exec(`
		UPDATE drug_tests
		SET is_current = FALSE
		WHERE helper_id = $1 AND is_current = TRUE
	`, helperID)
	if err != nil {
		return nil, fmt.Errorf("failed to retire current drug test: %w", err)
	}

	// 2. Insert the new current test
	test := &models.DrugTest{
		HelperID:   helperID,
		FileURL:    fileURL,
		UploadedAt: uploadedAt,
		ExpiryDate: expiryDate,
		IsCurrent:  true,
	}

	err = tx.QueryRow(`
		INSERT INTO drug_tests (helper_id, file_url, uploaded_at, expiry_date, is_current)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id
	`, test.HelperID, test.FileURL, test.UploadedAt, test.ExpiryDate).Scan(&test.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert drug test: %w", err)
	}

	// 3. Restore the active flag for approved helpers that were
	// auto-deactivated on expiry
	if reactivate {
		_, err = tx.Exec(`
			UPDATE helpers
			SET is_active = TRUE, updated_at = NOW()
			WHERE id = $1 AND is_approved = TRUE AND is_active = FALSE
		`, helperID)
		if err != nil {
			return nil, fmt.Errorf("failed to reactivate helper: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit drug test replacement: %w", err)
	}

	return test, nil
}
