package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/touresta/touresta-backend/internal/models"
)

// ErrDuplicateLanguage is returned when a (helper, language) row already
// exists. The unique pair constraint backstops concurrent lazy creation.
var ErrDuplicateLanguage = errors.New("language already added for helper")

// LanguageRepository handles helper language and test history operations.
// It takes the raw sqlx handle because recording a test verdict updates
// the summary row and appends history in one transaction.
type LanguageRepository struct {
	db *sqlx.DB
}

// NewLanguageRepository creates a new LanguageRepository
func NewLanguageRepository(db *sqlx.DB) *LanguageRepository {
	return &LanguageRepository{db: db}
}

// GetByHelperAndCode returns the helper's row for a language, if any
func (r *LanguageRepository) GetByHelperAndCode(helperID int64, code string) (*models.HelperLanguage, error) {
	var lang models.HelperLanguage
	query := `SELECT * FROM helper_languages WHERE helper_id = $1 AND language_code = $2`

	err := r.db.Get(&lang, query, helperID, code)
	if err == sql.ErrNoRows {
		return nil, nil // Language not added yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get helper language: %w", err)
	}

	return &lang, nil
}

// ListByHelper returns all language rows for a helper
func (r *LanguageRepository) ListByHelper(helperID int64) ([]models.HelperLanguage, error) {
	var langs []models.HelperLanguage
	query := `SELECT * FROM helper_languages WHERE helper_id = $1 ORDER BY created_at ASC`

	err := r.db.Select(&langs, query, helperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list helper languages: %w", err)
	}

	return langs, nil
}

// CountVerifiedByHelper counts the helper's verified languages
func (r *LanguageRepository) CountVerifiedByHelper(helperID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM helper_languages WHERE helper_id = $1 AND is_verified = TRUE`

	err := r.db.Get(&count, query, helperID)
	if err != nil {
		return 0, fmt.Errorf("failed to count verified languages: %w", err)
	}

	return count, nil
}

// CreateHelperLanguage inserts a new (helper, language) row. A unique
// violation on the pair maps to ErrDuplicateLanguage so concurrent first
// attempts collapse onto the same row.
func (r *LanguageRepository) CreateHelperLanguage(lang *models.HelperLanguage) error {
	lang.CreatedAt = time.Now()
	lang.UpdatedAt = time.Now()

	query := `
		INSERT INTO helper_languages (
			helper_id, language_code, language_name, level, ai_score,
			test_attempts, last_tested_at, is_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		lang.HelperID,
		lang.LanguageCode,
		lang.LanguageName,
		lang.Level,
		lang.AiScore,
		lang.TestAttempts,
		lang.LastTestedAt,
		lang.IsVerified,
		lang.CreatedAt,
		lang.UpdatedAt,
	).Scan(&lang.ID)
	if err != nil {
		if isUniqueViolation(err, "helper_languages") {
			return ErrDuplicateLanguage
		}
		return fmt.Errorf("failed to create helper language: %w", err)
	}

	return nil
}

// CountTestsInWindow counts test attempts for a language row taken at or
// after the window start (the rate limiter's calendar-month count)
func (r *LanguageRepository) CountTestsInWindow(helperLanguageID int64, windowStart time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM language_tests WHERE helper_language_id = $1 AND taken_at >= $2`

	err := r.db.Get(&count, query, helperLanguageID, windowStart)
	if err != nil {
		return 0, fmt.Errorf("failed to count language tests: %w", err)
	}

	return count, nil
}

// ListTestsByLanguage returns the append-only attempt history, newest first
func (r *LanguageRepository) ListTestsByLanguage(helperLanguageID int64) ([]models.LanguageTest, error) {
	var tests []models.LanguageTest
	query := `SELECT * FROM language_tests WHERE helper_language_id = $1 ORDER BY taken_at DESC`

	err := r.db.Select(&tests, query, helperLanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list language tests: %w", err)
	}

	return tests, nil
}

// RecordTestResult appends an immutable test row and updates the parent
// summary in one transaction. Verification is only ever gained: a failed
// retest increments attempts but never unsets is_verified.
func (r *LanguageRepository) RecordTestResult(lang *models.HelperLanguage, test *models.LanguageTest) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Append the attempt record
	err = tx.QueryRow(`
		INSERT INTO language_tests (helper_language_id, ai_score, ai_level, passed, taken_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, test.HelperLanguageID, test.AiScore, test.AiLevel, test.Passed, test.TakenAt).Scan(&test.ID)
	if err != nil {
		return fmt.Errorf("failed to insert language test: %w", err)
	}

	// 2. Update the summary row
	_, err = tx.Exec(`
		UPDATE helper_languages
		SET ai_score = $1, level = $2, test_attempts = test_attempts + 1,
		    last_tested_at = $3, is_verified = (is_verified OR $4),
		    updated_at = NOW()
		WHERE id = $5
	`, test.AiScore, test.AiLevel, test.TakenAt, test.Passed, test.HelperLanguageID)
	if err != nil {
		return fmt.Errorf("failed to update helper language summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test result: %w", err)
	}

	lang.AiScore = models.NewNullFloat64(test.AiScore)
	lang.Level = test.AiLevel
	lang.TestAttempts++
	lang.LastTestedAt = models.NewNullTime(test.TakenAt)
	if test.Passed {
		lang.IsVerified = true
	}

	return nil
}
