package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/touresta/touresta-backend/internal/models"
)

// CertificateRepository handles certificate database operations
type CertificateRepository struct {
	db DB
}

// NewCertificateRepository creates a new certificate repository
func NewCertificateRepository(db DB) *CertificateRepository {
	return &CertificateRepository{
		db: db,
	}
}

// CreateCertificate adds an unverified certificate for a helper
func (r *CertificateRepository) CreateCertificate(cert *models.Certificate) error {
	cert.IsVerified = false
	cert.UploadedAt = time.Now()

	query := `
		INSERT INTO certificates (helper_id, name, type, file_url, is_verified, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		cert.HelperID,
		cert.Name,
		cert.Type,
		cert.FileURL,
		cert.IsVerified,
		cert.UploadedAt,
	).Scan(&cert.ID)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	return nil
}

// GetCertificateByID retrieves a certificate by ID
func (r *CertificateRepository) GetCertificateByID(id int64) (*models.Certificate, error) {
	var cert models.Certificate
	query := `SELECT * FROM certificates WHERE id = $1`

	err := r.db.Get(&cert, query, id)
	if err == sql.ErrNoRows {
		return nil, nil // Certificate not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate by id: %w", err)
	}

	return &cert, nil
}

// ListByHelper returns all certificates owned by a helper
func (r *CertificateRepository) ListByHelper(helperID int64) ([]models.Certificate, error) {
	var certs []models.Certificate
	query := `SELECT * FROM certificates WHERE helper_id = $1 ORDER BY uploaded_at ASC`

	err := r.db.Select(&certs, query, helperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	return certs, nil
}

// DeleteCertificate removes a certificate row
func (r *CertificateRepository) DeleteCertificate(id int64) error {
	query := `DELETE FROM certificates WHERE id = $1`

	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}

	return nil
}

// VerifyAllForHelper flips every certificate of a helper to verified.
// Runs as a side effect of admin approval. Returns the number verified.
func (r *CertificateRepository) VerifyAllForHelper(helperID int64) (int, error) {
	query := `UPDATE certificates SET is_verified = TRUE WHERE helper_id = $1 AND is_verified = FALSE`

	result, err := r.db.Exec(query, helperID)
	if err != nil {
		return 0, fmt.Errorf("failed to verify certificates: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}
