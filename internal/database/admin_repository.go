package database

import (
	"database/sql"
	"fmt"

	"github.com/touresta/touresta-backend/internal/models"
)

// AdminRepository handles admin account database operations
type AdminRepository struct {
	db DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db DB) *AdminRepository {
	return &AdminRepository{
		db: db,
	}
}

// GetAdminByID retrieves an admin by ID
func (r *AdminRepository) GetAdminByID(id int64) (*models.Admin, error) {
	var admin models.Admin
	query := `SELECT * FROM admins WHERE id = $1`

	err := r.db.Get(&admin, query, id)
	if err == sql.ErrNoRows {
		return nil, nil // Admin not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by id: %w", err)
	}

	return &admin, nil
}

// GetAdminByEmail retrieves an admin by email
func (r *AdminRepository) GetAdminByEmail(email string) (*models.Admin, error) {
	var admin models.Admin
	query := `SELECT * FROM admins WHERE email = $1`

	err := r.db.Get(&admin, query, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}

	return &admin, nil
}

// UpdateLastLogin stamps the admin's last successful login
func (r *AdminRepository) UpdateLastLogin(id int64) error {
	query := `UPDATE admins SET last_login_at = NOW() WHERE id = $1`

	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to update admin last login: %w", err)
	}

	return nil
}
