package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/touresta/touresta-backend/internal/models"
)

// ErrDuplicatePlate is returned when a license plate is already registered
// to another helper. The unique index closes the check-then-insert race
// that the service-level pre-check cannot.
var ErrDuplicatePlate = errors.New("license plate already registered")

// CarRepository handles car database operations
type CarRepository struct {
	db DB
}

// NewCarRepository creates a new car repository
func NewCarRepository(db DB) *CarRepository {
	return &CarRepository{
		db: db,
	}
}

// isUniqueViolation reports whether err is a Postgres unique violation on
// the named constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, constraint)
	}
	return false
}

// GetCarByHelper returns the helper's registered car, if any
func (r *CarRepository) GetCarByHelper(helperID int64) (*models.Car, error) {
	var car models.Car
	query := `SELECT * FROM cars WHERE helper_id = $1`

	err := r.db.Get(&car, query, helperID)
	if err == sql.ErrNoRows {
		return nil, nil // No car registered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car by helper: %w", err)
	}

	return &car, nil
}

// GetCarByPlate returns the car registered under a license plate, if any
func (r *CarRepository) GetCarByPlate(plate string) (*models.Car, error) {
	var car models.Car
	query := `SELECT * FROM cars WHERE license_plate = $1`

	err := r.db.Get(&car, query, plate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car by plate: %w", err)
	}

	return &car, nil
}

// CreateCar registers a new car for a helper
func (r *CarRepository) CreateCar(car *models.Car) error {
	car.CreatedAt = time.Now()
	car.UpdatedAt = time.Now()

	query := `
		INSERT INTO cars (
			helper_id, brand, model, color, license_plate, energy_type,
			type, car_license_file, personal_license_file, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRow(
		query,
		car.HelperID,
		car.Brand,
		car.Model,
		car.Color,
		car.LicensePlate,
		car.EnergyType,
		car.Type,
		car.CarLicenseFile,
		car.PersonalLicenseURL,
		car.CreatedAt,
		car.UpdatedAt,
	).Scan(&car.ID)
	if err != nil {
		if isUniqueViolation(err, "license_plate") {
			return ErrDuplicatePlate
		}
		return fmt.Errorf("failed to create car: %w", err)
	}

	return nil
}

// UpdateCar replaces all mutable columns of an existing car row
func (r *CarRepository) UpdateCar(car *models.Car) error {
	query := `
		UPDATE cars
		SET brand = $1, model = $2, color = $3, license_plate = $4,
		    energy_type = $5, type = $6, car_license_file = $7,
		    personal_license_file = $8, updated_at = NOW()
		WHERE id = $9
	`

	_, err := r.db.Exec(
		query,
		car.Brand,
		car.Model,
		car.Color,
		car.LicensePlate,
		car.EnergyType,
		car.Type,
		car.CarLicenseFile,
		car.PersonalLicenseURL,
		car.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "license_plate") {
			return ErrDuplicatePlate
		}
		return fmt.Errorf("failed to update car: %w", err)
	}

	return nil
}

// DeleteCar removes the helper's car row
func (r *CarRepository) DeleteCar(carID int64) error {
	query := `DELETE FROM cars WHERE id = $1`

	_, err := r.db.Exec(query, carID)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}

	return nil
}
