package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/touresta/touresta-backend/internal/models"
)

var carColumns = []string{
	"id", "helper_id", "brand", "model", "color", "license_plate",
	"energy_type", "type", "car_license_file", "personal_license_file",
	"created_at", "updated_at",
}

func sampleCar(helperID int64) *models.Car {
	return &models.Car{
		HelperID:           helperID,
		Brand:              "Toyota",
		Model:              "Corolla",
		Color:              models.CarColorWhite,
		LicensePlate:       "ABC-1234",
		EnergyType:         models.CarEnergyGasoline,
		Type:               models.CarTypeSedan,
		CarLicenseFile:     "https://cdn/car-license.pdf",
		PersonalLicenseURL: "https://cdn/personal-license.pdf",
	}
}

func TestGetCarByHelper(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCarRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM cars WHERE helper_id`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(carColumns).AddRow(
				int64(5), int64(1), "Toyota", "Corolla", "white", "ABC-1234",
				"gasoline", "sedan", "https://cdn/a.pdf", "https://cdn/b.pdf",
				now, now,
			))

		car, err := repo.GetCarByHelper(1)
		require.NoError(t, err)
		assert.NotNil(t, car)
		assert.Equal(t, "ABC-1234", car.LicensePlate)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("No Car Registered", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM cars WHERE helper_id`).
			WithArgs(int64(2)).
			WillReturnError(sql.ErrNoRows)

		car, err := repo.GetCarByHelper(2)
		require.NoError(t, err)
		assert.Nil(t, car)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestCreateCar(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCarRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		car := sampleCar(1)

		mock.ExpectQuery(`INSERT INTO cars`).
			WithArgs(int64(1), "Toyota", "Corolla", "white", "ABC-1234", "gasoline",
				"sedan", car.CarLicenseFile, car.PersonalLicenseURL,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

		err := repo.CreateCar(car)
		require.NoError(t, err)
		assert.Equal(t, int64(5), car.ID)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Duplicate Plate Maps To Conflict", func(t *testing.T) {
		car := sampleCar(2)

		mock.ExpectQuery(`INSERT INTO cars`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "cars_license_plate_key"})

		err := repo.CreateCar(car)
		assert.ErrorIs(t, err, ErrDuplicatePlate)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Database Error", func(t *testing.T) {
		car := sampleCar(1)

		mock.ExpectQuery(`INSERT INTO cars`).
			WillReturnError(fmt.Errorf("database error"))

		err := repo.CreateCar(car)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicatePlate)
		assert.Contains(t, err.Error(), "failed to create car")

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestUpdateCar(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCarRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		car := sampleCar(1)
		car.ID = 5
		car.Model = "Camry"

		mock.ExpectExec(`UPDATE cars`).
			WithArgs("Toyota", "Camry", "white", "ABC-1234", "gasoline", "sedan",
				car.CarLicenseFile, car.PersonalLicenseURL, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateCar(car)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})

	t.Run("Duplicate Plate Maps To Conflict", func(t *testing.T) {
		car := sampleCar(1)
		car.ID = 5

		mock.ExpectExec(`UPDATE cars`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "cars_license_plate_key"})

		err := repo.UpdateCar(car)
		assert.ErrorIs(t, err, ErrDuplicatePlate)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}

func TestDeleteCar(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCarRepository(newMockDatabase(db))

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM cars`).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DeleteCar(5)
		require.NoError(t, err)

		err = mock.ExpectationsWereMet()
		assert.NoError(t, err)
	})
}
