package models

import "time"

// CarColor of a registered helper car
type CarColor string

const (
	CarColorBlack  CarColor = "black"
	CarColorWhite  CarColor = "white"
	CarColorGray   CarColor = "gray"
	CarColorSilver CarColor = "silver"
	CarColorRed    CarColor = "red"
	CarColorBlue   CarColor = "blue"
	CarColorGreen  CarColor = "green"
	CarColorOther  CarColor = "other"
)

// CarEnergyType of a registered helper car
type CarEnergyType string

const (
	CarEnergyDiesel   CarEnergyType = "diesel"
	CarEnergyEssence  CarEnergyType = "essence"
	CarEnergyGasoline CarEnergyType = "gasoline"
	CarEnergyElectric CarEnergyType = "electric"
	CarEnergyHybrid   CarEnergyType = "hybrid"
)

// CarType (body style) of a registered helper car
type CarType string

const (
	CarTypeSedan     CarType = "sedan"
	CarTypeSUV       CarType = "suv"
	CarTypeHatchback CarType = "hatchback"
	CarTypeVan       CarType = "van"
	CarTypeMinibus   CarType = "minibus"
	CarTypePickup    CarType = "pickup"
)

// Car is the optional vehicle registered for a helper (at most one per
// helper; license plate unique across all helpers).
type Car struct {
	ID                 int64         `json:"id" db:"id"`
	HelperID           int64         `json:"helper_id" db:"helper_id"`
	Brand              string        `json:"brand" db:"brand"`
	Model              string        `json:"model" db:"model"`
	Color              CarColor      `json:"color" db:"color"`
	LicensePlate       string        `json:"license_plate" db:"license_plate"`
	EnergyType         CarEnergyType `json:"energy_type" db:"energy_type"`
	Type               CarType       `json:"type" db:"type"`
	CarLicenseFile     string        `json:"car_license_file" db:"car_license_file"`
	PersonalLicenseURL string        `json:"personal_license_file" db:"personal_license_file"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}
