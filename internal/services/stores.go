package services

import (
	"time"

	"github.com/touresta/touresta-backend/internal/models"
)

// Persistence seams consumed by the service layer. The database package
// provides the production implementations; tests substitute in-memory
// fakes.

// UserStore is the user persistence surface
type UserStore interface {
	CreateUser(email, userName, passwordHash string) (*models.User, error)
	CreateGoogleUser(email, userName, googleID string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	GetUserByExternalID(userID string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByGoogleID(googleID string) (*models.User, error)
	SetVerificationCode(userID int64, code string, expiry time.Time) error
	MarkVerified(userID int64) error
	UpdateProfileImage(userID int64, url string) error
	DeleteUnverifiedBefore(cutoff time.Time) (int, error)
	ClearExpiredVerificationCodes(now time.Time) (int, error)
}

// HelperStore is the helper persistence surface
type HelperStore interface {
	CreateHelper(userID int64, fullName string, gender models.Gender, birthDate time.Time) (*models.Helper, error)
	GetHelperByID(id int64) (*models.Helper, error)
	GetHelperByExternalID(helperID string) (*models.Helper, error)
	GetHelperByUserID(userID int64) (*models.Helper, error)
	UpdateProfile(helper *models.Helper) error
	SetActive(helperID int64, active bool) error
	SetHasCar(helperID int64, hasCar bool) error
	Approve(helperID, adminID int64) error
	SetReviewOutcome(helperID, adminID int64, status models.ApprovalStatus, reason string, deactivate bool) error
	GetPendingHelpers() ([]models.HelperQueueItem, error)
	DeactivateExpired(now time.Time) (int, error)
}

// DrugTestStore is the drug test persistence surface
type DrugTestStore interface {
	GetCurrent(helperID int64) (*models.DrugTest, error)
	ListByHelper(helperID int64) ([]models.DrugTest, error)
	ReplaceCurrent(helperID int64, fileURL string, uploadedAt, expiryDate time.Time, reactivate bool) (*models.DrugTest, error)
}

// CarStore is the car persistence surface
type CarStore interface {
	GetCarByHelper(helperID int64) (*models.Car, error)
	GetCarByPlate(plate string) (*models.Car, error)
	CreateCar(car *models.Car) error
	UpdateCar(car *models.Car) error
	DeleteCar(carID int64) error
}

// CertificateStore is the certificate persistence surface
type CertificateStore interface {
	CreateCertificate(cert *models.Certificate) error
	GetCertificateByID(id int64) (*models.Certificate, error)
	ListByHelper(helperID int64) ([]models.Certificate, error)
	DeleteCertificate(id int64) error
	VerifyAllForHelper(helperID int64) (int, error)
}

// LanguageStore is the helper language persistence surface
type LanguageStore interface {
	GetByHelperAndCode(helperID int64, code string) (*models.HelperLanguage, error)
	ListByHelper(helperID int64) ([]models.HelperLanguage, error)
	CountVerifiedByHelper(helperID int64) (int, error)
	CreateHelperLanguage(lang *models.HelperLanguage) error
	CountTestsInWindow(helperLanguageID int64, windowStart time.Time) (int, error)
	ListTestsByLanguage(helperLanguageID int64) ([]models.LanguageTest, error)
	RecordTestResult(lang *models.HelperLanguage, test *models.LanguageTest) error
}

// AuditLogStore is the admin audit trail persistence surface
type AuditLogStore interface {
	CreateEntry(entry *models.AdminAuditLog) error
	ListByTarget(targetType string, targetID int64) ([]models.AdminAuditLog, error)
	DeleteOlderThan(cutoff time.Time) (int, error)
}

// AdminStore is the admin account persistence surface
type AdminStore interface {
	GetAdminByID(id int64) (*models.Admin, error)
	GetAdminByEmail(email string) (*models.Admin, error)
	UpdateLastLogin(id int64) error
}
