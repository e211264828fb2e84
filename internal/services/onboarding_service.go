package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/touresta/touresta-backend/internal/database"
	"github.com/touresta/touresta-backend/internal/models"
	"github.com/touresta/touresta-backend/pkg/storage"
)

// MinHelperAge is the minimum applicant age in years
const MinHelperAge = 18

// drugTestValidityMonths is how long an uploaded drug test stays valid
const drugTestValidityMonths = 6

// OnboardingService owns the helper application lifecycle: registration,
// profile and document management, drug tests, cars, and certificates.
type OnboardingService struct {
	users        UserStore
	helpers      HelperStore
	drugTests    DrugTestStore
	cars         CarStore
	certificates CertificateStore
	languages    LanguageStore
	storage      storage.Gateway
	log          *logrus.Logger
	now          func() time.Time
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(
	users UserStore,
	helpers HelperStore,
	drugTests DrugTestStore,
	cars CarStore,
	certificates CertificateStore,
	languages LanguageStore,
	storageGateway storage.Gateway,
	log *logrus.Logger,
) *OnboardingService {
	return &OnboardingService{
		users:        users,
		helpers:      helpers,
		drugTests:    drugTests,
		cars:         cars,
		certificates: certificates,
		languages:    languages,
		storage:      storageGateway,
		log:          log,
		now:          time.Now,
	}
}

// RegisterHelperRequest carries the initial application fields
type RegisterHelperRequest struct {
	FullName  string        `json:"full_name" binding:"required"`
	Gender    models.Gender `json:"gender" binding:"required"`
	BirthDate time.Time     `json:"birth_date" binding:"required"`
}

// RegisterHelper opens a helper application for a verified user and seeds
// Arabic as a verified native language. One application per user.
func (s *OnboardingService) RegisterHelper(userID int64, req RegisterHelperRequest) (*models.Helper, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NotFoundError("user not found")
	}
	if !user.IsVerified {
		return nil, PreconditionError("verify your email address before applying as a helper")
	}

	existing, err := s.helpers.GetHelperByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ConflictError("you already have a helper application")
	}

	if req.FullName == "" {
		return nil, ValidationError("full name is required")
	}
	if req.Gender != models.GenderMale && req.Gender != models.GenderFemale {
		return nil, ValidationError("gender must be male or female")
	}
	now := s.now()
	if !req.BirthDate.Before(now) {
		return nil, ValidationError("birth date must be in the past")
	}
	if req.BirthDate.AddDate(MinHelperAge, 0, 0).After(now) {
		return nil, ValidationError("helpers must be at least %d years old", MinHelperAge)
	}

	helper, err := s.helpers.CreateHelper(userID, req.FullName, req.Gender, req.BirthDate)
	if err != nil {
		return nil, err
	}

	// Every helper speaks Arabic; it is verified from day one and never
	// tested.
	arabic := &models.HelperLanguage{
		HelperID:     helper.ID,
		LanguageCode: "ar",
		LanguageName: "Arabic",
		Level:        models.LevelNative,
		IsVerified:   true,
	}
	if err := s.languages.CreateHelperLanguage(arabic); err != nil && !errors.Is(err, database.ErrDuplicateLanguage) {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"helper_id": helper.HelperID,
		"user_id":   user.UserID,
	}).Info("Helper application created")

	return helper, nil
}

// UpdateProfileRequest carries partial profile field updates plus any new
// document uploads. Nil fields keep their stored values.
type UpdateProfileRequest struct {
	FullName  *string
	Gender    *models.Gender
	BirthDate *time.Time

	ProfileImage   *multipart.FileHeader
	NationalID     *multipart.FileHeader
	CriminalRecord *multipart.FileHeader
}

// UpdateProfile applies a partial profile update. All uploads succeed
// before any row is touched; a failed upload deletes whatever new blobs
// already landed, so the profile never references half a document set.
// Resubmitting after a changes-requested review moves the application
// back to pending and clears the reviewer's reason.
func (s *OnboardingService) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*models.Helper, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil && *req.FullName == "" {
		return nil, ValidationError("full name cannot be empty")
	}
	if req.Gender != nil && *req.Gender != models.GenderMale && *req.Gender != models.GenderFemale {
		return nil, ValidationError("gender must be male or female")
	}
	if req.BirthDate != nil && !req.BirthDate.Before(s.now()) {
		return nil, ValidationError("birth date must be in the past")
	}

	type pendingUpload struct {
		file   *multipart.FileHeader
		folder string
		maxMB  int64
		target *models.NullString
	}

	uploads := []pendingUpload{}
	if req.ProfileImage != nil {
		uploads = append(uploads, pendingUpload{req.ProfileImage, s.folder(helper, "profile"), storage.MaxImageSizeMB, &helper.ProfileImageURL})
	}
	if req.NationalID != nil {
		uploads = append(uploads, pendingUpload{req.NationalID, s.folder(helper, "national-id"), storage.MaxImageSizeMB, &helper.NationalIDPhoto})
	}
	if req.CriminalRecord != nil {
		uploads = append(uploads, pendingUpload{req.CriminalRecord, s.folder(helper, "criminal-record"), storage.MaxDocumentSizeMB, &helper.CriminalRecordURL})
	}

	var uploaded []string
	replaced := make(map[*models.NullString]string)
	for _, u := range uploads {
		url, err := s.storage.Upload(ctx, u.file, u.folder, u.maxMB)
		if err != nil {
			s.discardBlobs(ctx, uploaded)
			return nil, UpstreamError("document upload failed: %v", err)
		}
		uploaded = append(uploaded, url)
		if u.target.Valid {
			replaced[u.target] = u.target.String
		}
		*u.target = models.NewNullString(url)
	}

	if req.FullName != nil {
		helper.FullName = *req.FullName
	}
	if req.Gender != nil {
		helper.Gender = *req.Gender
	}
	if req.BirthDate != nil {
		helper.BirthDate = *req.BirthDate
	}

	if helper.ApprovalStatus == models.ApprovalChangesRequested {
		helper.ApprovalStatus = models.ApprovalPending
		helper.RejectionReason = models.NullString{}
	}

	if err := s.helpers.UpdateProfile(helper); err != nil {
		s.discardBlobs(ctx, uploaded)
		return nil, err
	}

	// Old documents are unreferenced now; removal is best effort
	for _, old := range replaced {
		s.discardBlobs(ctx, []string{old})
	}

	return helper, nil
}

// UploadDrugTest stores a new drug test and makes it the single current
// one. Validity is fixed at six months from upload. An approved helper
// that was suspended for an expired test is reactivated in the same
// transaction.
func (s *OnboardingService) UploadDrugTest(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.DrugTest, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.Upload(ctx, file, s.folder(helper, "drug-tests"), storage.MaxDocumentSizeMB)
	if err != nil {
		return nil, UpstreamError("drug test upload failed: %v", err)
	}

	previous, err := s.drugTests.GetCurrent(helper.ID)
	if err != nil {
		s.discardBlobs(ctx, []string{url})
		return nil, err
	}

	now := s.now()
	reactivate := helper.IsApproved && !helper.IsActive

	test, err := s.drugTests.ReplaceCurrent(helper.ID, url, now, now.AddDate(0, drugTestValidityMonths, 0), reactivate)
	if err != nil {
		s.discardBlobs(ctx, []string{url})
		return nil, err
	}

	if reactivate {
		s.log.WithField("helper_id", helper.HelperID).Info("Helper reactivated after drug test renewal")
	}
	if previous != nil {
		s.log.WithFields(logrus.Fields{
			"helper_id":   helper.HelperID,
			"retired_id":  previous.ID,
			"current_id":  test.ID,
			"expiry_date": test.ExpiryDate,
		}).Info("Drug test replaced")
	}

	return test, nil
}

// GetDrugTestHistory returns every drug test the helper ever uploaded,
// newest first
func (s *OnboardingService) GetDrugTestHistory(userID int64) ([]models.DrugTest, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}
	return s.drugTests.ListByHelper(helper.ID)
}

// CarRequest carries the car registration fields
type CarRequest struct {
	Brand        string               `json:"brand" binding:"required"`
	Model        string               `json:"model" binding:"required"`
	Color        models.CarColor      `json:"color" binding:"required"`
	LicensePlate string               `json:"license_plate" binding:"required"`
	EnergyType   models.CarEnergyType `json:"energy_type" binding:"required"`
	Type         models.CarType       `json:"type" binding:"required"`
}

// AddOrUpdateCar registers the helper's car or replaces the existing
// registration. Creating a car requires both license documents; updates
// may keep the stored ones. The license plate must be unique across all
// helpers.
func (s *OnboardingService) AddOrUpdateCar(ctx context.Context, userID int64, req CarRequest, carLicense, personalLicense *multipart.FileHeader) (*models.Car, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	if req.Brand == "" || req.Model == "" || req.LicensePlate == "" {
		return nil, ValidationError("brand, model and license plate are required")
	}

	// Friendly pre-check; the unique index still decides under races
	byPlate, err := s.cars.GetCarByPlate(req.LicensePlate)
	if err != nil {
		return nil, err
	}
	if byPlate != nil && byPlate.HelperID != helper.ID {
		return nil, ConflictError("license plate %s is already registered", req.LicensePlate)
	}

	car, err := s.cars.GetCarByHelper(helper.ID)
	if err != nil {
		return nil, err
	}

	creating := car == nil
	if creating {
		if carLicense == nil || personalLicense == nil {
			return nil, ValidationError("car license and personal license documents are required")
		}
		car = &models.Car{HelperID: helper.ID}
	}

	var uploaded []string
	var replaced []string
	if carLicense != nil {
		url, err := s.storage.Upload(ctx, carLicense, s.folder(helper, "car"), storage.MaxDocumentSizeMB)
		if err != nil {
			return nil, UpstreamError("car license upload failed: %v", err)
		}
		uploaded = append(uploaded, url)
		if car.CarLicenseFile != "" {
			replaced = append(replaced, car.CarLicenseFile)
		}
		car.CarLicenseFile = url
	}
	if personalLicense != nil {
		url, err := s.storage.Upload(ctx, personalLicense, s.folder(helper, "car"), storage.MaxDocumentSizeMB)
		if err != nil {
			s.discardBlobs(ctx, uploaded)
			return nil, UpstreamError("personal license upload failed: %v", err)
		}
		uploaded = append(uploaded, url)
		if car.PersonalLicenseURL != "" {
			replaced = append(replaced, car.PersonalLicenseURL)
		}
		car.PersonalLicenseURL = url
	}

	car.Brand = req.Brand
	car.Model = req.Model
	car.Color = req.Color
	car.LicensePlate = req.LicensePlate
	car.EnergyType = req.EnergyType
	car.Type = req.Type

	if creating {
		err = s.cars.CreateCar(car)
	} else {
		err = s.cars.UpdateCar(car)
	}
	if err != nil {
		s.discardBlobs(ctx, uploaded)
		if errors.Is(err, database.ErrDuplicatePlate) {
			return nil, ConflictError("license plate %s is already registered", req.LicensePlate)
		}
		return nil, err
	}

	if creating {
		if err := s.helpers.SetHasCar(helper.ID, true); err != nil {
			return nil, err
		}
	}

	s.discardBlobs(ctx, replaced)

	return car, nil
}

// GetCar returns the helper's registered car, if any
func (s *OnboardingService) GetCar(userID int64) (*models.Car, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}
	return s.cars.GetCarByHelper(helper.ID)
}

// RemoveCar deletes the helper's car registration and its documents
func (s *OnboardingService) RemoveCar(ctx context.Context, userID int64) error {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return err
	}

	car, err := s.cars.GetCarByHelper(helper.ID)
	if err != nil {
		return err
	}
	if car == nil {
		return NotFoundError("no car registered")
	}

	if err := s.cars.DeleteCar(car.ID); err != nil {
		return err
	}
	if err := s.helpers.SetHasCar(helper.ID, false); err != nil {
		return err
	}

	s.discardBlobs(ctx, []string{car.CarLicenseFile, car.PersonalLicenseURL})

	return nil
}

// AddCertificate uploads and records a qualification document. It starts
// unverified; admin approval verifies it.
func (s *OnboardingService) AddCertificate(ctx context.Context, userID int64, name string, certType models.CertificateType, file *multipart.FileHeader) (*models.Certificate, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		return nil, ValidationError("certificate name is required")
	}
	switch certType {
	case models.CertificateTourism, models.CertificateLanguage, models.CertificateFirstAid,
		models.CertificateDriving, models.CertificateEducation, models.CertificateOther:
	default:
		return nil, ValidationError("unknown certificate type: %s", certType)
	}

	url, err := s.storage.Upload(ctx, file, s.folder(helper, "certificates"), storage.MaxDocumentSizeMB)
	if err != nil {
		return nil, UpstreamError("certificate upload failed: %v", err)
	}

	cert := &models.Certificate{
		HelperID: helper.ID,
		Name:     name,
		Type:     certType,
		FileURL:  url,
	}
	if err := s.certificates.CreateCertificate(cert); err != nil {
		s.discardBlobs(ctx, []string{url})
		return nil, err
	}

	return cert, nil
}

// ListCertificates returns the helper's certificates
func (s *OnboardingService) ListCertificates(userID int64) ([]models.Certificate, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}
	return s.certificates.ListByHelper(helper.ID)
}

// RemoveCertificate deletes one of the helper's own certificates
func (s *OnboardingService) RemoveCertificate(ctx context.Context, userID, certificateID int64) error {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return err
	}

	cert, err := s.certificates.GetCertificateByID(certificateID)
	if err != nil {
		return err
	}
	if cert == nil {
		return NotFoundError("certificate not found")
	}
	if cert.HelperID != helper.ID {
		return ForbiddenError("certificate belongs to another helper")
	}

	if err := s.certificates.DeleteCertificate(cert.ID); err != nil {
		return err
	}

	s.discardBlobs(ctx, []string{cert.FileURL})

	return nil
}

// GetStatus returns the onboarding status snapshot for the user's helper
// application
func (s *OnboardingService) GetStatus(userID int64) (*StatusSnapshot, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	currentTest, err := s.drugTests.GetCurrent(helper.ID)
	if err != nil {
		return nil, err
	}

	verified, err := s.languages.CountVerifiedByHelper(helper.ID)
	if err != nil {
		return nil, err
	}

	snapshot := BuildStatusSnapshot(helper, user, currentTest, verified, s.now())
	return &snapshot, nil
}

// HelperProfile bundles the full helper view for the profile endpoint
type HelperProfile struct {
	Helper       *models.Helper          `json:"helper"`
	CurrentTest  *models.DrugTest        `json:"current_drug_test,omitempty"`
	Languages    []models.HelperLanguage `json:"languages"`
	Car          *models.Car             `json:"car,omitempty"`
	Certificates []models.Certificate    `json:"certificates"`
}

// GetProfile assembles the helper's full profile
func (s *OnboardingService) GetProfile(userID int64) (*HelperProfile, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	currentTest, err := s.drugTests.GetCurrent(helper.ID)
	if err != nil {
		return nil, err
	}
	langs, err := s.languages.ListByHelper(helper.ID)
	if err != nil {
		return nil, err
	}
	car, err := s.cars.GetCarByHelper(helper.ID)
	if err != nil {
		return nil, err
	}
	certs, err := s.certificates.ListByHelper(helper.ID)
	if err != nil {
		return nil, err
	}

	return &HelperProfile{
		Helper:       helper,
		CurrentTest:  currentTest,
		Languages:    langs,
		Car:          car,
		Certificates: certs,
	}, nil
}

// UploadUserProfileImage stores a profile picture on the user account
// itself (available before any helper application exists)
func (s *OnboardingService) UploadUserProfileImage(ctx context.Context, userID int64, file *multipart.FileHeader) (string, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", NotFoundError("user not found")
	}

	url, err := s.storage.Upload(ctx, file, fmt.Sprintf("users/%s/profile", user.UserID), storage.MaxImageSizeMB)
	if err != nil {
		return "", UpstreamError("profile image upload failed: %v", err)
	}

	if err := s.users.UpdateProfileImage(user.ID, url); err != nil {
		s.discardBlobs(ctx, []string{url})
		return "", err
	}

	old := user.ProfileImageURL
	if old.Valid {
		s.discardBlobs(ctx, []string{old.String})
	}

	return url, nil
}

// getOwnedHelper resolves the helper application owned by a user
func (s *OnboardingService) getOwnedHelper(userID int64) (*models.Helper, error) {
	helper, err := s.helpers.GetHelperByUserID(userID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, NotFoundError("helper application not found")
	}
	return helper, nil
}

// folder scopes a helper's documents under its external id
func (s *OnboardingService) folder(helper *models.Helper, kind string) string {
	return fmt.Sprintf("helpers/%s/%s", helper.HelperID, kind)
}

// discardBlobs removes uploaded documents that are no longer referenced.
// Failures are logged, never surfaced: a dangling blob is preferable to a
// failed request.
func (s *OnboardingService) discardBlobs(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.storage.Delete(ctx, url); err != nil {
			s.log.WithError(err).WithField("url", url).Warn("Failed to delete unreferenced document")
		}
	}
}
