package services

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/touresta/touresta-backend/internal/models"
)

// ReviewService owns the admin side of helper onboarding: the review
// queue, the full application view, and the three review decisions.
type ReviewService struct {
	helpers      HelperStore
	users        UserStore
	drugTests    DrugTestStore
	languages    LanguageStore
	cars         CarStore
	certificates CertificateStore
	audit        *AuditService
	log          *logrus.Logger

	// deactivateOnReject also strips is_approved/is_active on rejection.
	// Off by default; the status projection already reports rejected
	// helpers correctly either way.
	deactivateOnReject bool
}

// NewReviewService creates a new review service
func NewReviewService(
	helpers HelperStore,
	users UserStore,
	drugTests DrugTestStore,
	languages LanguageStore,
	cars CarStore,
	certificates CertificateStore,
	audit *AuditService,
	log *logrus.Logger,
	deactivateOnReject bool,
) *ReviewService {
	return &ReviewService{
		helpers:            helpers,
		users:              users,
		drugTests:          drugTests,
		languages:          languages,
		cars:               cars,
		certificates:       certificates,
		audit:              audit,
		log:                log,
		deactivateOnReject: deactivateOnReject,
	}
}

// GetPendingQueue returns applications awaiting review, oldest first
func (s *ReviewService) GetPendingQueue() ([]models.HelperQueueItem, error) {
	return s.helpers.GetPendingHelpers()
}

// ReviewPackage is the full application view an admin reviews
type ReviewPackage struct {
	Helper       *models.Helper          `json:"helper"`
	User         *models.User            `json:"user"`
	CurrentTest  *models.DrugTest        `json:"current_drug_test,omitempty"`
	Languages    []models.HelperLanguage `json:"languages"`
	Car          *models.Car             `json:"car,omitempty"`
	Certificates []models.Certificate    `json:"certificates"`
	AuditTrail   []models.AdminAuditLog  `json:"audit_trail"`
}

// GetForReview assembles everything an admin needs to decide on one
// application
func (s *ReviewService) GetForReview(helperID int64) (*ReviewPackage, error) {
	helper, err := s.helpers.GetHelperByID(helperID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, NotFoundError("helper not found")
	}

	user, err := s.users.GetUserByID(helper.UserID)
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
	trail, err := s.audit.GetHelperTrail(helper.ID)
	if err != nil {
		return nil, err
	}

	return &ReviewPackage{
		Helper:       helper,
		User:         user,
		CurrentTest:  currentTest,
		Languages:    langs,
		Car:          car,
		Certificates: certs,
		AuditTrail:   trail,
	}, nil
}

// Approve accepts the application: the helper becomes approved and
// active, any rejection reason is cleared, and every uploaded certificate
// is verified in the same pass.
func (s *ReviewService) Approve(adminID, helperID int64, meta RequestMeta) error {
	helper, err := s.helpers.GetHelperByID(helperID)
	if err != nil {
		return err
	}
	if helper == nil {
		return NotFoundError("helper not found")
	}
	if helper.ApprovalStatus == models.ApprovalApproved {
		return PreconditionError("helper is already approved")
	}

	if err := s.helpers.Approve(helperID, adminID); err != nil {
		return err
	}

	verified, err := s.certificates.VerifyAllForHelper(helperID)
	if err != nil {
		return err
	}

	s.audit.LogHelperReview(adminID, ActionApproveHelper, helperID, "", meta)

	s.log.WithFields(logrus.Fields{
		"helper_id":             helper.HelperID,
		"admin_id":              adminID,
		"certificates_verified": verified,
	}).Info("Helper approved")

	return nil
}

// Reject declines the application with a mandatory reason
func (s *ReviewService) Reject(adminID, helperID int64, reason string, meta RequestMeta) error {
	return s.decide(adminID, helperID, models.ApprovalRejected, reason, s.deactivateOnReject, ActionRejectHelper, meta)
}

// RequestChanges sends the application back to the helper with a
// mandatory reason. The helper's next profile resubmission returns it to
// the pending queue.
func (s *ReviewService) RequestChanges(adminID, helperID int64, reason string, meta RequestMeta) error {
	return s.decide(adminID, helperID, models.ApprovalChangesRequested, reason, false, ActionRequestChanges, meta)
}

func (s *ReviewService) decide(adminID, helperID int64, status models.ApprovalStatus, reason string, deactivate bool, action string, meta RequestMeta) error {
	if strings.TrimSpace(reason) == "" {
		return ValidationError("a reason is required")
	}

	helper, err := s.helpers.GetHelperByID(helperID)
	if err != nil {
		return err
	}
	if helper == nil {
		return NotFoundError("helper not found")
	}

	if err := s.helpers.SetReviewOutcome(helperID, adminID, status, reason, deactivate); err != nil {
		return err
	}

	s.audit.LogHelperReview(adminID, action, helperID, reason, meta)

	s.log.WithFields(logrus.Fields{
		"helper_id": helper.HelperID,
		"admin_id":  adminID,
		"outcome":   status,
	}).Info("Review decision recorded")

	return nil
}
