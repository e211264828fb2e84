package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// GateService enforces booking eligibility at request time. Checks run
// in a fixed order and the first failure wins; an expired drug test is
// persisted as a deactivation before the request is rejected, so the
// next read already sees the suspended state.
type GateService struct {
	users     UserStore
	helpers   HelperStore
	drugTests DrugTestStore
	languages LanguageStore
	log       *logrus.Logger
	now       func() time.Time
}

// NewGateService creates the request-time eligibility gate
func NewGateService(users UserStore, helpers HelperStore, drugTests DrugTestStore, languages LanguageStore, log *logrus.Logger) *GateService {
	return &GateService{
		users:     users,
		helpers:   helpers,
		drugTests: drugTests,
		languages: languages,
		log:       log,
		now:       time.Now,
	}
}

// Enforce verifies that the user behind an incoming request is an
// eligible helper. Returns a forbidden domain error naming the first
// failing condition, or nil when the helper may serve requests.
func (s *GateService) Enforce(userID int64) error {
	helper, err := s.helpers.GetHelperByUserID(userID)
	if err != nil {
		return err
	}
	if helper == nil {
		return ForbiddenError("no helper application on file")
	}

	user, err := s.users.GetUserByID(helper.UserID)
	if err != nil {
		return err
	}
	if user == nil || !user.IsVerified {
		return ForbiddenError("email address is not verified")
	}

	if !helper.IsApproved {
		return ForbiddenError("application has not been approved")
	}

	now := s.now()
	test, err := s.drugTests.GetCurrent(helper.ID)
	if err != nil {
		return err
	}
	if test == nil {
		return ForbiddenError("no valid drug test on file")
	}
	if test.IsExpired(now) {
		// Persist the suspension before rejecting, so a lapsed helper
		// is deactivated the moment it is noticed rather than waiting
		// for the next sweep. A second request makes no further write.
		if helper.IsActive {
			if err := s.helpers.SetActive(helper.ID, false); err != nil {
				return err
			}
			s.log.WithFields(logrus.Fields{
				"helper_id":  helper.ID,
				"expired_at": test.ExpiryDate,
			}).Info("helper deactivated at request time, drug test expired")
		}
		return ForbiddenError("drug test has expired")
	}

	if !helper.IsActive {
		return ForbiddenError("account is not active")
	}

	verified, err := s.languages.CountVerifiedByHelper(helper.ID)
	if err != nil {
		return err
	}
	if verified == 0 {
		return ForbiddenError("no verified language")
	}

	return nil
}

// Check evaluates all five eligibility conditions and reports every
// failing one. Unlike Enforce it never writes; applicants use it to see
// the full list of what still blocks them.
func (s *GateService) Check(userID int64) (*EligibilityResult, error) {
	helper, err := s.helpers.GetHelperByUserID(userID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, NotFoundError("no helper application on file")
	}

	user, err := s.users.GetUserByID(helper.UserID)
	if err != nil {
		return nil, err
	}

	test, err := s.drugTests.GetCurrent(helper.ID)
	if err != nil {
		return nil, err
	}

	verified, err := s.languages.CountVerifiedByHelper(helper.ID)
	if err != nil {
		return nil, err
	}

	result := CheckEligibility(helper, user, test, verified, s.now())
	return &result, nil
}
