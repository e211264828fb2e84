package services

import (
	"time"

	"github.com/touresta/touresta-backend/internal/models"
)

// ComputeStatus projects the derived onboarding status label from entity
// state. It is a pure function and must be recomputed on every read;
// nothing ever stores its output.
//
// Rules are evaluated top to bottom, first match wins.
func ComputeStatus(helper *models.Helper, user *models.User, currentTest *models.DrugTest, now time.Time) models.HelperStatus {
	if user == nil || !user.IsVerified {
		return models.StatusUnverified
	}
	if helper.ApprovalStatus == models.ApprovalRejected {
		return models.StatusRejected
	}
	if helper.ApprovalStatus == models.ApprovalChangesRequested {
		return models.StatusChangesRequested
	}
	if helper.ApprovalStatus == models.ApprovalPending || !helper.IsApproved {
		return models.StatusPending
	}
	if currentTest == nil || currentTest.IsExpired(now) || !helper.IsActive {
		return models.StatusSuspended
	}
	return models.StatusActive
}

// EligibilityResult reports the five booking-eligibility conditions. Every
// failing condition is named, not just the first.
type EligibilityResult struct {
	IsEligible          bool     `json:"is_eligible"`
	UserVerified        bool     `json:"user_verified"`
	Approved            bool     `json:"approved"`
	Active              bool     `json:"active"`
	ValidDrugTest       bool     `json:"valid_drug_test"`
	HasVerifiedLanguage bool     `json:"has_verified_language"`
	BlockingReasons     []string `json:"blocking_reasons,omitempty"`
}

// CheckEligibility evaluates the five independent booking conditions.
// It never mutates state; the request-time gate owns the side effects.
func CheckEligibility(helper *models.Helper, user *models.User, currentTest *models.DrugTest, verifiedLanguages int, now time.Time) EligibilityResult {
	result := EligibilityResult{
		UserVerified:        user != nil && user.IsVerified,
		Approved:            helper.IsApproved,
		Active:              helper.IsActive,
		ValidDrugTest:       currentTest != nil && !currentTest.IsExpired(now),
		HasVerifiedLanguage: verifiedLanguages > 0,
	}

	if !result.UserVerified {
		result.BlockingReasons = append(result.BlockingReasons, "email address is not verified")
	}
	if !result.Approved {
		result.BlockingReasons = append(result.BlockingReasons, "application has not been approved")
	}
	if !result.Active {
		result.BlockingReasons = append(result.BlockingReasons, "account is not active")
	}
	if !result.ValidDrugTest {
		result.BlockingReasons = append(result.BlockingReasons, "no valid drug test on file")
	}
	if !result.HasVerifiedLanguage {
		result.BlockingReasons = append(result.BlockingReasons, "no verified language")
	}

	result.IsEligible = len(result.BlockingReasons) == 0
	return result
}

// StatusSnapshot is the full onboarding status view returned to the
// applicant: presence flags, drug-test validity, the derived status
// label, and the ordered list of missing steps.
type StatusSnapshot struct {
	ComputedStatus      models.HelperStatus   `json:"computed_status"`
	ApprovalStatus      models.ApprovalStatus `json:"approval_status"`
	RejectionReason     models.NullString     `json:"rejection_reason,omitempty"`
	EmailVerified       bool                  `json:"email_verified"`
	ProfileComplete     bool                  `json:"profile_complete"`
	HasNationalID       bool                  `json:"has_national_id"`
	HasCriminalRecord   bool                  `json:"has_criminal_record"`
	HasDrugTest         bool                  `json:"has_drug_test"`
	DrugTestValid       bool                  `json:"drug_test_valid"`
	DrugTestExpiry      models.NullTime       `json:"drug_test_expiry,omitempty"`
	VerifiedLanguages   int                   `json:"verified_languages"`
	HasCar              bool                  `json:"has_car"`
	IsApproved          bool                  `json:"is_approved"`
	IsActive            bool                  `json:"is_active"`
	MissingSteps        []string              `json:"missing_steps"`
}

// BuildStatusSnapshot assembles the status view. The missing-steps list is
// checked in a fixed order: email, profile, national ID, criminal record,
// drug test uploaded, drug test valid, verified language.
func BuildStatusSnapshot(helper *models.Helper, user *models.User, currentTest *models.DrugTest, verifiedLanguages int, now time.Time) StatusSnapshot {
	snapshot := StatusSnapshot{
		ComputedStatus:    ComputeStatus(helper, user, currentTest, now),
		ApprovalStatus:    helper.ApprovalStatus,
		RejectionReason:   helper.RejectionReason,
		EmailVerified:     user != nil && user.IsVerified,
		ProfileComplete:   helper.FullName != "",
		HasNationalID:     helper.NationalIDPhoto.Valid,
		HasCriminalRecord: helper.CriminalRecordURL.Valid,
		HasDrugTest:       currentTest != nil,
		VerifiedLanguages: verifiedLanguages,
		HasCar:            helper.HasCar,
		IsApproved:        helper.IsApproved,
		IsActive:          helper.IsActive,
		MissingSteps:      []string{},
	}

	if currentTest != nil {
		snapshot.DrugTestValid = !currentTest.IsExpired(now)
		snapshot.DrugTestExpiry = models.NewNullTime(currentTest.ExpiryDate)
	}

	if !snapshot.EmailVerified {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Verify your email address")
	}
	if !snapshot.ProfileComplete {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Complete your profile")
	}
	if !snapshot.HasNationalID {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Upload your national ID photo")
	}
	if !snapshot.HasCriminalRecord {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Upload your criminal record")
	}
	if !snapshot.HasDrugTest {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Upload a drug test")
	} else if !snapshot.DrugTestValid {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Your drug test has expired, upload a new one")
	}
	if snapshot.VerifiedLanguages == 0 {
		snapshot.MissingSteps = append(snapshot.MissingSteps, "Verify at least one language")
	}

	return snapshot
}
