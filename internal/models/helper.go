package models

import "time"

// ApprovalStatus is the admin-review state of a helper application
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "pending"
	ApprovalUnderReview      ApprovalStatus = "under_review"
	ApprovalApproved         ApprovalStatus = "approved"
	ApprovalRejected         ApprovalStatus = "rejected"
	ApprovalChangesRequested ApprovalStatus = "changes_requested"
)

// HelperStatus is the derived onboarding status label. It is a pure
// projection over the helper, its user, and the current drug test; it is
// never stored.
type HelperStatus string

const (
	StatusUnverified       HelperStatus = "unverified"
	StatusPending          HelperStatus = "pending"
	StatusRejected         HelperStatus = "rejected"
	StatusChangesRequested HelperStatus = "changes_requested"
	StatusSuspended        HelperStatus = "suspended"
	StatusActive           HelperStatus = "active"
)

// Gender of a helper applicant
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// HelperQueueItem is the review-queue projection of a helper application
// joined with its user account and document counters.
type HelperQueueItem struct {
	ID                int64          `json:"id" db:"id"`
	HelperID          string         `json:"helper_id" db:"helper_id"`
	FullName          string         `json:"full_name" db:"full_name"`
	UserEmail         string         `json:"user_email" db:"user_email"`
	ApprovalStatus    ApprovalStatus `json:"approval_status" db:"approval_status"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	HasDrugTest       bool           `json:"has_drug_test" db:"has_drug_test"`
	VerifiedLanguages int            `json:"verified_languages" db:"verified_languages"`
}

// Helper is the 1:1 tour-guide extension of a verified user
type Helper struct {
	ID                int64          `json:"id" db:"id"`
	HelperID          string         `json:"helper_id" db:"helper_id"` // external UUID
	UserID            int64          `json:"user_id" db:"user_id"`
	FullName          string         `json:"full_name" db:"full_name"`
	Gender            Gender         `json:"gender" db:"gender"`
	BirthDate         time.Time      `json:"birth_date" db:"birth_date"`
	ProfileImageURL   NullString     `json:"profile_image_url,omitempty" db:"profile_image_url"`
	NationalIDPhoto   NullString     `json:"national_id_photo,omitempty" db:"national_id_photo"`
	CriminalRecordURL NullString     `json:"criminal_record_url,omitempty" db:"criminal_record_url"`
	HasCar            bool           `json:"has_car" db:"has_car"`
	IsActive          bool           `json:"is_active" db:"is_active"`
	IsApproved        bool           `json:"is_approved" db:"is_approved"`
	ApprovalStatus    ApprovalStatus `json:"approval_status" db:"approval_status"`
	RejectionReason   NullString     `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ReviewedByAdminID NullInt64      `json:"reviewed_by_admin_id,omitempty" db:"reviewed_by_admin_id"`
	ReviewedAt        NullTime       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}
