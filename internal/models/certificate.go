package models

import "time"

// CertificateType categorizes an uploaded certificate
type CertificateType string

const (
	CertificateTourism   CertificateType = "tourism"
	CertificateLanguage  CertificateType = "language"
	CertificateFirstAid  CertificateType = "first_aid"
	CertificateDriving   CertificateType = "driving"
	CertificateEducation CertificateType = "education"
	CertificateOther     CertificateType = "other"
)

// Certificate is one qualification document owned by a helper. It defaults
// to unverified; admin approval of the helper verifies all of that
// helper's certificates in one pass.
type Certificate struct {
	ID         int64           `json:"id" db:"id"`
	HelperID   int64           `json:"helper_id" db:"helper_id"`
	Name       string          `json:"name" db:"name"`
	Type       CertificateType `json:"type" db:"type"`
	FileURL    string          `json:"file_url" db:"file_url"`
	IsVerified bool            `json:"is_verified" db:"is_verified"`
	UploadedAt time.Time       `json:"uploaded_at" db:"uploaded_at"`
}
