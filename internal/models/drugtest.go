package models

import "time"

// DrugTest is one drug-test upload event. At most one row per helper has
// IsCurrent=true at any time; uploading a new one retires the previous
// current row in the same transaction.
type DrugTest struct {
	ID         int64     `json:"id" db:"id"`
	HelperID   int64     `json:"helper_id" db:"helper_id"`
	FileURL    string    `json:"file_url" db:"file_url"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
	ExpiryDate time.Time `json:"expiry_date" db:"expiry_date"`
	IsCurrent  bool      `json:"is_current" db:"is_current"`
}

// IsExpired reports whether the test has lapsed at the given instant.
func (dt *DrugTest) IsExpired(now time.Time) bool {
	return !dt.ExpiryDate.After(now)
}
