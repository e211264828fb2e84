package models

import "time"

// LanguageLevel is a proficiency band for a helper language
type LanguageLevel string

const (
	LevelNone         LanguageLevel = "none"
	LevelBeginner     LanguageLevel = "beginner"
	LevelIntermediate LanguageLevel = "intermediate"
	LevelAdvanced     LanguageLevel = "advanced"
	LevelNative       LanguageLevel = "native"
)

// SupportedLanguage describes one entry of the fixed supported set.
type SupportedLanguage struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Testable bool   `json:"testable"` // Arabic is auto-verified and cannot be tested
}

// SupportedLanguages is the fixed set of languages a helper may register.
// Arabic is seeded verified/native at registration and is exempt from
// testing.
var SupportedLanguages = []SupportedLanguage{
	{Code: "ar", Name: "Arabic", Testable: false},
	{Code: "en", Name: "English", Testable: true},
	{Code: "fr", Name: "French", Testable: true},
	{Code: "de", Name: "German", Testable: true},
	{Code: "es", Name: "Spanish", Testable: true},
	{Code: "it", Name: "Italian", Testable: true},
	{Code: "pt", Name: "Portuguese", Testable: true},
	{Code: "ru", Name: "Russian", Testable: true},
	{Code: "zh", Name: "Chinese", Testable: true},
	{Code: "ja", Name: "Japanese", Testable: true},
	{Code: "ko", Name: "Korean", Testable: true},
	{Code: "tr", Name: "Turkish", Testable: true},
}

// LookupLanguage returns the supported-set entry for code, if any.
func LookupLanguage(code string) (SupportedLanguage, bool) {
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return l, true
		}
	}
	return SupportedLanguage{}, false
}

// HelperLanguage is one row per (helper, language code), unique on that
// pair. It summarizes the helper's standing in that language.
type HelperLanguage struct {
	ID           int64         `json:"id" db:"id"`
	HelperID     int64         `json:"helper_id" db:"helper_id"`
	LanguageCode string        `json:"language_code" db:"language_code"`
	LanguageName string        `json:"language_name" db:"language_name"`
	Level        LanguageLevel `json:"level" db:"level"`
	AiScore      NullFloat64   `json:"ai_score,omitempty" db:"ai_score"`
	TestAttempts int           `json:"test_attempts" db:"test_attempts"`
	LastTestedAt NullTime      `json:"last_tested_at,omitempty" db:"last_tested_at"`
	IsVerified   bool          `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// LanguageTest is an immutable record of one test attempt. Append-only;
// never mutated or deleted.
type LanguageTest struct {
	ID               int64         `json:"id" db:"id"`
	HelperLanguageID int64         `json:"helper_language_id" db:"helper_language_id"`
	AiScore          float64       `json:"ai_score" db:"ai_score"`
	AiLevel          LanguageLevel `json:"ai_level" db:"ai_level"`
	Passed           bool          `json:"passed" db:"passed"`
	TakenAt          time.Time     `json:"taken_at" db:"taken_at"`
}
