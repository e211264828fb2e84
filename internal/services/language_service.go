package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/touresta/touresta-backend/internal/database"
	"github.com/touresta/touresta-backend/internal/models"
	"github.com/touresta/touresta-backend/pkg/evaluation"
)

const (
	// MaxTestsPerMonth caps attempts per language per UTC calendar month
	MaxTestsPerMonth = 3

	// TestCooldown is the minimum gap between two attempts on the same
	// language
	TestCooldown = 24 * time.Hour
)

// LanguageService owns the supported-language catalog, the AI language
// tests, and their rate limits.
type LanguageService struct {
	helpers   HelperStore
	languages LanguageStore
	evaluator evaluation.Gateway
	log       *logrus.Logger
	now       func() time.Time

	// One mutex per (helper, language) pair serializes concurrent test
	// submissions so the attempt counter cannot be raced past its cap.
	locks sync.Map
}

// NewLanguageService creates a new language service
func NewLanguageService(helpers HelperStore, languages LanguageStore, evaluator evaluation.Gateway, log *logrus.Logger) *LanguageService {
	return &LanguageService{
		helpers:   helpers,
		languages: languages,
		evaluator: evaluator,
		log:       log,
		now:       time.Now,
	}
}

// AvailableLanguage is a supported-set entry annotated with the helper's
// standing in it
type AvailableLanguage struct {
	models.SupportedLanguage
	Added      bool                 `json:"added"`
	IsVerified bool                 `json:"is_verified"`
	Level      models.LanguageLevel `json:"level,omitempty"`
}

// GetAvailableLanguages returns the supported set annotated with what the
// helper already added
func (s *LanguageService) GetAvailableLanguages(userID int64) ([]AvailableLanguage, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	mine, err := s.languages.ListByHelper(helper.ID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]models.HelperLanguage, len(mine))
	for _, l := range mine {
		byCode[l.LanguageCode] = l
	}

	result := make([]AvailableLanguage, 0, len(models.SupportedLanguages))
	for _, lang := range models.SupportedLanguages {
		entry := AvailableLanguage{SupportedLanguage: lang}
		if own, ok := byCode[lang.Code]; ok {
			entry.Added = true
			entry.IsVerified = own.IsVerified
			entry.Level = own.Level
		}
		result = append(result, entry)
	}

	return result, nil
}

// GetMyLanguages returns the helper's language rows
func (s *LanguageService) GetMyLanguages(userID int64) ([]models.HelperLanguage, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}
	return s.languages.ListByHelper(helper.ID)
}

// GetTestHistory returns the helper's attempt history for one language,
// newest first
func (s *LanguageService) GetTestHistory(userID int64, code string) ([]models.LanguageTest, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	lang, err := s.languages.GetByHelperAndCode(helper.ID, code)
	if err != nil {
		return nil, err
	}
	if lang == nil {
		return nil, NotFoundError("language %s not added", code)
	}

	return s.languages.ListTestsByLanguage(lang.ID)
}

// TestResult is the verdict returned to the client after a test attempt
type TestResult struct {
	LanguageCode string                `json:"language_code"`
	Score        float64               `json:"score"`
	Level        models.LanguageLevel  `json:"level"`
	Passed       bool                  `json:"passed"`
	IsVerified   bool                  `json:"is_verified"`
	AttemptsUsed int                   `json:"attempts_used_this_month"`
}

// TakeLanguageTest runs one AI test attempt for a language. Checks run in
// a fixed order: supported set, testability, payload, monthly cap,
// cooldown, then evaluation. The attempt is recorded whether it passes or
// fails; verification is only ever gained.
func (s *LanguageService) TakeLanguageTest(ctx context.Context, userID int64, code string, answers []string) (*TestResult, error) {
	helper, err := s.getOwnedHelper(userID)
	if err != nil {
		return nil, err
	}

	supported, ok := models.LookupLanguage(code)
	if !ok {
		return nil, ValidationError("language %s is not supported", code)
	}
	if !supported.Testable {
		return nil, ValidationError("%s is auto-verified, no test required", supported.Name)
	}
	if len(answers) == 0 {
		return nil, ValidationError("answers are required")
	}

	mu := s.lockFor(helper.ID, code)
	mu.Lock()
	defer mu.Unlock()

	lang, err := s.languages.GetByHelperAndCode(helper.ID, code)
	if err != nil {
		return nil, err
	}
	if lang == nil {
		// First attempt for this language; the row exists before any
		// rate-limit accounting so the counters have somewhere to live
		lang = &models.HelperLanguage{
			HelperID:     helper.ID,
			LanguageCode: supported.Code,
			LanguageName: supported.Name,
			Level:        models.LevelNone,
		}
		if err := s.languages.CreateHelperLanguage(lang); err != nil {
			if !errors.Is(err, database.ErrDuplicateLanguage) {
				return nil, err
			}
			lang, err = s.languages.GetByHelperAndCode(helper.ID, code)
			if err != nil {
				return nil, err
			}
			if lang == nil {
				return nil, fmt.Errorf("helper language row vanished after duplicate insert")
			}
		}
	}

	now := s.now()

	monthStart := monthStartUTC(now)
	used, err := s.languages.CountTestsInWindow(lang.ID, monthStart)
	if err != nil {
		return nil, err
	}
	if used >= MaxTestsPerMonth {
		nextMonth := monthStart.AddDate(0, 1, 0)
		return nil, RateLimitError(&nextMonth, "monthly test limit of %d reached for %s", MaxTestsPerMonth, supported.Name)
	}

	if lang.LastTestedAt.Valid {
		nextAllowed := lang.LastTestedAt.Time.Add(TestCooldown)
		if now.Before(nextAllowed) {
			return nil, RateLimitError(&nextAllowed, "wait 24 hours between attempts on the same language")
		}
	}

	verdict, err := s.evaluator.Evaluate(ctx, code, answers)
	if err != nil {
		return nil, UpstreamError("language evaluation failed: %v", err)
	}

	test := &models.LanguageTest{
		HelperLanguageID: lang.ID,
		AiScore:          verdict.Score,
		AiLevel:          verdict.Level,
		Passed:           verdict.Passed,
		TakenAt:          now,
	}
	if err := s.languages.RecordTestResult(lang, test); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"helper_id": helper.HelperID,
		"language":  code,
		"score":     verdict.Score,
		"passed":    verdict.Passed,
	}).Info("Language test recorded")

	return &TestResult{
		LanguageCode: code,
		Score:        verdict.Score,
		Level:        verdict.Level,
		Passed:       verdict.Passed,
		IsVerified:   lang.IsVerified,
		AttemptsUsed: used + 1,
	}, nil
}

// lockFor returns the mutex serializing attempts on one (helper,
// language) pair
func (s *LanguageService) lockFor(helperID int64, code string) *sync.Mutex {
	key := fmt.Sprintf("%d:%s", helperID, code)
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// getOwnedHelper resolves the helper application owned by a user
func (s *LanguageService) getOwnedHelper(userID int64) (*models.Helper, error) {
	helper, err := s.helpers.GetHelperByUserID(userID)
	if err != nil {
		return nil, err
	}
	if helper == nil {
		return nil, NotFoundError("helper application not found")
	}
	return helper, nil
}

// monthStartUTC returns the first instant of t's UTC calendar month
func monthStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
