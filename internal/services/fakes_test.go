package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/touresta/touresta-backend/internal/database"
	"github.com/touresta/touresta-backend/internal/models"
	"github.com/touresta/touresta-backend/pkg/evaluation"
	"github.com/touresta/touresta-backend/pkg/googleauth"
)

// In-memory store fakes for service tests. They mirror the semantics the
// repositories promise (not-found returns nil, unique violations map to
// sentinel errors) without a database.

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testFile(name, contentType string, size int64) *multipart.FileHeader {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: name,
		Size:     size,
		Header:   header,
	}
}

// ---- users ----

type fakeUserStore struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*models.User)}
}

func (f *fakeUserStore) addUser(user *models.User) *models.User {
	f.nextID++
	user.ID = f.nextID
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserStore) CreateUser(email, userName, passwordHash string) (*models.User, error) {
	return f.addUser(&models.User{
		Email:        email,
		UserName:     userName,
		PasswordHash: models.NewNullString(passwordHash),
	}), nil
}

func (f *fakeUserStore) CreateGoogleUser(email, userName, googleID string) (*models.User, error) {
	return f.addUser(&models.User{
		Email:      email,
		UserName:   userName,
		GoogleID:   models.NewNullString(googleID),
		IsVerified: true,
	}), nil
}

func (f *fakeUserStore) GetUserByID(id int64) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) GetUserByExternalID(userID string) (*models.User, error) {
	for _, u := range f.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetUserByGoogleID(googleID string) (*models.User, error) {
	for _, u := range f.users {
		if u.GoogleID.Valid && u.GoogleID.String == googleID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) SetVerificationCode(userID int64, code string, expiry time.Time) error {
	u := f.users[userID]
	u.VerificationCode = models.NewNullString(code)
	u.VerificationCodeExpiry = models.NewNullTime(expiry)
	return nil
}

func (f *fakeUserStore) MarkVerified(userID int64) error {
	u := f.users[userID]
	u.IsVerified = true
	u.VerificationCode = models.NullString{}
	u.VerificationCodeExpiry = models.NullTime{}
	return nil
}

func (f *fakeUserStore) UpdateProfileImage(userID int64, url string) error {
	f.users[userID].ProfileImageURL = models.NewNullString(url)
	return nil
}

func (f *fakeUserStore) DeleteUnverifiedBefore(cutoff time.Time) (int, error) {
	deleted := 0
	for id, u := range f.users {
		if !u.IsVerified && u.CreatedAt.Before(cutoff) {
			delete(f.users, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeUserStore) ClearExpiredVerificationCodes(now time.Time) (int, error) {
	cleared := 0
	for _, u := range f.users {
		if u.VerificationCodeExpiry.Valid && u.VerificationCodeExpiry.Time.Before(now) {
			u.VerificationCode = models.NullString{}
			u.VerificationCodeExpiry = models.NullTime{}
			cleared++
		}
	}
	return cleared, nil
}

// ---- helpers ----

type fakeHelperStore struct {
	helpers   map[int64]*models.Helper
	nextID    int64
	drugTests *fakeDrugTestStore
}

func newFakeHelperStore() *fakeHelperStore {
	return &fakeHelperStore{helpers: make(map[int64]*models.Helper)}
}

func (f *fakeHelperStore) addHelper(helper *models.Helper) *models.Helper {
	f.nextID++
	helper.ID = f.nextID
	if helper.HelperID == "" {
		helper.HelperID = uuid.New().String()
	}
	f.helpers[helper.ID] = helper
	return helper
}

func (f *fakeHelperStore) CreateHelper(userID int64, fullName string, gender models.Gender, birthDate time.Time) (*models.Helper, error) {
	return f.addHelper(&models.Helper{
		UserID:         userID,
		FullName:       fullName,
		Gender:         gender,
		BirthDate:      birthDate,
		ApprovalStatus: models.ApprovalPending,
	}), nil
}

// Reads hand out copies, as a row scan would; uncommitted mutation of a
// fetched helper never leaks into the store.
func (f *fakeHelperStore) GetHelperByID(id int64) (*models.Helper, error) {
	h, ok := f.helpers[id]
	if !ok {
		return nil, nil
	}
	clone := *h
	return &clone, nil
}

func (f *fakeHelperStore) GetHelperByExternalID(helperID string) (*models.Helper, error) {
	for _, h := range f.helpers {
		if h.HelperID == helperID {
			clone := *h
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeHelperStore) GetHelperByUserID(userID int64) (*models.Helper, error) {
	for _, h := range f.helpers {
		if h.UserID == userID {
			clone := *h
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeHelperStore) UpdateProfile(helper *models.Helper) error {
	clone := *helper
	f.helpers[helper.ID] = &clone
	return nil
}

func (f *fakeHelperStore) SetActive(helperID int64, active bool) error {
	f.helpers[helperID].IsActive = active
	return nil
}

func (f *fakeHelperStore) SetHasCar(helperID int64, hasCar bool) error {
	f.helpers[helperID].HasCar = hasCar
	return nil
}

func (f *fakeHelperStore) Approve(helperID, adminID int64) error {
	h := f.helpers[helperID]
	h.IsApproved = true
	h.IsActive = true
	h.ApprovalStatus = models.ApprovalApproved
	h.RejectionReason = models.NullString{}
	h.ReviewedByAdminID.Valid = true
	h.ReviewedByAdminID.Int64 = adminID
	h.ReviewedAt = models.NewNullTime(time.Now())
	return nil
}

func (f *fakeHelperStore) SetReviewOutcome(helperID, adminID int64, status models.ApprovalStatus, reason string, deactivate bool) error {
	h := f.helpers[helperID]
	h.ApprovalStatus = status
	h.RejectionReason = models.NewNullString(reason)
	h.ReviewedByAdminID.Valid = true
	h.ReviewedByAdminID.Int64 = adminID
	h.ReviewedAt = models.NewNullTime(time.Now())
	if deactivate {
		h.IsApproved = false
		h.IsActive = false
	}
	return nil
}

func (f *fakeHelperStore) GetPendingHelpers() ([]models.HelperQueueItem, error) {
	var items []models.HelperQueueItem
	for _, h := range f.helpers {
		if h.ApprovalStatus == models.ApprovalPending || h.ApprovalStatus == models.ApprovalUnderReview {
			items = append(items, models.HelperQueueItem{
				ID:             h.ID,
				HelperID:       h.HelperID,
				FullName:       h.FullName,
				ApprovalStatus: h.ApprovalStatus,
				CreatedAt:      h.CreatedAt,
			})
		}
	}
	return items, nil
}

func (f *fakeHelperStore) DeactivateExpired(now time.Time) (int, error) {
	deactivated := 0
	for _, h := range f.helpers {
		if !h.IsActive {
			continue
		}
		var current *models.DrugTest
		if f.drugTests != nil {
			current = f.drugTests.current[h.ID]
		}
		if current == nil || current.IsExpired(now) {
			h.IsActive = false
			deactivated++
		}
	}
	return deactivated, nil
}

// ---- drug tests ----

type fakeDrugTestStore struct {
	current map[int64]*models.DrugTest
	history map[int64][]models.DrugTest
	helpers *fakeHelperStore
	nextID  int64
	err     error
}

func newFakeDrugTestStore(helpers *fakeHelperStore) *fakeDrugTestStore {
	f := &fakeDrugTestStore{
		current: make(map[int64]*models.DrugTest),
		history: make(map[int64][]models.DrugTest),
		helpers: helpers,
	}
	if helpers != nil {
		helpers.drugTests = f
	}
	return f
}

func (f *fakeDrugTestStore) GetCurrent(helperID int64) (*models.DrugTest, error) {
	return f.current[helperID], nil
}

func (f *fakeDrugTestStore) ListByHelper(helperID int64) ([]models.DrugTest, error) {
	return f.history[helperID], nil
}

func (f *fakeDrugTestStore) ReplaceCurrent(helperID int64, fileURL string, uploadedAt, expiryDate time.Time, reactivate bool) (*models.DrugTest, error) {
	if f.err != nil {
		return nil, f.err
	}

	if prev := f.current[helperID]; prev != nil {
		prev.IsCurrent = false
	}

	f.nextID++
	test := &models.DrugTest{
		ID:         f.nextID,
		HelperID:   helperID,
		FileURL:    fileURL,
		UploadedAt: uploadedAt,
		ExpiryDate: expiryDate,
		IsCurrent:  true,
	}
	f.current[helperID] = test
	f.history[helperID] = append([]models.DrugTest{*test}, f.history[helperID]...)

	if reactivate && f.helpers != nil {
		if h := f.helpers.helpers[helperID]; h != nil && h.IsApproved && !h.IsActive {
			h.IsActive = true
		}
	}

	return test, nil
}

// ---- cars ----

type fakeCarStore struct {
	cars   map[int64]*models.Car // keyed by helper id
	nextID int64
}

func newFakeCarStore() *fakeCarStore {
	return &fakeCarStore{cars: make(map[int64]*models.Car)}
}

func (f *fakeCarStore) GetCarByHelper(helperID int64) (*models.Car, error) {
	return f.cars[helperID], nil
}

func (f *fakeCarStore) GetCarByPlate(plate string) (*models.Car, error) {
	for _, c := range f.cars {
		if c.LicensePlate == plate {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCarStore) CreateCar(car *models.Car) error {
	for _, c := range f.cars {
		if c.LicensePlate == car.LicensePlate {
			return database.ErrDuplicatePlate
		}
	}
	f.nextID++
	car.ID = f.nextID
	f.cars[car.HelperID] = car
	return nil
}

func (f *fakeCarStore) UpdateCar(car *models.Car) error {
	for _, c := range f.cars {
		if c.ID != car.ID && c.LicensePlate == car.LicensePlate {
			return database.ErrDuplicatePlate
		}
	}
	f.cars[car.HelperID] = car
	return nil
}

func (f *fakeCarStore) DeleteCar(carID int64) error {
	for helperID, c := range f.cars {
		if c.ID == carID {
			delete(f.cars, helperID)
		}
	}
	return nil
}

// ---- certificates ----

type fakeCertificateStore struct {
	certs  map[int64]*models.Certificate
	nextID int64
}

func newFakeCertificateStore() *fakeCertificateStore {
	return &fakeCertificateStore{certs: make(map[int64]*models.Certificate)}
}

func (f *fakeCertificateStore) CreateCertificate(cert *models.Certificate) error {
	f.nextID++
	cert.ID = f.nextID
	cert.IsVerified = false
	f.certs[cert.ID] = cert
	return nil
}

func (f *fakeCertificateStore) GetCertificateByID(id int64) (*models.Certificate, error) {
	return f.certs[id], nil
}

func (f *fakeCertificateStore) ListByHelper(helperID int64) ([]models.Certificate, error) {
	var certs []models.Certificate
	for _, c := range f.certs {
		if c.HelperID == helperID {
			certs = append(certs, *c)
		}
	}
	return certs, nil
}

func (f *fakeCertificateStore) DeleteCertificate(id int64) error {
	delete(f.certs, id)
	return nil
}

func (f *fakeCertificateStore) VerifyAllForHelper(helperID int64) (int, error) {
	verified := 0
	for _, c := range f.certs {
		if c.HelperID == helperID && !c.IsVerified {
			c.IsVerified = true
			verified++
		}
	}
	return verified, nil
}

// ---- languages ----

type fakeLanguageStore struct {
	rows   map[string]*models.HelperLanguage // "helperID:code"
	tests  map[int64][]models.LanguageTest
	nextID int64
}

func newFakeLanguageStore() *fakeLanguageStore {
	return &fakeLanguageStore{
		rows:  make(map[string]*models.HelperLanguage),
		tests: make(map[int64][]models.LanguageTest),
	}
}

func languageKey(helperID int64, code string) string {
	return fmt.Sprintf("%d:%s", helperID, code)
}

func (f *fakeLanguageStore) GetByHelperAndCode(helperID int64, code string) (*models.HelperLanguage, error) {
	return f.rows[languageKey(helperID, code)], nil
}

func (f *fakeLanguageStore) ListByHelper(helperID int64) ([]models.HelperLanguage, error) {
	var langs []models.HelperLanguage
	for _, l := range f.rows {
		if l.HelperID == helperID {
			langs = append(langs, *l)
		}
	}
	return langs, nil
}

func (f *fakeLanguageStore) CountVerifiedByHelper(helperID int64) (int, error) {
	count := 0
	for _, l := range f.rows {
		if l.HelperID == helperID && l.IsVerified {
			count++
		}
	}
	return count, nil
}

func (f *fakeLanguageStore) CreateHelperLanguage(lang *models.HelperLanguage) error {
	key := languageKey(lang.HelperID, lang.LanguageCode)
	if _, exists := f.rows[key]; exists {
		return database.ErrDuplicateLanguage
	}
	f.nextID++
	lang.ID = f.nextID
	f.rows[key] = lang
	return nil
}

func (f *fakeLanguageStore) CountTestsInWindow(helperLanguageID int64, windowStart time.Time) (int, error) {
	count := 0
	for _, t := range f.tests[helperLanguageID] {
		if !t.TakenAt.Before(windowStart) {
			count++
		}
	}
	return count, nil
}

func (f *fakeLanguageStore) ListTestsByLanguage(helperLanguageID int64) ([]models.LanguageTest, error) {
	return f.tests[helperLanguageID], nil
}

func (f *fakeLanguageStore) RecordTestResult(lang *models.HelperLanguage, test *models.LanguageTest) error {
	f.tests[test.HelperLanguageID] = append(f.tests[test.HelperLanguageID], *test)

	stored := f.rows[languageKey(lang.HelperID, lang.LanguageCode)]
	targets := []*models.HelperLanguage{stored}
	if lang != stored {
		targets = append(targets, lang)
	}
	for _, target := range targets {
		if target == nil {
			continue
		}
		target.AiScore = models.NewNullFloat64(test.AiScore)
		target.Level = test.AiLevel
		target.TestAttempts++
		target.LastTestedAt = models.NewNullTime(test.TakenAt)
		if test.Passed {
			target.IsVerified = true
		}
	}
	return nil
}

// ---- audit logs ----

type fakeAuditLogStore struct {
	entries []models.AdminAuditLog
}

func newFakeAuditLogStore() *fakeAuditLogStore {
	return &fakeAuditLogStore{}
}

func (f *fakeAuditLogStore) CreateEntry(entry *models.AdminAuditLog) error {
	entry.ID = int64(len(f.entries) + 1)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditLogStore) ListByTarget(targetType string, targetID int64) ([]models.AdminAuditLog, error) {
	var out []models.AdminAuditLog
	for _, e := range f.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditLogStore) DeleteOlderThan(cutoff time.Time) (int, error) {
	var kept []models.AdminAuditLog
	removed := 0
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return removed, nil
}

// ---- admins ----

type fakeAdminStore struct {
	admins map[int64]*models.Admin
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: make(map[int64]*models.Admin)}
}

func (f *fakeAdminStore) GetAdminByID(id int64) (*models.Admin, error) {
	return f.admins[id], nil
}

func (f *fakeAdminStore) GetAdminByEmail(email string) (*models.Admin, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAdminStore) UpdateLastLogin(id int64) error {
	f.admins[id].LastLoginAt = models.NewNullTime(time.Now())
	return nil
}

// ---- gateways ----

type fakeStorage struct {
	uploads []string
	deleted []string
	failOn  string // filename that fails to upload
}

func (f *fakeStorage) Upload(ctx context.Context, file *multipart.FileHeader, folder string, maxSizeMB int64) (string, error) {
	if f.failOn != "" && file.Filename == f.failOn {
		return "", fmt.Errorf("upload rejected")
	}
	url := fmt.Sprintf("https://cdn.test/upload/v1/%s/%s", folder, file.Filename)
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeStorage) Delete(ctx context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

type fakeEvaluator struct {
	result *evaluation.Result
	err    error
	calls  int
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, languageCode string, answers []string) (*evaluation.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeMailer is safe for the fire-and-forget delivery goroutine
type fakeMailer struct {
	mu   sync.Mutex
	sent []string // "to:code"
}

func (f *fakeMailer) SendCode(to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fmt.Sprintf("%s:%s", to, code))
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeGoogleVerifier struct {
	identity *googleauth.Identity
	err      error
}

func (f *fakeGoogleVerifier) Verify(ctx context.Context, idToken string) (*googleauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}
