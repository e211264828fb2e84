package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/touresta/touresta-backend/internal/models"
)

type gateFixture struct {
	users     *fakeUserStore
	helpers   *fakeHelperStore
	drugTests *fakeDrugTestStore
	langs     *fakeLanguageStore
	svc       *GateService
	now       time.Time
}

func newGateFixture() *gateFixture {
	f := &gateFixture{
		users:   newFakeUserStore(),
		helpers: newFakeHelperStore(),
		langs:   newFakeLanguageStore(),
		now:     time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	f.drugTests = newFakeDrugTestStore(f.helpers)
	f.svc = NewGateService(f.users, f.helpers, f.drugTests, f.langs, testLogger())
	f.svc.now = func() time.Time { return f.now }
	return f
}

// addEligibleHelper seeds a helper passing all five conditions.
func (f *gateFixture) addEligibleHelper() (*models.User, *models.Helper) {
	user := f.users.addUser(&models.User{Email: "helper@example.com", UserName: "Helper", IsVerified: true})
	helper := f.helpers.addHelper(&models.Helper{
		UserID:         user.ID,
		FullName:       "Ahmed Hassan",
		Gender:         models.GenderMale,
		BirthDate:      time.Date(1995, time.June, 1, 0, 0, 0, 0, time.UTC),
		ApprovalStatus: models.ApprovalApproved,
		IsApproved:     true,
		IsActive:       true,
	})
	f.drugTests.current[helper.ID] = &models.DrugTest{
		HelperID: helper.ID, ExpiryDate: f.now.AddDate(0, 3, 0), IsCurrent: true,
	}
	_ = f.langs.CreateHelperLanguage(&models.HelperLanguage{
		HelperID: helper.ID, LanguageCode: "ar", LanguageName: "Arabic", Level: models.LevelNative, IsVerified: true,
	})
	return user, helper
}

func TestEnforce(t *testing.T) {
	t.Run("Eligible Helper Passes", func(t *testing.T) {
		f := newGateFixture()
		f.addEligibleHelper()

		assert.NoError(t, f.svc.Enforce(1))
	})

	t.Run("No Application Is Forbidden", func(t *testing.T) {
		f := newGateFixture()
		f.users.addUser(&models.User{Email: "plain@example.com", IsVerified: true})

		err := f.svc.Enforce(1)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "no helper application on file")
	})

	t.Run("Unverified Email Is Checked First", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		user.IsVerified = false
		f.drugTests.current[helper.ID].ExpiryDate = f.now.AddDate(0, -1, 0)

		err := f.svc.Enforce(user.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "email address is not verified")
		// The expired-test deactivation never runs for earlier failures.
		assert.True(t, helper.IsActive)
	})

	t.Run("Unapproved Application Is Forbidden", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		helper.IsApproved = false
		helper.ApprovalStatus = models.ApprovalPending

		err := f.svc.Enforce(user.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "application has not been approved")
	})

	t.Run("Missing Drug Test Is Forbidden Without A Write", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		delete(f.drugTests.current, helper.ID)

		err := f.svc.Enforce(user.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "no valid drug test on file")
		assert.True(t, helper.IsActive)
	})

	t.Run("Expired Drug Test Deactivates Then Rejects", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		f.drugTests.current[helper.ID].ExpiryDate = f.now.AddDate(0, -1, 0)

		err := f.svc.Enforce(user.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "drug test has expired")
		assert.False(t, helper.IsActive)

		// Second request finds the helper already suspended and rejects
		// for the same reason without another write.
		err = f.svc.Enforce(user.ID)
		assert.EqualError(t, err, "drug test has expired")
	})

	t.Run("Inactive Helper With A Valid Test Is Forbidden", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		helper.IsActive = false

		err := f.svc.Enforce(user.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "account is not active")
	})

	t.Run("No Verified Language Is Forbidden", func(t *testing.T) {
		f := newGateFixture()
		user, _ := f.addEligibleHelper()
		f.langs.rows = map[string]*models.HelperLanguage{}

		err := f.svc.Enforce(user.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.EqualError(t, err, "no verified language")
	})
}

func TestCheck(t *testing.T) {
	t.Run("Eligible Helper Reports All Conditions Met", func(t *testing.T) {
		f := newGateFixture()
		user, _ := f.addEligibleHelper()

		result, err := f.svc.Check(user.ID)
		assert.NoError(t, err)
		assert.True(t, result.IsEligible)
		assert.True(t, result.UserVerified)
		assert.True(t, result.Approved)
		assert.True(t, result.Active)
		assert.True(t, result.ValidDrugTest)
		assert.True(t, result.HasVerifiedLanguage)
		assert.Empty(t, result.BlockingReasons)
	})

	t.Run("Every Failing Condition Is Named", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		helper.IsApproved = false
		f.drugTests.current[helper.ID].ExpiryDate = f.now.AddDate(0, -1, 0)
		f.langs.rows = map[string]*models.HelperLanguage{}

		result, err := f.svc.Check(user.ID)
		assert.NoError(t, err)
		assert.False(t, result.IsEligible)
		assert.Equal(t, []string{
			"application has not been approved",
			"no valid drug test on file",
			"no verified language",
		}, result.BlockingReasons)
	})

	t.Run("Check Never Deactivates On An Expired Test", func(t *testing.T) {
		f := newGateFixture()
		user, helper := f.addEligibleHelper()
		f.drugTests.current[helper.ID].ExpiryDate = f.now.AddDate(0, -1, 0)

		result, err := f.svc.Check(user.ID)
		assert.NoError(t, err)
		assert.False(t, result.ValidDrugTest)
		assert.True(t, helper.IsActive)
	})

	t.Run("No Application Is Not Found", func(t *testing.T) {
		f := newGateFixture()
		f.users.addUser(&models.User{Email: "plain@example.com", IsVerified: true})

		result, err := f.svc.Check(1)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
