package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/touresta/touresta-backend/internal/models"
	"github.com/touresta/touresta-backend/pkg/googleauth"
	"github.com/touresta/touresta-backend/pkg/jwt"
	"github.com/touresta/touresta-backend/pkg/mailer"
)

// verificationCodeTTL is how long an emailed code stays usable
const verificationCodeTTL = 15 * time.Minute

// AuthService owns account registration, email verification, and sign-in
// for both users and admins.
type AuthService struct {
	users      UserStore
	admins     AdminStore
	mail       mailer.Gateway
	google     googleauth.Verifier
	tokens     *jwt.Service
	audit      *AuditService
	log        *logrus.Logger
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users UserStore,
	admins AdminStore,
	mail mailer.Gateway,
	google googleauth.Verifier,
	tokens *jwt.Service,
	audit *AuditService,
	log *logrus.Logger,
	bcryptCost int,
) *AuthService {
	return &AuthService{
		users:      users,
		admins:     admins,
		mail:       mail,
		google:     google,
		tokens:     tokens,
		audit:      audit,
		log:        log,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// TokenPair is an issued access/refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates an unverified account and emails it a 6-digit
// verification code. Delivery is fire-and-forget; a mail outage never
// fails registration, the user can request a resend.
func (s *AuthService) Register(email, userName, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ValidationError("a valid email address is required")
	}
	if userName == "" {
		return nil, ValidationError("user name is required")
	}
	if len(password) < 8 {
		return nil, ValidationError("password must be at least 8 characters")
	}

	existing, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ConflictError("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(email, userName, string(hash))
	if err != nil {
		return nil, err
	}

	if err := s.issueVerificationCode(user); err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.UserID).Info("User registered")

	return user, nil
}

// VerifyCode consumes an emailed verification code and marks the account
// verified
func (s *AuthService) VerifyCode(email, code string) error {
	user, err := s.users.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user == nil {
		return NotFoundError("account not found")
	}
	if user.IsVerified {
		return PreconditionError("account is already verified")
	}

	if !user.VerificationCode.Valid || user.VerificationCode.String != code {
		return UnauthorizedError("invalid verification code")
	}
	if !user.VerificationCodeExpiry.Valid || user.VerificationCodeExpiry.Time.Before(s.now()) {
		return UnauthorizedError("verification code has expired")
	}

	if err := s.users.MarkVerified(user.ID); err != nil {
		return err
	}

	s.log.WithField("user_id", user.UserID).Info("User verified")

	return nil
}

// ResendCode issues a fresh verification code to an unverified account
func (s *AuthService) ResendCode(email string) error {
	user, err := s.users.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user == nil {
		return NotFoundError("account not found")
	}
	if user.IsVerified {
		return PreconditionError("account is already verified")
	}

	return s.issueVerificationCode(user)
}

// Login authenticates a verified user with email and password
func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.PasswordHash.Valid {
		return nil, nil, UnauthorizedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, nil, UnauthorizedError("invalid email or password")
	}

	if !user.IsVerified {
		return nil, nil, PreconditionError("verify your email address before signing in")
	}

	pair, err := s.issuePair(user.ID, user.UserID, user.Email, jwt.KindUser)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// GoogleSignIn verifies a Google ID token and signs in the matching
// account, creating one on first sight. Google accounts arrive with a
// verified email.
func (s *AuthService) GoogleSignIn(ctx context.Context, idToken string) (*models.User, *TokenPair, error) {
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, nil, UnauthorizedError("google sign-in failed: %v", err)
	}

	user, err := s.users.GetUserByGoogleID(identity.GoogleID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		// Fall back to the email so an existing password account is not
		// duplicated
		user, err = s.users.GetUserByEmail(strings.ToLower(identity.Email))
		if err != nil {
			return nil, nil, err
		}
	}
	if user == nil {
		name := identity.Name
		if name == "" {
			name = identity.Email
		}
		user, err = s.users.CreateGoogleUser(strings.ToLower(identity.Email), name, identity.GoogleID)
		if err != nil {
			return nil, nil, err
		}
		s.log.WithField("user_id", user.UserID).Info("User created via Google sign-in")
	}

	pair, err := s.issuePair(user.ID, user.UserID, user.Email, jwt.KindUser)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// AdminLogin authenticates a back-office reviewer
func (s *AuthService) AdminLogin(email, password string, meta RequestMeta) (*models.Admin, *TokenPair, error) {
	admin, err := s.admins.GetAdminByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, err
	}
	if admin == nil || !admin.IsActive {
		return nil, nil, UnauthorizedError("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, nil, UnauthorizedError("invalid email or password")
	}

	if err := s.admins.UpdateLastLogin(admin.ID); err != nil {
		s.log.WithError(err).Warn("Failed to stamp admin last login")
	}

	pair, err := s.issuePair(admin.ID, "", admin.Email, jwt.KindAdmin)
	if err != nil {
		return nil, nil, err
	}

	s.audit.LogAdminLogin(admin.ID, meta)

	return admin, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The principal
// is re-read so a deleted or deactivated account cannot keep rotating
// tokens.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, UnauthorizedError("invalid refresh token")
	}

	switch claims.Kind {
	case jwt.KindAdmin:
		admin, err := s.admins.GetAdminByID(claims.PrincipalID)
		if err != nil {
			return nil, err
		}
		if admin == nil || !admin.IsActive {
			return nil, UnauthorizedError("account no longer active")
		}
		return s.issuePair(admin.ID, "", admin.Email, jwt.KindAdmin)
	default:
		user, err := s.users.GetUserByID(claims.PrincipalID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, UnauthorizedError("account no longer exists")
		}
		return s.issuePair(user.ID, user.UserID, user.Email, jwt.KindUser)
	}
}

// issuePair generates an access/refresh pair for one principal
func (s *AuthService) issuePair(principalID int64, externalID, email string, kind jwt.PrincipalKind) (*TokenPair, error) {
	access, refresh, err := s.tokens.GenerateTokenPair(principalID, externalID, email, kind)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// issueVerificationCode stores a fresh code and mails it out of band
func (s *AuthService) issueVerificationCode(user *models.User) error {
	code, err := generateVerificationCode()
	if err != nil {
		return err
	}

	if err := s.users.SetVerificationCode(user.ID, code, s.now().Add(verificationCodeTTL)); err != nil {
		return err
	}

	email := user.Email
	go func() {
		if err := s.mail.SendCode(email, code); err != nil {
			s.log.WithError(err).WithField("email", email).Error("Failed to send verification code")
		}
	}()

	return nil
}

// generateVerificationCode produces a random 6-digit code
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
