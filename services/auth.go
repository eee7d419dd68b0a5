package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.uber.org/zap"
)

// AdminCredentials are the configured dashboard login
type AdminCredentials struct {
	Username string
	Password string
	Email    string
}

// AuthResult is returned by every flow that opens a session
type AuthResult struct {
	Token string       `json:"accessToken"`
	User  *models.User `json:"user"`
}

type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthService runs signup, verification, login and password reset.
// With an IdentityProvider set, passwords and codes are delegated to it.
type AuthService struct {
	store      db.Store
	notifier   *Notifier
	identity   IdentityProvider
	admin      AdminCredentials
	sessionTTL time.Duration
	audit      auditor
	log        *zap.Logger
	now        func() time.Time
}

func NewAuthService(store db.Store, notifier *Notifier, identity IdentityProvider, admin AdminCredentials, sessionTTL time.Duration, feed ActivityPublisher, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:      store,
		notifier:   notifier,
		identity:   identity,
		admin:      admin,
		sessionTTL: sessionTTL,
		audit:      newAuditor(store, feed, log),
		log:        log,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unverified account and sends a verification code.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, client ClientInfo) error {
	in.Name = utils.SanitizeInput(in.Name)
	in.Email = normalizeEmail(in.Email)

	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return invalid("All fields are required.")
	}
	if !utils.ValidateEmail(in.Email) {
		return invalid("Invalid email format.")
	}
	if in.Password != in.ConfirmPassword {
		return invalid("Passwords do not match.")
	}
	if ok, msgs := utils.ValidatePasswordStrength(in.Password, utils.DefaultPasswordPolicy); !ok {
		return weakPassword(in.Password, msgs, in.Name, in.Email)
	}

	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.now()
	user := &models.User{
		Name:               in.Name,
		Email:              in.Email,
		Role:               models.RoleUser,
		Status:             models.StatusActive,
		AuthProvider:       models.ProviderEmail,
		ThemePreference:    "dark",
		EmailNotifications: true,
		SignupDate:         now,
		UpdatedAt:          now,
		LoginHistory:       []models.LoginRecord{},
	}

	if s.identity != nil {
		uid, err := s.identity.SignUp(ctx, in.Name, in.Email, in.Password)
		if err != nil {
			return err
		}
		user.AuthProvider = models.ProviderCognito
		user.ProviderUID = uid
	} else {
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return err
		}
		user.Password = hash
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	s.audit.userAction(ctx, user.ID, "signup", map[string]interface{}{"provider": user.AuthProvider}, client)

	if s.identity != nil {
		return nil
	}
	return s.issueOTP(ctx, in.Email, models.OTPSignup)
}

// issueOTP stores a fresh code and mails it. Earlier codes stay valid
// until they expire.
func (s *AuthService) issueOTP(ctx context.Context, email, purpose string) error {
	code, err := utils.GenerateRandomCode(models.OTPLength)
	if err != nil {
		return err
	}
	now := s.now()
	otp := &models.OTP{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: now.Add(models.OTPTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateOTP(ctx, otp); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.SendOTP(ctx, email, code, purpose); err != nil {
			s.log.Warn("failed to send verification code", zap.String("purpose", purpose), zap.Error(err))
		}
	}
	return nil
}

func (s *AuthService) consumeOTP(ctx context.Context, email, code, purpose string) error {
	err := s.store.ConsumeOTP(ctx, email, strings.TrimSpace(code), purpose, s.now())
	if errors.Is(err, db.ErrInvalidOTP) {
		return ErrInvalidCode
	}
	return err
}

// VerifyEmail consumes a signup code, marks the address verified and
// opens a session.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string, client ClientInfo) (*AuthResult, error) {
	email = normalizeEmail(email)
	if s.identity != nil {
		if err := s.identity.ConfirmSignUp(ctx, email, code); err != nil {
			return nil, err
		}
	} else if err := s.consumeOTP(ctx, email, code, models.OTPSignup); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	verified := true
	if err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{EmailVerified: &verified}); err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	user.EmailVerified = true

	if s.notifier != nil {
		if err := s.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
			s.log.Warn("failed to send welcome email", zap.Error(err))
		}
	}
	s.audit.publish(models.ActivityUserJoined, user.ID, user.Name, user.Name+" joined CodeGalaxy", nil)
	return s.openSession(ctx, user, client)
}

// ResendOTP issues another code for purpose. Unknown addresses are
// silently accepted.
func (s *AuthService) ResendOTP(ctx context.Context, email, purpose string) error {
	email = normalizeEmail(email)
	switch purpose {
	case models.OTPSignup, models.OTPPasswordReset, models.OTPLogin:
	default:
		return invalid("Invalid verification purpose.")
	}
	if s.identity != nil {
		if purpose == models.OTPPasswordReset {
			return s.identity.ForgotPassword(ctx, email)
		}
		return s.identity.ResendCode(ctx, email)
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.issueOTP(ctx, email, purpose)
}

// Login checks the password and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("Please enter both email and password.")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || user.Status == models.StatusDeleted {
		s.failedLogin(ctx, email, client)
		return nil, ErrInvalidCredentials
	}

	if s.identity != nil {
		if _, err := s.identity.Login(ctx, email, password); err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				s.failedLogin(ctx, email, client)
			}
			return nil, err
		}
		if !user.EmailVerified {
			verified := true
			_ = s.store.UpdateUser(ctx, user.ID, models.UserPatch{EmailVerified: &verified})
			user.EmailVerified = true
		}
	} else if !utils.CheckPasswordHash(password, user.Password) {
		s.failedLogin(ctx, email, client)
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if user.Status == models.StatusSuspended {
		return nil, ErrAccountSuspended
	}
	return s.openSession(ctx, user, client)
}

// VerifyLoginCode opens a session with a one-time login code instead of
// a password.
func (s *AuthService) VerifyLoginCode(ctx context.Context, email, code string, client ClientInfo) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := s.consumeOTP(ctx, email, code, models.OTPLogin); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	switch user.Status {
	case models.StatusSuspended:
		return nil, ErrAccountSuspended
	case models.StatusDeleted:
		return nil, ErrInvalidCredentials
	}
	return s.openSession(ctx, user, client)
}

func (s *AuthService) failedLogin(ctx context.Context, email string, client ClientInfo) {
	s.audit.security(ctx, "login_failed", models.SeverityWarning,
		map[string]interface{}{"email": utils.MaskEmail(email)}, client)
}

// ForgotPassword sends a reset code if the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("Please enter your email address.")
	}
	if s.identity != nil {
		return s.identity.ForgotPassword(ctx, email)
	}
	return s.ResendOTP(ctx, email, models.OTPPasswordReset)
}

// ResetPassword consumes a reset code and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string, client ClientInfo) error {
	email = normalizeEmail(email)
	if ok, msgs := utils.ValidatePasswordStrength(newPassword, utils.DefaultPasswordPolicy); !ok {
		return weakPassword(newPassword, msgs, email)
	}

	if s.identity != nil {
		if err := s.identity.ConfirmForgotPassword(ctx, email, code, newPassword); err != nil {
			return err
		}
	} else if err := s.consumeOTP(ctx, email, code, models.OTPPasswordReset); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if s.identity == nil {
		hash, err := utils.HashPassword(newPassword)
		if err != nil {
			return err
		}
		if err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{Password: &hash}); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
	}

	s.audit.security(ctx, "password_reset", models.SeverityInfo, map[string]interface{}{"userId": user.ID.Hex()}, client)
	if s.notifier != nil {
		if err := s.notifier.SendPasswordResetSuccess(ctx, user.Email, user.Name); err != nil {
			s.log.Warn("failed to send password reset confirmation", zap.Error(err))
		}
	}
	return nil
}

func (s *AuthService) adminMatches(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password))
	return userOK&passOK == 1
}

// AdminLogin checks the configured admin credentials. The admin gets a
// user record on first login so moderation can reference it.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string, client ClientInfo) (*AuthResult, error) {
	if s.admin.Password == "" || !s.adminMatches(username, password) {
		s.audit.security(ctx, "admin_login_failed", models.SeverityWarning,
			map[string]interface{}{"username": username}, client)
		return nil, ErrInvalidCredentials
	}

	email := normalizeEmail(s.admin.Email)
	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, db.ErrNotFound):
		now := s.now()
		user = &models.User{
			Name:            "Admin",
			Email:           email,
			Role:            models.RoleAdmin,
			Status:          models.StatusActive,
			AuthProvider:    models.ProviderEmail,
			EmailVerified:   true,
			ThemePreference: "dark",
			SignupDate:      now,
			UpdatedAt:       now,
			LoginHistory:    []models.LoginRecord{},
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	case user.Role != models.RoleAdmin:
		role := models.RoleAdmin
		if err := s.store.UpdateUser(ctx, user.ID, models.UserPatch{Role: &role}); err != nil {
			return nil, fmt.Errorf("failed to promote admin: %w", err)
		}
		user.Role = role
	}

	s.audit.adminAction(ctx, user.ID, "admin_login", nil)
	return s.openSession(ctx, user, client)
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, client ClientInfo) (*AuthResult, error) {
	ua := utils.ParseUserAgent(client.UserAgent)
	record := models.LoginRecord{
		Timestamp: s.now(),
		IPAddress: utils.MaskIP(client.IP),
		Device:    ua.Device,
		Browser:   ua.Browser,
	}
	if err := s.store.RecordLogin(ctx, user.ID, record); err != nil {
		s.log.Warn("failed to record login", zap.String("userId", user.ID.Hex()), zap.Error(err))
	}

	token, err := utils.GenerateJWTToken(user.ID.Hex(), user.Email, user.Role, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	s.audit.userAction(ctx, user.ID, "login", nil, client)
	return &AuthResult{Token: token, User: user}, nil
}
