package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Profile is the account page payload
type Profile struct {
	User           *models.User          `json:"user"`
	CodeStats      models.CodeStats      `json:"codeStats"`
	ChallengeStats models.ChallengeStats `json:"challengeStats"`
	MemberSince    string                `json:"memberSince"`
	LastLogin      string                `json:"lastLogin"`
}

type ProfileUpdate struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
}

type SettingsUpdate struct {
	EmailNotifications *bool   `json:"emailNotifications"`
	ThemePreference    *string `json:"themePreference"`
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileService manages a user's own account.
type ProfileService struct {
	store      db.Store
	challenges *ChallengeService
	audit      auditor
	log        *zap.Logger
	now        func() time.Time
}

func NewProfileService(store db.Store, challenges *ChallengeService, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		store:      store,
		challenges: challenges,
		audit:      newAuditor(store, nil, log),
		log:        log,
		now:        time.Now,
	}
}

func (s *ProfileService) Get(ctx context.Context, userID primitive.ObjectID) (*Profile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	profile := &Profile{
		User:        user,
		MemberSince: utils.FormatTimestamp(user.SignupDate, utils.TimestampShort, now),
		LastLogin:   "N/A",
	}
	if user.LastLogin != nil {
		profile.LastLogin = utils.FormatTimestamp(*user.LastLogin, utils.TimestampRelative, now)
	}
	if stats, err := s.store.CodeStats(ctx, userID); err != nil {
		s.log.Error("failed to load code stats", zap.String("userId", userID.Hex()), zap.Error(err))
	} else {
		profile.CodeStats = stats
	}
	if s.challenges != nil {
		profile.ChallengeStats = s.challenges.Stats(ctx, userID)
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, actor Actor, in ProfileUpdate) (*models.User, error) {
	patch := models.UserPatch{AvatarURL: in.AvatarURL}
	if in.Name != nil {
		name := utils.SanitizeInput(*in.Name)
		if name == "" {
			return nil, invalid("Name is required")
		}
		patch.Name = &name
	}
	if in.Bio != nil {
		bio := utils.SanitizeInput(*in.Bio)
		if utf8.RuneCountInString(bio) > 500 {
			return nil, invalid("Bio must be at most 500 characters")
		}
		patch.Bio = &bio
	}
	return s.apply(ctx, actor, patch, "profile_updated")
}

func (s *ProfileService) UpdateSettings(ctx context.Context, actor Actor, in SettingsUpdate) (*models.User, error) {
	if in.ThemePreference != nil && !contains([]string{"light", "dark", "auto"}, *in.ThemePreference) {
		return nil, invalid("Theme must be light, dark or auto")
	}
	return s.apply(ctx, actor, models.UserPatch{
		EmailNotifications: in.EmailNotifications,
		ThemePreference:    in.ThemePreference,
	}, "settings_updated")
}

// ChangePassword is only available to accounts with a local password.
func (s *ProfileService) ChangePassword(ctx context.Context, actor Actor, in PasswordChange) error {
	user, err := s.store.GetUserByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if user.AuthProvider != models.ProviderEmail || user.Password == "" {
		return invalid("Password is managed by your sign-in provider")
	}
	if !utils.CheckPasswordHash(in.CurrentPassword, user.Password) {
		return ErrInvalidCredentials
	}
	if ok, msgs := utils.ValidatePasswordStrength(in.NewPassword, utils.DefaultPasswordPolicy); !ok {
		return weakPassword(in.NewPassword, msgs, user.Name, user.Email)
	}
	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUser(ctx, actor.ID, models.UserPatch{Password: &hash}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.audit.security(ctx, "password_changed", models.SeverityInfo, map[string]interface{}{"userId": actor.ID.Hex()}, actor.Client)
	return nil
}

// Delete soft-deletes the caller's account. Data stays until an admin
// removes the user.
func (s *ProfileService) Delete(ctx context.Context, actor Actor) error {
	status := models.StatusDeleted
	if err := s.store.UpdateUser(ctx, actor.ID, models.UserPatch{Status: &status}); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.audit.userAction(ctx, actor.ID, "account_deleted", nil, actor.Client)
	return nil
}

func (s *ProfileService) apply(ctx context.Context, actor Actor, patch models.UserPatch, action string) (*models.User, error) {
	if err := s.store.UpdateUser(ctx, actor.ID, patch); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	s.audit.userAction(ctx, actor.ID, action, nil, actor.Client)
	return s.store.GetUserByID(ctx, actor.ID)
}
