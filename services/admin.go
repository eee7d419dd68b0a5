package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const monitoringWindowDays = 30

// AnalyticsReport feeds the admin analytics tab
type AnalyticsReport struct {
	Days         int                 `json:"days"`
	Distribution map[string]int64    `json:"distribution"`
	Models       []models.ModelStats `json:"models"`
	DailyCodes   []models.DailyCount `json:"dailyCodes"`
}

// ModelHealth pairs a model's catalogue entry with its recent usage
type ModelHealth struct {
	Info  ModelDetails      `json:"info"`
	Stats models.ModelStats `json:"stats"`
}

// DigestReport summarises one weekly digest run
type DigestReport struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AdminService backs the admin dashboard.
type AdminService struct {
	store       db.Store
	gateway     *Gateway
	leaderboard *LeaderboardService
	notifier    *Notifier
	audit       auditor
	log         *zap.Logger
	now         func() time.Time
}

func NewAdminService(store db.Store, gateway *Gateway, leaderboard *LeaderboardService, notifier *Notifier, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{
		store:       store,
		gateway:     gateway,
		leaderboard: leaderboard,
		notifier:    notifier,
		audit:       newAuditor(store, nil, log),
		log:         log,
		now:         time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PlatformStats degrades each figure to zero on failure.
func (s *AdminService) PlatformStats(ctx context.Context) models.PlatformStats {
	var stats models.PlatformStats
	var err error
	if stats.TotalUsers, err = s.store.CountUsers(ctx, time.Time{}); err != nil {
		s.log.Error("failed to count users", zap.Error(err))
	}
	if stats.TotalCodes, err = s.store.CountCodes(ctx, db.CodeFilter{}); err != nil {
		s.log.Error("failed to count codes", zap.Error(err))
	}
	if stats.ActiveToday, err = s.store.CountUsers(ctx, startOfDay(s.now())); err != nil {
		s.log.Error("failed to count active users", zap.Error(err))
	}
	if stats.PendingReviews, err = s.store.CountReviews(ctx, models.ReviewPending); err != nil {
		s.log.Error("failed to count pending reviews", zap.Error(err))
	}
	return stats
}

// Analytics reports per-model usage over days and codes saved per day
// over the last week.
func (s *AdminService) Analytics(ctx context.Context, days int) AnalyticsReport {
	if days <= 0 {
		days = monitoringWindowDays
	}
	report := AnalyticsReport{
		Days:         days,
		Distribution: map[string]int64{},
		Models:       []models.ModelStats{},
		DailyCodes:   []models.DailyCount{},
	}
	now := s.now()
	for _, name := range s.gateway.Models() {
		stats, err := s.store.ModelStats(ctx, name, days, now)
		if err != nil {
			s.log.Error("failed to load model stats", zap.String("model", name), zap.Error(err))
			continue
		}
		report.Models = append(report.Models, stats)
		report.Distribution[name] = stats.TotalUses
	}

	today := startOfDay(now)
	for i := 6; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		n, err := s.store.CountCodes(ctx, db.CodeFilter{From: from, To: from.AddDate(0, 0, 1)})
		if err != nil {
			s.log.Error("failed to count daily codes", zap.Error(err))
			continue
		}
		report.DailyCodes = append(report.DailyCodes, models.DailyCount{Date: models.DayKey(from), Count: n})
	}
	return report
}

// Users lists accounts with masked email addresses.
func (s *AdminService) Users(ctx context.Context, filter db.UserFilter) ([]models.User, int64, error) {
	users, total, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		users[i].Email = utils.MaskEmail(users[i].Email)
	}
	return users, total, nil
}

// SetUserStatus suspends or reactivates an account.
func (s *AdminService) SetUserStatus(ctx context.Context, adminID, userID primitive.ObjectID, status string) error {
	if status != models.StatusActive && status != models.StatusSuspended {
		return invalid("Status must be active or suspended")
	}
	if adminID == userID {
		return invalid("You cannot change your own status")
	}
	if err := s.store.UpdateUser(ctx, userID, models.UserPatch{Status: &status}); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update user status: %w", err)
	}
	action := "user_suspended"
	if status == models.StatusActive {
		action = "user_reactivated"
	}
	s.audit.adminAction(ctx, adminID, action, map[string]interface{}{"user_id": userID.Hex()})
	return nil
}

// DeleteUser removes the user and everything they own.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID primitive.ObjectID) error {
	if adminID == userID {
		return invalid("You cannot delete your own account here")
	}
	if err := s.store.DeleteUserCascade(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.audit.adminAction(ctx, adminID, "user_deleted", map[string]interface{}{"user_id": userID.Hex()})
	return nil
}

func (s *AdminService) Logs(ctx context.Context, logType string, limit int) ([]models.LogEntry, error) {
	logs, err := s.store.ListLogs(ctx, db.LogFilter{Type: logType, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return logs, nil
}

// Models returns catalogue entries with 30-day usage.
func (s *AdminService) Models(ctx context.Context) []ModelHealth {
	now := s.now()
	out := make([]ModelHealth, 0, 3)
	for _, name := range s.gateway.Models() {
		stats, err := s.store.ModelStats(ctx, name, monitoringWindowDays, now)
		if err != nil {
			s.log.Error("failed to load model stats", zap.String("model", name), zap.Error(err))
			stats = models.ModelStats{ModelName: name, Days: monitoringWindowDays}
		}
		out = append(out, ModelHealth{Info: s.gateway.ModelInfo(name), Stats: stats})
	}
	return out
}

// TestModel pings a model and records the outcome as a system event.
func (s *AdminService) TestModel(ctx context.Context, adminID primitive.ObjectID, model string) (ConnectionResult, error) {
	if !s.gateway.IsSupported(model) {
		return ConnectionResult{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	result := s.gateway.TestModel(ctx, model)
	severity := models.SeverityInfo
	if !result.Connected {
		severity = models.SeverityError
	}
	s.audit.record(ctx, models.LogEntry{
		Type:     models.LogSystemEvent,
		Action:   "model_test",
		Severity: severity,
		AdminID:  adminID,
		Details:  map[string]interface{}{"model": model, "connected": result.Connected},
	}, ClientInfo{})
	return result, nil
}

// SendWeeklyDigests mails every active user who opted in to reports.
func (s *AdminService) SendWeeklyDigests(ctx context.Context) (DigestReport, error) {
	var report DigestReport
	if s.notifier == nil {
		return report, errors.New("email is not configured")
	}
	ranks := s.leaderboard.Ranks(ctx)

	for page := 1; ; page++ {
		users, _, err := s.store.ListUsers(ctx, db.UserFilter{Status: models.StatusActive, Page: page, Limit: 100})
		if err != nil {
			return report, fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range users {
			if !u.EmailNotifications || !u.EmailVerified {
				report.Skipped++
				continue
			}
			stats, err := s.store.CodeStats(ctx, u.ID)
			if err != nil {
				s.log.Warn("failed to load digest stats", zap.String("userId", u.ID.Hex()), zap.Error(err))
				report.Failed++
				continue
			}
			weekly := WeeklyStats{
				CodesGenerated:   stats.TotalCodes,
				FavoriteModel:    orNA(stats.FavoriteModel),
				FavoriteLanguage: orNA(stats.FavoriteLanguage),
				LeaderboardRank:  ranks[u.ID],
			}
			if err := s.notifier.SendWeeklyReport(ctx, u.Email, u.Name, weekly); err != nil {
				report.Failed++
				continue
			}
			report.Sent++
		}
		if len(users) < 100 {
			break
		}
	}

	s.audit.record(ctx, models.LogEntry{
		Type:     models.LogSystemEvent,
		Action:   "weekly_digest_sent",
		Severity: models.SeverityInfo,
		Details:  map[string]interface{}{"sent": report.Sent, "skipped": report.Skipped, "failed": report.Failed},
	}, ClientInfo{})
	return report, nil
}

func (s *AdminService) SendTestEmail(ctx context.Context, to string) error {
	if s.notifier == nil {
		return errors.New("email is not configured")
	}
	if !utils.ValidateEmail(to) {
		return invalid("Invalid email format.")
	}
	return s.notifier.SendTest(ctx, to)
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
