package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrChallengeUnavailable = errors.New("failed to load challenge, please try again later")

// ChallengeService owns the one-per-day challenge and user completions.
type ChallengeService struct {
	store   db.Store
	gateway *Gateway
	audit   auditor
	log     *zap.Logger
	now     func() time.Time
	pick    func(n int) int
}

func NewChallengeService(store db.Store, gateway *Gateway, feed ActivityPublisher, log *zap.Logger) *ChallengeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChallengeService{
		store:   store,
		gateway: gateway,
		audit:   newAuditor(store, feed, log),
		log:     log,
		now:     time.Now,
		pick:    rand.IntN,
	}
}

// Today returns the current day's challenge, generating it on first use.
// Concurrent first requests all end up with the single stored challenge.
func (s *ChallengeService) Today(ctx context.Context) (*models.DailyChallenge, error) {
	date := models.DayKey(s.now())
	challenge, err := s.store.GetDailyChallenge(ctx, date)
	if err == nil {
		return challenge, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	difficulty := models.ChallengeDifficulties[s.pick(len(models.ChallengeDifficulties))]
	language := models.ChallengeLanguages[s.pick(len(models.ChallengeLanguages))]
	topic := models.ChallengeTopics[s.pick(len(models.ChallengeTopics))]

	result := s.gateway.GenerateChallenge(ctx, language, topic, difficulty)
	if !result.Success {
		s.log.Warn("daily challenge generation failed", zap.String("date", date), zap.String("error", result.Error))
		return nil, ErrChallengeUnavailable
	}

	stored, err := s.store.SaveDailyChallenge(ctx, &models.DailyChallenge{
		Date:        date,
		Difficulty:  difficulty,
		Topic:       topic,
		Language:    language,
		Description: result.Description,
		Hint:        result.Hint,
		Solution:    result.Solution,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save challenge: %w", err)
	}
	s.log.Info("daily challenge created", zap.String("date", date), zap.String("difficulty", stored.Difficulty), zap.String("topic", stored.Topic))
	return stored, nil
}

// Complete marks today's challenge done for the user. A second completion
// on the same day returns db.ErrDuplicate.
func (s *ChallengeService) Complete(ctx context.Context, actor Actor) (models.ChallengeStats, error) {
	date := models.DayKey(s.now())
	if _, err := s.store.GetDailyChallenge(ctx, date); err != nil {
		return models.ChallengeStats{}, err
	}
	err := s.store.CompleteChallenge(ctx, &models.ChallengeCompletion{
		UserID:      actor.ID,
		Date:        date,
		CompletedAt: s.now(),
	})
	if err != nil {
		return models.ChallengeStats{}, err
	}

	s.audit.userAction(ctx, actor.ID, "challenge_completed", map[string]interface{}{"date": date}, actor.Client)
	s.audit.publish(models.ActivityChallengeCompleted, actor.ID, actor.Name, actor.Name+" completed today's challenge", nil)
	return s.Stats(ctx, actor.ID), nil
}

// Stats counts completions and the streak of consecutive days ending
// today. Read failures degrade to zero stats.
func (s *ChallengeService) Stats(ctx context.Context, userID primitive.ObjectID) models.ChallengeStats {
	completions, err := s.store.ListCompletions(ctx, userID)
	if err != nil {
		s.log.Error("failed to list completions", zap.String("userId", userID.Hex()), zap.Error(err))
		return models.ChallengeStats{}
	}
	return challengeStats(completions, s.now())
}

func challengeStats(completions []models.ChallengeCompletion, now time.Time) models.ChallengeStats {
	done := make(map[string]bool, len(completions))
	for _, c := range completions {
		done[c.Date] = true
	}

	stats := models.ChallengeStats{
		TotalCompleted: len(done),
		CompletedToday: done[models.DayKey(now)],
	}
	for day := now.UTC(); done[models.DayKey(day)]; day = day.AddDate(0, 0, -1) {
		stats.CurrentStreak++
	}
	return stats
}
