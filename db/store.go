package db

import (
	"context"
	"errors"
	"time"

	"codegalaxy/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyVoted      = errors.New("user already voted")
	ErrInvalidOTP        = errors.New("invalid or expired code")
)

// UserFilter narrows ListUsers. Zero values match everything.
type UserFilter struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

// CodeFilter narrows code history queries.
type CodeFilter struct {
	UserID     primitive.ObjectID
	Search     string
	Models     []string
	Languages  []string
	From       time.Time
	To         time.Time
	SortOldest bool
	Limit      int
}

// ReviewFilter narrows ListReviews.
type ReviewFilter struct {
	Status string
	UserID primitive.ObjectID
	Limit  int
}

// LogFilter narrows ListLogs.
type LogFilter struct {
	Type  string
	Limit int
}

// Store is the persistence gateway. MongoStore backs production and
// MemoryStore backs tests and local runs without a database.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) error
	RecordLogin(ctx context.Context, id primitive.ObjectID, record models.LoginRecord) error
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	CountUsers(ctx context.Context, activeSince time.Time) (int64, error)
	// DeleteUserCascade removes the user's codes, reviews, challenge
	// completions and OTPs, then the user. The deletes are independent.
	DeleteUserCascade(ctx context.Context, id primitive.ObjectID) error

	CreateOTP(ctx context.Context, otp *models.OTP) error
	// ConsumeOTP matches and marks a code used in one step.
	ConsumeOTP(ctx context.Context, email, code, purpose string, now time.Time) error

	SaveCode(ctx context.Context, code *models.GeneratedCode) error
	ListCodes(ctx context.Context, filter CodeFilter) ([]models.GeneratedCode, error)
	CountCodes(ctx context.Context, filter CodeFilter) (int64, error)
	DeleteCode(ctx context.Context, userID, codeID primitive.ObjectID) error
	CodeStats(ctx context.Context, userID primitive.ObjectID) (models.CodeStats, error)
	TopCoders(ctx context.Context, limit int) ([]models.UserCount, error)
	ModelUsageByUser(ctx context.Context) ([]models.UserModelUsage, error)

	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]models.Review, error)
	CountReviews(ctx context.Context, status string) (int64, error)
	// ModerateReview moves a pending review to approved or rejected.
	ModerateReview(ctx context.Context, id primitive.ObjectID, status string, adminID primitive.ObjectID, reason string, at time.Time) error
	RespondToReview(ctx context.Context, id primitive.ObjectID, response string, adminID primitive.ObjectID, at time.Time) error
	VoteHelpful(ctx context.Context, reviewID, voterID primitive.ObjectID) error
	TopContributors(ctx context.Context) ([]models.ContributorStat, error)

	AppendLog(ctx context.Context, entry *models.LogEntry) error
	ListLogs(ctx context.Context, filter LogFilter) ([]models.LogEntry, error)

	RecordModelUsage(ctx context.Context, sample models.UsageSample) error
	ModelStats(ctx context.Context, model string, days int, now time.Time) (models.ModelStats, error)

	GetDailyChallenge(ctx context.Context, date string) (*models.DailyChallenge, error)
	// SaveDailyChallenge inserts the challenge unless the day already has
	// one, and returns whichever is stored.
	SaveDailyChallenge(ctx context.Context, challenge *models.DailyChallenge) (*models.DailyChallenge, error)
	CompleteChallenge(ctx context.Context, completion *models.ChallengeCompletion) error
	ListCompletions(ctx context.Context, userID primitive.ObjectID) ([]models.ChallengeCompletion, error)
}

func pageBounds(page, limit int) (skip, size int) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return (page - 1) * limit, limit
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
