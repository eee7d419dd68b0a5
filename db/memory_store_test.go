package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codegalaxy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestUser(t *testing.T, store Store, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Test User",
		Email:        email,
		Role:         models.RoleUser,
		Status:       models.StatusActive,
		AuthProvider: models.ProviderEmail,
		SignupDate:   time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	newTestUser(t, store, "ada@example.com")

	err := store.CreateUser(context.Background(), &models.User{
		Name: "Other", Email: "ada@example.com", Role: models.RoleUser,
		Status: models.StatusActive, AuthProvider: models.ProviderEmail,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateUserValidatesSchema(t *testing.T) {
	store := NewMemoryStore()
	err := store.CreateUser(context.Background(), &models.User{
		Name: "Bad", Email: "not-an-email", Role: "root",
		Status: models.StatusActive, AuthProvider: models.ProviderEmail,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestConsumeOTPSucceedsOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CreateOTP(ctx, &models.OTP{
		Email: "ada@example.com", Purpose: models.OTPSignup, Code: "123456",
		ExpiresAt: now.Add(models.OTPTTL), CreatedAt: now,
	}))

	assert.NoError(t, store.ConsumeOTP(ctx, "ada@example.com", "123456", models.OTPSignup, now))
	assert.ErrorIs(t, store.ConsumeOTP(ctx, "ada@example.com", "123456", models.OTPSignup, now), ErrInvalidOTP)
}

func TestConsumeOTPRejectsExpiredAndWrongPurpose(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	issued := time.Now()

	require.NoError(t, store.CreateOTP(ctx, &models.OTP{
		Email: "ada@example.com", Purpose: models.OTPSignup, Code: "654321",
		ExpiresAt: issued.Add(models.OTPTTL), CreatedAt: issued,
	}))

	assert.ErrorIs(t, store.ConsumeOTP(ctx, "ada@example.com", "654321", models.OTPPasswordReset, issued), ErrInvalidOTP)
	assert.ErrorIs(t, store.ConsumeOTP(ctx, "ada@example.com", "654321", models.OTPSignup, issued.Add(models.OTPTTL+time.Second)), ErrInvalidOTP)
}

func TestRecordModelUsageAccumulates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	elapsed := []float64{1, 2, 3, 4, 5}
	for i, e := range elapsed {
		require.NoError(t, store.RecordModelUsage(ctx, models.UsageSample{
			ModelName: "gemma-2b", Language: "Python", ResponseTime: e,
			Success: i < 3, At: at,
		}))
	}

	row, ok := store.UsageRow("gemma-2b", "2024-05-01")
	require.True(t, ok)
	assert.Equal(t, int64(5), row.TotalUses)
	assert.Equal(t, int64(3), row.SuccessfulUses)
	assert.Equal(t, int64(2), row.FailedUses)
	assert.InDelta(t, 15.0, row.TotalResponseTime, 1e-9)
	assert.InDelta(t, 3.0, row.AverageResponseTime, 1e-9)
	assert.Equal(t, int64(5), row.Languages["Python"])
}

func TestModelStatsAveragesDailyAverages(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	// day1: one call of 1s; day2: three calls of 3s each.
	require.NoError(t, store.RecordModelUsage(ctx, models.UsageSample{ModelName: "phi-2", ResponseTime: 1, Success: true, At: day1}))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordModelUsage(ctx, models.UsageSample{ModelName: "phi-2", ResponseTime: 3, Success: i != 0, At: day2}))
	}

	stats, err := store.ModelStats(ctx, "phi-2", 7, day2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalUses)
	assert.Equal(t, int64(3), stats.SuccessfulUses)
	assert.InDelta(t, 75.0, stats.SuccessRate, 1e-9)
	// mean of daily averages (1 and 3), not the weighted 2.5
	assert.InDelta(t, 2.0, stats.AverageResponseTime, 1e-9)
}

func TestDeleteUserCascade(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	doomed := newTestUser(t, store, "doomed@example.com")
	kept := newTestUser(t, store, "kept@example.com")

	for _, owner := range []*models.User{doomed, kept} {
		require.NoError(t, store.SaveCode(ctx, &models.GeneratedCode{
			UserID: owner.ID, ModelName: "gemma-2b", TaskType: models.TaskGenerate, Language: "Go",
		}))
		require.NoError(t, store.CreateReview(ctx, &models.Review{
			UserID: owner.ID, Rating: 5, Title: "Great", Comment: "Works",
			Category: "General Feedback", Status: models.ReviewPending,
		}))
		require.NoError(t, store.CompleteChallenge(ctx, &models.ChallengeCompletion{
			UserID: owner.ID, Date: "2024-05-01",
		}))
	}

	require.NoError(t, store.DeleteUserCascade(ctx, doomed.ID))

	codes, err := store.ListCodes(ctx, CodeFilter{UserID: doomed.ID})
	require.NoError(t, err)
	assert.Empty(t, codes)
	reviews, err := store.ListReviews(ctx, ReviewFilter{UserID: doomed.ID})
	require.NoError(t, err)
	assert.Empty(t, reviews)
	completions, err := store.ListCompletions(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, completions)
	_, err = store.GetUserByID(ctx, doomed.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	codes, err = store.ListCodes(ctx, CodeFilter{UserID: kept.ID})
	require.NoError(t, err)
	assert.Len(t, codes, 1)
}

func TestVoteHelpfulOncePerUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	review := &models.Review{
		UserID: primitive.NewObjectID(), Rating: 4, Title: "Nice", Comment: "Good",
		Category: "Feature Request", Status: models.ReviewApproved,
	}
	require.NoError(t, store.CreateReview(ctx, review))
	voter := primitive.NewObjectID()

	require.NoError(t, store.VoteHelpful(ctx, review.ID, voter))
	assert.ErrorIs(t, store.VoteHelpful(ctx, review.ID, voter), ErrAlreadyVoted)
	require.NoError(t, store.VoteHelpful(ctx, review.ID, primitive.NewObjectID()))
	assert.ErrorIs(t, store.VoteHelpful(ctx, primitive.NewObjectID(), voter), ErrNotFound)

	got, err := store.GetReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.HelpfulCount)
}

func TestModerateReviewOnlyFromPending(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	admin := primitive.NewObjectID()
	review := &models.Review{
		UserID: primitive.NewObjectID(), Rating: 2, Title: "Bug", Comment: "Crash",
		Category: "Bug Report", Status: models.ReviewPending,
	}
	require.NoError(t, store.CreateReview(ctx, review))

	assert.ErrorIs(t, store.ModerateReview(ctx, review.ID, models.ReviewPending, admin, "", time.Now()), ErrInvalidTransition)
	require.NoError(t, store.ModerateReview(ctx, review.ID, models.ReviewRejected, admin, "spam", time.Now()))
	assert.ErrorIs(t, store.ModerateReview(ctx, review.ID, models.ReviewApproved, admin, "", time.Now()), ErrInvalidTransition)

	// responding never changes status
	require.NoError(t, store.RespondToReview(ctx, review.ID, "Thanks", admin, time.Now()))
	got, err := store.GetReview(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, got.Status)
	assert.Equal(t, "spam", got.RejectionReason)
	assert.Equal(t, "Thanks", got.AdminResponse)
	assert.NotNil(t, got.ModeratedAt)
}

func TestRecordLoginKeepsLastTen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := newTestUser(t, store, "ada@example.com")
	start := time.Now()

	for i := 0; i < 12; i++ {
		require.NoError(t, store.RecordLogin(ctx, user.ID, models.LoginRecord{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			IPAddress: fmt.Sprintf("xxx.xxx.0.%d", i),
		}))
	}

	got, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.LoginHistory, models.MaxLoginHistory)
	assert.Equal(t, "xxx.xxx.0.2", got.LoginHistory[0].IPAddress)
	assert.Equal(t, "xxx.xxx.0.11", got.LoginHistory[9].IPAddress)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(start.Add(11*time.Minute)))
}

func TestSaveDailyChallengeKeepsFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.SaveDailyChallenge(ctx, &models.DailyChallenge{
		Date: "2024-05-01", Difficulty: "Easy", Topic: "Arrays", Language: "Python", Description: "first",
	})
	require.NoError(t, err)
	second, err := store.SaveDailyChallenge(ctx, &models.DailyChallenge{
		Date: "2024-05-01", Difficulty: "Hard", Topic: "Strings", Language: "Java", Description: "second",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "first", second.Description)
}

func TestCompleteChallengeRejectsDuplicateDay(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := primitive.NewObjectID()

	require.NoError(t, store.CompleteChallenge(ctx, &models.ChallengeCompletion{UserID: user, Date: "2024-05-01"}))
	assert.ErrorIs(t, store.CompleteChallenge(ctx, &models.ChallengeCompletion{UserID: user, Date: "2024-05-01"}), ErrDuplicate)
}

func TestListCodesFiltersAndSorts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := primitive.NewObjectID()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	entries := []struct {
		model, lang string
	}{{"gemma-2b", "Python"}, {"phi-2", "Go"}, {"gemma-2b", "Go"}}
	for i, e := range entries {
		require.NoError(t, store.SaveCode(ctx, &models.GeneratedCode{
			UserID: user, ModelName: e.model, TaskType: models.TaskGenerate,
			Language: e.lang, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	newest, err := store.ListCodes(ctx, CodeFilter{UserID: user})
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, "Go", newest[0].Language)
	assert.Equal(t, "gemma-2b", newest[0].ModelName)

	oldestGo, err := store.ListCodes(ctx, CodeFilter{UserID: user, Languages: []string{"Go"}, SortOldest: true})
	require.NoError(t, err)
	require.Len(t, oldestGo, 2)
	assert.Equal(t, "phi-2", oldestGo[0].ModelName)

	stats, err := store.CodeStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalCodes)
	assert.Equal(t, "gemma-2b", stats.FavoriteModel)
	assert.Equal(t, "Go", stats.FavoriteLanguage)
}

func TestLeaderboardAggregations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveCode(ctx, &models.GeneratedCode{UserID: alice, ModelName: "gemma-2b", TaskType: models.TaskGenerate, Language: "Go"}))
	}
	require.NoError(t, store.SaveCode(ctx, &models.GeneratedCode{UserID: bob, ModelName: "phi-2", TaskType: models.TaskGenerate, Language: "Go"}))

	top, err := store.TopCoders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, alice, top[0].UserID)
	assert.Equal(t, int64(3), top[0].Count)

	for i := 0; i < 3; i++ {
		review := &models.Review{UserID: bob, Rating: 5, Title: "t", Comment: "c", Category: "General Feedback", Status: models.ReviewApproved, HelpfulCount: i + 1}
		require.NoError(t, store.CreateReview(ctx, review))
	}
	require.NoError(t, store.CreateReview(ctx, &models.Review{UserID: bob, Rating: 1, Title: "t", Comment: "c", Category: "Bug Report", Status: models.ReviewPending, HelpfulCount: 9}))

	contributors, err := store.TopContributors(ctx)
	require.NoError(t, err)
	require.Len(t, contributors, 1)
	assert.Equal(t, int64(3), contributors[0].ApprovedReviews)
	assert.Equal(t, int64(6), contributors[0].HelpfulVotes)

	usage, err := store.ModelUsageByUser(ctx)
	require.NoError(t, err)
	assert.Len(t, usage, 2)
}
