package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"codegalaxy/db"
	"codegalaxy/internal/ratelimit"
	"codegalaxy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newCodeService(t *testing.T, gen TextGenerator, limit int) (*CodeService, *db.MemoryStore, *fakeFeed, *models.User) {
	t.Helper()
	store := db.NewMemoryStore()
	feed := &fakeFeed{}
	svc := NewCodeService(store, newGateway(gen, store), ratelimit.NewMemoryLimiter(), limit, feed, nil)
	return svc, store, feed, createUser(t, store, "Ada", "ada@example.com")
}

func TestGenerateSavesWhenAsked(t *testing.T) {
	svc, store, feed, user := newCodeService(t, replyWith("fmt.Println(1)"), 10)
	ctx := context.Background()
	temp := 0.4

	res, err := svc.Generate(ctx, actorFor(user), GenerateInput{
		Model: ModelGemma, Language: "Go", Prompt: "  print one ", Temperature: &temp, Save: true,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, []string{models.ActivityCodeGenerated}, feed.types())

	codes := svc.History(ctx, user.ID, HistoryQuery{})
	require.Len(t, codes, 1)
	assert.Equal(t, "print one", codes[0].Prompt)
	assert.Equal(t, 0.4, codes[0].Metadata.Temperature)

	_, err = svc.Generate(ctx, actorFor(user), GenerateInput{Model: ModelGemma, Language: "Go", Prompt: "again"})
	require.NoError(t, err)
	n, err := store.CountCodes(ctx, db.CodeFilter{UserID: user.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGenerateValidation(t *testing.T) {
	gen := replyWith("x")
	svc, _, _, user := newCodeService(t, gen, 10)
	ctx := context.Background()

	_, err := svc.Generate(ctx, actorFor(user), GenerateInput{Model: ModelGemma, Language: "Go", Prompt: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Generate(ctx, actorFor(user), GenerateInput{Model: "llama", Language: "Go", Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Empty(t, gen.calls())
}

func TestGenerateEnforcesHourlyQuota(t *testing.T) {
	svc, _, _, user := newCodeService(t, replyWith("x"), 2)
	ctx := context.Background()
	in := GenerateInput{Model: ModelGemma, Language: "Go", Prompt: "x"}

	for i := 0; i < 2; i++ {
		_, err := svc.Generate(ctx, actorFor(user), in)
		require.NoError(t, err)
	}
	_, err := svc.Generate(ctx, actorFor(user), in)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.False(t, rl.Result.Allowed)
	assert.True(t, rl.Result.ResetAt.After(time.Now()))

	// quotas are per action
	_, err = svc.Explain(ctx, actorFor(user), ExplainInput{Code: "x := 1", Language: "Go"})
	assert.NoError(t, err)
}

func TestDetectErrorsThroughService(t *testing.T) {
	gen := replyWith("Possible issue: index out of range")
	svc, _, _, user := newCodeService(t, gen, 10)
	ctx := context.Background()

	_, err := svc.DetectErrors(ctx, actorFor(user), DetectInput{Language: "Go", Code: " "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, gen.calls())

	report, err := svc.DetectErrors(ctx, actorFor(user), DetectInput{Language: "Go", Code: "xs[3]"})
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, []string{"Possible issue: index out of range"}, report.Errors)
}

func TestBatchGenerateCountsEveryPrompt(t *testing.T) {
	gen := replyWith("x := 1")
	svc, _, feed, user := newCodeService(t, gen, 3)
	ctx := context.Background()

	_, err := svc.BatchGenerate(ctx, actorFor(user), BatchInput{Model: ModelGemma, Language: "Go", Prompts: []string{" ", ""}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	tooMany := strings.Split(strings.Repeat("p,", MaxBatchPrompts)+"p", ",")
	_, err = svc.BatchGenerate(ctx, actorFor(user), BatchInput{Model: ModelGemma, Language: "Go", Prompts: tooMany})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"At most 10 prompts per batch"}, verr.Errors)
	_, err = svc.BatchGenerate(ctx, actorFor(user), BatchInput{Model: "llama", Language: "Go", Prompts: []string{"a"}})
	assert.ErrorIs(t, err, ErrUnknownModel)

	results, err := svc.BatchGenerate(ctx, actorFor(user), BatchInput{Model: ModelGemma, Language: "Go", Prompts: []string{"a", " ", "b"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Len(t, gen.calls(), 2)
	assert.Equal(t, []string{models.ActivityCodeGenerated}, feed.types())

	_, err = svc.BatchGenerate(ctx, actorFor(user), BatchInput{Model: ModelGemma, Language: "Go", Prompts: []string{"c", "d"}})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Len(t, gen.calls(), 2)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

func TestQuotaFailsOpen(t *testing.T) {
	store := db.NewMemoryStore()
	svc := NewCodeService(store, newGateway(replyWith("x"), store), brokenLimiter{}, 1, nil, nil)
	user := createUser(t, store, "Ada", "ada@example.com")

	res, err := svc.Generate(context.Background(), actorFor(user), GenerateInput{Model: ModelGemma, Language: "Go", Prompt: "x"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestImproveDefaultsFocus(t *testing.T) {
	gen := replyWith("y = 2\nChanges: renamed")
	svc, _, _, user := newCodeService(t, gen, 10)

	res, err := svc.Improve(context.Background(), actorFor(user), ImproveInput{Code: "x=2", Language: "Python", Save: true})
	require.NoError(t, err)
	assert.Equal(t, "renamed", res.Notes)
	assert.Contains(t, gen.calls()[0].Prompt, "readability")

	codes := svc.History(context.Background(), user.ID, HistoryQuery{})
	require.Len(t, codes, 1)
	assert.Equal(t, models.TaskImprove, codes[0].TaskType)
	assert.Equal(t, ModelGemma, codes[0].ModelName)
}

func TestSaveAndDelete(t *testing.T) {
	svc, _, _, user := newCodeService(t, nil, 10)
	ctx := context.Background()

	_, err := svc.Save(ctx, actorFor(user), SaveCodeInput{Model: ModelPhi, Language: "Go", Prompt: "p", Output: " "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	code, err := svc.Save(ctx, actorFor(user), SaveCodeInput{Model: ModelPhi, Language: "Go", Prompt: "p", Output: "x := 1"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskGenerate, code.TaskType)

	other := primitive.NewObjectID()
	assert.ErrorIs(t, svc.Delete(ctx, other, code.ID), db.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, user.ID, code.ID))
	assert.Empty(t, svc.History(ctx, user.ID, HistoryQuery{}))
}

func TestHistoryFilters(t *testing.T) {
	svc, store, _, user := newCodeService(t, nil, 10)
	ctx := context.Background()
	saveCode(t, store, user, ModelGemma, "Python", "binary search")
	saveCode(t, store, user, ModelPhi, "Go", "http server")

	assert.Len(t, svc.History(ctx, user.ID, HistoryQuery{Search: "SEARCH"}), 1)
	assert.Len(t, svc.History(ctx, user.ID, HistoryQuery{Models: []string{ModelPhi}}), 1)
	assert.Len(t, svc.History(ctx, user.ID, HistoryQuery{Languages: []string{"Rust"}}), 0)
	assert.Len(t, svc.History(ctx, user.ID, HistoryQuery{}), 2)
}

func TestExport(t *testing.T) {
	svc, store, _, user := newCodeService(t, nil, 10)
	ctx := context.Background()
	saveCode(t, store, user, ModelGemma, "Python", "binary search")

	out, err := svc.Export(ctx, user.ID, "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "prompt,language,model_name,created_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "binary search,Python,gemma-2b,"))

	out, err = svc.Export(ctx, user.ID, "txt")
	require.NoError(t, err)
	assert.Contains(t, out, "binary search")

	_, err = svc.Export(ctx, user.ID, "pdf")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestHomeDefaults(t *testing.T) {
	svc, store, _, user := newCodeService(t, nil, 10)
	ctx := context.Background()

	home := svc.Home(ctx, user)
	assert.Equal(t, "N/A", home.Stats.FavoriteModel)
	assert.Empty(t, home.RecentCodes)

	saveCode(t, store, user, ModelPhi, "Go", "a")
	saveCode(t, store, user, ModelPhi, "Go", "b")
	home = svc.Home(ctx, user)
	assert.EqualValues(t, 2, home.Stats.TotalCodes)
	assert.Equal(t, ModelPhi, home.Stats.FavoriteModel)
	assert.Len(t, home.RecentCodes, 2)
}
