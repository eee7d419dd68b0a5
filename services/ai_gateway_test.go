package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeAccountsSuccess(t *testing.T) {
	store := db.NewMemoryStore()
	gen := replyWith("def add(a, b):\n    return a + b")
	g := newGateway(gen, store)

	res := g.GenerateCode(context.Background(), ModelPhi, "Python", "add two numbers", 0.3, 50)

	require.True(t, res.Success)
	assert.Equal(t, 7, res.Tokens)
	require.Len(t, gen.calls(), 1)
	req := gen.calls()[0]
	assert.Equal(t, "microsoft/phi-2", req.Endpoint)
	assert.Equal(t, 0.3, req.Temperature)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Contains(t, req.Prompt, "add two numbers")

	row, ok := store.UsageRow(ModelPhi, models.DayKey(time.Now()))
	require.True(t, ok)
	assert.EqualValues(t, 1, row.TotalUses)
	assert.EqualValues(t, 1, row.SuccessfulUses)
	assert.EqualValues(t, 1, row.Languages["Python"])
}

func TestGenerateCodeRejectsUnknownModel(t *testing.T) {
	store := db.NewMemoryStore()
	gen := replyWith("ignored")
	g := newGateway(gen, store)

	res := g.GenerateCode(context.Background(), "gpt-9", "Go", "anything", 0.7, 500)

	assert.False(t, res.Success)
	assert.Equal(t, "Invalid model: gpt-9", res.Error)
	assert.Empty(t, gen.calls())
	_, ok := store.UsageRow("gpt-9", models.DayKey(time.Now()))
	assert.False(t, ok)
}

func TestGenerateCodeFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", fmt.Errorf("hf: %w", ErrRateLimited), MsgRateLimited},
		{"rate limit text", errors.New("Rate limit exceeded for model"), MsgRateLimited},
		{"unavailable", fmt.Errorf("hf: %w", ErrUnavailable), MsgUnavailable},
		{"deadline", context.DeadlineExceeded, MsgUnavailable},
		{"other", errors.New("boom"), MsgUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			g := newGateway(failWith(tt.err), store)

			res := g.GenerateCode(context.Background(), ModelGemma, "Go", "x", 0.7, 500)

			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Error)
			row, ok := store.UsageRow(ModelGemma, models.DayKey(time.Now()))
			require.True(t, ok)
			assert.EqualValues(t, 1, row.FailedUses)
		})
	}
}

func TestGenerateCodeTimesOut(t *testing.T) {
	gen := &fakeGenerator{reply: func(ctx context.Context, _ GenerationRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g := NewGateway(gen, ModelEndpoints("huggingface", nil), nil, 20*time.Millisecond, nil)

	res := g.GenerateCode(context.Background(), ModelGemma, "Go", "x", 0.7, 500)

	assert.False(t, res.Success)
	assert.Equal(t, MsgUnavailable, res.Error)
}

func TestExplainFallsBackToGemma(t *testing.T) {
	store := db.NewMemoryStore()
	gen := replyWith("It prints hello.")
	g := newGateway(gen, store)

	res := g.ExplainCode(context.Background(), "print('hello')", "Python", "unknown")

	require.True(t, res.Success)
	assert.Equal(t, "It prints hello.", res.Explanation)
	assert.Equal(t, "google/gemma-2b-it", gen.calls()[0].Endpoint)
	_, ok := store.UsageRow(ModelGemma, models.DayKey(time.Now()))
	assert.True(t, ok)
}

func TestImproveSplitsNotes(t *testing.T) {
	g := newGateway(replyWith("def f():\n    return 1\nChanges: removed dead code"), db.NewMemoryStore())

	res := g.ImproveCode(context.Background(), "def f(): pass", "Python", "performance", ModelGemma)

	require.True(t, res.Success)
	assert.Equal(t, "def f():\n    return 1", res.ImprovedCode)
	assert.Equal(t, "removed dead code", res.Notes)
}

func TestImproveFailureUsesTaskMessage(t *testing.T) {
	g := newGateway(failWith(errors.New("bad gateway")), db.NewMemoryStore())

	res := g.ImproveCode(context.Background(), "x", "Python", "readability", ModelGemma)

	assert.False(t, res.Success)
	assert.Equal(t, msgImproveFailed, res.Error)
}

func TestGenerateChallengeParsesSections(t *testing.T) {
	text := "DESCRIPTION: Reverse a string.\nHINT: Use two pointers.\nSOLUTION: s[::-1]"
	gen := replyWith(text)
	g := newGateway(gen, db.NewMemoryStore())

	res := g.GenerateChallenge(context.Background(), "Python", "Strings", "Easy")

	require.True(t, res.Success)
	assert.Equal(t, "Reverse a string.", res.Description)
	assert.Equal(t, "Use two pointers.", res.Hint)
	assert.Equal(t, "s[::-1]", res.Solution)
	assert.Equal(t, 0.8, gen.calls()[0].Temperature)
}

func TestParseChallengeWithoutSections(t *testing.T) {
	description, hint, solution := parseChallenge("Write FizzBuzz.")
	assert.Equal(t, "Write FizzBuzz.", description)
	assert.Equal(t, fallbackHint, hint)
	assert.Equal(t, fallbackSolution, solution)
}

func TestSplitImprovementDefaults(t *testing.T) {
	code, notes := splitImprovement("  x = 1  ")
	assert.Equal(t, "x = 1", code)
	assert.Equal(t, defaultImproveNotes, notes)

	code, notes = splitImprovement("x = 1\nExplanation: renamed")
	assert.Equal(t, "x = 1", code)
	assert.Equal(t, "renamed", notes)

	code, notes = splitImprovement("x = 1\nChanges: renamed\nChanges: extra")
	assert.Equal(t, "x = 1", code)
	assert.Equal(t, "renamed", notes)
}

func TestTestModelIsNotAccounted(t *testing.T) {
	store := db.NewMemoryStore()
	g := newGateway(replyWith("Hello"), store)

	res := g.TestModel(context.Background(), ModelCodeBERT)

	assert.True(t, res.Connected)
	assert.Equal(t, "Successfully connected to codebert", res.Message)
	_, ok := store.UsageRow(ModelCodeBERT, models.DayKey(time.Now()))
	assert.False(t, ok)
}

func TestDetectErrors(t *testing.T) {
	g := newGateway(replyWith("Possible issue: index out of range"), db.NewMemoryStore())
	report := g.DetectErrors(context.Background(), "a[10]", "Python")
	require.True(t, report.Success)
	assert.Equal(t, []string{"Possible issue: index out of range"}, report.Errors)

	g = newGateway(replyWith("Looks fine"), db.NewMemoryStore())
	report = g.DetectErrors(context.Background(), "a[0]", "Python")
	assert.Equal(t, []string{"No obvious errors detected."}, report.Errors)

	g = newGateway(failWith(errors.New("down")), db.NewMemoryStore())
	report = g.DetectErrors(context.Background(), "a[0]", "Python")
	assert.False(t, report.Success)
	assert.Equal(t, "Error detection failed: "+MsgUnavailable, report.Error)
}

func TestBatchGenerateKeepsOrder(t *testing.T) {
	gen := &fakeGenerator{reply: func(_ context.Context, req GenerationRequest) (string, error) {
		return req.Prompt[len(req.Prompt)-1:], nil
	}}
	g := newGateway(gen, db.NewMemoryStore())

	results := g.BatchGenerate(context.Background(), ModelGemma, "Go", []string{"a", "b"})

	require.Len(t, results, 2)
	assert.Len(t, gen.calls(), 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
}

func TestModelEndpointsOverrides(t *testing.T) {
	endpoints := ModelEndpoints("gemini", map[string]string{ModelPhi: "gemini-2.0-flash", "other": "x"})
	assert.Equal(t, defaultGeminiModel, endpoints[ModelGemma])
	assert.Equal(t, "gemini-2.0-flash", endpoints[ModelPhi])
	assert.NotContains(t, endpoints, "other")

	g := NewGateway(nil, endpoints, nil, 0, nil)
	assert.Equal(t, []string{ModelCodeBERT, ModelGemma, ModelPhi}, g.Models())
	assert.Equal(t, "Unknown", g.ModelInfo("nope").Name)
}

func TestClamps(t *testing.T) {
	assert.Equal(t, DefaultTemperature, clampTemperature(0))
	assert.Equal(t, 1.0, clampTemperature(3))
	assert.Equal(t, 0.2, clampTemperature(0.2))
	assert.Equal(t, DefaultMaxTokens, clampTokens(0))
	assert.Equal(t, 1000, clampTokens(5000))
	assert.Equal(t, 250, clampTokens(250))
}
