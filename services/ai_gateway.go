package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"codegalaxy/models"

	"go.uber.org/zap"
)

const (
	ModelGemma    = "gemma-2b"
	ModelPhi      = "phi-2"
	ModelCodeBERT = "codebert"

	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500

	MsgRateLimited     = "Rate limit reached. Please wait a moment and try again."
	MsgUnavailable     = "Model temporarily unavailable. Please try another model."
	msgExplainFailed   = "Failed to explain code. Please try again."
	msgImproveFailed   = "Failed to improve code. Please try again."
	msgChallengeFailed = "Failed to generate challenge. Please try again."
)

// huggingFaceEndpoints maps the public model names onto Inference API repos.
var huggingFaceEndpoints = map[string]string{
	ModelGemma:    "google/gemma-2b-it",
	ModelPhi:      "microsoft/phi-2",
	ModelCodeBERT: "microsoft/codebert-base",
}

// ModelEndpoints resolves the provider endpoint for every supported model.
// Entries in overrides win over the provider defaults.
func ModelEndpoints(provider string, overrides map[string]string) map[string]string {
	endpoints := make(map[string]string, len(huggingFaceEndpoints))
	for name, repo := range huggingFaceEndpoints {
		if provider == "huggingface" {
			endpoints[name] = repo
		} else {
			endpoints[name] = defaultGeminiModel
		}
	}
	for name, endpoint := range overrides {
		if _, ok := endpoints[name]; ok && endpoint != "" {
			endpoints[name] = endpoint
		}
	}
	return endpoints
}

// UsageRecorder receives one sample per accounted gateway call.
type UsageRecorder interface {
	RecordModelUsage(ctx context.Context, sample models.UsageSample) error
}

type CodeResult struct {
	Success bool    `json:"success"`
	Code    string  `json:"code"`
	Tokens  int     `json:"tokens"`
	Time    float64 `json:"time"`
	Error   string  `json:"error"`
}

type ExplainResult struct {
	Success     bool    `json:"success"`
	Explanation string  `json:"explanation"`
	Time        float64 `json:"time"`
	Error       string  `json:"error"`
}

type ImproveResult struct {
	Success      bool    `json:"success"`
	ImprovedCode string  `json:"improvedCode"`
	Notes        string  `json:"notes"`
	Time         float64 `json:"time"`
	Error        string  `json:"error"`
}

type ChallengeResult struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Hint        string `json:"hint"`
	Solution    string `json:"solution"`
	Error       string `json:"error"`
}

type ConnectionResult struct {
	Connected    bool    `json:"connected"`
	Message      string  `json:"message"`
	ResponseTime float64 `json:"responseTime"`
}

type ErrorReport struct {
	Success     bool     `json:"success"`
	Errors      []string `json:"errors"`
	Suggestions []string `json:"suggestions"`
	Error       string   `json:"error,omitempty"`
}

// ModelDetails is the catalogue entry shown next to the model picker
type ModelDetails struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"fullName,omitempty"`
	Description string   `json:"description"`
	Strengths   []string `json:"strengths"`
	BestFor     []string `json:"bestFor"`
}

var modelCatalogue = map[string]ModelDetails{
	ModelGemma: {
		ID:          ModelGemma,
		Name:        "Gemma-2B",
		FullName:    "Google Gemma 2B Instruct",
		Description: "Best for general-purpose code generation. Produces clean, well-structured code.",
		Strengths:   []string{"General purpose", "Clear code", "Good documentation"},
		BestFor:     []string{"Web development", "Scripts", "General programming"},
	},
	ModelPhi: {
		ID:          ModelPhi,
		Name:        "Phi-2",
		FullName:    "Microsoft Phi-2",
		Description: "Fast and efficient, great for quick tasks and prototyping.",
		Strengths:   []string{"Speed", "Efficiency", "Quick responses"},
		BestFor:     []string{"Prototyping", "Simple scripts", "Fast iterations"},
	},
	ModelCodeBERT: {
		ID:          ModelCodeBERT,
		Name:        "CodeBERT",
		FullName:    "Microsoft CodeBERT",
		Description: "Specialized in code analysis and understanding. Excellent for explanations.",
		Strengths:   []string{"Code analysis", "Understanding", "Documentation"},
		BestFor:     []string{"Code review", "Explanation", "Documentation"},
	},
}

// Gateway turns user tasks into prompts for a TextGenerator and accounts
// every call against the usage store.
type Gateway struct {
	gen        TextGenerator
	endpoints  map[string]string
	usage      UsageRecorder
	log        *zap.Logger
	timeout    time.Duration
	batchPause time.Duration
	now        func() time.Time
}

func NewGateway(gen TextGenerator, endpoints map[string]string, usage UsageRecorder, timeout time.Duration, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		gen:        gen,
		endpoints:  endpoints,
		usage:      usage,
		log:        log,
		timeout:    timeout,
		batchPause: time.Second,
		now:        time.Now,
	}
}

// Models returns the supported model names in a stable order.
func (g *Gateway) Models() []string {
	names := make([]string, 0, len(g.endpoints))
	for name := range g.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Gateway) IsSupported(model string) bool {
	_, ok := g.endpoints[model]
	return ok
}

// ModelInfo returns the catalogue entry for model.
func (g *Gateway) ModelInfo(model string) ModelDetails {
	if info, ok := modelCatalogue[model]; ok {
		return info
	}
	return ModelDetails{
		ID:          model,
		Name:        "Unknown",
		Description: "Model information not available",
		Strengths:   []string{},
		BestFor:     []string{},
	}
}

// GenerateCode asks model for code solving prompt. Unknown models are
// rejected before any provider call or accounting.
func (g *Gateway) GenerateCode(ctx context.Context, model, language, prompt string, temperature float64, maxTokens int) CodeResult {
	endpoint, ok := g.endpoints[model]
	if !ok {
		return CodeResult{Error: fmt.Sprintf("Invalid model: %s", model)}
	}

	text, elapsed, err := g.call(ctx, model, language, GenerationRequest{
		Endpoint:    endpoint,
		Prompt:      codePrompt(language, prompt),
		Temperature: clampTemperature(temperature),
		MaxTokens:   clampTokens(maxTokens),
	})
	if err != nil {
		g.log.Warn("code generation failed", zap.String("model", model), zap.Error(err))
		return CodeResult{Time: elapsed, Error: failureMessage(err, MsgUnavailable)}
	}
	return CodeResult{
		Success: true,
		Code:    text,
		Tokens:  estimateTokens(text),
		Time:    elapsed,
	}
}

func (g *Gateway) ExplainCode(ctx context.Context, code, language, model string) ExplainResult {
	model = g.resolve(model)
	text, elapsed, err := g.call(ctx, model, language, GenerationRequest{
		Endpoint:    g.endpoints[model],
		Prompt:      explainPrompt(code, language),
		Temperature: DefaultTemperature,
		MaxTokens:   300,
	})
	if err != nil {
		g.log.Warn("code explanation failed", zap.String("model", model), zap.Error(err))
		return ExplainResult{Time: elapsed, Error: failureMessage(err, msgExplainFailed)}
	}
	return ExplainResult{Success: true, Explanation: text, Time: elapsed}
}

func (g *Gateway) ImproveCode(ctx context.Context, code, language, focus, model string) ImproveResult {
	model = g.resolve(model)
	text, elapsed, err := g.call(ctx, model, language, GenerationRequest{
		Endpoint:    g.endpoints[model],
		Prompt:      improvePrompt(code, language, focus),
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	})
	if err != nil {
		g.log.Warn("code improvement failed", zap.String("model", model), zap.Error(err))
		return ImproveResult{Time: elapsed, Error: failureMessage(err, msgImproveFailed)}
	}
	improved, notes := splitImprovement(text)
	return ImproveResult{Success: true, ImprovedCode: improved, Notes: notes, Time: elapsed}
}

// GenerateChallenge always uses gemma-2b.
func (g *Gateway) GenerateChallenge(ctx context.Context, language, topic, difficulty string) ChallengeResult {
	text, _, err := g.call(ctx, ModelGemma, language, GenerationRequest{
		Endpoint:    g.endpoints[ModelGemma],
		Prompt:      challengePrompt(language, topic, difficulty),
		Temperature: 0.8,
		MaxTokens:   600,
	})
	if err != nil {
		g.log.Warn("challenge generation failed", zap.Error(err))
		return ChallengeResult{Error: failureMessage(err, msgChallengeFailed)}
	}
	description, hint, solution := parseChallenge(text)
	return ChallengeResult{Success: true, Description: description, Hint: hint, Solution: solution}
}

// TestModel sends a short test prompt. Test calls are not accounted.
func (g *Gateway) TestModel(ctx context.Context, model string) ConnectionResult {
	endpoint, ok := g.endpoints[model]
	if !ok {
		return ConnectionResult{Message: fmt.Sprintf("Invalid model: %s", model)}
	}

	start := g.now()
	_, err := g.generate(ctx, GenerationRequest{
		Endpoint:    endpoint,
		Prompt:      testPrompt,
		Temperature: DefaultTemperature,
		MaxTokens:   50,
	})
	if err != nil {
		return ConnectionResult{Message: fmt.Sprintf("Failed to connect: %v", err)}
	}
	return ConnectionResult{
		Connected:    true,
		Message:      fmt.Sprintf("Successfully connected to %s", model),
		ResponseTime: g.now().Sub(start).Seconds(),
	}
}

// DetectErrors runs a codebert analysis over code.
func (g *Gateway) DetectErrors(ctx context.Context, code, language string) ErrorReport {
	analysis, _, err := g.call(ctx, ModelCodeBERT, language, GenerationRequest{
		Endpoint:    g.endpoints[ModelCodeBERT],
		Prompt:      detectErrorsPrompt(code, language),
		Temperature: 0.5,
		MaxTokens:   200,
	})
	if err != nil {
		return ErrorReport{
			Errors:      []string{},
			Suggestions: []string{},
			Error:       fmt.Sprintf("Error detection failed: %s", failureMessage(err, MsgUnavailable)),
		}
	}

	errs := []string{"No obvious errors detected."}
	if mentionsProblem(analysis) {
		errs = []string{analysis}
	}
	return ErrorReport{
		Success:     true,
		Errors:      errs,
		Suggestions: []string{"Consider reviewing the code for the issues mentioned above."},
	}
}

// BatchGenerate runs prompts one after another, pausing between calls.
func (g *Gateway) BatchGenerate(ctx context.Context, model, language string, prompts []string) []CodeResult {
	results := make([]CodeResult, 0, len(prompts))
	for i, prompt := range prompts {
		if i > 0 && g.batchPause > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(g.batchPause):
			}
		}
		results = append(results, g.GenerateCode(ctx, model, language, prompt, DefaultTemperature, DefaultMaxTokens))
	}
	return results
}

func (g *Gateway) resolve(model string) string {
	if g.IsSupported(model) {
		return model
	}
	return ModelGemma
}

// call performs one accounted generation and returns the elapsed seconds.
func (g *Gateway) call(ctx context.Context, model, language string, req GenerationRequest) (string, float64, error) {
	start := g.now()
	text, err := g.generate(ctx, req)
	elapsed := g.now().Sub(start).Seconds()
	g.account(ctx, model, language, elapsed, err == nil)
	return text, elapsed, err
}

func (g *Gateway) generate(ctx context.Context, req GenerationRequest) (string, error) {
	if g.gen == nil {
		return "", fmt.Errorf("%w: no text generator configured", ErrUnavailable)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.gen.Generate(ctx, req)
}

// account never fails the caller; a lost sample is only logged.
func (g *Gateway) account(ctx context.Context, model, language string, elapsed float64, success bool) {
	if g.usage == nil {
		return
	}
	sample := models.UsageSample{
		ModelName:    model,
		Language:     language,
		ResponseTime: elapsed,
		Success:      success,
		At:           g.now(),
	}
	if err := g.usage.RecordModelUsage(context.WithoutCancel(ctx), sample); err != nil {
		g.log.Error("failed to record model usage", zap.String("model", model), zap.Error(err))
	}
}

// failureMessage maps a provider error onto the text shown to users.
func failureMessage(err error, fallback string) string {
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, ErrRateLimited), strings.Contains(lower, "rate limit"):
		return MsgRateLimited
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded),
		isTimeout(err), strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return MsgUnavailable
	}
	return fallback
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func clampTemperature(t float64) float64 {
	switch {
	case t <= 0:
		return DefaultTemperature
	case t > 1:
		return 1
	}
	return t
}

func clampTokens(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxTokens
	case n < 100:
		return 100
	case n > 1000:
		return 1000
	}
	return n
}
