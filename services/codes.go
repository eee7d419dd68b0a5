package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codegalaxy/db"
	"codegalaxy/internal/ratelimit"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HistoryExportFields are the columns of a history export
var HistoryExportFields = []string{"prompt", "language", "model_name", "created_at"}

// RateLimitError is returned when a user exceeded the hourly quota.
type RateLimitError struct {
	Result ratelimit.Result
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.Result.ResetAt.Format(time.RFC3339))
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID     primitive.ObjectID
	Name   string
	Email  string
	Client ClientInfo
}

type GenerateInput struct {
	Model       string   `json:"model"`
	Language    string   `json:"language"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"maxTokens"`
	Save        bool     `json:"save"`
}

type ExplainInput struct {
	Model    string `json:"model"`
	Language string `json:"language"`
	Code     string `json:"code"`
	Save     bool   `json:"save"`
}

type ImproveInput struct {
	Model    string `json:"model"`
	Language string `json:"language"`
	Code     string `json:"code"`
	Focus    string `json:"focus"`
	Save     bool   `json:"save"`
}

type DetectInput struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type BatchInput struct {
	Model    string   `json:"model"`
	Language string   `json:"language"`
	Prompts  []string `json:"prompts"`
}

// MaxBatchPrompts caps one batch generation request.
const MaxBatchPrompts = 10

type SaveCodeInput struct {
	Model        string  `json:"model"`
	TaskType     string  `json:"taskType"`
	Language     string  `json:"language"`
	Prompt       string  `json:"prompt"`
	Output       string  `json:"output"`
	Tokens       int     `json:"tokens"`
	ResponseTime float64 `json:"responseTime"`
}

type HistoryQuery struct {
	Search    string
	Models    []string
	Languages []string
	Oldest    bool
	Limit     int
}

// HomeData backs the dashboard landing page
type HomeData struct {
	Stats       models.CodeStats       `json:"stats"`
	MemberSince string                 `json:"memberSince"`
	RecentCodes []models.GeneratedCode `json:"recentCodes"`
}

// CodeService runs the AI tasks for users and manages their history.
type CodeService struct {
	store        db.Store
	gateway      *Gateway
	limiter      ratelimit.Limiter
	limitPerHour int
	audit        auditor
	log          *zap.Logger
	now          func() time.Time
}

func NewCodeService(store db.Store, gateway *Gateway, limiter ratelimit.Limiter, limitPerHour int, feed ActivityPublisher, log *zap.Logger) *CodeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CodeService{
		store:        store,
		gateway:      gateway,
		limiter:      limiter,
		limitPerHour: limitPerHour,
		audit:        newAuditor(store, feed, log),
		log:          log,
		now:          time.Now,
	}
}

// checkQuota counts one action against the user's hourly window.
func (s *CodeService) checkQuota(ctx context.Context, userID primitive.ObjectID, action string) error {
	if s.limiter == nil || s.limitPerHour <= 0 {
		return nil
	}
	res, err := s.limiter.Allow(ctx, ratelimit.Key(userID.Hex(), action), s.limitPerHour, time.Hour)
	if err != nil {
		// an unavailable counter should not block generation
		s.log.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !res.Allowed {
		return &RateLimitError{Result: res}
	}
	return nil
}

func (s *CodeService) Generate(ctx context.Context, actor Actor, in GenerateInput) (CodeResult, error) {
	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return CodeResult{}, invalid("Please enter a description")
	}
	if in.Language == "" {
		return CodeResult{}, invalid("Please select a language")
	}
	if !s.gateway.IsSupported(in.Model) {
		return CodeResult{}, fmt.Errorf("%w: %s", ErrUnknownModel, in.Model)
	}
	if err := s.checkQuota(ctx, actor.ID, "generate"); err != nil {
		return CodeResult{}, err
	}

	temperature := DefaultTemperature
	if in.Temperature != nil {
		temperature = *in.Temperature
	}
	result := s.gateway.GenerateCode(ctx, in.Model, in.Language, in.Prompt, temperature, in.MaxTokens)
	if !result.Success {
		return result, nil
	}

	s.audit.publish(models.ActivityCodeGenerated, actor.ID, actor.Name,
		fmt.Sprintf("%s generated %s code", actor.Name, in.Language),
		map[string]interface{}{"model": in.Model, "language": in.Language})
	if in.Save {
		s.persist(ctx, actor.ID, SaveCodeInput{
			Model:        in.Model,
			TaskType:     models.TaskGenerate,
			Language:     in.Language,
			Prompt:       in.Prompt,
			Output:       result.Code,
			Tokens:       result.Tokens,
			ResponseTime: result.Time,
		}, temperature)
	}
	return result, nil
}

func (s *CodeService) Explain(ctx context.Context, actor Actor, in ExplainInput) (ExplainResult, error) {
	if strings.TrimSpace(in.Code) == "" {
		return ExplainResult{}, invalid("Please paste some code")
	}
	if err := s.checkQuota(ctx, actor.ID, "explain"); err != nil {
		return ExplainResult{}, err
	}
	result := s.gateway.ExplainCode(ctx, in.Code, in.Language, in.Model)
	if result.Success && in.Save {
		s.persist(ctx, actor.ID, SaveCodeInput{
			Model:        s.gateway.resolve(in.Model),
			TaskType:     models.TaskExplain,
			Language:     in.Language,
			Prompt:       in.Code,
			Output:       result.Explanation,
			ResponseTime: result.Time,
		}, DefaultTemperature)
	}
	return result, nil
}

func (s *CodeService) Improve(ctx context.Context, actor Actor, in ImproveInput) (ImproveResult, error) {
	if strings.TrimSpace(in.Code) == "" {
		return ImproveResult{}, invalid("Please paste some code")
	}
	if in.Focus == "" {
		in.Focus = "readability"
	}
	if err := s.checkQuota(ctx, actor.ID, "improve"); err != nil {
		return ImproveResult{}, err
	}
	result := s.gateway.ImproveCode(ctx, in.Code, in.Language, in.Focus, in.Model)
	if result.Success && in.Save {
		s.persist(ctx, actor.ID, SaveCodeInput{
			Model:        s.gateway.resolve(in.Model),
			TaskType:     models.TaskImprove,
			Language:     in.Language,
			Prompt:       in.Code,
			Output:       result.ImprovedCode,
			ResponseTime: result.Time,
		}, DefaultTemperature)
	}
	return result, nil
}

func (s *CodeService) DetectErrors(ctx context.Context, actor Actor, in DetectInput) (ErrorReport, error) {
	if strings.TrimSpace(in.Code) == "" {
		return ErrorReport{}, invalid("Please paste some code")
	}
	if err := s.checkQuota(ctx, actor.ID, "detect"); err != nil {
		return ErrorReport{}, err
	}
	return s.gateway.DetectErrors(ctx, in.Code, in.Language), nil
}

// BatchGenerate generates code for every prompt. Each prompt counts as one
// generation against the hourly quota.
func (s *CodeService) BatchGenerate(ctx context.Context, actor Actor, in BatchInput) ([]CodeResult, error) {
	prompts := make([]string, 0, len(in.Prompts))
	for _, p := range in.Prompts {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	if len(prompts) == 0 {
		return nil, invalid("Please enter at least one description")
	}
	if len(prompts) > MaxBatchPrompts {
		return nil, invalid(fmt.Sprintf("At most %d prompts per batch", MaxBatchPrompts))
	}
	if in.Language == "" {
		return nil, invalid("Please select a language")
	}
	if !s.gateway.IsSupported(in.Model) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.Model)
	}
	for range prompts {
		if err := s.checkQuota(ctx, actor.ID, "generate"); err != nil {
			return nil, err
		}
	}

	results := s.gateway.BatchGenerate(ctx, in.Model, in.Language, prompts)
	s.audit.publish(models.ActivityCodeGenerated, actor.ID, actor.Name,
		fmt.Sprintf("%s generated %d %s snippets", actor.Name, len(results), in.Language),
		map[string]interface{}{"model": in.Model, "language": in.Language, "batch": len(results)})
	return results, nil
}

// persist is the best-effort save behind the "save" flag of AI tasks.
func (s *CodeService) persist(ctx context.Context, userID primitive.ObjectID, in SaveCodeInput, temperature float64) {
	code := s.record(userID, in)
	code.Metadata.Temperature = temperature
	if err := s.store.SaveCode(ctx, code); err != nil {
		s.log.Error("failed to save generated code", zap.String("userId", userID.Hex()), zap.Error(err))
	}
}

func (s *CodeService) record(userID primitive.ObjectID, in SaveCodeInput) *models.GeneratedCode {
	return &models.GeneratedCode{
		UserID:     userID,
		ModelName:  in.Model,
		TaskType:   in.TaskType,
		Language:   in.Language,
		Prompt:     in.Prompt,
		CodeOutput: in.Output,
		Metadata: models.CodeMetadata{
			Tokens:       in.Tokens,
			ResponseTime: in.ResponseTime,
			Success:      true,
		},
		CreatedAt: s.now(),
	}
}

// Save stores a result the user chose to keep.
func (s *CodeService) Save(ctx context.Context, actor Actor, in SaveCodeInput) (*models.GeneratedCode, error) {
	if in.TaskType == "" {
		in.TaskType = models.TaskGenerate
	}
	if !s.gateway.IsSupported(in.Model) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, in.Model)
	}
	if strings.TrimSpace(in.Output) == "" {
		return nil, invalid("Nothing to save")
	}
	code := s.record(actor.ID, in)
	if err := s.store.SaveCode(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to save code: %w", err)
	}
	return code, nil
}

// History lists the user's codes. Read failures degrade to an empty list.
func (s *CodeService) History(ctx context.Context, userID primitive.ObjectID, q HistoryQuery) []models.GeneratedCode {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	codes, err := s.store.ListCodes(ctx, db.CodeFilter{
		UserID:     userID,
		Search:     strings.TrimSpace(q.Search),
		Models:     q.Models,
		Languages:  q.Languages,
		SortOldest: q.Oldest,
		Limit:      limit,
	})
	if err != nil {
		s.log.Error("failed to list codes", zap.String("userId", userID.Hex()), zap.Error(err))
		return []models.GeneratedCode{}
	}
	return codes
}

func (s *CodeService) Delete(ctx context.Context, userID, codeID primitive.ObjectID) error {
	if err := s.store.DeleteCode(ctx, userID, codeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}

// Export renders up to 1000 history entries as csv or txt.
func (s *CodeService) Export(ctx context.Context, userID primitive.ObjectID, format string) (string, error) {
	codes, err := s.store.ListCodes(ctx, db.CodeFilter{UserID: userID, Limit: 1000})
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	records := make([]utils.Record, 0, len(codes))
	for _, c := range codes {
		records = append(records, utils.Record{
			"prompt":     c.Prompt,
			"language":   c.Language,
			"model_name": c.ModelName,
			"created_at": c.CreatedAt,
		})
	}

	switch format {
	case "", "csv":
		return utils.ExportCSV(records, HistoryExportFields)
	case "txt":
		return utils.ExportTXT(records, HistoryExportFields), nil
	}
	return "", invalid("Unsupported export format: " + format)
}

// Home gathers the landing page numbers. Failures degrade to zero values.
func (s *CodeService) Home(ctx context.Context, user *models.User) HomeData {
	data := HomeData{
		Stats:       models.CodeStats{FavoriteModel: "N/A", FavoriteLanguage: "N/A"},
		MemberSince: utils.FormatTimestamp(user.SignupDate, utils.TimestampShort, s.now()),
		RecentCodes: []models.GeneratedCode{},
	}
	stats, err := s.store.CodeStats(ctx, user.ID)
	if err != nil {
		s.log.Error("failed to load code stats", zap.String("userId", user.ID.Hex()), zap.Error(err))
	} else {
		data.Stats = stats
		if data.Stats.FavoriteModel == "" {
			data.Stats.FavoriteModel = "N/A"
		}
		if data.Stats.FavoriteLanguage == "" {
			data.Stats.FavoriteLanguage = "N/A"
		}
	}
	recent, err := s.store.ListCodes(ctx, db.CodeFilter{UserID: user.ID, Limit: 5})
	if err != nil {
		s.log.Error("failed to load recent codes", zap.String("userId", user.ID.Hex()), zap.Error(err))
	} else {
		data.RecentCodes = recent
	}
	return data
}
