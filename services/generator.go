package services

import (
	"context"
	"errors"
)

var (
	ErrRateLimited = errors.New("provider rate limit reached")
	ErrUnavailable = errors.New("provider unavailable")
)

// GenerationRequest is one text-generation call against a provider
// endpoint.
type GenerationRequest struct {
	Endpoint    string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TextGenerator is a hosted text-generation backend.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
