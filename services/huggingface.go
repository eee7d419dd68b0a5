package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HuggingFaceGenerator calls the Hugging Face Inference text-generation API.
type HuggingFaceGenerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewHuggingFaceGenerator(apiKey, baseURL string, client *http.Client) (*HuggingFaceGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("HUGGINGFACE_API_KEY not configured")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFaceGenerator{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

func (h *HuggingFaceGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			MaxNewTokens:   req.MaxTokens,
			Temperature:    req.Temperature,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/"+req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: %s", ErrRateLimited, errorText(raw))
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout:
		return "", fmt.Errorf("%w: %s", ErrUnavailable, errorText(raw))
	case resp.StatusCode >= 300:
		return "", fmt.Errorf("inference API returned %d: %s", resp.StatusCode, errorText(raw))
	}

	var out []hfGeneration
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out) == 0 {
		return "", errors.New("inference API returned no generations")
	}
	return strings.TrimSpace(out[0].GeneratedText), nil
}

func errorText(raw []byte) string {
	var e hfError
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}
