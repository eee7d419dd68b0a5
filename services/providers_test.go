package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceGenerate(t *testing.T) {
	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/microsoft/phi-2", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"generated_text":"  x = 1\n"}]`))
	}))
	defer srv.Close()

	gen, err := NewHuggingFaceGenerator("hf_test", srv.URL+"/", srv.Client())
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), GenerationRequest{
		Endpoint: "microsoft/phi-2", Prompt: "p", Temperature: 0.5, MaxTokens: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "x = 1", text)
	assert.Equal(t, "p", got.Inputs)
	assert.Equal(t, 200, got.Parameters.MaxNewTokens)
	assert.False(t, got.Parameters.ReturnFullText)
}

func TestHuggingFaceStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{http.StatusGatewayTimeout, ErrUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":"model is loading"}`))
		}))
		gen, err := NewHuggingFaceGenerator("k", srv.URL, srv.Client())
		require.NoError(t, err)

		_, err = gen.Generate(context.Background(), GenerationRequest{Endpoint: "m"})
		assert.ErrorIs(t, err, tt.want)
		assert.Contains(t, err.Error(), "model is loading")
		srv.Close()
	}
}

func TestHuggingFaceRequiresKey(t *testing.T) {
	_, err := NewHuggingFaceGenerator("", "http://localhost", nil)
	assert.Error(t, err)
}

func TestCleanModelOutput(t *testing.T) {
	assert.Equal(t, "x := 1", cleanModelOutput("```go\nx := 1\n```"))
	assert.Equal(t, "x := 1", cleanModelOutput("```\nx := 1\n```"))
	assert.Equal(t, "plain", cleanModelOutput("  plain "))
}

func TestClassifyGeminiError(t *testing.T) {
	assert.ErrorIs(t, classifyGeminiError(errors.New("Error 429, RESOURCE_EXHAUSTED")), ErrRateLimited)
	assert.ErrorIs(t, classifyGeminiError(errors.New("Error 503, UNAVAILABLE")), ErrUnavailable)
	other := errors.New("invalid argument")
	assert.Equal(t, other, classifyGeminiError(other))
}
