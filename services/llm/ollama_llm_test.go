package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllamaClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("OLLAMA_BASE_URL", srv.URL)
	t.Setenv("OLLAMA_MODEL", "test-model")

	client, err := NewOllamaClient()
	require.NoError(t, err)
	return client
}

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewOllamaClient()
	require.Error(t, err)
}

func TestOllamaGenerate_SendsPromptAndOptions(t *testing.T) {
	var captured ollamaGenerateRequest
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		io.WriteString(w, `{"model": "test-model", "response": "42", "done": true}`)
	})

	temp := float32(0.1)
	answer, err := client.Generate(context.Background(), "what is the answer?", GenerationParams{
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Equal(t, "what is the answer?", captured.Prompt)
	assert.Equal(t, "test-model", captured.Model)
	assert.False(t, captured.Stream)
	assert.InDelta(t, 0.1, captured.Options["temperature"], 0.001)
}

func TestOllamaGenerate_ModelNotFound(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error": "model 'test-model' not found"}`)
	})

	_, err := client.Generate(context.Background(), "q", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull test-model")
}

func TestOllamaGenerate_ServerError(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": "boom"}`)
	})

	_, err := client.Generate(context.Background(), "q", GenerationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
