package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sidequest/internal/config"
)

type payload struct {
	Title string `json:"title"`
	XP    int    `json:"xp"`
}

func TestExtractJSON_Clean(t *testing.T) {
	out, err := ExtractJSON[payload](`{"title":"Run","xp":50}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "Run", out.Title)
	assert.Equal(t, 50, out.XP)
}

func TestExtractJSON_FencedWithProse(t *testing.T) {
	raw := "Here you go:\n```json\n{\"title\":\"Walk {north}\",\"xp\":100}\n```\nEnjoy!"
	out, err := ExtractJSON[payload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Walk {north}", out.Title)
}

func TestStripCodeFences_KeepsFenceLikeContent(t *testing.T) {
	raw := "```json\n{\"title\":\"Run\",\n```markdown notes\n\"xp\":50}\n```\ntrailing"
	assert.Equal(t, "{\"title\":\"Run\",\n```markdown notes\n\"xp\":50}\ntrailing", stripCodeFences(raw))

	assert.Equal(t, "a\nb", stripCodeFences("```\na\n```\nb"))
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON[payload]("sorry, I can't help", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_ValidatorFailure(t *testing.T) {
	_, err := ExtractJSON(`{"title":"Run","xp":75}`, func(p payload) error {
		if p.XP%50 != 0 {
			return assert.AnError
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-test","choices":[{"message":{"content":"{\"title\":\"Run\"}"}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-test", srv.URL, "gpt-test", 100, 5*time.Second, zap.NewNop())
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), GenerateRequest{SystemPrompt: "sys", UserPrompt: "usr", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Run"}`, resp.Text)
	assert.Equal(t, "gpt-test", resp.Model)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("bad", srv.URL, "gpt-test", 0, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), GenerateRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "m", 0, time.Second, zap.NewNop())
	assert.Error(t, err)
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"))
		assert.Equal(t, "key-1", r.URL.Query().Get("key"))

		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, "sys", body.SystemInstruction.Parts[0].Text)
		assert.Equal(t, "application/json", body.GenerationConfig["responseMimeType"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"xp\":"},{"text":"50}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient("key-1", srv.URL, "gemini-test", time.Second, zap.NewNop())
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), GenerateRequest{SystemPrompt: "sys", UserPrompt: "usr", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"xp":50}`, resp.Text)
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c, err := NewGeminiClient("k", srv.URL, "m", time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), GenerateRequest{UserPrompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(&config.LLMConfig{Provider: "mock"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrProviderDisabled)

	p, err := NewProvider(&config.LLMConfig{Provider: "openai", APIKey: "k", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(&config.LLMConfig{Provider: "ollama", BaseURL: "http://127.0.0.1:11434", Model: "llama3", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = NewProvider(&config.LLMConfig{Provider: "bard"}, zap.NewNop())
	assert.Error(t, err)
}
