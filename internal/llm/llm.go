// Package llm wraps the text-generation providers used for quest generation
// and content moderation.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidOutput indicates the response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("llm returned an empty response")

	// ErrProviderDisabled is returned by the factory when generation is
	// configured to use the local mock only.
	ErrProviderDisabled = errors.New("llm provider disabled")
)

// GenerateRequest is a single system+user prompt exchange
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	// JSON asks the provider for a JSON-only response when it supports it.
	JSON        bool
	Temperature float64
}

// GenerateResponse is the raw text returned by a provider
type GenerateResponse struct {
	Text     string
	Model    string
	Duration time.Duration
}

// Provider generates text from prompts
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
