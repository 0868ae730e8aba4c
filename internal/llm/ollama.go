package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaClient generates through a local or remote Ollama server
type OllamaClient struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllamaClient creates an Ollama client. An empty host reads OLLAMA_HOST.
func NewOllamaClient(host, model string, timeout time.Duration, logger *zap.Logger) (*OllamaClient, error) {
	var (
		client *api.Client
		err    error
	)

	if host == "" {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	} else {
		base, perr := url.Parse(host)
		if perr != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, perr)
		}
		client = api.NewClient(base, &http.Client{Timeout: timeout})
	}

	return &OllamaClient{client: client, model: model, logger: logger}, nil
}

// Name identifies the provider
func (c *OllamaClient) Name() string { return "ollama" }

// Generate runs a non-streaming generation
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()
	stream := false

	genReq := &api.GenerateRequest{
		Model:  c.model,
		System: req.SystemPrompt,
		Prompt: req.UserPrompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
		},
	}
	if req.JSON {
		genReq.Format = json.RawMessage(`"json"`)
	}

	var out strings.Builder
	err := c.client.Generate(ctx, genReq, func(g api.GenerateResponse) error {
		out.WriteString(g.Response)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generation failed: %w", err)
	}
	if out.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("Ollama generation completed",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
	)

	return &GenerateResponse{Text: out.String(), Model: c.model, Duration: time.Since(start)}, nil
}
