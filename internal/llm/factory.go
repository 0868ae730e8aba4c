package llm

import (
	"fmt"

	"go.uber.org/zap"

	"sidequest/internal/config"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// NewProvider creates the configured provider. The mock provider yields
// ErrProviderDisabled so callers go straight to local generation.
func NewProvider(cfg *config.LLMConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, cfg.Timeout, logger)
	case ProviderGemini:
		return NewGeminiClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, logger)
	case ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.Timeout, logger)
	case ProviderMock, "":
		return nil, ErrProviderDisabled
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
