package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("LLM_PROVIDER", "mock")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Provider)
	assert.Equal(t, "learning", cfg.Generation.InitialCategory)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "9999")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLLMConfig_Validate(t *testing.T) {
	l := LLMConfig{Provider: "openai", Timeout: time.Second}
	assert.Error(t, l.Validate())

	l.APIKey = "sk-test"
	assert.NoError(t, l.Validate())

	l.Provider = "bard"
	assert.Error(t, l.Validate())
}

func TestCacheConfig_Validate(t *testing.T) {
	assert.Error(t, (&CacheConfig{Provider: "redis"}).Validate())
	assert.NoError(t, (&CacheConfig{Provider: "memory", MemorySize: 10}).Validate())
	assert.Error(t, (&CacheConfig{Provider: "memcached"}).Validate())
}

func TestConfig_InitialCategoryValidated(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("QUEST_INITIAL_CATEGORY", "cooking")

	_, err := Load()
	assert.Error(t, err)
}
