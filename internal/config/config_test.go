package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/a2ui")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com,")
	t.Setenv("LLM_PROVIDER", "azure")
	t.Setenv("LLM_API_KEY", "key")
	t.Setenv("LLM_DEPLOYMENT", "prod")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("PROBE_COMMAND", "python3  probe.py --json")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.True(t, cfg.TracingEnabled)

	opts := cfg.StoreOptions()
	assert.Equal(t, "postgres", opts.Backend)
	assert.Equal(t, "postgres://localhost/a2ui", opts.DatabaseURL)

	s := cfg.DefaultSettings()
	assert.Equal(t, model.ProviderAzure, s.Provider)
	assert.Equal(t, "key", s.APIKey)
	assert.Equal(t, "prod", s.Deployment)
	assert.False(t, s.UpdatedAt.IsZero())

	cmd, args := cfg.ProbeArgv()
	assert.Equal(t, "python3", cmd)
	assert.Equal(t, []string{"probe.py", "--json"}, args)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("PROBE_COMMAND", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)

	cmd, args := cfg.ProbeArgv()
	assert.Empty(t, cmd)
	assert.Nil(t, args)
}

func TestFirstEnv(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "azure")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic")

	assert.Equal(t, "azure", firstEnv("LLM_API_KEY", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY"))
}
