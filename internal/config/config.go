// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	natsclient "github.com/capitalize-ai/a2ui-playground/internal/nats"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigins     []string

	// Event store settings
	StoreBackend string // sqlite, postgres or jetstream
	SQLitePath   string
	DatabaseURL  string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Default completion settings, seeded into the config store when empty
	LLMProvider   string
	LLMEndpoint   string
	LLMAPIKey     string
	LLMModel      string
	LLMAPIVersion string
	LLMDeployment string
	LLMTimeout    time.Duration

	// Capability probe
	ProbeCommand string
	ProbeTimeout time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel    string
	Environment string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads a .env file when present, then configuration from environment
// variables. Variables already set in the environment win over .env.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 180*time.Second),
		AllowedOrigins:     getListEnv("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),

		// Store
		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "a2ui_events.sqlite"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// LLM
		LLMProvider:   getEnv("LLM_PROVIDER", string(model.ProviderOpenAI)),
		LLMEndpoint:   getEnv("LLM_API_ENDPOINT", ""),
		LLMAPIKey:     firstEnv("LLM_API_KEY", "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY"),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o"),
		LLMAPIVersion: getEnv("LLM_API_VERSION", "2024-10-21"),
		LLMDeployment: getEnv("LLM_DEPLOYMENT", ""),
		LLMTimeout:    getDurationEnv("LLM_TIMEOUT", 120*time.Second),

		// Probe
		ProbeCommand: getEnv("PROBE_COMMAND", ""),
		ProbeTimeout: getDurationEnv("PROBE_TIMEOUT", 60*time.Second),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENV", "production"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// DefaultSettings returns the completion settings described by the environment.
func (c *Config) DefaultSettings() model.Settings {
	return model.Settings{
		Provider:    model.Provider(c.LLMProvider),
		APIEndpoint: c.LLMEndpoint,
		APIKey:      c.LLMAPIKey,
		Model:       c.LLMModel,
		APIVersion:  c.LLMAPIVersion,
		Deployment:  c.LLMDeployment,
		UpdatedAt:   time.Now().UTC(),
	}
}

// StoreOptions returns the event store selection.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:     c.StoreBackend,
		SQLitePath:  c.SQLitePath,
		DatabaseURL: c.DatabaseURL,
		NATS: natsclient.Config{
			URL:      c.NATSURL,
			CAFile:   c.NATSCAFile,
			CertFile: c.NATSCertFile,
			KeyFile:  c.NATSKeyFile,
			Token:    c.NATSToken,
		},
	}
}

// ProbeArgv splits ProbeCommand into the executable and its arguments.
func (c *Config) ProbeArgv() (string, []string) {
	fields := strings.Fields(c.ProbeCommand)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
