// Package config loads and validates service configuration for the NexusAI
// generation API. Provider credentials may arrive either as plain environment
// variables or as Docker secrets referenced through *_FILE variables; the
// file form wins when both are set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the validated runtime configuration.
type Config struct {
	Port        string
	Environment string

	// Provider credentials
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// JWT verification for caller identity (optional; anonymous when unset)
	JWTSecret string

	// N8N workflow webhook endpoints, derived from the base URL
	N8NWebhookBase  string
	N8NAppGenerated string
	N8NAppDeploy    string
	N8NAppError     string

	// Platform collaborators
	ProvisionerURL string
	AppRegistryURL string

	// Redis job-store backend
	RedisURL  string
	RedisAddr string

	// Job retention and cache defaults
	JobTTL   time.Duration
	CacheTTL time.Duration

	// Worker pool for background generation jobs
	JobWorkers   int
	JobQueueSize int
}

// Load reads configuration from the environment. It never fatals: a service
// with no provider keys still starts and serves health checks, reporting 503
// on generation endpoints.
func Load() *Config {
	cfg := &Config{
		Port:            envOr("PORT", "8080"),
		Environment:     envOr("ENVIRONMENT", "development"),
		OpenAIAPIKey:    secretEnv("OPENAI_API_KEY"),
		AnthropicAPIKey: secretEnv("ANTHROPIC_API_KEY"),
		JWTSecret:       secretEnv("JWT_SECRET"),
		N8NWebhookBase:  envOr("N8N_WEBHOOK_URL", "https://chatbuilds.com/webhook"),
		ProvisionerURL:  envOr("DATABASE_PROVISIONER_URL", "http://localhost:3003"),
		AppRegistryURL:  envOr("API_URL", "https://chatbuilds.com/api"),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		JobTTL:          durationEnv("JOB_TTL_HOURS", 24) * time.Hour,
		CacheTTL:        durationEnv("CACHE_TTL_SECONDS", 3600) * time.Second,
		JobWorkers:      intEnv("JOB_WORKERS", 4),
		JobQueueSize:    intEnv("JOB_QUEUE_SIZE", 64),
	}

	base := strings.TrimRight(cfg.N8NWebhookBase, "/")
	cfg.N8NAppGenerated = base + "/nexusai-app-generated"
	cfg.N8NAppDeploy = base + "/nexusai-deploy"
	cfg.N8NAppError = base + "/nexusai-error"

	return cfg
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasAnyProvider reports whether at least one LLM provider is configured.
func (c *Config) HasAnyProvider() bool {
	return c.OpenAIAPIKey != "" || c.AnthropicAPIKey != ""
}

// Validate returns a human-readable summary of configuration problems that
// should be logged at startup. Missing provider keys are a warning, not an
// error: the service stays up for health checks either way.
func (c *Config) Validate() []string {
	var warnings []string
	if !c.HasAnyProvider() {
		warnings = append(warnings, "no AI provider configured: set OPENAI_API_KEY or ANTHROPIC_API_KEY")
	}
	if c.JWTSecret == "" {
		warnings = append(warnings, "JWT_SECRET not set: all callers treated as anonymous free tier")
	}
	if c.JobWorkers < 1 {
		warnings = append(warnings, fmt.Sprintf("JOB_WORKERS=%d is invalid, using 1", c.JobWorkers))
		c.JobWorkers = 1
	}
	return warnings
}

// secretEnv reads NAME, preferring the Docker-secret NAME_FILE indirection
// when present. Whitespace is trimmed because secret files commonly carry a
// trailing newline.
func secretEnv(name string) string {
	if path := os.Getenv(name + "_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return strings.TrimSpace(os.Getenv(name))
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func intEnv(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func durationEnv(name string, fallback int) time.Duration {
	return time.Duration(intEnv(name, fallback))
}
