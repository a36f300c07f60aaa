package ai

import (
	"context"
	"errors"
	"time"
)

// Provider identifies an external LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderAuto      Provider = "auto"
)

// MaxPromptLength bounds user-supplied prompt bodies.
const MaxPromptLength = 100000

// ErrNoProvider is returned when no configured backend can serve a request.
var ErrNoProvider = errors.New("no AI provider available for the requested provider type")

// Request represents one prompt sent to a provider.
type Request struct {
	ID          string  `json:"id"`
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	// ForceJSON asks the provider for a pure-JSON response where the wire
	// format supports it (OpenAI response_format).
	ForceJSON bool `json:"-"`
}

// Response is the normalized provider reply.
type Response struct {
	ID         string        `json:"id"`
	Provider   Provider      `json:"provider"`
	Model      string        `json:"model"`
	Content    string        `json:"content"`
	TokensUsed int           `json:"tokens_used"`
	Duration   time.Duration `json:"duration"`
}

// Client is implemented by each provider backend.
type Client interface {
	// Generate sends one prompt and returns the normalized response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the backend identifier.
	Provider() Provider
}
