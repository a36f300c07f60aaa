package ai

import "strings"

// ModelInfo describes a known model of a provider.
type ModelInfo struct {
	MaxTokens int
	BestFor   string
}

// Known-model tables. These are advisory: prefix-matched names not listed
// here still pass through NormalizeModel, so upstream catalog additions keep
// working without a deploy.
var (
	OpenAIModels = map[string]ModelInfo{
		"gpt-4o":        {MaxTokens: 16384, BestFor: "complex apps"},
		"gpt-4o-mini":   {MaxTokens: 16384, BestFor: "simple apps"},
		"gpt-3.5-turbo": {MaxTokens: 4096, BestFor: "quick prototypes"},
	}

	AnthropicModels = map[string]ModelInfo{
		"claude-3-5-sonnet-20241022": {MaxTokens: 8192, BestFor: "balanced"},
		"claude-3-5-sonnet-20240620": {MaxTokens: 8192, BestFor: "legacy"},
		"claude-3-opus-20240229":     {MaxTokens: 8192, BestFor: "production code"},
		"claude-3-haiku-20240307":    {MaxTokens: 4096, BestFor: "fast generation"},
	}
)

// DefaultModel returns the configured default model for a provider.
func DefaultModel(p Provider) string {
	if p == ProviderOpenAI {
		return "gpt-4o"
	}
	return "claude-3-5-sonnet-20241022"
}

// NormalizeModel resolves a caller-supplied model name to one that is safe to
// send upstream. Empty and sentinel names ("auto", "default") resolve to the
// provider default; names carrying the provider's own prefix pass through
// unchanged even when absent from the static table, to tolerate upstream
// catalog additions; anything else (e.g. an Ollama name leaked from an old
// frontend build) falls back to the default rather than producing an opaque
// upstream rejection.
func NormalizeModel(p Provider, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == "auto" || requested == "default" {
		return DefaultModel(p)
	}

	if p == ProviderOpenAI {
		if _, ok := OpenAIModels[requested]; ok {
			return requested
		}
		if strings.HasPrefix(requested, "gpt-") {
			return requested
		}
		return DefaultModel(p)
	}

	if _, ok := AnthropicModels[requested]; ok {
		return requested
	}
	if strings.HasPrefix(requested, "claude-") {
		return requested
	}
	return DefaultModel(p)
}

// KnownModels lists the models of one provider in a stable order.
func KnownModels(p Provider) []string {
	if p == ProviderOpenAI {
		return []string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"}
	}
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-sonnet-20240620",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}
}
