package ai

import (
	"strings"

	"nexusai-api/internal/logging"
)

// Selector chooses which configured backend handles a request.
//
// Selection policy (deterministic, asserted by tests):
//  1. A pinned provider is honored when its client is configured.
//  2. In AUTO mode, content mentioning backend-ish concerns (api, backend,
//     database, authentication, security) routes to Anthropic when
//     configured; content mentioning frontend-ish concerns (ui, frontend,
//     react, component, design) routes to OpenAI when configured.
//  3. Otherwise fixed priority: OpenAI first, then Anthropic.
//  4. Nothing configured: ErrNoProvider.
type Selector struct {
	openai    Client
	anthropic Client
}

var (
	backendKeywords  = []string{"api", "backend", "database", "authentication", "security"}
	frontendKeywords = []string{"ui", "frontend", "react", "component", "design"}
)

// NewSelector builds a selector over the configured clients. Either client
// may be nil (unconfigured).
func NewSelector(openai, anthropic Client) *Selector {
	return &Selector{openai: openai, anthropic: anthropic}
}

// Choose picks the backend for a request. contentHint is the user-facing
// text driving the keyword heuristic in AUTO mode.
func (s *Selector) Choose(contentHint string, requested Provider) (Provider, Client, error) {
	if requested == ProviderOpenAI && s.openai != nil {
		return ProviderOpenAI, s.openai, nil
	}
	if requested == ProviderAnthropic && s.anthropic != nil {
		return ProviderAnthropic, s.anthropic, nil
	}

	if requested == ProviderAuto || requested == "" {
		lower := strings.ToLower(contentHint)

		if s.anthropic != nil && containsAny(lower, backendKeywords) {
			logging.S().Debugw("auto-routing to anthropic", "reason", "backend keywords")
			return ProviderAnthropic, s.anthropic, nil
		}
		if s.openai != nil && containsAny(lower, frontendKeywords) {
			logging.S().Debugw("auto-routing to openai", "reason", "frontend keywords")
			return ProviderOpenAI, s.openai, nil
		}

		if s.openai != nil {
			return ProviderOpenAI, s.openai, nil
		}
		if s.anthropic != nil {
			return ProviderAnthropic, s.anthropic, nil
		}
	}

	return "", nil, ErrNoProvider
}

// CodeGen returns the preferred code-generation backend (OpenAI when
// configured, Anthropic otherwise). Used by the orchestrator's frontend and
// backend phases.
func (s *Selector) CodeGen() (Provider, Client, error) {
	if s.openai != nil {
		return ProviderOpenAI, s.openai, nil
	}
	if s.anthropic != nil {
		return ProviderAnthropic, s.anthropic, nil
	}
	return "", nil, ErrNoProvider
}

// Planning returns the preferred architecture/planning backend (Anthropic
// when configured, OpenAI otherwise).
func (s *Selector) Planning() (Provider, Client, error) {
	if s.anthropic != nil {
		return ProviderAnthropic, s.anthropic, nil
	}
	if s.openai != nil {
		return ProviderOpenAI, s.openai, nil
	}
	return "", nil, ErrNoProvider
}

// Configured reports availability per provider, for health and status
// endpoints.
func (s *Selector) Configured() map[Provider]bool {
	return map[Provider]bool{
		ProviderOpenAI:    s.openai != nil,
		ProviderAnthropic: s.anthropic != nil,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
