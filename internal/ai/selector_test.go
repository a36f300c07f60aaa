package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	provider Provider
}

func (s *stubClient) Generate(context.Context, *Request) (*Response, error) {
	return &Response{Provider: s.provider}, nil
}

func (s *stubClient) Provider() Provider { return s.provider }

func bothProviders() *Selector {
	return NewSelector(&stubClient{provider: ProviderOpenAI}, &stubClient{provider: ProviderAnthropic})
}

func TestChooseHonorsPinnedProvider(t *testing.T) {
	s := bothProviders()

	p, _, err := s.Choose("build me a react ui", ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p)

	p, _, err = s.Choose("design a database schema", ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)
}

func TestChooseAutoRoutesByKeywords(t *testing.T) {
	s := bothProviders()

	cases := []struct {
		hint string
		want Provider
	}{
		{"build a REST API with authentication", ProviderAnthropic},
		{"secure the backend database layer", ProviderAnthropic},
		{"a polished react component with nice design", ProviderOpenAI},
		{"improve the frontend UI", ProviderOpenAI},
		// No keyword hit: fixed priority, OpenAI first.
		{"write a poem about autumn", ProviderOpenAI},
	}
	for _, tc := range cases {
		p, _, err := s.Choose(tc.hint, ProviderAuto)
		require.NoError(t, err)
		assert.Equal(t, tc.want, p, "hint %q", tc.hint)
	}
}

func TestChooseIsDeterministic(t *testing.T) {
	s := bothProviders()
	first, _, err := s.Choose("build an api for tasks", ProviderAuto)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		p, _, err := s.Choose("build an api for tasks", ProviderAuto)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	}
}

func TestChooseSingleProviderServesEverything(t *testing.T) {
	s := NewSelector(nil, &stubClient{provider: ProviderAnthropic})

	// Pinned to the unconfigured provider: falls through to AUTO handling
	// only when the request asked for auto, otherwise no provider matches.
	_, _, err := s.Choose("anything", ProviderOpenAI)
	assert.ErrorIs(t, err, ErrNoProvider)

	p, _, err := s.Choose("a react ui", ProviderAuto)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p)
}

func TestChooseNothingConfigured(t *testing.T) {
	s := NewSelector(nil, nil)
	_, _, err := s.Choose("anything", ProviderAuto)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestPhasePreferences(t *testing.T) {
	s := bothProviders()

	p, _, err := s.Planning()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p)

	p, _, err = s.CodeGen()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	// Single provider handles both roles.
	solo := NewSelector(&stubClient{provider: ProviderOpenAI}, nil)
	p, _, err = solo.Planning()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)
}

func TestConfigured(t *testing.T) {
	s := NewSelector(&stubClient{provider: ProviderOpenAI}, nil)
	cfg := s.Configured()
	assert.True(t, cfg[ProviderOpenAI])
	assert.False(t, cfg[ProviderAnthropic])
}
