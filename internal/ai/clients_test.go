package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerateWireFormat(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "cmpl-1",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": `{"ok": true}`}},
			},
			"usage": map[string]int{"total_tokens": 321},
		})
	}))
	defer server.Close()

	c := NewOpenAIClient("test-key")
	c.baseURL = server.URL

	resp, err := c.Generate(context.Background(), &Request{
		ID:        "req-1",
		Prompt:    "generate something",
		System:    "be terse",
		MaxTokens: 100,
		ForceJSON: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)

	assert.Equal(t, `{"ok": true}`, resp.Content)
	assert.Equal(t, 321, resp.TokensUsed)
	assert.Equal(t, ProviderOpenAI, resp.Provider)
}

func TestOpenAIErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		prefix string
	}{
		{429, "RATE_LIMIT"},
		{401, "UNAUTHORIZED"},
		{403, "QUOTA_EXCEEDED"},
		{503, "SERVICE_ERROR"},
		{418, "API_ERROR"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))

		c := NewOpenAIClient("test-key")
		c.baseURL = server.URL
		_, err := c.Generate(context.Background(), &Request{Prompt: "x"})
		require.Error(t, err, "status %d", tc.status)
		assert.Contains(t, err.Error(), tc.prefix)
		server.Close()
	}
}

func TestAnthropicGenerateWireFormat(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "msg-1",
			"content": []map[string]string{
				{"type": "text", "text": "hello"},
			},
			"usage": map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer server.Close()

	c := NewAnthropicClient("test-key")
	c.baseURL = server.URL

	resp, err := c.Generate(context.Background(), &Request{
		ID:     "req-1",
		Prompt: "say hello",
		System: "be friendly",
	})
	require.NoError(t, err)

	assert.Equal(t, "claude-3-5-sonnet-20241022", got.Model)
	assert.Equal(t, "be friendly", got.System)
	// Default applied when the caller left max tokens unset.
	assert.Equal(t, 8192, got.MaxTokens)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 30, resp.TokensUsed)
}

func TestAnthropicOverloadedMapsToServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(529)
	}))
	defer server.Close()

	c := NewAnthropicClient("test-key")
	c.baseURL = server.URL
	_, err := c.Generate(context.Background(), &Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVICE_ERROR")
}
