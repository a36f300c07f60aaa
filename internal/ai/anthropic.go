package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float32            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropicClient creates an Anthropic API client.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// Generate implements the Client interface for Anthropic.
func (c *AnthropicClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	model := NormalizeModel(ProviderAnthropic, req.Model)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	apiReq := &anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		System:      req.System,
	}

	apiResp, err := c.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	content := ""
	if len(apiResp.Content) > 0 && apiResp.Content[0].Type == "text" {
		content = apiResp.Content[0].Text
	}

	return &Response{
		ID:         req.ID,
		Provider:   ProviderAnthropic,
		Model:      model,
		Content:    content,
		TokensUsed: apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		Duration:   time.Since(start),
	}, nil
}

func (c *AnthropicClient) makeRequest(ctx context.Context, req *anthropicRequest) (*anthropicResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case 429:
			return nil, fmt.Errorf("RATE_LIMIT: Anthropic API rate limit exceeded")
		case 401:
			return nil, fmt.Errorf("UNAUTHORIZED: invalid Anthropic API key")
		case 402:
			return nil, fmt.Errorf("QUOTA_EXCEEDED: Anthropic API quota exhausted")
		case 403:
			return nil, fmt.Errorf("FORBIDDEN: Anthropic API access denied")
		case 500, 502, 503, 504, 529:
			return nil, fmt.Errorf("SERVICE_ERROR: Anthropic service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: Anthropic request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("Anthropic API error: %s", apiResp.Error.Message)
	}

	return &apiResp, nil
}

// Provider returns the backend identifier.
func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}
