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

// OpenAIClient talks to the OpenAI chat-completions API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates an OpenAI API client. The timeout is long because
// multi-file code generation responses routinely take minutes.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1/chat/completions",
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// Generate implements the Client interface for OpenAI.
func (c *OpenAIClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	model := NormalizeModel(ProviderOpenAI, req.Model)

	messages := make([]openAIMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	apiReq := &openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ForceJSON {
		apiReq.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	apiResp, err := c.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	content := ""
	if len(apiResp.Choices) > 0 {
		content = apiResp.Choices[0].Message.Content
	}

	return &Response{
		ID:         req.ID,
		Provider:   ProviderOpenAI,
		Model:      model,
		Content:    content,
		TokensUsed: apiResp.Usage.TotalTokens,
		Duration:   time.Since(start),
	}, nil
}

func (c *OpenAIClient) makeRequest(ctx context.Context, req *openAIRequest) (*openAIResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

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
			return nil, fmt.Errorf("RATE_LIMIT: OpenAI API rate limit exceeded")
		case 401:
			return nil, fmt.Errorf("UNAUTHORIZED: invalid OpenAI API key")
		case 402, 403:
			return nil, fmt.Errorf("QUOTA_EXCEEDED: OpenAI API access denied (status %d)", resp.StatusCode)
		case 500, 502, 503, 504:
			return nil, fmt.Errorf("SERVICE_ERROR: OpenAI service temporarily unavailable (status %d)", resp.StatusCode)
		default:
			return nil, fmt.Errorf("API_ERROR: OpenAI request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", apiResp.Error.Message)
	}

	return &apiResp, nil
}

// Provider returns the backend identifier.
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}
