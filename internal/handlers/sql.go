package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/metrics"
	"nexusai-api/internal/prompts"
)

// SQLAssistRequest is the body of POST /sql/assist.
type SQLAssistRequest struct {
	Query    string `json:"query" binding:"required"`
	Action   string `json:"action" binding:"required,oneof=generate explain optimize fix"`
	Schema   string `json:"schema"`
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Dialect  string `json:"dialect"`
}

// SQLAssistResponse carries the answer in the field matching the action.
type SQLAssistResponse struct {
	SQL          string `json:"sql,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
	Optimized    string `json:"optimized,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	ProviderUsed string `json:"provider_used,omitempty"`
	ModelUsed    string `json:"model_used,omitempty"`
}

// SQLAssist generates, explains, optimizes, or fixes SQL.
func (s *Server) SQLAssist(c *gin.Context) {
	var req SQLAssistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	provider, client, err := s.selector.Choose(req.Query, ai.Provider(req.Provider))
	if err != nil {
		s.abortProviderError(c, err)
		return
	}

	// Actions over existing SQL accept it either inline in query or in the
	// dedicated field.
	query := req.Query
	if req.SQL != "" {
		query += "\n\n" + req.SQL
	}
	system, user := prompts.SQLAssist(req.Action, query, req.Schema, req.Dialect)

	start := time.Now()
	resp, err := client.Generate(c.Request.Context(), &ai.Request{
		ID:          c.GetString("request_id"),
		Model:       req.Model,
		Prompt:      user,
		System:      system,
		Temperature: 0.2,
		MaxTokens:   2048,
	})
	metrics.ObserveProviderCall(string(provider), "sql", callOutcome(err), time.Since(start))
	if err != nil {
		s.abortProviderError(c, err)
		return
	}

	out := SQLAssistResponse{ProviderUsed: string(provider), ModelUsed: resp.Model}
	switch req.Action {
	case "explain":
		out.Explanation = resp.Content
	case "optimize":
		out.Optimized = resp.Content
	case "fix":
		out.Fixed = resp.Content
	default:
		out.SQL = resp.Content
	}

	c.JSON(http.StatusOK, out)
}
