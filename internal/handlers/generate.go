package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/jobs"
	"nexusai-api/internal/logging"
	"nexusai-api/internal/metrics"
	"nexusai-api/internal/prompts"
	"nexusai-api/internal/ratelimit"
	"nexusai-api/internal/recovery"
)

// GenerateRequest is the body of POST /ai/generate.
type GenerateRequest struct {
	Prompt      string  `json:"prompt" binding:"required,min=10"`
	Model       string  `json:"model"`
	Provider    string  `json:"provider"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Generate answers a free-form prompt with raw provider output.
func (s *Server) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if len(req.Prompt) > ai.MaxPromptLength {
		s.abortError(c, http.StatusBadRequest, "PROMPT_TOO_LONG",
			fmt.Sprintf("prompt exceeds %d characters", ai.MaxPromptLength))
		return
	}
	if req.MaxTokens <= 0 || req.MaxTokens > 16384 {
		req.MaxTokens = 8192
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}

	provider, client, err := s.selector.Choose(req.Prompt, ai.Provider(req.Provider))
	if err != nil {
		s.abortProviderError(c, err)
		return
	}

	start := time.Now()
	resp, err := client.Generate(c.Request.Context(), &ai.Request{
		ID:          c.GetString("request_id"),
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	metrics.ObserveProviderCall(string(provider), "generate", callOutcome(err), time.Since(start))
	if err != nil {
		s.abortProviderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":           resp.Content,
		"provider":           string(provider),
		"model":              resp.Model,
		"tokens_used":        resp.TokensUsed,
		"generation_time_ms": time.Since(start).Milliseconds(),
	})
}

// AppGenerateRequest is the body of POST /ai/generate/app and
// POST /ai/generate/fullstack.
type AppGenerateRequest struct {
	Description     string   `json:"description" binding:"required,min=20"`
	Framework       string   `json:"framework"`
	Styling         string   `json:"styling"`
	Features        []string `json:"features"`
	Provider        string   `json:"provider"`
	AppName         string   `json:"app_name"`
	IncludeDatabase *bool    `json:"include_database"`
	IncludeAuth     bool     `json:"include_auth"`
	IncludeAPI      *bool    `json:"include_api"`
}

func (r *AppGenerateRequest) spec() prompts.AppSpec {
	framework := r.Framework
	if framework == "" {
		framework = "react"
	}
	styling := r.Styling
	if styling == "" {
		styling = "tailwind"
	}
	return prompts.AppSpec{
		Description:     r.Description,
		Framework:       framework,
		Styling:         styling,
		Features:        r.Features,
		IncludeAPI:      r.IncludeAPI == nil || *r.IncludeAPI,
		IncludeDatabase: r.IncludeDatabase == nil || *r.IncludeDatabase,
		IncludeAuth:     r.IncludeAuth,
	}
}

// AppResponse is the multi-file generation payload shared by the synchronous
// app endpoint and cached results.
type AppResponse struct {
	Files            []jobs.GeneratedFile   `json:"files"`
	Instructions     string                 `json:"instructions"`
	Dependencies     map[string]string      `json:"dependencies"`
	RequiresDatabase bool                   `json:"requires_database"`
	DatabaseSchema   string                 `json:"database_schema,omitempty"`
	DeploymentConfig map[string]interface{} `json:"deployment_config,omitempty"`
	ProviderUsed     string                 `json:"provider_used"`
	GenerationTimeMS int64                  `json:"generation_time_ms"`
	TokensUsed       int                    `json:"tokens_used"`
}

type appPayload struct {
	Files            []jobs.GeneratedFile `json:"files"`
	Instructions     string               `json:"instructions"`
	Dependencies     map[string]string    `json:"dependencies"`
	RequiresDatabase *bool                `json:"requires_database"`
	DatabaseSchema   string               `json:"database_schema"`
}

// GenerateApp produces a complete small application in one provider call.
// Identical requests inside the cache TTL are answered from memory.
func (s *Server) GenerateApp(c *gin.Context) {
	var req AppGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	spec := req.spec()
	userID := c.GetString("user_id")

	key := ratelimit.CacheKey(
		spec.Description+"|"+strings.Join(spec.Features, ","),
		spec.Framework, spec.Styling)
	if cached, ok := s.cache.Get(key); ok {
		metrics.Get().CacheHitsTotal.Inc()
		logging.S().Infow("returning cached app generation", "user_id", userID)
		c.JSON(http.StatusOK, cached)
		return
	}
	metrics.Get().CacheMissesTotal.Inc()

	provider, client, err := s.selector.Choose(spec.Description, ai.Provider(req.Provider))
	if err != nil {
		s.abortProviderError(c, err)
		return
	}

	start := time.Now()
	resp, err := client.Generate(c.Request.Context(), &ai.Request{
		ID:          c.GetString("request_id"),
		Prompt:      prompts.SinglePassApp(spec),
		System:      "You are an expert full-stack developer. Generate complete, production-ready code with no placeholders. Return valid JSON only.",
		Temperature: 0.7,
		MaxTokens:   16000,
		ForceJSON:   true,
	})
	metrics.ObserveProviderCall(string(provider), "app", callOutcome(err), time.Since(start))
	if err != nil {
		s.abortProviderError(c, err)
		return
	}

	var payload appPayload
	if err := recovery.Into(resp.Content, "app generation", &payload); err != nil {
		logging.S().Errorw("app generation returned unrecoverable JSON", "error", err)
		s.abortError(c, http.StatusInternalServerError, "INVALID_AI_RESPONSE",
			"AI returned invalid JSON. Please try again.")
		return
	}

	requiresDB := spec.IncludeDatabase
	if payload.RequiresDatabase != nil {
		requiresDB = *payload.RequiresDatabase
	}
	instructions := payload.Instructions
	if instructions == "" {
		instructions = "No instructions provided"
	}

	out := &AppResponse{
		Files:            payload.Files,
		Instructions:     instructions,
		Dependencies:     payload.Dependencies,
		RequiresDatabase: requiresDB,
		DatabaseSchema:   payload.DatabaseSchema,
		DeploymentConfig: map[string]interface{}{
			"framework":     spec.Framework,
			"port":          3000,
			"build_command": "npm run build",
			"start_command": "npm start",
		},
		ProviderUsed:     fmt.Sprintf("%s/%s", provider, resp.Model),
		GenerationTimeMS: time.Since(start).Milliseconds(),
		TokensUsed:       resp.TokensUsed,
	}

	s.cache.Set(key, out)

	if s.notifier != nil {
		s.notifier.AppGenerated(map[string]interface{}{
			"user_id":           userID,
			"app_id":            key,
			"framework":         spec.Framework,
			"provider":          string(provider),
			"files_count":       len(out.Files),
			"requires_database": out.RequiresDatabase,
			"generated_at":      time.Now().UTC().Format(time.RFC3339),
		})
	}

	logging.S().Infow("app generated",
		"user_id", userID,
		"files", len(out.Files),
		"duration_ms", out.GenerationTimeMS,
		"provider", string(provider))

	c.JSON(http.StatusOK, out)
}

// GenerateFullstack submits an asynchronous dual-provider generation job and
// returns immediately with a poll URL.
func (s *Server) GenerateFullstack(c *gin.Context) {
	var req AppGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	configured := s.selector.Configured()
	if !configured[ai.ProviderOpenAI] || !configured[ai.ProviderAnthropic] {
		s.abortError(c, http.StatusServiceUnavailable, "DUAL_PROVIDER_REQUIRED",
			"SERVICE_ERROR: fullstack mode requires both OpenAI and Anthropic API keys")
		return
	}

	jobID := uuid.NewString()
	ctx := c.Request.Context()

	if err := s.store.Create(ctx, jobs.NewRecord(jobID, time.Now().UTC())); err != nil {
		logging.S().Errorw("failed to create job record", "job_id", jobID, "error", err)
		s.abortError(c, http.StatusInternalServerError, "JOB_CREATE_FAILED", "could not create job")
		return
	}

	job := &jobs.Request{
		JobID:   jobID,
		UserID:  c.GetString("user_id"),
		AppName: req.AppName,
		Spec:    req.spec(),
	}
	if err := s.queue.Enqueue(job); err != nil {
		_ = s.store.Fail(ctx, jobID, "", "server busy: job queue full")
		s.abortError(c, http.StatusServiceUnavailable, "QUEUE_FULL",
			"SERVICE_ERROR: generation queue is full, try again shortly")
		return
	}

	logging.S().Infow("fullstack job queued", "job_id", jobID, "user_id", job.UserID)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":   jobID,
		"status":   string(jobs.StatusPending),
		"message":  "Fullstack generation started",
		"poll_url": "/ai/jobs/" + jobID,
	})
}

// JobStatus returns the stored job record for polling clients.
func (s *Server) JobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	rec, err := s.store.Get(c.Request.Context(), jobID)
	if err == jobs.ErrNotFound {
		s.abortError(c, http.StatusNotFound, "JOB_NOT_FOUND", "job not found or expired")
		return
	}
	if err != nil {
		logging.S().Errorw("job lookup failed", "job_id", jobID, "error", err)
		s.abortError(c, http.StatusInternalServerError, "JOB_LOOKUP_FAILED", "could not read job state")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func callOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
