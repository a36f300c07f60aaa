package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/ratelimit"
)

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     string          `json:"version"`
	AIProviders map[string]bool `json:"ai_providers"`
	N8NEnabled  bool            `json:"n8n_enabled"`
	JobStore    string          `json:"job_store"`
}

// Root describes the service and its main endpoints.
func (s *Server) Root(c *gin.Context) {
	configured := s.selector.Configured()
	c.JSON(http.StatusOK, gin.H{
		"service": "NexusAI Generation API",
		"version": Version,
		"status":  "operational",
		"ai_providers": gin.H{
			"openai":    configured[ai.ProviderOpenAI],
			"anthropic": configured[ai.ProviderAnthropic],
		},
		"endpoints": gin.H{
			"health":             "/health",
			"generate":           "/ai/generate",
			"generate_app":       "/ai/generate/app",
			"generate_fullstack": "/ai/generate/fullstack",
			"jobs":               "/ai/jobs/{job_id}",
			"sql_assist":         "/sql/assist",
			"deploy":             "/deploy/app",
		},
	})
}

// Health reports degraded rather than unhealthy when no provider is
// configured: the process is fine, generation is not.
func (s *Server) Health(c *gin.Context) {
	configured := s.selector.Configured()
	status := "healthy"
	if !configured[ai.ProviderOpenAI] && !configured[ai.ProviderAnthropic] {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   Version,
		AIProviders: map[string]bool{
			"openai":    configured[ai.ProviderOpenAI],
			"anthropic": configured[ai.ProviderAnthropic],
		},
		N8NEnabled: s.cfg.N8NWebhookBase != "",
		JobStore:   s.storeBackend,
	})
}

// Models lists the models of configured providers, falling back to the full
// catalog when nothing is configured so the frontend picker stays populated.
func (s *Server) Models(c *gin.Context) {
	configured := s.selector.Configured()

	var models []string
	if configured[ai.ProviderOpenAI] {
		models = append(models, ai.KnownModels(ai.ProviderOpenAI)...)
	}
	if configured[ai.ProviderAnthropic] {
		models = append(models, ai.KnownModels(ai.ProviderAnthropic)...)
	}
	if len(models) == 0 {
		models = append(ai.KnownModels(ai.ProviderOpenAI), ai.KnownModels(ai.ProviderAnthropic)...)
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}

// Providers exposes provider availability for the frontend UI.
func (s *Server) Providers(c *gin.Context) {
	configured := s.selector.Configured()

	availability := func(ok bool) string {
		if ok {
			return "available"
		}
		return "unconfigured"
	}

	c.JSON(http.StatusOK, gin.H{
		"providers": []gin.H{
			{
				"name":   "OpenAI",
				"model":  ai.DefaultModel(ai.ProviderOpenAI),
				"status": availability(configured[ai.ProviderOpenAI]),
			},
			{
				"name":   "Anthropic",
				"model":  ai.DefaultModel(ai.ProviderAnthropic),
				"status": availability(configured[ai.ProviderAnthropic]),
			},
		},
		"routing_strategy": "auto",
	})
}

// Usage reports the caller's consumption against their tier quotas.
func (s *Server) Usage(c *gin.Context) {
	userID := c.GetString("user_id")
	tier := c.GetString("user_tier")

	aiUsed, aiQuota := s.limiter.Usage(userID, tier, ratelimit.ScopeAI)
	deployUsed, deployQuota := s.limiter.Usage(userID, tier, ratelimit.ScopeDeploy)

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"tier":    tier,
		"usage": gin.H{
			"ai": gin.H{
				"used":           aiUsed,
				"limit":          aiQuota.Requests,
				"window_seconds": int(aiQuota.Window.Seconds()),
			},
			"deploy": gin.H{
				"used":           deployUsed,
				"limit":          deployQuota.Requests,
				"window_seconds": int(deployQuota.Window.Seconds()),
			},
		},
		"cache_entries": s.cache.Len(),
	})
}
