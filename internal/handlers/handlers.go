// Package handlers implements the HTTP surface of the NexusAI generation
// API: synchronous text and app generation, the asynchronous full-stack job
// endpoints, SQL assistance, deployment relay, and service status.
package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/config"
	"nexusai-api/internal/jobs"
	"nexusai-api/internal/metrics"
	"nexusai-api/internal/middleware"
	"nexusai-api/internal/platform"
	"nexusai-api/internal/ratelimit"
)

// Version is reported by the root and health endpoints.
const Version = "2.0.0"

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	cfg      *config.Config
	selector *ai.Selector
	limiter  *ratelimit.Limiter
	cache    *ratelimit.Cache
	store    jobs.Store
	queue    *jobs.Queue
	notifier *platform.WebhookNotifier

	// storeBackend names the job-store backend chosen at startup, surfaced
	// by the health endpoint.
	storeBackend string

	deployMu sync.RWMutex
	deploys  map[string]*DeploymentStatus
}

func NewServer(cfg *config.Config, selector *ai.Selector, limiter *ratelimit.Limiter, cache *ratelimit.Cache, store jobs.Store, queue *jobs.Queue, notifier *platform.WebhookNotifier, storeBackend string) *Server {
	return &Server{
		cfg:          cfg,
		selector:     selector,
		limiter:      limiter,
		cache:        cache,
		store:        store,
		queue:        queue,
		notifier:     notifier,
		storeBackend: storeBackend,
		deploys:      make(map[string]*DeploymentStatus),
	}
}

// Router builds the Gin engine with the full middleware chain and route
// table.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(metrics.PrometheusMiddleware())
	r.Use(middleware.Identity(s.cfg.JWTSecret))

	r.GET("/", s.Root)
	r.GET("/health", s.Health)
	r.GET("/ai/health", s.Health)
	r.GET("/metrics", metrics.Handler())
	r.GET("/models", s.Models)
	r.GET("/ai/models", s.Models)
	r.GET("/ai/providers", s.Providers)
	r.GET("/usage", s.Usage)

	aiQuota := middleware.TierQuota(s.limiter, ratelimit.ScopeAI)
	r.POST("/ai/generate", aiQuota, s.Generate)
	r.POST("/ai/generate/app", aiQuota, s.GenerateApp)
	r.POST("/ai/generate/fullstack", aiQuota, s.GenerateFullstack)
	r.GET("/ai/jobs/:job_id", s.JobStatus)
	r.GET("/jobs/:job_id", s.JobStatus)
	r.POST("/sql/assist", aiQuota, s.SQLAssist)
	r.POST("/ai/sql/assist", aiQuota, s.SQLAssist)

	deployQuota := middleware.TierQuota(s.limiter, ratelimit.ScopeDeploy)
	r.POST("/deploy/app", deployQuota, s.DeployApp)
	r.POST("/ai/deploy/app", deployQuota, s.DeployApp)
	r.GET("/deploy/status/:deployment_id", s.DeploymentStatusByID)
	r.GET("/ai/deploy/status/:deployment_id", s.DeploymentStatusByID)

	return r
}

func (s *Server) abortError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, middleware.ErrorResponse{
		Error:     msg,
		Code:      code,
		Timestamp: time.Now().UTC(),
		RequestID: c.GetString("request_id"),
	})
}

// providerStatus maps selector errors to HTTP responses shared by the
// generation endpoints.
func (s *Server) abortProviderError(c *gin.Context, err error) {
	if err == ai.ErrNoProvider {
		s.abortError(c, http.StatusServiceUnavailable, "NO_PROVIDER",
			"SERVICE_ERROR: no AI provider configured")
		return
	}
	s.abortError(c, http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
}
