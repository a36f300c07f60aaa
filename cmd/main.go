// NexusAI generation API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/config"
	"nexusai-api/internal/handlers"
	"nexusai-api/internal/jobs"
	"nexusai-api/internal/logging"
	"nexusai-api/internal/platform"
	"nexusai-api/internal/ratelimit"
)

func main() {
	// Missing .env is fine in containers where everything arrives via the
	// environment.
	_ = godotenv.Load()

	logging.Init()
	defer logging.Sync()
	log := logging.S()

	cfg := config.Load()
	for _, warning := range cfg.Validate() {
		log.Warnw("configuration", "warning", warning)
	}

	var openaiClient, anthropicClient ai.Client
	if cfg.OpenAIAPIKey != "" {
		openaiClient = ai.NewOpenAIClient(cfg.OpenAIAPIKey)
		log.Infow("provider configured", "provider", "openai")
	}
	if cfg.AnthropicAPIKey != "" {
		anthropicClient = ai.NewAnthropicClient(cfg.AnthropicAPIKey)
		log.Infow("provider configured", "provider", "anthropic")
	}
	selector := ai.NewSelector(openaiClient, anthropicClient)

	store := jobs.NewStore(cfg.RedisURL, cfg.RedisAddr, cfg.JobTTL)
	storeBackend := "memory"
	if _, ok := store.(*jobs.RedisStore); ok {
		storeBackend = "redis"
	}

	notifier := platform.NewWebhookNotifier(cfg.N8NAppGenerated, cfg.N8NAppDeploy, cfg.N8NAppError)
	provisioner := platform.NewProvisioner(cfg.ProvisionerURL)
	registry := platform.NewRegistry(cfg.AppRegistryURL)

	orchestrator := jobs.NewOrchestrator(selector, store, notifier, provisioner, registry)
	queue := jobs.NewQueue(orchestrator, cfg.JobWorkers, cfg.JobQueueSize)

	server := handlers.NewServer(cfg,
		selector,
		ratelimit.NewLimiter(),
		ratelimit.NewCache(cfg.CacheTTL),
		store,
		queue,
		notifier,
		storeBackend,
	)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		// Generation calls can hold a connection for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("server starting",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"job_store", storeBackend,
			"workers", cfg.JobWorkers)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http shutdown failed", "error", err)
	}

	queue.Shutdown()
	log.Info("server stopped")
}
