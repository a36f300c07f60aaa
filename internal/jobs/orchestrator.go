package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/logging"
	"nexusai-api/internal/metrics"
	"nexusai-api/internal/platform"
	"nexusai-api/internal/prompts"
	"nexusai-api/internal/recovery"
)

// Orchestrator runs the five-phase generation pipeline: architecture
// planning, frontend code, backend code, integration review, and database
// provisioning. Planning phases prefer the provider strongest at system
// design, code phases the one strongest at bulk code generation; with a
// single provider configured everything runs on it.
type Orchestrator struct {
	selector    *ai.Selector
	store       Store
	notifier    *platform.WebhookNotifier
	provisioner *platform.Provisioner
	registry    *platform.Registry
}

func NewOrchestrator(selector *ai.Selector, store Store, notifier *platform.WebhookNotifier, provisioner *platform.Provisioner, registry *platform.Registry) *Orchestrator {
	return &Orchestrator{
		selector:    selector,
		store:       store,
		notifier:    notifier,
		provisioner: provisioner,
		registry:    registry,
	}
}

// codePayload is the shape both code-generation phases answer with. Backend
// responses additionally fill the database fields.
type codePayload struct {
	Files            []GeneratedFile   `json:"files"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	Scripts          map[string]string `json:"scripts"`
	DatabaseSchema   string            `json:"database_schema"`
	RequiresDatabase bool              `json:"requires_database"`
}

type integrationPayload struct {
	IntegrationFixes []struct {
		File   string `json:"file"`
		Change string `json:"change"`
		Reason string `json:"reason"`
	} `json:"integration_fixes"`
	DockerCompose     string `json:"docker_compose"`
	SetupInstructions string `json:"setup_instructions"`
	TestEndpoints     []struct {
		Name string `json:"name"`
		Curl string `json:"curl"`
	} `json:"test_endpoints"`
}

// Run executes one job to a terminal state. It never returns an error: every
// failure path lands in the store as a failed record.
func (o *Orchestrator) Run(ctx context.Context, req *Request) {
	start := time.Now()
	log := logging.S().With("job_id", req.JobID, "user_id", req.UserID)
	log.Infow("fullstack generation started", "description", truncate(req.Spec.Description, 100))

	// Phase 1: architecture planning.
	o.progress(ctx, req.JobID, PhaseArchitecture, 5, "Designing application architecture")
	archResp, architecture, err := o.runArchitecture(ctx, req)
	if err != nil {
		o.fail(ctx, req, PhaseArchitecture, err)
		return
	}

	// Phase 2: frontend code.
	o.progress(ctx, req.JobID, PhaseFrontend, 20, "Generating frontend code")
	frontend, frontResp, err := o.runCodePhase(ctx, req, PhaseFrontend, prompts.Frontend(req.Spec, architecture),
		"You are an elite frontend developer. Generate COMPLETE production code.")
	if err != nil {
		o.fail(ctx, req, PhaseFrontend, err)
		return
	}

	// Phase 3: backend code.
	o.progress(ctx, req.JobID, PhaseBackend, 40, "Generating backend API")
	backend, backResp, err := o.runCodePhase(ctx, req, PhaseBackend, prompts.Backend(req.Spec, architecture),
		"You are an elite backend developer. Generate COMPLETE production APIs.")
	if err != nil {
		o.fail(ctx, req, PhaseBackend, err)
		return
	}

	// Phase 4: integration review.
	o.progress(ctx, req.JobID, PhaseIntegration, 60, "Integrating frontend and backend")
	integration, integResp, err := o.runIntegration(ctx, req, len(frontend.Files), len(backend.Files), architecture)
	if err != nil {
		o.fail(ctx, req, PhaseIntegration, err)
		return
	}

	result := o.assemble(req, architecture, frontend, backend, integration)
	result.TokensUsed = archResp.TokensUsed + frontResp.TokensUsed + backResp.TokensUsed + integResp.TokensUsed
	result.ProviderUsed = providerLabel(archResp, frontResp)

	// Phase 5: database provisioning and app registration, both best-effort.
	// The generated code is already complete; losing the provisioner should
	// degrade the result, not discard it.
	o.progress(ctx, req.JobID, PhaseDatabase, 80, "Provisioning database")
	o.runDatabase(ctx, req, result)

	o.progress(ctx, req.JobID, PhaseDatabase, 95, "Finalizing")

	result.GenerationTimeMS = time.Since(start).Milliseconds()
	if err := o.store.Complete(ctx, req.JobID, result); err != nil {
		log.Errorw("failed to persist completed job", "error", err)
	}

	if o.notifier != nil {
		o.notifier.AppGenerated(map[string]interface{}{
			"job_id":             req.JobID,
			"user_id":            req.UserID,
			"app_id":             result.AppID,
			"description":        req.Spec.Description,
			"framework":          req.Spec.Framework,
			"file_count":         len(result.Files),
			"has_backend":        true,
			"has_database":       result.RequiresDatabase,
			"provider":           result.ProviderUsed,
			"generation_time_ms": result.GenerationTimeMS,
			"generated_at":       time.Now().UTC().Format(time.RFC3339),
		})
	}

	metrics.ObserveJob("completed", time.Since(start))
	log.Infow("fullstack generation complete",
		"files", len(result.Files),
		"tokens", result.TokensUsed,
		"duration_ms", result.GenerationTimeMS)
}

func (o *Orchestrator) runArchitecture(ctx context.Context, req *Request) (*ai.Response, map[string]interface{}, error) {
	provider, planner, err := o.selector.Planning()
	if err != nil {
		return nil, nil, err
	}

	resp, err := o.generate(ctx, planner, &ai.Request{
		ID:          req.JobID + "-architecture",
		Prompt:      prompts.Architecture(req.Spec),
		Temperature: 0.3,
		MaxTokens:   8192,
	}, PhaseArchitecture)
	if err != nil {
		return nil, nil, fmt.Errorf("architecture planning on %s: %w", provider, err)
	}

	architecture, err := recovery.Document(resp.Content, "architecture phase")
	if err != nil {
		return nil, nil, err
	}
	return resp, architecture, nil
}

func (o *Orchestrator) runCodePhase(ctx context.Context, req *Request, phase Phase, prompt, system string) (*codePayload, *ai.Response, error) {
	provider, coder, err := o.selector.CodeGen()
	if err != nil {
		return nil, nil, err
	}

	resp, err := o.generate(ctx, coder, &ai.Request{
		ID:          req.JobID + "-" + string(phase),
		Prompt:      prompt,
		System:      system,
		Temperature: 0.7,
		MaxTokens:   16000,
		ForceJSON:   true,
	}, phase)
	if err != nil {
		return nil, nil, fmt.Errorf("%s generation on %s: %w", phase, provider, err)
	}

	var payload codePayload
	if err := recovery.Into(resp.Content, string(phase)+" phase", &payload); err != nil {
		return nil, nil, err
	}
	if len(payload.Files) == 0 {
		return nil, nil, fmt.Errorf("%s phase produced no files", phase)
	}
	return &payload, resp, nil
}

func (o *Orchestrator) runIntegration(ctx context.Context, req *Request, frontendFiles, backendFiles int, architecture map[string]interface{}) (*integrationPayload, *ai.Response, error) {
	provider, planner, err := o.selector.Planning()
	if err != nil {
		return nil, nil, err
	}

	resp, err := o.generate(ctx, planner, &ai.Request{
		ID:          req.JobID + "-integration",
		Prompt:      prompts.Integration(frontendFiles, backendFiles, architecture),
		Temperature: 0.2,
		MaxTokens:   4096,
	}, PhaseIntegration)
	if err != nil {
		return nil, nil, fmt.Errorf("integration review on %s: %w", provider, err)
	}

	var payload integrationPayload
	if err := recovery.Into(resp.Content, "integration phase", &payload); err != nil {
		return nil, nil, err
	}
	return &payload, resp, nil
}

func (o *Orchestrator) generate(ctx context.Context, client ai.Client, req *ai.Request, phase Phase) (*ai.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, 4*time.Minute)
	defer cancel()

	start := time.Now()
	resp, err := client.Generate(callCtx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveProviderCall(string(client.Provider()), string(phase), outcome, time.Since(start))
	return resp, err
}

// runDatabase provisions the database and registers the app. Failures here
// are logged and reflected in the result, never fatal.
func (o *Orchestrator) runDatabase(ctx context.Context, req *Request, result *Result) {
	log := logging.S().With("job_id", req.JobID)

	if result.RequiresDatabase && result.DatabaseSchema != "" && o.provisioner != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		provisioned, err := o.provisioner.Provision(dbCtx, &platform.ProvisionRequest{
			AppID:  req.JobID,
			UserID: req.UserID,
			Schema: result.DatabaseSchema,
		})
		cancel()
		if err != nil {
			log.Warnw("database provisioning failed, app delivered without database", "error", err)
		} else {
			result.Database = &DatabaseInfo{
				DatabaseName:  provisioned.DatabaseName,
				TablesCreated: provisioned.TablesCreated,
			}
		}
	}

	if o.registry != nil {
		regCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		appID, err := o.registry.SaveApp(regCtx, &platform.AppRecord{
			UserID:      req.UserID,
			Name:        req.AppName,
			Description: req.Spec.Description,
			Framework:   req.Spec.Framework,
			FileCount:   len(result.Files),
			HasDatabase: result.Database != nil,
		})
		cancel()
		if err != nil {
			log.Warnw("app registry save failed", "error", err)
		} else {
			result.AppID = appID
		}
	}
}

// assemble merges the phase outputs into the final result, appending the
// orchestration files the integration phase produced.
func (o *Orchestrator) assemble(req *Request, architecture map[string]interface{}, frontend, backend *codePayload, integration *integrationPayload) *Result {
	files := make([]GeneratedFile, 0, len(frontend.Files)+len(backend.Files)+2)
	files = append(files, frontend.Files...)
	files = append(files, backend.Files...)

	if integration.DockerCompose != "" {
		files = append(files, GeneratedFile{
			Path:     "docker-compose.yml",
			Content:  integration.DockerCompose,
			Language: "yaml",
		})
	}
	files = append(files, GeneratedFile{
		Path:     "README.md",
		Content:  buildReadme(req, architecture, integration),
		Language: "markdown",
	})

	deps := make(map[string]string, len(frontend.Dependencies)+len(backend.Dependencies))
	for k, v := range frontend.Dependencies {
		deps[k] = v
	}
	for k, v := range backend.Dependencies {
		deps[k] = v
	}

	return &Result{
		Files:            files,
		Instructions:     integration.SetupInstructions,
		Dependencies:     deps,
		RequiresDatabase: backend.RequiresDatabase,
		DatabaseSchema:   backend.DatabaseSchema,
	}
}

func buildReadme(req *Request, architecture map[string]interface{}, integration *integrationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", req.Spec.Description)

	if arch, err := json.MarshalIndent(architecture["architecture"], "", "  "); err == nil {
		fmt.Fprintf(&b, "## Architecture Overview\n```json\n%s\n```\n\n", arch)
	}
	if integration.SetupInstructions != "" {
		fmt.Fprintf(&b, "## Setup Instructions\n%s\n\n", integration.SetupInstructions)
	}
	if len(integration.TestEndpoints) > 0 {
		b.WriteString("## Test Endpoints\n")
		for _, t := range integration.TestEndpoints {
			fmt.Fprintf(&b, "- %s: `%s`\n", t.Name, t.Curl)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Generated by NexusAI\n")
	return b.String()
}

func (o *Orchestrator) progress(ctx context.Context, jobID string, phase Phase, pct int, message string) {
	if err := o.store.UpdateProgress(ctx, jobID, phase, pct, message); err != nil {
		logging.S().Errorw("failed to update job progress", "job_id", jobID, "phase", phase, "error", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, req *Request, phase Phase, cause error) {
	logging.S().Errorw("generation phase failed", "job_id", req.JobID, "phase", phase, "error", cause)

	if err := o.store.Fail(ctx, req.JobID, phase, cause.Error()); err != nil {
		logging.S().Errorw("failed to persist job failure", "job_id", req.JobID, "error", err)
	}
	if o.notifier != nil {
		o.notifier.GenerationFailed(map[string]interface{}{
			"job_id":      req.JobID,
			"user_id":     req.UserID,
			"phase":       string(phase),
			"error":       cause.Error(),
			"description": req.Spec.Description,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
	metrics.ObserveJob("failed", 0)
}

func providerLabel(plan, code *ai.Response) string {
	if plan.Provider == code.Provider {
		return fmt.Sprintf("%s (%s)", plan.Provider, code.Model)
	}
	return fmt.Sprintf("dual-ai (%s + %s)", plan.Model, code.Model)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
