// Package jobs implements the asynchronous full-stack generation pipeline:
// job records and their wire contract, pluggable persistence, a worker pool,
// and the multi-phase orchestrator that drives dual-provider generation.
package jobs

import (
	"time"

	"nexusai-api/internal/prompts"
)

// Status is a job lifecycle state. Completed and Failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a job in this status can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase names one stage of the generation pipeline, in execution order.
type Phase string

const (
	PhaseArchitecture Phase = "architecture"
	PhaseFrontend     Phase = "frontend"
	PhaseBackend      Phase = "backend"
	PhaseIntegration  Phase = "integration"
	PhaseDatabase     Phase = "database"
)

// Record is the stored and polled representation of one generation job. The
// JSON field names are a contract with the polling frontend and must not
// change.
type Record struct {
	JobID     string    `json:"job_id"`
	Status    Status    `json:"status"`
	Phase     Phase     `json:"phase,omitempty"`
	Progress  int       `json:"progress_percent"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// GeneratedFile is one file of a generated application.
type GeneratedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// DatabaseInfo describes a database provisioned for the generated app. The
// connection string is intentionally absent: it is delivered through the
// deployment workflow, not the poll endpoint.
type DatabaseInfo struct {
	DatabaseName  string   `json:"database_name"`
	TablesCreated []string `json:"tables_created"`
}

// Result is the payload of a completed job.
type Result struct {
	Files            []GeneratedFile   `json:"files"`
	Instructions     string            `json:"instructions"`
	Dependencies     map[string]string `json:"dependencies"`
	RequiresDatabase bool              `json:"requires_database"`
	DatabaseSchema   string            `json:"database_schema,omitempty"`
	Database         *DatabaseInfo     `json:"database,omitempty"`
	AppID            string            `json:"app_id,omitempty"`
	ProviderUsed     string            `json:"provider_used"`
	GenerationTimeMS int64             `json:"generation_time_ms"`
	TokensUsed       int               `json:"tokens_used"`
}

// Request is a queued generation job: what to build and who asked.
type Request struct {
	JobID   string
	UserID  string
	AppName string
	Spec    prompts.AppSpec
}

// NewRecord returns the initial pending record for a job.
func NewRecord(jobID string, now time.Time) *Record {
	return &Record{
		JobID:     jobID,
		Status:    StatusPending,
		Progress:  0,
		Message:   "Job queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}
