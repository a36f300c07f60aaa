package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/prompts"
)

const fakeArchitecture = `{
	"architecture": {
		"frontend": {"framework": "react", "components": ["TaskList"]},
		"backend": {"framework": "Express", "endpoints": [{"method": "GET", "path": "/api/tasks"}]},
		"database": {"type": "PostgreSQL"}
	},
	"file_structure": {"frontend": ["src/App.tsx - entry"], "backend": ["server/src/index.ts - entry"]}
}`

const fakeFrontend = `{
	"files": [
		{"path": "src/App.tsx", "content": "export default function App() {}", "language": "typescript"},
		{"path": "src/api.ts", "content": "export const api = {};", "language": "typescript"}
	],
	"dependencies": {"react": "^18.3.1"}
}`

const fakeBackend = `{
	"files": [
		{"path": "server/src/index.ts", "content": "import express from 'express';", "language": "typescript"}
	],
	"dependencies": {"express": "^4.19.0"},
	"database_schema": "CREATE TABLE tasks (id UUID PRIMARY KEY);",
	"requires_database": true
}`

const fakeIntegration = `{
	"integration_fixes": [],
	"docker_compose": "services:\n  web: {}\n",
	"setup_instructions": "npm install && npm run dev",
	"test_endpoints": [{"name": "List tasks", "curl": "curl /api/tasks"}]
}`

// fakeClient answers each phase with canned content, keyed on the request id
// suffix. Phases listed in failOn return an error instead.
type fakeClient struct {
	provider ai.Provider
	failOn   string

	mu    sync.Mutex
	calls []string
}

func (f *fakeClient) Generate(_ context.Context, req *ai.Request) (*ai.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.ID)
	f.mu.Unlock()

	suffix := req.ID[strings.LastIndex(req.ID, "-")+1:]
	if f.failOn == suffix {
		return nil, fmt.Errorf("SERVICE_ERROR: %s backend unavailable", f.provider)
	}

	content := map[string]string{
		"architecture": fakeArchitecture,
		"frontend":     fakeFrontend,
		"backend":      fakeBackend,
		"integration":  fakeIntegration,
	}[suffix]

	return &ai.Response{
		ID:         req.ID,
		Provider:   f.provider,
		Model:      "fake-model",
		Content:    content,
		TokensUsed: 100,
	}, nil
}

func (f *fakeClient) Provider() ai.Provider { return f.provider }

// recordingStore captures every progress checkpoint on top of the memory
// store.
type recordingStore struct {
	*MemoryStore

	mu          sync.Mutex
	checkpoints []int
}

func (s *recordingStore) UpdateProgress(ctx context.Context, jobID string, phase Phase, progress int, message string) error {
	s.mu.Lock()
	s.checkpoints = append(s.checkpoints, progress)
	s.mu.Unlock()
	return s.MemoryStore.UpdateProgress(ctx, jobID, phase, progress, message)
}

func testRequest() *Request {
	return &Request{
		JobID:   "job-test",
		UserID:  "user-1",
		AppName: "tasks",
		Spec: prompts.AppSpec{
			Description:     "task tracker with auth",
			Framework:       "react",
			Styling:         "tailwind",
			IncludeAPI:      true,
			IncludeDatabase: true,
		},
	}
}

func TestOrchestratorCompletesJob(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{MemoryStore: NewMemoryStore(time.Hour)}
	require.NoError(t, store.Create(ctx, NewRecord("job-test", time.Now())))

	selector := ai.NewSelector(
		&fakeClient{provider: ai.ProviderOpenAI},
		&fakeClient{provider: ai.ProviderAnthropic},
	)
	orch := NewOrchestrator(selector, store, nil, nil, nil)

	orch.Run(ctx, testRequest())

	rec, err := store.Get(ctx, "job-test")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	require.NotNil(t, rec.Result)

	// Frontend and backend files plus docker-compose.yml and README.md.
	assert.Len(t, rec.Result.Files, 5)
	paths := make([]string, 0, len(rec.Result.Files))
	for _, f := range rec.Result.Files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "docker-compose.yml")
	assert.Contains(t, paths, "README.md")

	assert.True(t, rec.Result.RequiresDatabase)
	assert.Equal(t, "CREATE TABLE tasks (id UUID PRIMARY KEY);", rec.Result.DatabaseSchema)
	assert.Equal(t, "npm install && npm run dev", rec.Result.Instructions)
	assert.Equal(t, "^18.3.1", rec.Result.Dependencies["react"])
	assert.Equal(t, "^4.19.0", rec.Result.Dependencies["express"])

	// Four provider calls at 100 tokens each.
	assert.Equal(t, 400, rec.Result.TokensUsed)
	assert.Contains(t, rec.Result.ProviderUsed, "dual-ai")
}

func TestOrchestratorProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{MemoryStore: NewMemoryStore(time.Hour)}
	require.NoError(t, store.Create(ctx, NewRecord("job-test", time.Now())))

	selector := ai.NewSelector(
		&fakeClient{provider: ai.ProviderOpenAI},
		&fakeClient{provider: ai.ProviderAnthropic},
	)
	NewOrchestrator(selector, store, nil, nil, nil).Run(ctx, testRequest())

	require.NotEmpty(t, store.checkpoints)
	for i := 1; i < len(store.checkpoints); i++ {
		assert.GreaterOrEqual(t, store.checkpoints[i], store.checkpoints[i-1],
			"progress must never move backwards: %v", store.checkpoints)
	}
}

func TestOrchestratorBackendFailureStopsPipeline(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{MemoryStore: NewMemoryStore(time.Hour)}
	require.NoError(t, store.Create(ctx, NewRecord("job-test", time.Now())))

	openai := &fakeClient{provider: ai.ProviderOpenAI, failOn: "backend"}
	anthropic := &fakeClient{provider: ai.ProviderAnthropic}
	selector := ai.NewSelector(openai, anthropic)

	NewOrchestrator(selector, store, nil, nil, nil).Run(ctx, testRequest())

	rec, err := store.Get(ctx, "job-test")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, PhaseBackend, rec.Phase)
	assert.Contains(t, rec.Error, "SERVICE_ERROR")
	assert.Nil(t, rec.Result)

	// No checkpoint past the backend phase start.
	for _, p := range store.checkpoints {
		assert.LessOrEqual(t, p, 40)
	}

	// Integration never ran on the planning client.
	for _, id := range anthropic.calls {
		assert.NotContains(t, id, "integration")
	}
}

func TestOrchestratorSingleProviderRunsAllPhases(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{MemoryStore: NewMemoryStore(time.Hour)}
	require.NoError(t, store.Create(ctx, NewRecord("job-test", time.Now())))

	openai := &fakeClient{provider: ai.ProviderOpenAI}
	selector := ai.NewSelector(openai, nil)

	NewOrchestrator(selector, store, nil, nil, nil).Run(ctx, testRequest())

	rec, err := store.Get(ctx, "job-test")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Len(t, openai.calls, 4)
	assert.NotContains(t, rec.Result.ProviderUsed, "dual-ai")
}
