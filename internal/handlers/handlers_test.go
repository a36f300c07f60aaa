package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexusai-api/internal/ai"
	"nexusai-api/internal/config"
	"nexusai-api/internal/jobs"
	"nexusai-api/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeClient returns fixed content for every request and counts calls.
type fakeClient struct {
	provider ai.Provider
	content  string
	err      error
	calls    int64
}

func (f *fakeClient) Generate(_ context.Context, req *ai.Request) (*ai.Response, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Response{
		ID:         req.ID,
		Provider:   f.provider,
		Model:      "fake-model",
		Content:    f.content,
		TokensUsed: 42,
	}, nil
}

func (f *fakeClient) Provider() ai.Provider { return f.provider }

// idleRunner accepts jobs without finishing them, so records stay pending.
type idleRunner struct{}

func (idleRunner) Run(ctx context.Context, _ *jobs.Request) { <-ctx.Done() }

type serverOpts struct {
	openai    ai.Client
	anthropic ai.Client
	queueSize int
}

func newTestServer(t *testing.T, opts serverOpts) *Server {
	t.Helper()
	if opts.queueSize == 0 {
		opts.queueSize = 8
	}

	cfg := &config.Config{
		Environment:    "test",
		N8NWebhookBase: "https://chatbuilds.com/webhook",
		CacheTTL:       time.Hour,
	}
	queue := jobs.NewQueue(idleRunner{}, 1, opts.queueSize)
	t.Cleanup(queue.Shutdown)

	return NewServer(cfg,
		ai.NewSelector(opts.openai, opts.anthropic),
		ratelimit.NewLimiter(),
		ratelimit.NewCache(cfg.CacheTTL),
		jobs.NewMemoryStore(time.Hour),
		queue,
		nil,
		"memory",
	)
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthDegradedWithoutProviders(t *testing.T) {
	router := newTestServer(t, serverOpts{}).Router()

	w := doJSON(router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "memory", resp.JobStore)
	assert.False(t, resp.AIProviders["openai"])
}

func TestModelsFallBackToFullCatalog(t *testing.T) {
	router := newTestServer(t, serverOpts{}).Router()

	w := doJSON(router, http.MethodGet, "/models", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Models, "gpt-4o")
	assert.Contains(t, resp.Models, "claude-3-5-sonnet-20241022")
}

func TestGenerateRejectsShortPrompt(t *testing.T) {
	router := newTestServer(t, serverOpts{openai: &fakeClient{provider: ai.ProviderOpenAI}}).Router()

	w := doJSON(router, http.MethodPost, "/ai/generate", gin.H{"prompt": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateWithoutProvidersReturns503(t *testing.T) {
	router := newTestServer(t, serverOpts{}).Router()

	w := doJSON(router, http.MethodPost, "/ai/generate",
		gin.H{"prompt": "write a haiku about the sea"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NO_PROVIDER")
}

func TestGenerateReturnsProviderOutput(t *testing.T) {
	openai := &fakeClient{provider: ai.ProviderOpenAI, content: "package main"}
	router := newTestServer(t, serverOpts{openai: openai}).Router()

	w := doJSON(router, http.MethodPost, "/ai/generate",
		gin.H{"prompt": "write a go hello world program"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "package main", resp["response"])
	assert.Equal(t, "openai", resp["provider"])
	assert.Equal(t, float64(42), resp["tokens_used"])
}

func TestGenerateAppServesSecondRequestFromCache(t *testing.T) {
	appJSON := `{"files": [{"path": "src/App.tsx", "content": "x", "language": "typescript"}],
		"instructions": "npm run dev", "dependencies": {"react": "^18.3.1"}, "requires_database": false}`
	openai := &fakeClient{provider: ai.ProviderOpenAI, content: appJSON}
	router := newTestServer(t, serverOpts{openai: openai}).Router()

	body := gin.H{"description": "a todo list application with local persistence"}

	first := doJSON(router, http.MethodPost, "/ai/generate/app", body, nil)
	require.Equal(t, http.StatusOK, first.Code)
	second := doJSON(router, http.MethodPost, "/ai/generate/app", body, nil)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, int64(1), atomic.LoadInt64(&openai.calls),
		"second request must be served from cache")

	var resp AppResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 1)
	assert.Equal(t, "npm run dev", resp.Instructions)
}

func TestGenerateFullstackReturnsJobImmediately(t *testing.T) {
	srv := newTestServer(t, serverOpts{
		openai:    &fakeClient{provider: ai.ProviderOpenAI},
		anthropic: &fakeClient{provider: ai.ProviderAnthropic},
	})
	router := srv.Router()

	w := doJSON(router, http.MethodPost, "/ai/generate/fullstack",
		gin.H{"description": "a project tracker with teams and auth"}, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		PollURL string `json:"poll_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "/ai/jobs/"+resp.JobID, resp.PollURL)

	poll := doJSON(router, http.MethodGet, resp.PollURL, nil, nil)
	require.Equal(t, http.StatusOK, poll.Code)

	var rec jobs.Record
	require.NoError(t, json.Unmarshal(poll.Body.Bytes(), &rec))
	assert.Equal(t, resp.JobID, rec.JobID)
	assert.Equal(t, jobs.StatusPending, rec.Status)
}

func TestGenerateFullstackRequiresBothProviders(t *testing.T) {
	router := newTestServer(t, serverOpts{
		openai: &fakeClient{provider: ai.ProviderOpenAI},
	}).Router()

	w := doJSON(router, http.MethodPost, "/ai/generate/fullstack",
		gin.H{"description": "a project tracker with teams and auth"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DUAL_PROVIDER_REQUIRED")
}

func TestJobStatusUnknownReturns404(t *testing.T) {
	router := newTestServer(t, serverOpts{}).Router()

	w := doJSON(router, http.MethodGet, "/ai/jobs/no-such-job", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "JOB_NOT_FOUND")
}

func TestTierQuotaReturns429WithResetTime(t *testing.T) {
	openai := &fakeClient{provider: ai.ProviderOpenAI, content: "ok"}
	router := newTestServer(t, serverOpts{openai: openai}).Router()

	headers := map[string]string{"X-User-ID": "quota-user", "X-User-Tier": "free"}
	body := gin.H{"prompt": "write a limerick about quotas"}

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		last = doJSON(router, http.MethodPost, "/ai/generate", body, headers)
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &resp))
	assert.Equal(t, "QUOTA_EXCEEDED", resp["code"])
	assert.NotEmpty(t, resp["reset_time"])

	// A different user is unaffected.
	other := doJSON(router, http.MethodPost, "/ai/generate", body,
		map[string]string{"X-User-ID": "other-user"})
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestSQLAssistExplain(t *testing.T) {
	anthropic := &fakeClient{provider: ai.ProviderAnthropic, content: "This query selects all users."}
	router := newTestServer(t, serverOpts{anthropic: anthropic}).Router()

	w := doJSON(router, http.MethodPost, "/sql/assist",
		gin.H{"query": "SELECT * FROM users", "action": "explain"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SQLAssistResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "This query selects all users.", resp.Explanation)
	assert.Empty(t, resp.SQL)
	assert.Equal(t, "anthropic", resp.ProviderUsed)
}

func TestSQLAssistRejectsUnknownAction(t *testing.T) {
	router := newTestServer(t, serverOpts{anthropic: &fakeClient{provider: ai.ProviderAnthropic}}).Router()

	w := doJSON(router, http.MethodPost, "/sql/assist",
		gin.H{"query": "SELECT 1", "action": "summarize"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeployAppAndStatus(t *testing.T) {
	router := newTestServer(t, serverOpts{}).Router()

	w := doJSON(router, http.MethodPost, "/deploy/app", gin.H{
		"app_name": "tasks",
		"files":    []gin.H{{"path": "src/App.tsx", "content": "x", "language": "typescript"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	deploymentID, _ := resp["deployment_id"].(string)
	require.NotEmpty(t, deploymentID)
	assert.Equal(t, "pending", resp["status"])

	status := doJSON(router, http.MethodGet, fmt.Sprintf("/deploy/status/%s", deploymentID), nil, nil)
	require.Equal(t, http.StatusOK, status.Code)

	var st DeploymentStatus
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &st))
	assert.Equal(t, deploymentID, st.DeploymentID)
	assert.Equal(t, "queued", st.CurrentStep)
	assert.Equal(t, 5, st.Progress)
}

func TestDeploymentStatusUnknownAnswersPending(t *testing.T) {
	router := newTestServer(t, serverOpts{}).Router()

	w := doJSON(router, http.MethodGet, "/deploy/status/ghost", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st DeploymentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "pending", st.Status)
	assert.Equal(t, 0, st.Progress)
}

func TestUsageReportsConsumption(t *testing.T) {
	openai := &fakeClient{provider: ai.ProviderOpenAI, content: "ok"}
	router := newTestServer(t, serverOpts{openai: openai}).Router()

	headers := map[string]string{"X-User-ID": "usage-user", "X-User-Tier": "pro"}
	for i := 0; i < 3; i++ {
		doJSON(router, http.MethodPost, "/ai/generate",
			gin.H{"prompt": "write a short poem about clouds"}, headers)
	}

	w := doJSON(router, http.MethodGet, "/usage", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserID string `json:"user_id"`
		Tier   string `json:"tier"`
		Usage  struct {
			AI struct {
				Used  int `json:"used"`
				Limit int `json:"limit"`
			} `json:"ai"`
		} `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "usage-user", resp.UserID)
	assert.Equal(t, "pro", resp.Tier)
	assert.Equal(t, 3, resp.Usage.AI.Used)
	assert.Equal(t, 100, resp.Usage.AI.Limit)
}
