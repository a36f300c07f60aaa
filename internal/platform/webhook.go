// Package platform holds clients for the services around the generation API:
// N8N workflow webhooks, the database provisioner, and the app registry.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nexusai-api/internal/logging"
)

// WebhookNotifier delivers events to N8N workflow endpoints. Delivery is
// fire-and-forget: failures are logged and never surfaced to the caller,
// because a down automation pipeline must not fail a generation.
type WebhookNotifier struct {
	client *http.Client

	AppGeneratedURL string
	AppDeployURL    string
	AppErrorURL     string
}

func NewWebhookNotifier(appGenerated, appDeploy, appError string) *WebhookNotifier {
	return &WebhookNotifier{
		client:          &http.Client{Timeout: 5 * time.Second},
		AppGeneratedURL: appGenerated,
		AppDeployURL:    appDeploy,
		AppErrorURL:     appError,
	}
}

// Send posts payload to url in the calling goroutine. Most callers want
// SendAsync instead.
func (n *WebhookNotifier) Send(ctx context.Context, url string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	logging.S().Infow("n8n webhook sent", "url", url, "event", payload["event"])
	return nil
}

// SendAsync delivers payload in a background goroutine with its own timeout.
// Errors are logged only.
func (n *WebhookNotifier) SendAsync(url string, payload map[string]interface{}) {
	if url == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Send(ctx, url, payload); err != nil {
			logging.S().Errorw("n8n webhook failed", "url", url, "error", err)
		}
	}()
}

// AppGenerated fires the app-generated workflow.
func (n *WebhookNotifier) AppGenerated(payload map[string]interface{}) {
	payload["event"] = "app_generated"
	n.SendAsync(n.AppGeneratedURL, payload)
}

// DeployRequested fires the deployment workflow, which performs the actual
// build and rollout.
func (n *WebhookNotifier) DeployRequested(payload map[string]interface{}) {
	payload["event"] = "deploy_app"
	n.SendAsync(n.AppDeployURL, payload)
}

// GenerationFailed fires the error workflow.
func (n *WebhookNotifier) GenerationFailed(payload map[string]interface{}) {
	payload["event"] = "generation_failed"
	n.SendAsync(n.AppErrorURL, payload)
}
