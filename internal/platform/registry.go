package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Registry records generated apps with the platform API so they show up in
// the user's dashboard.
type Registry struct {
	baseURL string
	client  *http.Client
}

func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// AppRecord is the registry's view of a generated app.
type AppRecord struct {
	AppID       string `json:"app_id,omitempty"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Framework   string `json:"framework"`
	FileCount   int    `json:"file_count"`
	HasDatabase bool   `json:"has_database"`
}

// SaveApp registers the app and returns its assigned id.
func (r *Registry) SaveApp(ctx context.Context, record *AppRecord) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal app record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/apps", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call app registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("app registry returned status %d", resp.StatusCode)
	}

	var out struct {
		AppID string `json:"app_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode registry response: %w", err)
	}
	return out.AppID, nil
}
