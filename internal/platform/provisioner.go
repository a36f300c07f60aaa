package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Provisioner provisions databases for generated apps through the external
// provisioner service.
type Provisioner struct {
	baseURL string
	client  *http.Client
}

func NewProvisioner(baseURL string) *Provisioner {
	return &Provisioner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ProvisionRequest asks for a database and runs the generated schema.
type ProvisionRequest struct {
	AppID  string `json:"app_id"`
	UserID string `json:"user_id"`
	Schema string `json:"schema"`
}

// ProvisionResult describes the created database. ConnectionString is
// credential-bearing and must never be logged.
type ProvisionResult struct {
	DatabaseName     string   `json:"database_name"`
	ConnectionString string   `json:"connection_string"`
	TablesCreated    []string `json:"tables_created"`
}

// Provision creates a database for appID and applies schema.
func (p *Provisioner) Provision(ctx context.Context, req *ProvisionRequest) (*ProvisionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal provision request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/provision", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call database provisioner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("database provisioner returned status %d", resp.StatusCode)
	}

	var result ProvisionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode provisioner response: %w", err)
	}
	return &result, nil
}
