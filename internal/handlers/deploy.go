package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nexusai-api/internal/jobs"
	"nexusai-api/internal/logging"
)

// DeployRequest is the body of POST /deploy/app.
type DeployRequest struct {
	AppName          string               `json:"app_name" binding:"required,max=80"`
	Files            []jobs.GeneratedFile `json:"files" binding:"required"`
	Dependencies     map[string]string    `json:"dependencies"`
	Framework        string               `json:"framework"`
	RequiresDatabase bool                 `json:"requires_database"`
	DatabaseSchema   string               `json:"database_schema"`
	AppID            string               `json:"app_id"`
	UserEmail        string               `json:"user_email"`
}

// DeploymentStatus is the polled deployment state. Actual deployment runs in
// the N8N workflow; this is a best-effort per-process view for the frontend.
type DeploymentStatus struct {
	DeploymentID string   `json:"deployment_id"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	CurrentStep  string   `json:"current_step"`
	Logs         []string `json:"logs"`
	Error        string   `json:"error,omitempty"`
}

// DeployApp relays a generated app to the deployment workflow.
func (s *Server) DeployApp(c *gin.Context) {
	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Framework == "" {
		req.Framework = "react"
	}

	userID := c.GetString("user_id")
	deploymentID := uuid.NewString()
	appID := req.AppID
	if appID == "" {
		appID = deploymentID
	}

	s.deployMu.Lock()
	s.deploys[deploymentID] = &DeploymentStatus{
		DeploymentID: deploymentID,
		Status:       "pending",
		Progress:     5,
		CurrentStep:  "queued",
		Logs:         []string{"Deployment queued"},
	}
	s.deployMu.Unlock()

	files := make([]map[string]string, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, map[string]string{
			"path":     f.Path,
			"content":  f.Content,
			"language": f.Language,
		})
	}

	if s.notifier != nil {
		s.notifier.DeployRequested(map[string]interface{}{
			"deployment_id":     deploymentID,
			"app_id":            appID,
			"app_name":          req.AppName,
			"user_id":           userID,
			"user_email":        req.UserEmail,
			"framework":         req.Framework,
			"files":             files,
			"dependencies":      req.Dependencies,
			"requires_database": req.RequiresDatabase,
			"database_schema":   req.DatabaseSchema,
			"requested_at":      time.Now().UTC().Format(time.RFC3339),
		})
	}

	logging.S().Infow("deployment requested",
		"deployment_id", deploymentID,
		"app_name", req.AppName,
		"user_id", userID,
		"files", len(req.Files))

	c.JSON(http.StatusOK, gin.H{
		"deployment_id": deploymentID,
		"app_name":      req.AppName,
		"status":        "pending",
		"steps": []gin.H{
			{"step": "queued", "status": "success"},
			{"step": "building", "status": "pending"},
			{"step": "deploying", "status": "pending"},
		},
		"app_url": nil,
	})
}

// DeploymentStatusByID reports deployment progress. Unknown ids answer as
// still pending rather than 404: status lives per-process while deployment
// runs elsewhere, and the frontend treats 404 as a hard failure.
func (s *Server) DeploymentStatusByID(c *gin.Context) {
	deploymentID := c.Param("deployment_id")

	s.deployMu.RLock()
	status, ok := s.deploys[deploymentID]
	s.deployMu.RUnlock()

	if !ok {
		c.JSON(http.StatusOK, DeploymentStatus{
			DeploymentID: deploymentID,
			Status:       "pending",
			Progress:     0,
			CurrentStep:  "queued",
			Logs:         []string{},
		})
		return
	}
	c.JSON(http.StatusOK, status)
}
