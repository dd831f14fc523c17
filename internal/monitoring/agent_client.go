package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

// AgentClient talks to the device agent for one installation. It implements
// the lifecycle collaborator interfaces: permission checks, event-source
// start/stop, and the system-settings prompt after a denial.
type AgentClient struct {
	baseURL        string
	installationID string
	httpClient     *http.Client
	logger         *logging.Logger
}

func NewAgentClient(baseURL, installationID string, logger *logging.Logger) *AgentClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &AgentClient{
		baseURL:        baseURL,
		installationID: installationID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var (
	_ PermissionClient = (*AgentClient)(nil)
	_ EventSource      = (*AgentClient)(nil)
	_ SettingsPrompter = (*AgentClient)(nil)
)

type permissionResponse struct {
	Status  string `json:"status"`
	Granted bool   `json:"granted"`
}

// Check returns the current call-log permission status on the device.
func (c *AgentClient) Check(ctx context.Context) (PermissionStatus, error) {
	var resp permissionResponse
	if err := c.call(ctx, http.MethodGet, "/v1/permissions/call-log", &resp); err != nil {
		return PermissionChecking, err
	}
	switch resp.Status {
	case string(PermissionGranted):
		return PermissionGranted, nil
	case string(PermissionDenied):
		return PermissionDenied, nil
	default:
		return PermissionChecking, nil
	}
}

// Request asks the device to show the permission dialog and reports whether
// the user granted it.
func (c *AgentClient) Request(ctx context.Context) (bool, error) {
	var resp permissionResponse
	if err := c.call(ctx, http.MethodPost, "/v1/permissions/call-log/request", &resp); err != nil {
		return false, err
	}
	return resp.Granted, nil
}

// Start begins streaming call events from the device to the ingest webhook.
func (c *AgentClient) Start(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/call-events/start", nil)
}

// Stop halts the call-event stream.
func (c *AgentClient) Stop(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/call-events/stop", nil)
}

// OpenPermissionSettings directs the user to the system settings screen.
func (c *AgentClient) OpenPermissionSettings(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/permissions/settings", nil)
}

type agentRequest struct {
	InstallationID string `json:"installation_id"`
}

func (c *AgentClient) call(ctx context.Context, method, path string, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("monitoring: device agent base url not configured")
	}

	var reqBody io.Reader
	if method != http.MethodGet {
		body, err := json.Marshal(agentRequest{InstallationID: c.installationID})
		if err != nil {
			return fmt.Errorf("monitoring: marshal agent request: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}

	url := c.baseURL + path
	if method == http.MethodGet {
		url += "?installation_id=" + c.installationID
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("monitoring: build agent request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("monitoring: agent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("monitoring: agent returned status %d: %s", resp.StatusCode, string(detail))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(out); err != nil {
		return fmt.Errorf("monitoring: decode agent response: %w", err)
	}
	return nil
}
