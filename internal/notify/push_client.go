package notify

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

// PushClient talks to the push subsystem's REST API.
type PushClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewPushClient builds a client with sane defaults.
func NewPushClient(baseURL, apiToken string, logger *logging.Logger) *PushClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &PushClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ Pusher = (*PushClient)(nil)

type displayRequest struct {
	InstallationID string       `json:"installation_id"`
	Notification   Notification `json:"notification"`
}

type cancelRequest struct {
	InstallationID string `json:"installation_id"`
	NotificationID string `json:"notification_id"`
}

// Display posts the notification to the push subsystem.
func (c *PushClient) Display(ctx context.Context, installationID string, n Notification) error {
	payload := displayRequest{InstallationID: installationID, Notification: n}
	if err := c.post(ctx, "/v1/notifications", payload); err != nil {
		return err
	}
	c.logger.Debug("push displayed", "installation_id", installationID, "notification_id", n.ID)
	return nil
}

// Cancel removes a previously displayed notification.
func (c *PushClient) Cancel(ctx context.Context, installationID, notificationID string) error {
	payload := cancelRequest{InstallationID: installationID, NotificationID: notificationID}
	if err := c.post(ctx, "/v1/notifications/cancel", payload); err != nil {
		return err
	}
	c.logger.Debug("push cancelled", "installation_id", installationID, "notification_id", notificationID)
	return nil
}

func (c *PushClient) post(ctx context.Context, path string, payload any) error {
	if c.baseURL == "" {
		return fmt.Errorf("notify: push base url not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notify: push %s returned status %d: %s", path, resp.StatusCode, string(detail))
	}
	return nil
}
