// Package platform is the REST client for the ClientCheck backend API:
// template reads and the call-log / message-sent audit writes.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/clientcheck/followup-platform/pkg/logging"
)

// Config captures the settings needed to construct a Client.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
	Logger   *logging.Logger
}

// Client calls the platform REST API.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logging.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("platform: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Templates fetches the message templates visible to a role.
func (c *Client) Templates(ctx context.Context, role string) ([]Template, error) {
	endpoint := c.baseURL + "/v1/templates"
	if role != "" {
		endpoint += "?role=" + url.QueryEscape(role)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: build templates request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: fetch templates: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("platform: templates returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed templatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("platform: decode templates: %w", err)
	}
	return parsed.Templates, nil
}

// WriteCallLog posts an audit record for the call that triggered a follow-up.
func (c *Client) WriteCallLog(ctx context.Context, rec CallLogRecord) error {
	return c.post(ctx, "/v1/call-logs", rec)
}

// WriteMessageSent posts the "message sent" record for a contact.
func (c *Client) WriteMessageSent(ctx context.Context, rec MessageSentRecord) error {
	return c.post(ctx, "/v1/messages-sent", rec)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("platform: marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("platform: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("platform: %s returned status %d: %s", path, resp.StatusCode, truncateBody(detail))
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
