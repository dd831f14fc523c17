package dispatch

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

// AgentLinkOpener asks the device agent to open a link on the handset. The
// agent answers 422 when no installed app can resolve the link, which maps to
// ErrChannelUnavailable so the dispatcher can fall back.
type AgentLinkOpener struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewAgentLinkOpener(baseURL string, logger *logging.Logger) *AgentLinkOpener {
	if logger == nil {
		logger = logging.Default()
	}
	return &AgentLinkOpener{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ LinkOpener = (*AgentLinkOpener)(nil)

type openLinkRequest struct {
	InstallationID string `json:"installation_id"`
	Link           string `json:"link"`
}

func (o *AgentLinkOpener) OpenLink(ctx context.Context, installationID, link string) error {
	if o.baseURL == "" {
		return fmt.Errorf("dispatch: device agent base url not configured")
	}
	body, err := json.Marshal(openLinkRequest{InstallationID: installationID, Link: link})
	if err != nil {
		return fmt.Errorf("dispatch: marshal open-link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/open-link", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch: build open-link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch: open-link request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return ErrChannelUnavailable
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("dispatch: open-link returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
