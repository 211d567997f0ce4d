// Package workflow dispatches accepted registration requests to the
// regulatory-automation backend's webhook.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
)

type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

var _ external.WorkflowTrigger = (*Client)(nil)

func New(url, apiKey string) *Client {
	return &Client{
		URL:    strings.TrimSpace(url),
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: 30 * time.Second},
	}
}

type dispatchResponse struct {
	Accepted   bool   `json:"accepted"`
	ExternalID string `json:"external_id"`
}

func (c *Client) Dispatch(ctx context.Context, payload external.RegistrationPayload) (external.WorkflowReceipt, error) {
	if c.URL == "" {
		return external.WorkflowReceipt{}, fmt.Errorf("workflow url is not configured")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return external.WorkflowReceipt{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(b))
	if err != nil {
		return external.WorkflowReceipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return external.WorkflowReceipt{}, fmt.Errorf("dispatch registration workflow: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return external.WorkflowReceipt{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return external.WorkflowReceipt{}, fmt.Errorf("workflow http %d: %s", resp.StatusCode, string(raw))
	}

	var out dispatchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// Some workflow engines reply with an empty body on accept.
		return external.WorkflowReceipt{Accepted: true}, nil
	}
	return external.WorkflowReceipt{Accepted: out.Accepted, ExternalID: out.ExternalID}, nil
}
