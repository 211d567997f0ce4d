// Package whatsapp is the messaging gateway: the Cloud-API client used for
// all outbound sends and for fetching inbound media, plus the webhook
// payload decoding.
package whatsapp

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

const maxMediaBytes = 20 * 1024 * 1024

type Client struct {
	http          *http.Client
	baseURL       string
	token         string
	phoneNumberID string
}

var _ external.Gateway = (*Client)(nil)

func NewClient(httpClient *http.Client, baseURL, token, phoneNumberID string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v19.0"
	}
	return &Client{
		http:          httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		phoneNumberID: phoneNumberID,
	}
}

type sendRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Text             *textBody  `json:"text,omitempty"`
	Image            *imageBody `json:"image,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type imageBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type requestError struct {
	StatusCode int
	Body       string
}

func (e *requestError) Error() string {
	return fmt.Sprintf("whatsapp http %d: %s", e.StatusCode, e.Body)
}

func (c *Client) SendText(ctx context.Context, identity, text string) error {
	return c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               identity,
		Type:             "text",
		Text:             &textBody{Body: text},
	})
}

func (c *Client) SendImage(ctx context.Context, identity, imageURL, caption string) error {
	return c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               identity,
		Type:             "image",
		Image:            &imageBody{Link: imageURL, Caption: caption},
	})
}

func (c *Client) send(ctx context.Context, body sendRequest) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &requestError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

type mediaMetadata struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// DownloadMedia resolves a media id to its temporary URL and fetches the
// bytes. The URL the API hands out requires the same bearer token.
func (c *Client) DownloadMedia(ctx context.Context, mediaRef string) ([]byte, string, error) {
	meta, err := c.mediaMetadata(ctx, mediaRef)
	if err != nil {
		return nil, "", err
	}
	if meta.FileSize > maxMediaBytes {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", mediaRef, maxMediaBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media %s: %w", mediaRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", &requestError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxMediaBytes {
		return nil, "", fmt.Errorf("media %s exceeds %d bytes", mediaRef, maxMediaBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = meta.MimeType
	}
	return data, contentType, nil
}

func (c *Client) mediaMetadata(ctx context.Context, mediaRef string) (*mediaMetadata, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media metadata %s: %w", mediaRef, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &requestError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var meta mediaMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("media %s has no download url", mediaRef)
	}
	return &meta, nil
}
