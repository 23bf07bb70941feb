// Package client talks to the vibe backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dooshek/vibe/internal/logger"
)

// Turn is one completed exchange, replayed to the backend as history.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// ChatRequest is the body of POST /api/chat. History is always encoded as
// an array. System, when set, replaces the server's system prompt.
type ChatRequest struct {
	Message string `json:"message"`
	History []Turn `json:"history"`
	Speak   bool   `json:"speak"`
	System  string `json:"system,omitempty"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Reply       string `json:"reply"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// Audio decodes the spoken reply. It returns nil when there is none.
func (r *ChatResponse) Audio() ([]byte, error) {
	if r.AudioBase64 == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(r.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid audio_base64: %w", err)
	}
	return data, nil
}

// HealthState is the backend status shown in the status line.
type HealthState string

const (
	Ready    HealthState = "Ready"
	Degraded HealthState = "Degraded"
	Offline  HealthState = "Offline"
)

// Healthy reports whether the state should be styled as healthy.
func (h HealthState) Healthy() bool {
	return h == Ready
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Code, strings.TrimSpace(e.Body))
}

// Client is a backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. A zero timeout means none.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health maps GET /health to a HealthState. Any failure is Offline.
func (c *Client) Health(ctx context.Context) HealthState {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Offline
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debugf("Health check failed: %v", err)
		return Offline
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Offline
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Offline
	}
	if body.Status == "ok" {
		return Ready
	}
	return Degraded
}

// Chat sends one chat request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.History == nil {
		req.History = []Turn{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out ChatResponse
	if err := c.do(httpReq, "/api/chat", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcribe uploads a clip as the multipart field "file".
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("error copying file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("error closing multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcribe", body)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(httpReq, "/api/transcribe", &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("error unmarshaling response: %w", err)
	}
	return nil
}
