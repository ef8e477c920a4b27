// Package stego implements the HTTP client for the remote steganography
// service: the hide/extract encoding endpoints plus the session and stats
// collaborators that surround them.
//
// All payload bytes cross the wire base64-encoded inside JSON bodies; the
// client deals only in the already-encoded text and leaves encoding and
// decoding to the codec package. Responses are parsed defensively into
// closed structs and the application-level success flag is left for the
// caller to interpret.
package stego

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const userAgent = "stegoctl/1.0"

// TransportError reports a failed exchange with the service: a non-2xx
// status, an unreachable host, or an unparseable body.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Endpoint, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Client talks to one steganography service instance. The embedded cookie
// jar carries the session established by the OAuth login flow, so /api/user
// and /api/save-stats see the same identity the browser would.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the service at baseURL. A nil logger falls
// back to slog.Default.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("stego: base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("stego: failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// Hide submits a hide request. The returned response may carry
// Success=false with a service-supplied error message; that is not a
// transport error and is returned without an error.
func (c *Client) Hide(ctx context.Context, req HideRequest) (*HideResponse, error) {
	var resp HideResponse
	if err := c.postJSON(ctx, "/api/hide", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Extract submits an extract request.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	var resp ExtractResponse
	if err := c.postJSON(ctx, "/api/extract", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FileInfo asks the service to inspect a prospective container file.
func (c *Client) FileInfo(ctx context.Context, req FileInfoRequest) (*FileInfo, error) {
	var resp FileInfo
	if err := c.postJSON(ctx, "/api/file-info", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// User fetches the current session profile.
func (c *Client) User(ctx context.Context) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/user", nil)
	if err != nil {
		return nil, &TransportError{Endpoint: "/api/user", Message: err.Error(), Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)

	var profile UserProfile
	if err := c.do(req, "/api/user", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	var resp struct {
		Success bool `json:"success"`
	}
	return c.postJSON(ctx, "/api/logout", struct{}{}, &resp)
}

// SaveStats mirrors local stats to the remote profile store. Requires an
// authenticated session; the service answers 401 otherwise.
func (c *Client) SaveStats(ctx context.Context, payload StatsPayload) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	if err := c.postJSON(ctx, "/api/save-stats", payload, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &TransportError{Endpoint: "/api/save-stats", Message: resp.Error}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Message: "failed to encode request body", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return &TransportError{Endpoint: endpoint, Message: err.Error(), Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(req.Context(), "stego_request_failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return &TransportError{Endpoint: endpoint, Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serviceErrorMessage(body)
		c.logger.ErrorContext(req.Context(), "stego_request_rejected",
			slog.String("endpoint", endpoint),
			slog.Int("status_code", resp.StatusCode),
			slog.String("message", msg),
		)
		return &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Endpoint: endpoint, Message: "malformed response body", Cause: err}
	}

	c.logger.DebugContext(req.Context(), "stego_request_completed",
		slog.String("endpoint", endpoint),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// serviceErrorMessage pulls the error field out of a JSON error body,
// falling back to the raw body text.
func serviceErrorMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(bytes.TrimSpace(body))
}
