// Package backend is the HTTP client for the auth, catalog and order
// backends. It owns token attachment, response envelope handling and the
// mapping from transport failures to the client error taxonomy; callers get
// canonical model values or a classified error, never raw payloads.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/storefront-client/internal/metrics"
	"github.com/example/storefront-client/internal/normalize"
)

var (
	// ErrAuthentication covers rejected logins and requests rejected for an
	// expired or invalid token. Callers holding a session must force logout.
	ErrAuthentication = errors.New("authentication rejected")

	// ErrNotFound means the requested product or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient covers timeouts, connectivity loss and backend 5xx.
	// The caller keeps its last-known-good data and may retry.
	ErrTransient = errors.New("transient network failure")

	// ErrBackend covers everything else the backend rejects.
	ErrBackend = errors.New("backend error")
)

// Config holds client construction parameters.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to the storefront backends. The token set via SetToken is
// attached as a bearer header to every request; the session store owns its
// lifecycle.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:  logger,
	}
}

// SetToken sets the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do performs one request and returns the unwrapped response payload.
// Errors are classified into the package taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body any) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}

	if err := classifyStatus(resp.StatusCode, data); err != nil {
		metrics.BackendErrors.WithLabelValues(errorKind(err)).Inc()
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("backend request failed")
		return nil, err
	}

	payload, _, err := normalize.Unwrap(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return payload, nil
}

// classifyStatus maps a response status to the error taxonomy, carrying the
// backend's own message when it provides one.
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := errorMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthentication, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrTransient, status, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrBackend, status, msg)
	}
}

// errorMessage digs the human-readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return "request failed"
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "backend"
	}
}
