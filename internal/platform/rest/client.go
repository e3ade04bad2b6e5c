// Package rest is the HTTP side of the network boundary. It posts JSON
// measurements and folds every failure into apperrors.ErrTransient or
// apperrors.ErrRejected so callers can decide whether to keep the payload.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "outcomes/internal/platform/errors"
	"outcomes/internal/platform/id"
)

const maxErrorBody = 2048

type Options struct {
	BaseURL    string
	AppID      string
	Timeout    time.Duration
	HTTPClient *http.Client
	IDs        id.Generator
	Logger     *slog.Logger

	// RequestsPerSecond paces outbound requests. Zero leaves them unpaced.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	limiter *rate.Limiter
	ids     id.Generator
	logger  *slog.Logger
}

// StatusError carries the backend response for failed requests.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: backend url is required", apperrors.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: backend url: %v", apperrors.ErrInvalidInput, err)
	}
	if strings.TrimSpace(opts.AppID) == "" {
		return nil, fmt.Errorf("%w: app id is required", apperrors.ErrInvalidInput)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	ids := opts.IDs
	if ids == nil {
		ids = id.UUID{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &Client{baseURL: base, appID: opts.AppID, http: httpClient, limiter: limiter, ids: ids, logger: logger}, nil
}

// PostJSON posts body to /apps/{app_id}{path}.
func (c *Client) PostJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", apperrors.ErrRejected, err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: wait for send slot: %v", apperrors.ErrTransient, err)
		}
	}
	endpoint := c.baseURL + "/apps/" + url.PathEscape(c.appID) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", apperrors.ErrRejected, err)
	}
	requestID := c.ids.New()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: post %s: %v", apperrors.ErrTransient, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	c.logger.Debug("request rejected", "path", path, "request_id", requestID, "status", resp.StatusCode)
	return classify(statusErr)
}

func classify(err *StatusError) error {
	switch {
	case err.StatusCode == http.StatusTooManyRequests, err.StatusCode == http.StatusRequestTimeout, err.StatusCode >= 500:
		return errors.Join(apperrors.ErrTransient, err)
	default:
		return errors.Join(apperrors.ErrRejected, err)
	}
}
