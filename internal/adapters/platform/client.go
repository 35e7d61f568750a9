// Package platform implements the HTTP clients behind the PlatformClient
// port: one client per social destination, sharing a common request core for
// authentication, rate limiting, and error classification.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
)

const defaultRequestTimeout = 15 * time.Second

// ClientConfig holds the transport settings shared by all platform clients.
type ClientConfig struct {
	BaseURL string
	// RequestsPerSecond feeds the local limiter that smooths request bursts
	// below the platform's advertised ceiling. Zero disables local limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Sanitize applies defaults to zero values.
func (c *ClientConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = defaultRequestTimeout
	}
}

// baseClient implements the request plumbing shared by every platform client:
// OAuth2 token handling, a local request limiter, remote rate-limit window
// tracking from response headers, and status-code classification into the
// error taxonomy.
type baseClient struct {
	platform model.Platform
	cfg      ClientConfig
	logger   *slog.Logger

	mu      sync.Mutex
	httpc   *http.Client
	limiter *rate.Limiter
	window  core.RateLimitState
}

func newBaseClient(platform model.Platform, cfg ClientConfig, logger *slog.Logger) *baseClient {
	cfg.Sanitize()
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &baseClient{
		platform: platform,
		cfg:      cfg,
		logger:   logger.With("component", "platform_client", "platform", platform),
		limiter:  limiter,
	}
}

// Platform returns the destination this client publishes to.
func (c *baseClient) Platform() model.Platform {
	return c.platform
}

// Authenticated reports whether an authenticated HTTP client is in place.
func (c *baseClient) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpc != nil
}

// Authenticate builds the OAuth2-backed HTTP client. Credentials carrying a
// client id and token URL use the client-credentials flow; a bare access
// token is wrapped in a static token source.
func (c *baseClient) Authenticate(ctx context.Context, creds model.Credentials) error {
	if creds.Empty() {
		return apperrors.Authentication("credentials are empty")
	}

	var source oauth2.TokenSource
	switch {
	case creds.ClientID != "" && creds.TokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
		}
		source = cc.TokenSource(context.WithoutCancel(ctx))
		// Force a token fetch now so bad credentials surface at
		// authentication time, not on the first publish.
		if _, err := source.Token(); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrCodeAuthentication,
				"token exchange with %s failed", creds.TokenURL)
		}
	case creds.AccessToken != "":
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken})
	default:
		return apperrors.Authentication("credentials carry neither client id nor access token")
	}

	httpc := oauth2.NewClient(context.WithoutCancel(ctx), source)
	httpc.Timeout = c.cfg.Timeout

	c.mu.Lock()
	c.httpc = httpc
	c.mu.Unlock()
	return nil
}

// RateLimitState reports the remote window as of the last response.
func (c *baseClient) RateLimitState() core.RateLimitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// doJSON issues one JSON request against the platform API and decodes the
// response body into out (when non-nil). Non-2xx statuses come back as
// AppErrors classified by status code.
func (c *baseClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	c.mu.Lock()
	httpc := c.httpc
	c.mu.Unlock()
	if httpc == nil {
		return apperrors.Authentication("client is not authenticated")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "local rate limiter wait")
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeNetwork, "%s %s", method, path)
	}
	defer resp.Body.Close()

	c.recordWindow(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyStatus(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeAPIError, "decode %s response", path)
	}
	return nil
}

// recordWindow captures the standard rate-limit headers. Platforms that omit
// them leave the previous window untouched.
func (c *baseClient) recordWindow(h http.Header) {
	remaining := h.Get("X-Rate-Limit-Remaining")
	if remaining == "" {
		remaining = h.Get("X-RateLimit-Remaining")
	}
	if remaining == "" {
		return
	}
	n, err := strconv.Atoi(remaining)
	if err != nil {
		return
	}
	state := core.RateLimitState{Remaining: n}
	reset := h.Get("X-Rate-Limit-Reset")
	if reset == "" {
		reset = h.Get("X-RateLimit-Reset")
	}
	if reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			state.ResetAt = time.Unix(epoch, 0)
		}
	}
	c.mu.Lock()
	c.window = state
	c.mu.Unlock()
}

// classifyStatus maps an API error response onto the error taxonomy.
func (c *baseClient) classifyStatus(resp *http.Response) *apperrors.AppError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s returned %d: %s", c.platform, resp.StatusCode, bytes.TrimSpace(snippet))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.Authentication(msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.RateLimit(msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.ContentValidation(msg)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(msg)
	case resp.StatusCode >= 500:
		return apperrors.APIError(msg)
	default:
		return apperrors.APIError(msg)
	}
}
