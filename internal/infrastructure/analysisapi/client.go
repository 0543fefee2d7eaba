package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/resilience"
)

const (
	defaultTimeout       = 120 * time.Second
	defaultLeeway        = 30 * time.Second
	defaultRefreshWindow = 5 * time.Minute
)

// Client talks to the property analysis backend over HTTP.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	executor     *resilience.Executor
	refresher    ports.SessionRefresher

	now           func() time.Time
	leeway        time.Duration
	refreshWindow time.Duration
}

type Options struct {
	Timeout       time.Duration
	Leeway        time.Duration
	RefreshWindow time.Duration
}

func New(baseURL string, executor *resilience.Executor, refresher ports.SessionRefresher, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = defaultRefreshWindow
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1, BreakerEnabled: false})
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: opts.Timeout},
		streamClient:  &http.Client{},
		executor:      executor,
		refresher:     refresher,
		now:           time.Now,
		leeway:        opts.Leeway,
		refreshWindow: opts.RefreshWindow,
	}
}

// ensureFresh refreshes the session in place when the token is expired or
// about to expire. A failed proactive refresh of a still-valid token is
// logged and the current token is used.
func (c *Client) ensureFresh(ctx context.Context, session *domain.Session) error {
	now := c.now()
	expired := session.Expired(now, c.leeway)
	if !expired && !session.ExpiresWithin(now, c.refreshWindow) {
		return nil
	}
	if c.refresher == nil || !session.CanRefresh() {
		if expired {
			return domain.WrapError(domain.ErrUnauthorized, "token freshness", errors.New("session expired"))
		}
		return nil
	}

	refreshed, err := c.refresher.Refresh(ctx, *session)
	if err != nil {
		if expired {
			return domain.WrapError(domain.ErrUnauthorized, "token refresh", err)
		}
		slog.Warn("token_refresh_failed", "user_id", session.UserID, "error", err)
		return nil
	}
	*session = refreshed
	return nil
}

func (c *Client) refresh(ctx context.Context, session *domain.Session) error {
	if c.refresher == nil || !session.CanRefresh() {
		return domain.WrapError(domain.ErrUnauthorized, "token refresh", errors.New("no refresh token"))
	}
	refreshed, err := c.refresher.Refresh(ctx, *session)
	if err != nil {
		return domain.WrapError(domain.ErrUnauthorized, "token refresh", err)
	}
	*session = refreshed
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// doJSON sends one request and decodes a 2xx JSON body into out.
func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out any, operation string) error {
	req, err := c.newRequest(ctx, method, path, token, payload)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis api %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPStatusError(operation, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// authorizedJSON runs doJSON through the resilience executor, refreshing
// the session and resending exactly once on a 401.
func (c *Client) authorizedJSON(ctx context.Context, session *domain.Session, method, path string, payload, out any, operation string) error {
	if err := c.ensureFresh(ctx, session); err != nil {
		return err
	}

	send := func() error {
		return c.executor.Execute(ctx, "analysis_api_"+operation, func(ctx context.Context) error {
			return c.doJSON(ctx, method, path, session.AccessToken, payload, out, operation)
		}, classifyError)
	}

	err := send()
	if isUnauthorizedStatus(err) {
		slog.Info("analysis_api_token_retry", "operation", operation, "user_id", session.UserID)
		if refreshErr := c.refresh(ctx, session); refreshErr != nil {
			return refreshErr
		}
		err = send()
	}
	return classifyOutcome(operation, err)
}
