package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/resilience"
)

// GoTrueClient talks to a GoTrue-compatible hosted auth service.
type GoTrueClient struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
	executor   *resilience.Executor
	now        func() time.Time
}

func NewGoTrueClient(baseURL, anonKey, serviceKey string, executor *resilience.Executor) *GoTrueClient {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1})
	}
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Session{}, domain.WrapError(domain.ErrInvalidInput, "sign in", errors.New("email and password are required"))
	}
	payload := map[string]string{"email": email, "password": password}
	return c.token(ctx, "password", payload)
}

// Refresh exchanges the session's refresh token for a new session.
func (c *GoTrueClient) Refresh(ctx context.Context, session domain.Session) (domain.Session, error) {
	if !session.CanRefresh() {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "refresh session", errors.New("no refresh token"))
	}
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": session.RefreshToken})
}

func (c *GoTrueClient) SignOut(ctx context.Context, session domain.Session) error {
	if !session.HasToken() {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", session.AccessToken, nil, nil, "sign_out")
}

// DeleteUser removes an auth user with the service key.
func (c *GoTrueClient) DeleteUser(ctx context.Context, userID string) error {
	if c.serviceKey == "" {
		return errors.New("auth service key is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "delete user", errors.New("user id is required"))
	}
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(userID), c.serviceKey, nil, nil, "delete_user")
}

func (c *GoTrueClient) token(ctx context.Context, grantType string, payload any) (domain.Session, error) {
	var resp tokenResponse
	path := "/auth/v1/token?grant_type=" + url.QueryEscape(grantType)
	if err := c.do(ctx, http.MethodPost, path, "", payload, &resp, "token_"+grantType); err != nil {
		return domain.Session{}, err
	}
	if resp.AccessToken == "" {
		return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "auth token", errors.New("empty access token"))
	}

	session := domain.Session{
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	if session.UserID == "" {
		if parsed, err := SessionFromToken(resp.AccessToken); err == nil {
			session.UserID = parsed.UserID
		}
	}
	return session, nil
}

func (c *GoTrueClient) do(ctx context.Context, method, path, bearer string, payload, out any, operation string) error {
	return c.executor.Execute(ctx, "auth_"+operation, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("marshal %s request: %w", operation, err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.anonKey != "" {
			req.Header.Set("apikey", c.anonKey)
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return domain.WrapError(domain.ErrTemporary, "auth "+operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return authStatusError(operation, resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}, classifyAuthError)
}

func authStatusError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var parsed errorResponse
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &parsed) == nil {
		for _, candidate := range []string{parsed.ErrorDescription, parsed.Message, parsed.Error} {
			if candidate != "" {
				msg = candidate
				break
			}
		}
	}
	err := fmt.Errorf("auth %s status: %s: %s", operation, resp.Status, msg)

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return domain.WrapError(domain.ErrUnauthorized, "auth "+operation, err)
	case resp.StatusCode == http.StatusNotFound:
		return domain.WrapError(domain.ErrAnalysisNotFound, "auth "+operation, err)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return domain.WrapError(domain.ErrTemporary, "auth "+operation, err)
	default:
		return err
	}
}

func classifyAuthError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case domain.IsKind(err, domain.ErrTemporary):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true, Reason: "auth_unavailable"}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
}

// AdminAccountClient deletes accounts directly through the auth service.
type AdminAccountClient struct {
	client *GoTrueClient
}

func NewAdminAccountClient(client *GoTrueClient) *AdminAccountClient {
	return &AdminAccountClient{client: client}
}

func (a *AdminAccountClient) DeleteAccount(ctx context.Context, session *domain.Session) error {
	if session == nil || session.UserID == "" {
		return domain.WrapError(domain.ErrUnauthorized, "delete account", errors.New("user id is required"))
	}
	return a.client.DeleteUser(ctx, session.UserID)
}
