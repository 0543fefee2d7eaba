package analysisapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

type analyzeResponse struct {
	Success  bool             `json:"success"`
	Analysis *domain.Analysis `json:"analysis"`
	Error    string           `json:"error"`
}

// Analyze performs the one-shot analysis call. The session may be refreshed
// in place.
func (c *Client) Analyze(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (*domain.Analysis, error) {
	if session == nil || !session.HasToken() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "analyze", errors.New("authentication token required"))
	}

	var resp analyzeResponse
	if err := c.authorizedJSON(ctx, session, http.MethodPost, "/api/analyze", req, &resp, "analyze"); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Analysis == nil {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "analysis backend returned no analysis"
		}
		return nil, domain.WrapError(domain.ErrTemporary, "analyze", errors.New(msg))
	}
	return resp.Analysis, nil
}

type asyncResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Error   string `json:"error"`
}

func (c *Client) StartAsync(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (string, error) {
	if session == nil || !session.HasToken() {
		return "", domain.WrapError(domain.ErrUnauthorized, "start job", errors.New("authentication token required"))
	}

	var resp asyncResponse
	if err := c.authorizedJSON(ctx, session, http.MethodPost, "/api/analysis/async", req, &resp, "start_job"); err != nil {
		return "", err
	}
	if resp.Error != "" || strings.TrimSpace(resp.JobID) == "" {
		msg := resp.Error
		if msg == "" {
			msg = "job id missing from response"
		}
		return "", domain.WrapError(domain.ErrInvalidInput, "start job", errors.New(msg))
	}
	return resp.JobID, nil
}

type cancelResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) CancelJob(ctx context.Context, session *domain.Session, jobID string) error {
	if session == nil || !session.HasToken() {
		return domain.WrapError(domain.ErrUnauthorized, "cancel job", errors.New("authentication token required"))
	}

	var resp cancelResponse
	path := "/api/analysis/job/" + url.PathEscape(jobID)
	if err := c.authorizedJSON(ctx, session, http.MethodDelete, path, nil, &resp, "cancel_job"); err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "job could not be cancelled"
		}
		return domain.WrapError(domain.ErrAnalysisNotFound, "cancel job", errors.New(msg))
	}
	return nil
}

// DeleteAccount asks the backend to remove the user's server-side data and
// auth account.
func (c *Client) DeleteAccount(ctx context.Context, session *domain.Session) error {
	if session == nil || !session.HasToken() {
		return domain.WrapError(domain.ErrUnauthorized, "delete account", errors.New("authentication token required"))
	}
	return c.authorizedJSON(ctx, session, http.MethodDelete, "/api/user/account", nil, nil, "delete_account")
}
