package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
)

var errJobDone = errors.New("job reached terminal state")

// ApplyJobUpdate folds a pushed job update into state. Updates for other
// jobs and updates after a terminal state are ignored.
func ApplyJobUpdate(state domain.JobState, update domain.JobUpdate) (domain.JobState, bool) {
	if state.IsTerminal() {
		return state, false
	}
	if update.JobID != "" && state.JobID != "" && update.JobID != state.JobID {
		return state, false
	}

	next := state
	switch update.Type {
	case "job_update":
		if update.Data == nil {
			return state, false
		}
		next.Status = update.Data.Status
		next.Progress = update.Data.Progress
		next.CurrentSection = ""
		if update.Data.CurrentSection != nil {
			next.CurrentSection = *update.Data.CurrentSection
		}
		next.Results = update.Data.Results
		next.Error = ""
		if update.Data.ErrorMessage != nil {
			next.Error = *update.Data.ErrorMessage
		}
		if ts, err := time.Parse(time.RFC3339Nano, update.Data.UpdatedAt); err == nil {
			next.UpdatedAt = ts
		}
		return next, true
	case "error":
		msg := strings.TrimSpace(update.Message)
		if msg == "" {
			msg = "Unknown error"
		}
		next.Error = msg
		return next, true
	default:
		return state, false
	}
}

type JobUseCase struct {
	client   ports.JobClient
	notifier ports.JobNotifier
}

func NewJobUseCase(client ports.JobClient, notifier ports.JobNotifier) *JobUseCase {
	return &JobUseCase{client: client, notifier: notifier}
}

func (uc *JobUseCase) StartJob(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (string, error) {
	if session == nil || !session.HasToken() {
		return "", domain.WrapError(domain.ErrUnauthorized, "start job", errors.New("authentication token required"))
	}
	req, err := req.Normalize()
	if err != nil {
		return "", err
	}
	jobID, err := uc.client.StartAsync(ctx, session, req)
	if err != nil {
		return "", fmt.Errorf("start analysis job: %w", err)
	}
	return jobID, nil
}

// WatchJob follows a job over the notifier until it reaches a terminal
// state, the caller cancels, or the connection is permanently lost.
func (uc *JobUseCase) WatchJob(
	ctx context.Context,
	session *domain.Session,
	jobID string,
	onUpdate func(domain.JobState),
) (domain.JobState, error) {
	if session == nil || !session.HasToken() {
		return domain.JobState{}, domain.WrapError(domain.ErrUnauthorized, "watch job", errors.New("authentication token required"))
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domain.JobState{}, domain.WrapError(domain.ErrInvalidInput, "watch job", errors.New("job id is required"))
	}

	watchCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	state := domain.JobState{JobID: jobID, Status: domain.JobStatusPending}
	err := uc.notifier.Watch(watchCtx, *session, jobID, func(update domain.JobUpdate) {
		next, applied := ApplyJobUpdate(state, update)
		if !applied {
			return
		}
		state = next
		if onUpdate != nil {
			onUpdate(state)
		}
		if state.IsTerminal() {
			cancel(errJobDone)
		}
	})
	if errors.Is(context.Cause(watchCtx), errJobDone) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("watch job %s: %w", jobID, err)
	}
	return state, nil
}

func (uc *JobUseCase) CancelJob(ctx context.Context, session *domain.Session, jobID string) error {
	if session == nil || !session.HasToken() {
		return domain.WrapError(domain.ErrUnauthorized, "cancel job", errors.New("authentication token required"))
	}
	if strings.TrimSpace(jobID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "cancel job", errors.New("job id is required"))
	}
	if err := uc.client.CancelJob(ctx, session, jobID); err != nil {
		return fmt.Errorf("cancel analysis job: %w", err)
	}
	return nil
}
