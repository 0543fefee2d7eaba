package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

type jobClientFake struct {
	jobID     string
	err       error
	cancelled []string
	requests  []domain.AnalysisRequest
}

func (f *jobClientFake) StartAsync(_ context.Context, _ *domain.Session, req domain.AnalysisRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.jobID, nil
}

func (f *jobClientFake) CancelJob(_ context.Context, _ *domain.Session, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

// notifierFake delivers updates, then blocks until ctx ends unless err is set.
type notifierFake struct {
	updates []domain.JobUpdate
	err     error
}

func (f *notifierFake) Watch(ctx context.Context, _ domain.Session, _ string, onUpdate func(domain.JobUpdate)) error {
	for _, update := range f.updates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onUpdate(update)
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func strPtr(s string) *string { return &s }

func jobUpdate(jobID string, status domain.JobStatus, progress int) domain.JobUpdate {
	return domain.JobUpdate{
		Type:  "job_update",
		JobID: jobID,
		Data: &domain.JobUpdateData{
			Status:    status,
			Progress:  progress,
			UpdatedAt: "2026-01-02T03:04:05Z",
		},
	}
}

func TestApplyJobUpdate(t *testing.T) {
	state := domain.JobState{JobID: "job-1", Status: domain.JobStatusPending}

	update := jobUpdate("job-1", domain.JobStatusInProgress, 40)
	update.Data.CurrentSection = strPtr("strengths")
	state, applied := ApplyJobUpdate(state, update)
	if !applied || state.Progress != 40 || state.CurrentSection != "strengths" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at parsed")
	}

	if _, applied := ApplyJobUpdate(state, jobUpdate("job-2", domain.JobStatusCompleted, 100)); applied {
		t.Fatalf("update for another job must be ignored")
	}
	if _, applied := ApplyJobUpdate(state, domain.JobUpdate{Type: "job_update", JobID: "job-1"}); applied {
		t.Fatalf("update without data must be ignored")
	}
	if _, applied := ApplyJobUpdate(state, domain.JobUpdate{Type: "pong"}); applied {
		t.Fatalf("unknown message type must be ignored")
	}

	state, _ = ApplyJobUpdate(state, jobUpdate("job-1", domain.JobStatusCompleted, 100))
	if !state.IsTerminal() {
		t.Fatalf("expected terminal state")
	}
	if _, applied := ApplyJobUpdate(state, jobUpdate("job-1", domain.JobStatusInProgress, 10)); applied {
		t.Fatalf("terminal job state must not change")
	}
}

func TestApplyJobUpdateErrorMessage(t *testing.T) {
	state, applied := ApplyJobUpdate(domain.JobState{JobID: "job-1"}, domain.JobUpdate{Type: "error"})
	if !applied || state.Error != "Unknown error" || !state.IsTerminal() {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestWatchJobReturnsOnTerminalUpdate(t *testing.T) {
	notifier := &notifierFake{updates: []domain.JobUpdate{
		jobUpdate("job-1", domain.JobStatusInProgress, 20),
		jobUpdate("job-1", domain.JobStatusCompleted, 100),
		jobUpdate("job-1", domain.JobStatusFailed, 100),
	}}
	uc := NewJobUseCase(&jobClientFake{}, notifier)

	var seen []domain.JobStatus
	state, err := uc.WatchJob(context.Background(), testSession(), "job-1", func(s domain.JobState) {
		seen = append(seen, s.Status)
	})
	if err != nil {
		t.Fatalf("WatchJob() error = %v", err)
	}
	if state.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 updates, got %v", seen)
	}
}

func TestWatchJobReportsPermanentFailure(t *testing.T) {
	notifier := &notifierFake{
		updates: []domain.JobUpdate{jobUpdate("job-1", domain.JobStatusInProgress, 20)},
		err:     domain.ErrReconnectExhausted,
	}
	uc := NewJobUseCase(&jobClientFake{}, notifier)

	state, err := uc.WatchJob(context.Background(), testSession(), "job-1", nil)
	if !errors.Is(err, domain.ErrReconnectExhausted) {
		t.Fatalf("expected reconnect exhausted, got %v", err)
	}
	if state.Progress != 20 {
		t.Fatalf("expected last known progress, got %+v", state)
	}
}

func TestWatchJobValidatesInput(t *testing.T) {
	uc := NewJobUseCase(&jobClientFake{}, &notifierFake{})
	if _, err := uc.WatchJob(context.Background(), &domain.Session{}, "job-1", nil); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := uc.WatchJob(context.Background(), testSession(), " ", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStartAndCancelJob(t *testing.T) {
	client := &jobClientFake{jobID: "job-9"}
	uc := NewJobUseCase(client, &notifierFake{})

	jobID, err := uc.StartJob(context.Background(), testSession(), testRequest())
	if err != nil || jobID != "job-9" {
		t.Fatalf("StartJob() = %q, %v", jobID, err)
	}
	if client.requests[0].PropertyTitle != "12 Elm St" {
		t.Fatalf("expected normalized request, got %+v", client.requests[0])
	}
	if err := uc.CancelJob(context.Background(), testSession(), "job-9"); err != nil {
		t.Fatalf("CancelJob() error = %v", err)
	}
	if len(client.cancelled) != 1 || client.cancelled[0] != "job-9" {
		t.Fatalf("unexpected cancellations: %v", client.cancelled)
	}
}
