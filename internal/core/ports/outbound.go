package ports

import (
	"context"
	"io"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

// AnalysisStreamer opens the streaming analysis endpoint and emits decoded
// events in arrival order. It returns once the stream ends.
type AnalysisStreamer interface {
	Stream(ctx context.Context, session domain.Session, req domain.AnalysisRequest, emit func(domain.StreamEvent)) error
}

// AnalysisClient is the one-shot analysis call used when streaming is
// unavailable. Implementations may refresh the session in place.
type AnalysisClient interface {
	Analyze(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (*domain.Analysis, error)
}

// JobClient starts and cancels background analysis jobs.
type JobClient interface {
	StartAsync(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (string, error)
	CancelJob(ctx context.Context, session *domain.Session, jobID string) error
}

// JobNotifier pushes job updates for one user until ctx ends or the
// connection is permanently lost.
type JobNotifier interface {
	Watch(ctx context.Context, session domain.Session, jobID string, onUpdate func(domain.JobUpdate)) error
}

// ModelInfoSource reports which model the analysis backend runs.
type ModelInfoSource interface {
	ModelInfo(ctx context.Context) (domain.ModelInfo, error)
}

// AccountClient asks the analysis backend to remove a user account.
type AccountClient interface {
	DeleteAccount(ctx context.Context, session *domain.Session) error
}

// SessionRefresher exchanges a refresh token for a new session.
type SessionRefresher interface {
	Refresh(ctx context.Context, session domain.Session) (domain.Session, error)
}

// SavedAnalysisStore persists finalized analyses keyed by
// (user, property input, property title).
type SavedAnalysisStore interface {
	Save(ctx context.Context, analysis domain.SavedAnalysis) (*domain.SavedAnalysis, error)
	List(ctx context.Context, userID string) ([]domain.SavedAnalysis, error)
	Get(ctx context.Context, userID, id string) (*domain.SavedAnalysis, error)
	Delete(ctx context.Context, userID, id string) error
	Exists(ctx context.Context, key domain.SavedAnalysisKey) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}

// StateCache mirrors the latest input and streaming state per user so a
// reload can resume. It is a cache, not a source of truth.
type StateCache interface {
	Load(ctx context.Context, userID string) (*domain.CachedAnalysis, error)
	Store(ctx context.Context, userID string, entry domain.CachedAnalysis) error
	Clear(ctx context.Context, userID string) error
}

// ReportRenderer writes a PDF report for one analysis.
type ReportRenderer interface {
	RenderPDF(analysis domain.SavedAnalysis, w io.Writer) error
}

// WorkbookRenderer writes a spreadsheet of saved analyses.
type WorkbookRenderer interface {
	RenderWorkbook(analyses []domain.SavedAnalysis, w io.Writer) error
}

// AnalysisMetrics records streaming client outcomes.
type AnalysisMetrics interface {
	ObserveStreamEvent(eventType string, applied bool)
	ObserveFallback(reason string)
	ObserveAnalysis(mode, status string, seconds float64)
}
