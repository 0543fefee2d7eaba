package ports

import (
	"context"
	"io"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

// AnalysisRunner is the inbound contract for running a property analysis
// and observing its incremental state.
type AnalysisRunner interface {
	Start(ctx context.Context, session *domain.Session, req domain.AnalysisRequest, onUpdate func(domain.StreamingState)) (domain.StreamingState, error)
	AnalyzeOnce(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (*domain.Analysis, error)
	Current(ctx context.Context, userID string) (*domain.CachedAnalysis, error)
}

// JobRunner is the inbound contract for background analysis jobs.
type JobRunner interface {
	StartJob(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (string, error)
	WatchJob(ctx context.Context, session *domain.Session, jobID string, onUpdate func(domain.JobState)) (domain.JobState, error)
	CancelJob(ctx context.Context, session *domain.Session, jobID string) error
}

// SavedAnalysisService is the inbound contract for the saved analyses page.
type SavedAnalysisService interface {
	Save(ctx context.Context, userID, propertyInput, propertyTitle string, analysis *domain.Analysis) (*domain.SavedAnalysis, error)
	List(ctx context.Context, userID string) ([]domain.SavedAnalysis, error)
	Search(ctx context.Context, userID, term string) ([]domain.SavedAnalysis, error)
	Get(ctx context.Context, userID, id string) (*domain.SavedAnalysis, error)
	Delete(ctx context.Context, userID, id string) error
	IsSaved(ctx context.Context, key domain.SavedAnalysisKey) (bool, error)
	Stats(ctx context.Context, userID string) (domain.SavedAnalysisStats, error)
}

// ExportService renders reports from structured analysis data.
type ExportService interface {
	WritePDF(ctx context.Context, userID, id string, w io.Writer) (string, error)
	WriteWorkbook(ctx context.Context, userID string, w io.Writer) error
}

// AccountService removes a user and everything stored for them.
type AccountService interface {
	DeleteAccount(ctx context.Context, session *domain.Session) error
}

// ModelInfoService answers the model badge; it never fails.
type ModelInfoService interface {
	ModelInfo(ctx context.Context) domain.ModelInfo
}
