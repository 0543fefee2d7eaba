package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
)

type AnalysisOptions struct {
	// FallbackEnabled switches to the one-shot call when the stream fails
	// before reaching a terminal state.
	FallbackEnabled bool
}

type AnalysisUseCase struct {
	streamer ports.AnalysisStreamer
	client   ports.AnalysisClient
	cache    ports.StateCache
	metrics  ports.AnalysisMetrics
	opts     AnalysisOptions

	mu     sync.Mutex
	nextID uint64
	active map[string]activeRun
}

type activeRun struct {
	id     uint64
	cancel context.CancelFunc
}

func NewAnalysisUseCase(
	streamer ports.AnalysisStreamer,
	client ports.AnalysisClient,
	cache ports.StateCache,
	metrics ports.AnalysisMetrics,
	opts AnalysisOptions,
) *AnalysisUseCase {
	if metrics == nil {
		metrics = noopAnalysisMetrics{}
	}
	return &AnalysisUseCase{
		streamer: streamer,
		client:   client,
		cache:    cache,
		metrics:  metrics,
		opts:     opts,
		active:   make(map[string]activeRun),
	}
}

// Start runs one analysis attempt for the session's user. Any attempt
// already running for that user is abandoned first. onUpdate receives a
// snapshot after every state change, and the same snapshot is mirrored to
// the state cache.
func (uc *AnalysisUseCase) Start(
	ctx context.Context,
	session *domain.Session,
	req domain.AnalysisRequest,
	onUpdate func(domain.StreamingState),
) (domain.StreamingState, error) {
	if session == nil || !session.HasToken() {
		return domain.StreamingState{}, domain.WrapError(domain.ErrUnauthorized, "start analysis", errors.New("authentication token required"))
	}
	req, err := req.Normalize()
	if err != nil {
		return domain.StreamingState{}, err
	}

	runCtx, runID, done := uc.begin(ctx, session.UserID)
	defer done()

	started := time.Now()
	state := domain.NewStreamingState()
	publish := func() {
		snapshot := state.Clone()
		if !uc.mirror(ctx, session.UserID, runID, req, snapshot) {
			return
		}
		if onUpdate != nil {
			onUpdate(snapshot)
		}
	}
	publish()

	streamErr := uc.streamer.Stream(runCtx, *session, req, func(event domain.StreamEvent) {
		if runCtx.Err() != nil {
			return
		}
		next, applied := ApplyStreamEvent(state, event)
		uc.metrics.ObserveStreamEvent(string(event.Type), applied)
		if !applied {
			return
		}
		state = next
		publish()
	})

	if state.IsTerminal() {
		uc.observe("stream", state, started)
		return state, nil
	}
	if streamErr == nil {
		streamErr = domain.WrapError(domain.ErrTemporary, "analysis stream", domain.ErrStreamIncomplete)
	}
	if runCtx.Err() != nil {
		uc.metrics.ObserveAnalysis("stream", "cancelled", time.Since(started).Seconds())
		return state, fmt.Errorf("analysis stream: %w", runCtx.Err())
	}

	slog.Warn("analysis_stream_failed",
		"user_id", session.UserID,
		"analysis_id", state.AnalysisID,
		"fallback", uc.opts.FallbackEnabled,
		"error", streamErr,
	)
	if !uc.opts.FallbackEnabled {
		state.Error = userFacingMessage(streamErr)
		publish()
		uc.observe("stream", state, started)
		return state, streamErr
	}

	uc.metrics.ObserveFallback(fallbackReason(streamErr))
	analysis, err := uc.client.Analyze(runCtx, session, req)
	if err != nil {
		state.Error = userFacingMessage(err)
		publish()
		uc.observe("fallback", state, started)
		return state, fmt.Errorf("fallback analysis: %w", err)
	}

	for _, event := range AnalysisEvents(*analysis) {
		next, applied := ApplyStreamEvent(state, event)
		if !applied {
			continue
		}
		state = next
		publish()
	}
	uc.observe("fallback", state, started)
	return state, nil
}

// AnalyzeOnce performs a single request/response analysis without streaming.
func (uc *AnalysisUseCase) AnalyzeOnce(ctx context.Context, session *domain.Session, req domain.AnalysisRequest) (*domain.Analysis, error) {
	if session == nil || !session.HasToken() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "analyze", errors.New("authentication token required"))
	}
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	analysis, err := uc.client.Analyze(ctx, session, req)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	uc.metrics.ObserveAnalysis("oneshot", status, time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return analysis, nil
}

func (uc *AnalysisUseCase) Current(ctx context.Context, userID string) (*domain.CachedAnalysis, error) {
	if uc.cache == nil {
		return nil, nil
	}
	entry, err := uc.cache.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cached analysis: %w", err)
	}
	return entry, nil
}

// begin registers a run for userID, cancelling the previous one.
func (uc *AnalysisUseCase) begin(ctx context.Context, userID string) (context.Context, uint64, func()) {
	runCtx, cancel := context.WithCancel(ctx)

	uc.mu.Lock()
	if prev, ok := uc.active[userID]; ok {
		prev.cancel()
	}
	uc.nextID++
	id := uc.nextID
	uc.active[userID] = activeRun{id: id, cancel: cancel}
	uc.mu.Unlock()

	return runCtx, id, func() {
		cancel()
		uc.mu.Lock()
		if current, ok := uc.active[userID]; ok && current.id == id {
			delete(uc.active, userID)
		}
		uc.mu.Unlock()
	}
}

// mirror writes state to the cache while runID is still the user's active
// run. It reports false once the run has been superseded, so the caller stops
// publishing.
func (uc *AnalysisUseCase) mirror(ctx context.Context, userID string, runID uint64, req domain.AnalysisRequest, state domain.StreamingState) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if current, ok := uc.active[userID]; !ok || current.id != runID {
		return false
	}
	if uc.cache == nil {
		return true
	}
	err := uc.cache.Store(context.WithoutCancel(ctx), userID, domain.CachedAnalysis{Request: req, State: state})
	if err != nil {
		slog.Warn("state_cache_write_failed", "user_id", userID, "error", err)
	}
	return true
}

func (uc *AnalysisUseCase) observe(mode string, state domain.StreamingState, started time.Time) {
	status := "completed"
	if state.Error != "" {
		status = "failed"
	}
	uc.metrics.ObserveAnalysis(mode, status, time.Since(started).Seconds())
}

func fallbackReason(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrStreamIncomplete):
		return "incomplete"
	case domain.IsKind(err, domain.ErrUnauthorized):
		return "unauthorized"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "error"
	}
}

func userFacingMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrUnauthorized):
		return "Authentication required. Please sign in again."
	case domain.IsKind(err, domain.ErrInvalidInput):
		return err.Error()
	default:
		return "Analysis is temporarily unavailable. Please try again."
	}
}

type noopAnalysisMetrics struct{}

func (noopAnalysisMetrics) ObserveStreamEvent(string, bool) {}
func (noopAnalysisMetrics) ObserveFallback(string) {}
func (noopAnalysisMetrics) ObserveAnalysis(string, string, float64) {}
