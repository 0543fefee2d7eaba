package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/kirillkom/listing-analyzer/internal/config"
	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/auth"
)

type analysisRunnerFake struct {
	snapshots []domain.StreamingState
	final     domain.StreamingState
	err       error
	analysis  *domain.Analysis
	refreshed string
	current   *domain.CachedAnalysis
	gotReq    domain.AnalysisRequest
	gotUser   string
}

func (f *analysisRunnerFake) Start(_ context.Context, session *domain.Session, req domain.AnalysisRequest, onUpdate func(domain.StreamingState)) (domain.StreamingState, error) {
	f.gotReq = req
	f.gotUser = session.UserID
	for _, snapshot := range f.snapshots {
		onUpdate(snapshot)
	}
	return f.final, f.err
}

func (f *analysisRunnerFake) AnalyzeOnce(_ context.Context, session *domain.Session, req domain.AnalysisRequest) (*domain.Analysis, error) {
	f.gotReq = req
	if f.refreshed != "" {
		session.AccessToken = f.refreshed
	}
	return f.analysis, f.err
}

func (f *analysisRunnerFake) Current(_ context.Context, userID string) (*domain.CachedAnalysis, error) {
	f.gotUser = userID
	return f.current, f.err
}

type jobRunnerFake struct {
	jobID   string
	updates []domain.JobState
	err     error
}

func (f *jobRunnerFake) StartJob(context.Context, *domain.Session, domain.AnalysisRequest) (string, error) {
	return f.jobID, f.err
}

func (f *jobRunnerFake) WatchJob(_ context.Context, _ *domain.Session, _ string, onUpdate func(domain.JobState)) (domain.JobState, error) {
	var last domain.JobState
	for _, update := range f.updates {
		onUpdate(update)
		last = update
	}
	return last, f.err
}

func (f *jobRunnerFake) CancelJob(context.Context, *domain.Session, string) error {
	return f.err
}

type savedServiceFake struct {
	items   []domain.SavedAnalysis
	err     error
	search  string
	saved   *domain.Analysis
	deleted string
	key     domain.SavedAnalysisKey
}

func (f *savedServiceFake) Save(_ context.Context, userID, input, title string, analysis *domain.Analysis) (*domain.SavedAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = analysis
	return &domain.SavedAnalysis{ID: "a-1", UserID: userID, PropertyInput: input, PropertyTitle: title}, nil
}

func (f *savedServiceFake) List(context.Context, string) ([]domain.SavedAnalysis, error) {
	return f.items, f.err
}

func (f *savedServiceFake) Search(_ context.Context, _ string, term string) ([]domain.SavedAnalysis, error) {
	f.search = term
	return f.items, f.err
}

func (f *savedServiceFake) Get(_ context.Context, _ string, id string) (*domain.SavedAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SavedAnalysis{ID: id}, nil
}

func (f *savedServiceFake) Delete(_ context.Context, _ string, id string) error {
	f.deleted = id
	return f.err
}

func (f *savedServiceFake) IsSaved(_ context.Context, key domain.SavedAnalysisKey) (bool, error) {
	f.key = key
	return f.err == nil, f.err
}

func (f *savedServiceFake) Stats(context.Context, string) (domain.SavedAnalysisStats, error) {
	return domain.SavedAnalysisStats{Total: 2, ThisWeek: 1, AverageScore: 75, HighScoreCount: 1}, f.err
}

type exportServiceFake struct {
	err error
}

func (f exportServiceFake) WritePDF(_ context.Context, _ string, _ string, w io.Writer) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.WriteString(w, "%PDF-1.3 fake")
	return "property-analysis-elm.pdf", nil
}

func (f exportServiceFake) WriteWorkbook(_ context.Context, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, _ = io.WriteString(w, "PK")
	return nil
}

type accountServiceFake struct {
	err error
}

func (f accountServiceFake) DeleteAccount(context.Context, *domain.Session) error {
	return f.err
}

type modelInfoFake struct{}

func (modelInfoFake) ModelInfo(context.Context) domain.ModelInfo {
	return domain.ModelInfo{Provider: "openai", Model: "gpt-4o-mini", Environment: "production"}
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(string) (domain.Session, error) {
	return domain.Session{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token is expired"))
}

type testServices struct {
	analysis *analysisRunnerFake
	jobs     *jobRunnerFake
	saved    *savedServiceFake
}

func newTestServices() (Services, testServices) {
	fakes := testServices{
		analysis: &analysisRunnerFake{},
		jobs:     &jobRunnerFake{},
		saved:    &savedServiceFake{},
	}
	return Services{
		Analysis: fakes.analysis,
		Jobs:     fakes.jobs,
		Saved:    fakes.saved,
		Export:   exportServiceFake{},
		Account:  accountServiceFake{},
		Models:   modelInfoFake{},
		Verifier: auth.NewVerifier("", 0),
	}, fakes
}

func newTestHandler(cfg config.Config) (http.Handler, testServices) {
	services, fakes := newTestServices()
	return NewRouter(cfg, services).Handler(), fakes
}
