package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/listing-analyzer/internal/config"
	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/auth"
	"github.com/kirillkom/listing-analyzer/internal/observability/metrics"
)

func sseFrames(body string) []string {
	frames := make([]string, 0)
	for _, frame := range strings.Split(body, "\n\n") {
		if frame = strings.TrimSpace(frame); frame != "" {
			frames = append(frames, frame)
		}
	}
	return frames
}

func TestStreamAnalysisRelaysSnapshots(t *testing.T) {
	services, fakes := newTestServices()
	partial := domain.NewStreamingState()
	partial.Strengths = []string{"Walkable"}
	final := partial.Clone()
	final.IsComplete = true
	fakes.analysis.snapshots = []domain.StreamingState{domain.NewStreamingState(), partial, final}
	fakes.analysis.final = final
	handler := NewRouter(config.Config{}, services).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses/stream", strings.NewReader(`{"property_address":"12 Elm St"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}
	frames := sseFrames(res.Body.String())
	if len(frames) != 4 {
		t.Fatalf("expected 3 snapshots and a done event, got %d: %q", len(frames), res.Body.String())
	}
	if !strings.HasPrefix(frames[1], "data: ") || !strings.Contains(frames[1], `"strengths":["Walkable"]`) {
		t.Fatalf("unexpected snapshot frame %q", frames[1])
	}
	if !strings.HasPrefix(frames[3], "event: done\ndata: ") || !strings.Contains(frames[3], `"isComplete":true`) {
		t.Fatalf("unexpected final frame %q", frames[3])
	}
	if fakes.analysis.gotUser != auth.DevUserID {
		t.Fatalf("expected dev user session, got %q", fakes.analysis.gotUser)
	}
}

func TestStreamAnalysisEndsWithErrorEvent(t *testing.T) {
	services, fakes := newTestServices()
	failed := domain.NewStreamingState()
	failed.Error = "Analysis is temporarily unavailable. Please try again."
	fakes.analysis.snapshots = []domain.StreamingState{failed}
	fakes.analysis.err = domain.WrapError(domain.ErrTemporary, "fallback analysis", errors.New("502"))
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/analyses/stream", strings.NewReader(`{"property_address":"12 Elm St"}`)))

	frames := sseFrames(res.Body.String())
	last := frames[len(frames)-1]
	if !strings.HasPrefix(last, "event: error\n") {
		t.Fatalf("expected trailing error event, got %q", last)
	}
}

func TestAnalyzeOnceExposesRefreshedToken(t *testing.T) {
	services, fakes := newTestServices()
	fakes.analysis.analysis = &domain.Analysis{Summary: "ok", OverallScore: 70}
	fakes.analysis.refreshed = "fresh-token"
	handler := NewRouter(config.Config{}, services).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader(`{"property_address":"12 Elm St","manual_data":{"bedrooms":3}}`))
	req.Header.Set("Authorization", "Bearer old-token")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get(accessTokenHeader); got != "fresh-token" {
		t.Fatalf("expected refreshed token header, got %q", got)
	}
	var body analyzeResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Analysis.OverallScore != 70 {
		t.Fatalf("unexpected body %+v", body)
	}
	if fakes.analysis.gotReq.ManualData == nil || *fakes.analysis.gotReq.ManualData.Bedrooms != 3 {
		t.Fatalf("manual data not forwarded: %+v", fakes.analysis.gotReq)
	}
}

func TestCurrentAnalysisWithoutCacheIsNoContent(t *testing.T) {
	handler, _ := newTestHandler(config.Config{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/current", nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestJobLifecycleEndpoints(t *testing.T) {
	services, fakes := newTestServices()
	fakes.jobs.jobID = "job-1"
	fakes.jobs.updates = []domain.JobState{
		{JobID: "job-1", Status: domain.JobStatusInProgress, Progress: 40},
		{JobID: "job-1", Status: domain.JobStatusCompleted, Progress: 100},
	}
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/analyses/async", strings.NewReader(`{"property_address":"12 Elm St"}`)))
	if res.Code != http.StatusAccepted || !strings.Contains(res.Body.String(), `"job_id":"job-1"`) {
		t.Fatalf("unexpected start response %d %s", res.Code, res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1/events", nil))
	frames := sseFrames(res.Body.String())
	if len(frames) != 3 || !strings.Contains(frames[2], `"status":"completed"`) {
		t.Fatalf("unexpected job frames %q", frames)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/jobs/job-1", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "Job cancelled") {
		t.Fatalf("unexpected cancel response %d %s", res.Code, res.Body.String())
	}
}

func TestSaveAnalysisWithoutBodyAnalysisUsesCache(t *testing.T) {
	services, fakes := newTestServices()
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/saved-analyses", strings.NewReader(`{"property_input":"12 Elm St"}`)))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	if fakes.saved.saved != nil {
		t.Fatalf("expected nil analysis to be passed through")
	}
}

func TestListSavedUsesSearchTerm(t *testing.T) {
	services, fakes := newTestServices()
	fakes.saved.items = []domain.SavedAnalysis{{ID: "a-1"}}
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/saved-analyses?q=elm", nil))
	if res.Code != http.StatusOK || fakes.saved.search != "elm" {
		t.Fatalf("expected search for elm, got %d %q", res.Code, fakes.saved.search)
	}
	var body savedListResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Count != 1 {
		t.Fatalf("unexpected list body %+v, %v", body, err)
	}
}

func TestSavedExistsScopesKeyToCaller(t *testing.T) {
	services, fakes := newTestServices()
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/saved-analyses/exists?property_input=12+Elm+St&property_title=Elm", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"saved":true`) {
		t.Fatalf("unexpected exists response %d %s", res.Code, res.Body.String())
	}
	want := domain.SavedAnalysisKey{UserID: auth.DevUserID, PropertyInput: "12 Elm St", PropertyTitle: "Elm"}
	if fakes.saved.key != want {
		t.Fatalf("unexpected key %+v", fakes.saved.key)
	}
}

func TestExportEndpointsReturnAttachments(t *testing.T) {
	services, _ := newTestServices()
	services.Metrics = metrics.NewHTTPServerMetrics(serviceName)
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/saved-analyses/a-1/pdf", nil))
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected pdf response %d %q", res.Code, res.Header().Get("Content-Type"))
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="property-analysis-elm.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/saved-analyses/export.xlsx", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Header().Get("Content-Disposition"), "saved-analyses.xlsx") {
		t.Fatalf("unexpected workbook response %d %v", res.Code, res.Header())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(res.Body.String(), `listing_export_documents_total{format="pdf",service="listing-api",status="success"} 1`) {
		t.Fatalf("expected export metric, got:\n%s", res.Body.String())
	}
}

func TestDeleteAccount(t *testing.T) {
	handler, _ := newTestHandler(config.Config{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/account", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"success":true`) {
		t.Fatalf("unexpected delete account response %d %s", res.Code, res.Body.String())
	}
}

func TestRefreshTokenHeaderReachesSession(t *testing.T) {
	services, _ := newTestServices()

	var seen domain.Session
	inner := authMiddleware(services.Verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = sessionFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer tok")
	req.Header.Set(refreshTokenHeader, "refresh-1")
	inner.ServeHTTP(httptest.NewRecorder(), req)

	if seen.AccessToken != "tok" || seen.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected session %+v", seen)
	}
}

func TestModelInfoIsPublic(t *testing.T) {
	services, _ := newTestServices()
	services.Verifier = rejectingVerifier{}
	handler := NewRouter(config.Config{}, services).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/model-info", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var info domain.ModelInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Provider != "openai" || info.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model info: %+v", info)
	}

	services.Models = nil
	res = httptest.NewRecorder()
	NewRouter(config.Config{}, services).Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/model-info", nil))
	if !strings.Contains(res.Body.String(), `"provider":"unknown"`) {
		t.Fatalf("expected unknown fallback, got %s", res.Body.String())
	}
}
