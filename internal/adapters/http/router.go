package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kirillkom/listing-analyzer/internal/config"
	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
	"github.com/kirillkom/listing-analyzer/internal/observability/metrics"
)

const serviceName = "listing-api"

const maxRequestBodyBytes = 1 << 20

// JobObserver records how job watches end.
type JobObserver interface {
	ObserveJobWatch(status string)
}

type Services struct {
	Analysis ports.AnalysisRunner
	Jobs     ports.JobRunner
	Saved    ports.SavedAnalysisService
	Export   ports.ExportService
	Account  ports.AccountService
	Models   ports.ModelInfoService
	Verifier TokenVerifier

	Metrics     *metrics.HTTPServerMetrics
	JobObserver JobObserver
}

type Router struct {
	analysis ports.AnalysisRunner
	jobs     ports.JobRunner
	saved    ports.SavedAnalysisService
	export   ports.ExportService
	account  ports.AccountService
	models   ports.ModelInfoService
	verifier TokenVerifier

	metrics     *metrics.HTTPServerMetrics
	jobObserver JobObserver
	limiter     *rateLimiter
	origins     []string
}

func NewRouter(cfg config.Config, services Services) *Router {
	rt := &Router{
		analysis:    services.Analysis,
		jobs:        services.Jobs,
		saved:       services.Saved,
		export:      services.Export,
		account:     services.Account,
		models:      services.Models,
		verifier:    services.Verifier,
		metrics:     services.Metrics,
		jobObserver: services.JobObserver,
		origins:     cfg.CORSAllowedOrigins,
	}
	if cfg.RateLimitRPS > 0 {
		rt.limiter = newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		if rt.metrics != nil {
			rt.limiter.onReject = func(path string) {
				rt.metrics.RecordRateLimited(serviceName, path)
			}
		}
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
	}
	if len(rt.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", refreshTokenHeader, requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader, accessTokenHeader, refreshTokenHeader, "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(rt.limiter.middleware)
		r.Get("/model-info", rt.modelInfo)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(rt.verifier))

			r.Post("/analyses", rt.analyzeOnce)
			r.Post("/analyses/stream", rt.streamAnalysis)
			r.Get("/analyses/current", rt.currentAnalysis)
			r.Post("/analyses/async", rt.startJob)

			r.Get("/jobs/{jobID}/events", rt.jobEvents)
			r.Delete("/jobs/{jobID}", rt.cancelJob)

			r.Get("/saved-analyses", rt.listSaved)
			r.Post("/saved-analyses", rt.saveAnalysis)
			r.Get("/saved-analyses/stats", rt.savedStats)
			r.Get("/saved-analyses/exists", rt.savedExists)
			r.Get("/saved-analyses/export.xlsx", rt.exportWorkbook)
			r.Get("/saved-analyses/{id}", rt.getSaved)
			r.Delete("/saved-analyses/{id}", rt.deleteSaved)
			r.Get("/saved-analyses/{id}/pdf", rt.exportPDF)

			r.Delete("/account", rt.deleteAccount)
		})
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) modelInfo(w http.ResponseWriter, r *http.Request) {
	if rt.models == nil {
		writeJSON(w, http.StatusOK, domain.UnknownModelInfo(""))
		return
	}
	writeJSON(w, http.StatusOK, rt.models.ModelInfo(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeBadRequest(w, "invalid json")
		return false
	}
	return true
}

func requireSession(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	session, ok := sessionFromContext(r.Context())
	if !ok || strings.TrimSpace(session.UserID) == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errMissingSession.Error(), Redirect: signInPath})
		return domain.Session{}, false
	}
	return session, true
}
