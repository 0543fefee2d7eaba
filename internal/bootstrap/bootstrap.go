package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/listing-analyzer/internal/config"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
	"github.com/kirillkom/listing-analyzer/internal/core/usecase"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/analysisapi"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/auth"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/export/pdf"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/notify"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/resilience"
	"github.com/kirillkom/listing-analyzer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/listing-analyzer/internal/observability/metrics"
)

type App struct {
	Config config.Config

	HTTPMetrics     *metrics.HTTPServerMetrics
	AnalysisMetrics *metrics.AnalysisMetrics

	Verifier   *auth.Verifier
	AuthClient *auth.GoTrueClient
	APIClient  *analysisapi.Client

	SavedStore ports.SavedAnalysisStore
	StateCache ports.StateCache

	AnalysisUC *usecase.AnalysisUseCase
	JobUC      *usecase.JobUseCase
	SavedUC    *usecase.SavedAnalysesUseCase
	ExportUC   *usecase.ExportUseCase
	AccountUC  *usecase.AccountUseCase
	ModelUC    *usecase.ModelInfoUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	httpMetrics := metrics.NewHTTPServerMetrics("listing-api")
	analysisMetrics := metrics.NewAnalysisMetrics("listing-api", httpMetrics.Registry())

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init local storage: %w", err)
	}
	stateCache := localfs.NewStateCache(storage)

	savedStore, db, err := openSavedStore(ctx, cfg, storage)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg, func(event resilience.RetryEvent) {
		analysisMetrics.ObserveRetry(event.Operation, event.Reason)
	}))

	var (
		authClient *auth.GoTrueClient
		refresher  ports.SessionRefresher
	)
	if cfg.AuthURL != "" {
		authClient = auth.NewGoTrueClient(cfg.AuthURL, cfg.AuthAnonKey, cfg.AuthServiceKey, executor)
		refresher = authClient
	}

	apiClient := analysisapi.New(cfg.AnalysisAPIURL, executor, refresher, analysisapi.Options{
		Timeout:       cfg.AnalysisTimeout,
		Leeway:        cfg.TokenLeeway,
		RefreshWindow: cfg.TokenRefreshWindow,
	})
	notifier := notify.NewJobNotifier(notify.Config{
		BaseURL:     cfg.AnalysisWSURL,
		MaxAttempts: cfg.WSReconnectAttempts,
		BaseDelay:   cfg.WSReconnectBaseDelay,
		MaxDelay:    cfg.WSReconnectMaxDelay,
	})

	var accountClient ports.AccountClient = apiClient
	if authClient != nil && cfg.AuthServiceKey != "" {
		accountClient = auth.NewAdminAccountClient(authClient)
	}

	verifier := auth.NewVerifier(cfg.AuthJWTSecret, cfg.TokenLeeway)
	if verifier.DevMode() {
		slog.Warn("auth_dev_mode", "user_id", auth.DevUserID)
	}

	app := &App{
		Config:          cfg,
		HTTPMetrics:     httpMetrics,
		AnalysisMetrics: analysisMetrics,
		Verifier:        verifier,
		AuthClient:      authClient,
		APIClient:       apiClient,
		SavedStore:      savedStore,
		StateCache:      stateCache,

		AnalysisUC: usecase.NewAnalysisUseCase(apiClient, apiClient, stateCache, analysisMetrics, usecase.AnalysisOptions{
			FallbackEnabled: cfg.FallbackEnabled,
		}),
		JobUC:     usecase.NewJobUseCase(apiClient, notifier),
		SavedUC:   usecase.NewSavedAnalysesUseCase(savedStore, stateCache),
		ExportUC:  usecase.NewExportUseCase(savedStore, pdf.NewRenderer(), xlsx.NewRenderer()),
		AccountUC: usecase.NewAccountUseCase(savedStore, stateCache, accountClient),
		ModelUC:   usecase.NewModelInfoUseCase(apiClient, cfg.Environment),

		closeFn: func() {
			if db != nil {
				_ = db.Close()
			}
		},
	}
	slog.Info("bootstrap_complete",
		"saved_store", cfg.SavedStoreBackend,
		"analysis_api", cfg.AnalysisAPIURL,
		"fallback", cfg.FallbackEnabled,
		"auth_refresh", refresher != nil,
	)
	return app, nil
}

func openSavedStore(ctx context.Context, cfg config.Config, storage *localfs.Storage) (ports.SavedAnalysisStore, *sql.DB, error) {
	if cfg.SavedStoreBackend != config.SavedStorePostgres {
		return localfs.NewSavedStore(storage), nil, nil
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSavedAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}

func resilienceConfig(cfg config.Config, onRetry func(resilience.RetryEvent)) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.RetryInitialBackoff = cfg.RetryInitialBackoff
	out.RetryMaxBackoff = cfg.RetryMaxBackoff
	out.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.BreakerFailureRatio
	out.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	out.OnRetry = onRetry
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
