package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("WS_BASE_URL", "")
	t.Setenv("TOKEN_LEEWAY", "")
	t.Setenv("SAVED_STORE_BACKEND", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.AnalysisAPIURL != "http://localhost:8000" {
		t.Fatalf("expected default api url, got %q", cfg.AnalysisAPIURL)
	}
	if cfg.AnalysisWSURL != "ws://localhost:8000" {
		t.Fatalf("expected websocket url derived from api url, got %q", cfg.AnalysisWSURL)
	}
	if cfg.TokenLeeway != 30*time.Second || cfg.TokenRefreshWindow != 5*time.Minute {
		t.Fatalf("unexpected token timings: %v %v", cfg.TokenLeeway, cfg.TokenRefreshWindow)
	}
	if cfg.SavedStoreBackend != SavedStoreLocal {
		t.Fatalf("expected local saved store, got %q", cfg.SavedStoreBackend)
	}
	if !cfg.DevAuth() {
		t.Fatalf("expected dev auth without a jwt secret")
	}
	if !cfg.FallbackEnabled {
		t.Fatalf("expected fallback enabled by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("WS_BASE_URL", "")
	t.Setenv("TOKEN_LEEWAY", "45s")
	t.Setenv("WS_RECONNECT_MAX_ATTEMPTS", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SAVED_STORE_BACKEND", "Postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AnalysisAPIURL != "https://api.example.com" || cfg.AnalysisWSURL != "wss://api.example.com" {
		t.Fatalf("unexpected urls: %q %q", cfg.AnalysisAPIURL, cfg.AnalysisWSURL)
	}
	if cfg.TokenLeeway != 45*time.Second || cfg.WSReconnectAttempts != 7 || cfg.RateLimitRPS != 2.5 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.SavedStoreBackend != SavedStorePostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.SavedStoreBackend)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ANALYSIS_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_BURST", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AnalysisTimeout != 120*time.Second || cfg.RateLimitBurst != 20 {
		t.Fatalf("expected defaults for unparsable values, got %v %d", cfg.AnalysisTimeout, cfg.RateLimitBurst)
	}
}

func TestLoadRejectsUnknownStoreBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SAVED_STORE_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadAppliesYAMLOverlayBelowEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.yaml")
	content := "api_base_url: http://analysis.internal:9000\nrate_limit_burst: 5\nws_reconnect_base_delay: 250ms\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_BASE_URL", "")
	t.Setenv("WS_BASE_URL", "")
	t.Setenv("RATE_LIMIT_BURST", "9")
	t.Setenv("WS_RECONNECT_BASE_DELAY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AnalysisAPIURL != "http://analysis.internal:9000" || cfg.AnalysisWSURL != "ws://analysis.internal:9000" {
		t.Fatalf("expected overlay urls, got %q %q", cfg.AnalysisAPIURL, cfg.AnalysisWSURL)
	}
	if cfg.RateLimitBurst != 9 {
		t.Fatalf("expected env to win over overlay, got %d", cfg.RateLimitBurst)
	}
	if cfg.WSReconnectBaseDelay != 250*time.Millisecond {
		t.Fatalf("expected overlay duration, got %v", cfg.WSReconnectBaseDelay)
	}
}

func TestLoadFailsOnUnreadableOverlay(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
