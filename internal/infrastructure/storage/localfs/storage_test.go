package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return storage
}

func TestStorageSaveOpenDelete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.Save(ctx, "nested/key", strings.NewReader("first")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := storage.Save(ctx, "nested/key", strings.NewReader("second")); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}

	rc, err := storage.Open(ctx, "nested/key")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()
	if string(raw) != "second" {
		t.Fatalf("unexpected content %q", raw)
	}

	entries, _ := os.ReadDir(filepath.Join(storage.basePath, "nested"))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left, got %d entries", len(entries))
	}

	if err := storage.Delete(ctx, "nested/key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Open(ctx, "nested/key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := storage.Delete(ctx, "nested/key"); err != nil {
		t.Fatalf("deleting a missing key should succeed, got %v", err)
	}
}

func TestStorageRejectsEscapingKeys(t *testing.T) {
	storage := newTestStorage(t)
	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestStateCacheRoundTrip(t *testing.T) {
	cache := NewStateCache(newTestStorage(t))
	ctx := context.Background()

	entry, err := cache.Load(ctx, "user/1")
	if err != nil || entry != nil {
		t.Fatalf("expected empty cache, got %+v, %v", entry, err)
	}

	state := domain.NewStreamingState()
	state.AnalysisID = "an-1"
	state.Questions = []string{"Q1"}
	err = cache.Store(ctx, "user/1", domain.CachedAnalysis{
		Request: domain.AnalysisRequest{PropertyAddress: "12 Elm St", PropertyTitle: "Elm"},
		State:   state,
	})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entry, err = cache.Load(ctx, "user/1")
	if err != nil || entry == nil {
		t.Fatalf("Load() = %+v, %v", entry, err)
	}
	if entry.Request.PropertyTitle != "Elm" || entry.State.AnalysisID != "an-1" || entry.State.Questions[0] != "Q1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.State.Strengths == nil {
		t.Fatalf("expected empty lists to be non-nil")
	}

	if err := cache.Clear(ctx, "user/1"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if entry, _ := cache.Load(ctx, "user/1"); entry != nil {
		t.Fatalf("expected cleared cache, got %+v", entry)
	}
}

func TestSavedStoreUpsertListDelete(t *testing.T) {
	store := NewSavedStore(newTestStorage(t))
	ctx := context.Background()
	clock := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := store.Save(ctx, domain.SavedAnalysis{UserID: "u1", PropertyInput: "12 Elm St", PropertyTitle: "Elm", Analysis: domain.Analysis{OverallScore: 50}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	again, err := store.Save(ctx, domain.SavedAnalysis{UserID: "u1", PropertyInput: "12 Elm St", PropertyTitle: "Elm", Analysis: domain.Analysis{OverallScore: 70}})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if again.ID != first.ID || again.Analysis.OverallScore != 70 || !again.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected upsert of %s, got %+v", first.ID, again)
	}
	second, _ := store.Save(ctx, domain.SavedAnalysis{UserID: "u1", PropertyInput: "4 Oak Ave", PropertyTitle: "Oak"})
	other, _ := store.Save(ctx, domain.SavedAnalysis{UserID: "u2", PropertyInput: "12 Elm St", PropertyTitle: "Elm"})

	items, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", items)
	}

	ok, _ := store.Exists(ctx, domain.SavedAnalysisKey{UserID: "u2", PropertyInput: "12 Elm St", PropertyTitle: "Elm"})
	if !ok {
		t.Fatalf("expected key to exist")
	}

	if err := store.Delete(ctx, "u1", other.ID); !errors.Is(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected not found for foreign id, got %v", err)
	}
	if _, err := store.Get(ctx, "u2", other.ID); err != nil {
		t.Fatalf("foreign record must survive, got %v", err)
	}

	if err := store.DeleteAllForUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteAllForUser() error = %v", err)
	}
	items, _ = store.List(ctx, "u1")
	if len(items) != 0 {
		t.Fatalf("expected no records for u1, got %d", len(items))
	}
	items, _ = store.List(ctx, "u2")
	if len(items) != 1 {
		t.Fatalf("expected u2 record kept, got %d", len(items))
	}
}
