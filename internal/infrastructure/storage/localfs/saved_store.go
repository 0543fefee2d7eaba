package localfs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const savedAnalysesKey = "saved_analyses"

// SavedStore keeps every user's saved analyses in a single JSON document.
// It is the development backend; writes are serialized by a mutex.
type SavedStore struct {
	storage *Storage
	now     func() time.Time

	mu sync.Mutex
}

func NewSavedStore(storage *Storage) *SavedStore {
	return &SavedStore{storage: storage, now: time.Now}
}

func (s *SavedStore) Save(ctx context.Context, analysis domain.SavedAnalysis) (*domain.SavedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := analysis.Key()
	for i := range items {
		if items[i].Key() == key {
			items[i].Analysis = analysis.Analysis
			items[i].UpdatedAt = now
			if err := s.store(ctx, items); err != nil {
				return nil, err
			}
			out := items[i]
			return &out, nil
		}
	}

	analysis.ID = uuid.NewString()
	analysis.CreatedAt = now
	analysis.UpdatedAt = now
	items = append(items, analysis)
	if err := s.store(ctx, items); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (s *SavedStore) List(ctx context.Context, userID string) ([]domain.SavedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SavedAnalysis, 0)
	for _, item := range items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *SavedStore) Get(ctx context.Context, userID, id string) (*domain.SavedAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == id && item.UserID == userID {
			out := item
			return &out, nil
		}
	}
	return nil, fmt.Errorf("saved analysis %s: %w", id, domain.ErrAnalysisNotFound)
}

// Delete removes the record only when both id and user match.
func (s *SavedStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i, item := range items {
		if item.ID == id && item.UserID == userID {
			items = append(items[:i], items[i+1:]...)
			return s.store(ctx, items)
		}
	}
	return fmt.Errorf("saved analysis %s: %w", id, domain.ErrAnalysisNotFound)
}

func (s *SavedStore) Exists(ctx context.Context, key domain.SavedAnalysisKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *SavedStore) DeleteAllForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]domain.SavedAnalysis, 0, len(items))
	for _, item := range items {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return s.store(ctx, kept)
}

func (s *SavedStore) load(ctx context.Context) ([]domain.SavedAnalysis, error) {
	var items []domain.SavedAnalysis
	if _, err := s.storage.ReadJSON(ctx, savedAnalysesKey, &items); err != nil {
		return nil, fmt.Errorf("load saved analyses: %w", err)
	}
	return items, nil
}

func (s *SavedStore) store(ctx context.Context, items []domain.SavedAnalysis) error {
	if items == nil {
		items = []domain.SavedAnalysis{}
	}
	if err := s.storage.WriteJSON(ctx, savedAnalysesKey, items); err != nil {
		return fmt.Errorf("store saved analyses: %w", err)
	}
	return nil
}
