package localfs

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const (
	currentInputPrefix   = "current_property_input/"
	streamingStatePrefix = "streaming_analysis_state/"
)

// StateCache keeps the last submitted request and its streaming state per
// user under two keys, so either can be inspected or cleared on its own.
type StateCache struct {
	storage *Storage
}

func NewStateCache(storage *Storage) *StateCache {
	return &StateCache{storage: storage}
}

func (c *StateCache) Load(ctx context.Context, userID string) (*domain.CachedAnalysis, error) {
	var req domain.AnalysisRequest
	found, err := c.storage.ReadJSON(ctx, inputKey(userID), &req)
	if err != nil {
		return nil, fmt.Errorf("load current input: %w", err)
	}
	if !found {
		return nil, nil
	}

	state := domain.NewStreamingState()
	if _, err := c.storage.ReadJSON(ctx, stateKey(userID), &state); err != nil {
		return nil, fmt.Errorf("load streaming state: %w", err)
	}
	normalizeState(&state)
	return &domain.CachedAnalysis{Request: req, State: state}, nil
}

func (c *StateCache) Store(ctx context.Context, userID string, entry domain.CachedAnalysis) error {
	if err := c.storage.WriteJSON(ctx, inputKey(userID), entry.Request); err != nil {
		return fmt.Errorf("store current input: %w", err)
	}
	if err := c.storage.WriteJSON(ctx, stateKey(userID), entry.State); err != nil {
		return fmt.Errorf("store streaming state: %w", err)
	}
	return nil
}

func (c *StateCache) Clear(ctx context.Context, userID string) error {
	if err := c.storage.Delete(ctx, stateKey(userID)); err != nil {
		return err
	}
	return c.storage.Delete(ctx, inputKey(userID))
}

func inputKey(userID string) string {
	return currentInputPrefix + url.PathEscape(userID)
}

func stateKey(userID string) string {
	return streamingStatePrefix + url.PathEscape(userID)
}

func normalizeState(state *domain.StreamingState) {
	for _, list := range []*[]string{&state.Strengths, &state.Weaknesses, &state.HiddenRisks, &state.Questions} {
		if *list == nil {
			*list = []string{}
		}
	}
}
