package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
)

type SavedAnalysesUseCase struct {
	store ports.SavedAnalysisStore
	cache ports.StateCache
	now   func() time.Time
}

func NewSavedAnalysesUseCase(store ports.SavedAnalysisStore, cache ports.StateCache) *SavedAnalysesUseCase {
	return &SavedAnalysesUseCase{store: store, cache: cache, now: time.Now}
}

// Save upserts an analysis under (user, property input, property title).
// When analysis is nil the user's cached, completed streaming state is saved
// instead, and an empty property input falls back to the cached request.
func (uc *SavedAnalysesUseCase) Save(
	ctx context.Context,
	userID, propertyInput, propertyTitle string,
	analysis *domain.Analysis,
) (*domain.SavedAnalysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "save analysis", errors.New("user id is required"))
	}

	if analysis == nil {
		cached, err := uc.completedFromCache(ctx, userID)
		if err != nil {
			return nil, err
		}
		report := cached.State.ToAnalysis()
		analysis = &report
		if strings.TrimSpace(propertyInput) == "" {
			propertyInput = cached.Request.PropertyAddress
			if strings.TrimSpace(propertyTitle) == "" {
				propertyTitle = cached.Request.PropertyTitle
			}
		}
	}

	propertyInput = strings.TrimSpace(propertyInput)
	propertyTitle = strings.TrimSpace(propertyTitle)
	if propertyInput == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save analysis", errors.New("property input is required"))
	}
	if propertyTitle == "" {
		propertyTitle = propertyInput
	}
	if analysis.OverallScore < 0 || analysis.OverallScore > 100 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save analysis", fmt.Errorf("overall score %.1f out of range 0-100", analysis.OverallScore))
	}

	record := domain.SavedAnalysis{
		UserID:        userID,
		PropertyInput: propertyInput,
		PropertyTitle: propertyTitle,
		Analysis:      *analysis,
	}
	if record.Analysis.GeneratedAt == nil {
		generated := uc.now().UTC()
		record.Analysis.GeneratedAt = &generated
	}

	saved, err := uc.store.Save(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	return saved, nil
}

func (uc *SavedAnalysesUseCase) List(ctx context.Context, userID string) ([]domain.SavedAnalysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list analyses", errors.New("user id is required"))
	}
	items, err := uc.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return items, nil
}

// Search filters the user's analyses by a case-insensitive match on the
// title or the property input. An empty term returns everything.
func (uc *SavedAnalysesUseCase) Search(ctx context.Context, userID, term string) ([]domain.SavedAnalysis, error) {
	items, err := uc.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items, nil
	}

	out := make([]domain.SavedAnalysis, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.PropertyTitle), term) ||
			strings.Contains(strings.ToLower(item.PropertyInput), term) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (uc *SavedAnalysesUseCase) Get(ctx context.Context, userID, id string) (*domain.SavedAnalysis, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get analysis", errors.New("id is required"))
	}
	item, err := uc.store.Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return item, nil
}

func (uc *SavedAnalysesUseCase) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.WrapError(domain.ErrUnauthorized, "delete analysis", errors.New("user id is required"))
	}
	if strings.TrimSpace(id) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "delete analysis", errors.New("id is required"))
	}
	if err := uc.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

func (uc *SavedAnalysesUseCase) IsSaved(ctx context.Context, key domain.SavedAnalysisKey) (bool, error) {
	key.PropertyInput = strings.TrimSpace(key.PropertyInput)
	key.PropertyTitle = strings.TrimSpace(key.PropertyTitle)
	if key.PropertyTitle == "" {
		key.PropertyTitle = key.PropertyInput
	}
	if key.UserID == "" || key.PropertyInput == "" {
		return false, nil
	}
	ok, err := uc.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check saved analysis: %w", err)
	}
	return ok, nil
}

func (uc *SavedAnalysesUseCase) Stats(ctx context.Context, userID string) (domain.SavedAnalysisStats, error) {
	items, err := uc.List(ctx, userID)
	if err != nil {
		return domain.SavedAnalysisStats{}, err
	}

	weekAgo := uc.now().AddDate(0, 0, -7)
	stats := domain.SavedAnalysisStats{Total: len(items)}
	var sum float64
	for _, item := range items {
		sum += item.Analysis.OverallScore
		if item.Analysis.OverallScore >= domain.HighScoreThreshold {
			stats.HighScoreCount++
		}
		if item.CreatedAt.After(weekAgo) {
			stats.ThisWeek++
		}
	}
	if len(items) > 0 {
		stats.AverageScore = sum / float64(len(items))
	}
	return stats, nil
}

func (uc *SavedAnalysesUseCase) completedFromCache(ctx context.Context, userID string) (*domain.CachedAnalysis, error) {
	if uc.cache == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save analysis", errors.New("analysis is required"))
	}
	cached, err := uc.cache.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cached analysis: %w", err)
	}
	if cached == nil || !cached.State.IsComplete {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save analysis", errors.New("no completed analysis to save"))
	}
	return cached, nil
}
