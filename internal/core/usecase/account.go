package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
)

type AccountUseCase struct {
	store   ports.SavedAnalysisStore
	cache   ports.StateCache
	backend ports.AccountClient
}

func NewAccountUseCase(store ports.SavedAnalysisStore, cache ports.StateCache, backend ports.AccountClient) *AccountUseCase {
	return &AccountUseCase{store: store, cache: cache, backend: backend}
}

// DeleteAccount removes the user's saved analyses, then asks the backend to
// delete the account itself. The local resume cache is cleared last.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, session *domain.Session) error {
	if session == nil || !session.HasToken() || session.UserID == "" {
		return domain.WrapError(domain.ErrUnauthorized, "delete account", errors.New("authentication token required"))
	}

	if err := uc.store.DeleteAllForUser(ctx, session.UserID); err != nil {
		return fmt.Errorf("delete saved analyses: %w", err)
	}
	if err := uc.backend.DeleteAccount(ctx, session); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if uc.cache != nil {
		if err := uc.cache.Clear(ctx, session.UserID); err != nil {
			slog.Warn("state_cache_clear_failed", "user_id", session.UserID, "error", err)
		}
	}
	slog.Info("account_deleted", "user_id", session.UserID)
	return nil
}
