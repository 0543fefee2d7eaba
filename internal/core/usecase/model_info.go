package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
	"github.com/kirillkom/listing-analyzer/internal/core/ports"
)

type ModelInfoUseCase struct {
	source      ports.ModelInfoSource
	environment string
}

func NewModelInfoUseCase(source ports.ModelInfoSource, environment string) *ModelInfoUseCase {
	return &ModelInfoUseCase{source: source, environment: environment}
}

// ModelInfo returns the backend's answer, or an unknown provider and model
// tagged with the local environment when the backend is unreachable.
func (uc *ModelInfoUseCase) ModelInfo(ctx context.Context) domain.ModelInfo {
	if uc.source == nil {
		return domain.UnknownModelInfo(uc.environment)
	}
	info, err := uc.source.ModelInfo(ctx)
	if err != nil {
		slog.Warn("model_info_unavailable", "error", err)
		return domain.UnknownModelInfo(uc.environment)
	}
	return info
}
