package analysisapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

// ModelInfo asks the backend which provider and model it runs. The endpoint
// needs no session.
func (c *Client) ModelInfo(ctx context.Context) (domain.ModelInfo, error) {
	var info domain.ModelInfo
	err := c.executor.Execute(ctx, "analysis_api_model_info", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/api/model-info", "", nil, &info, "model_info")
	}, classifyError)
	if err != nil {
		return domain.ModelInfo{}, classifyOutcome("model_info", err)
	}
	if strings.TrimSpace(info.Provider) == "" || strings.TrimSpace(info.Model) == "" {
		return domain.ModelInfo{}, domain.WrapError(domain.ErrTemporary, "model info", errors.New("provider or model missing from response"))
	}
	return info, nil
}
