package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const signInPath = "/auth/signin"

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrAnalysisNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrStreamIncomplete),
		domain.IsKind(err, domain.ErrReconnectExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

func errorBody(err error) (int, errorResponse) {
	status := mapErrorToHTTPStatus(err)
	body := errorResponse{Error: err.Error()}
	switch status {
	case http.StatusUnauthorized:
		body.Redirect = signInPath
	case http.StatusInternalServerError:
		body.Error = "internal server error"
	}
	return status, body
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

var errMissingSession = errors.New("authentication required")
