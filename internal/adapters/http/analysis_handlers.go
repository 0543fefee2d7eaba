package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

type analyzeResponse struct {
	Success  bool             `json:"success"`
	Analysis *domain.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func (rt *Router) analyzeOnce(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req domain.AnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current := session
	analysis, err := rt.analysis.AnalyzeOnce(r.Context(), &current, req)
	exposeRefreshed(w, session, current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Success: true, Analysis: analysis})
}

// streamAnalysis relays every StreamingState snapshot as an SSE data frame
// and closes with a "done" or "error" event.
func (rt *Router) streamAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req domain.AnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := req.Normalize(); err != nil {
		writeError(w, r, err)
		return
	}
	stream, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	state, err := rt.analysis.Start(r.Context(), &session, req, func(snapshot domain.StreamingState) {
		_ = stream.Send("", snapshot)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			return
		}
		slog.Warn("analysis_stream_ended_with_error",
			"request_id", requestIDFromContext(r.Context()),
			"user_id", session.UserID,
			"error", err,
		)
		_, body := errorBody(err)
		_ = stream.Send("error", body)
		return
	}
	_ = stream.Send("done", state)
}

func (rt *Router) currentAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	entry, err := rt.analysis.Current(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
