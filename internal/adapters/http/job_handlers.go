package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

type startJobResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (rt *Router) startJob(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req domain.AnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current := session
	jobID, err := rt.jobs.StartJob(r.Context(), &current, req)
	exposeRefreshed(w, session, current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startJobResponse{Success: true, JobID: jobID})
}

func (rt *Router) jobEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "jobID")
	stream, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	state, err := rt.jobs.WatchJob(r.Context(), &session, jobID, func(update domain.JobState) {
		_ = stream.Send("", update)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			rt.observeJob("abandoned")
			return
		}
		rt.observeJob("error")
		_, body := errorBody(err)
		_ = stream.Send("error", body)
		return
	}
	status := string(state.Status)
	if state.Error != "" && !state.Status.IsTerminal() {
		status = string(domain.JobStatusFailed)
	}
	rt.observeJob(status)
	_ = stream.Send("done", state)
}

func (rt *Router) cancelJob(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	current := session
	err := rt.jobs.CancelJob(r.Context(), &current, chi.URLParam(r, "jobID"))
	exposeRefreshed(w, session, current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Job cancelled"})
}

func (rt *Router) observeJob(status string) {
	if rt.jobObserver != nil {
		rt.jobObserver.ObserveJobWatch(status)
	}
}
