package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

type saveAnalysisRequest struct {
	PropertyInput string           `json:"property_input"`
	PropertyTitle string           `json:"property_title"`
	Analysis      *domain.Analysis `json:"analysis"`
}

type savedListResponse struct {
	Items []domain.SavedAnalysis `json:"items"`
	Count int                    `json:"count"`
}

func (rt *Router) listSaved(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var (
		items []domain.SavedAnalysis
		err   error
	)
	if term := strings.TrimSpace(r.URL.Query().Get("q")); term != "" {
		items, err = rt.saved.Search(r.Context(), session.UserID, term)
	} else {
		items, err = rt.saved.List(r.Context(), session.UserID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.SavedAnalysis{}
	}
	writeJSON(w, http.StatusOK, savedListResponse{Items: items, Count: len(items)})
}

// saveAnalysis stores the posted analysis, or the caller's last completed
// streaming result when the body carries none.
func (rt *Router) saveAnalysis(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req saveAnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	saved, err := rt.saved.Save(r.Context(), session.UserID, req.PropertyInput, req.PropertyTitle, req.Analysis)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (rt *Router) savedStats(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	stats, err := rt.saved.Stats(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) savedExists(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	saved, err := rt.saved.IsSaved(r.Context(), domain.SavedAnalysisKey{
		UserID:        session.UserID,
		PropertyInput: query.Get("property_input"),
		PropertyTitle: query.Get("property_title"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (rt *Router) getSaved(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	item, err := rt.saved.Get(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rt *Router) deleteSaved(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := rt.saved.Delete(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportPDF(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	filename, err := rt.export.WritePDF(r.Context(), session.UserID, chi.URLParam(r, "id"), &buf)
	rt.recordExport("pdf", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, "application/pdf", filename, buf.Bytes())
}

func (rt *Router) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := rt.export.WriteWorkbook(r.Context(), session.UserID, &buf)
	rt.recordExport("xlsx", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "saved-analyses.xlsx", buf.Bytes())
}

func (rt *Router) recordExport(format string, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName, format, err)
	}
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (rt *Router) deleteAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	current := session
	err := rt.account.DeleteAccount(r.Context(), &current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Account deleted"})
}
