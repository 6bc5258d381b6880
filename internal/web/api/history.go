package api

import (
	"net/http"

	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/store"
	"github.com/go-chi/chi/v5"
)

// ListHistory handles GET /api/v1/history.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.Store.History(r.Context(), auth.UserFromContext(r.Context()), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// DeleteHistory handles DELETE /api/v1/history/{id}.
func (h *Handlers) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHistory(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Days   int               `json:"days"`
	Today  int               `json:"today"`
	Totals dailyTotals       `json:"totals"`
	Daily  []store.DailyStat `json:"daily"`
}

type dailyTotals struct {
	Total      int `json:"total"`
	Clean      int `json:"clean"`
	Suspicious int `json:"suspicious"`
	Malicious  int `json:"malicious"`
}

// Stats handles GET /api/v1/stats?days=N.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	since, days, err := parseStatsSince(r, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.UserFromContext(r.Context())
	daily, err := h.Store.DailyStats(r.Context(), user, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	today, err := h.Store.CountToday(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var totals dailyTotals
	for _, d := range daily {
		totals.Total += d.Total
		totals.Clean += d.Clean
		totals.Suspicious += d.Suspicious
		totals.Malicious += d.Malicious
	}

	writeJSON(w, http.StatusOK, StatsResponse{Days: days, Today: today, Totals: totals, Daily: daily})
}
