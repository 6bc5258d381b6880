package api

import (
	"net/http"

	"github.com/buemura/safeurl/pkg/types"
)

// Analyze handles POST /api/v1/analyze. It is the backend the AI risk
// client calls: {"url": ...} in, {"riskScore","reason","threats"} out.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.Analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	req, err := decodeScanRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := types.ParseURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := h.Analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.Log.WithError(err).Warn("analysis failed")
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}
