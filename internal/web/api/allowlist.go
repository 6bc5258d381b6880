package api

import (
	"net/http"
	"net/url"

	"github.com/buemura/safeurl/internal/auth"
	"github.com/go-chi/chi/v5"
)

// ListAllowlist handles GET /api/v1/allowlist. Anonymous callers see the
// built-in entries only.
func (h *Handlers) ListAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Allowlist.Entries(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// AddAllowlist handles POST /api/v1/allowlist.
func (h *Handlers) AddAllowlist(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAllowlistRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.Allowlist.Add(r.Context(), auth.UserFromContext(r.Context()), req.Domain)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// RemoveAllowlist handles DELETE /api/v1/allowlist/{domain}.
func (h *Handlers) RemoveAllowlist(w http.ResponseWriter, r *http.Request) {
	domain, err := url.PathUnescape(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid domain")
		return
	}

	if err := h.Allowlist.Remove(r.Context(), auth.UserFromContext(r.Context()), domain); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
