package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/output"
	"github.com/buemura/safeurl/internal/scan"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/internal/web/jobs"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Analyzer produces an AI assessment for the analyze endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (types.AIAssessment, error)
}

// Handlers holds dependencies for the REST API handlers.
type Handlers struct {
	Scanner   jobs.Scanner
	Manager   *jobs.Manager
	Allowlist *allowlist.Manager
	Store     store.Store
	Analyzer  Analyzer
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// NewHandlers creates API handlers with the given dependencies. analyzer
// may be nil, which disables the analyze endpoint.
func NewHandlers(scanner jobs.Scanner, manager *jobs.Manager, allow *allowlist.Manager, st store.Store, analyzer Analyzer, log logrus.FieldLogger) *Handlers {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Handlers{
		Scanner:   scanner,
		Manager:   manager,
		Allowlist: allow,
		Store:     st,
		Analyzer:  analyzer,
		Log:       log,
		Now:       time.Now,
	}
}

// ScanResponse is a scan result plus the history entry it was stored as.
type ScanResponse struct {
	types.ScanResult
	HistoryID string `json:"historyId,omitempty"`
}

// CreateScan handles POST /api/v1/scans. Scans by authenticated users are
// recorded in their history; a failed write does not fail the scan.
func (h *Handlers) CreateScan(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScanRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.UserFromContext(r.Context())
	var opts []scan.ScanOption
	if req.SkipAI {
		opts = append(opts, scan.WithoutAI())
	}

	result, err := h.Scanner.Scan(r.Context(), user, req.URL, opts...)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := ScanResponse{ScanResult: result}
	if user != "" {
		entry, err := h.Store.Record(r.Context(), user, result)
		if err != nil {
			h.Log.WithError(err).WithField("user", user).Warn("failed to record scan history")
		} else {
			resp.HistoryID = entry.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateBatch handles POST /api/v1/batches.
func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBatchRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := h.Manager.Create(auth.UserFromContext(r.Context()), req.URLs, req.SkipAI)
	if err := h.Manager.Start(job.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start batch: "+err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":     job.ID,
		"status": jobs.StatusRunning,
	})
}

// ListBatches handles GET /api/v1/batches.
func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	jobList := h.Manager.List(auth.UserFromContext(r.Context()))

	type batchSummary struct {
		ID        string                `json:"id"`
		Status    jobs.JobStatus        `json:"status"`
		CreatedAt time.Time             `json:"created_at"`
		URLCount  int                   `json:"url_count"`
		Progress  jobs.JobProgress      `json:"progress"`
		Verdicts  map[types.Verdict]int `json:"verdicts"`
	}

	summaries := make([]batchSummary, len(jobList))
	for i, j := range jobList {
		summaries[i] = batchSummary{
			ID:        j.ID,
			Status:    j.Status,
			CreatedAt: j.CreatedAt,
			URLCount:  len(j.URLs),
			Progress:  j.Progress,
			Verdicts:  j.VerdictCounts(),
		}
	}

	writeJSON(w, http.StatusOK, summaries)
}

// GetBatch handles GET /api/v1/batches/{id}.
func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	job, err := h.Manager.Get(auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// GetBatchReport handles GET /api/v1/batches/{id}/report.
func (h *Handlers) GetBatchReport(w http.ResponseWriter, r *http.Request) {
	job, err := h.Manager.Get(auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if job.Status != jobs.StatusCompleted {
		writeError(w, http.StatusConflict, "batch is not yet completed")
		return
	}

	formatter := &output.HTMLFormatter{}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, job.Results); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render report: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// DeleteBatch handles DELETE /api/v1/batches/{id}.
func (h *Handlers) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Delete(auth.UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
