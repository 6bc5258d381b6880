package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
)

const (
	maxBodyBytes    = 1 << 20
	maxBatchURLs    = 100
	maxStatsDays    = 366
	defaultStatDays = 7
)

// ScanRequest is the JSON body for POST /api/v1/scans and /api/v1/analyze.
type ScanRequest struct {
	URL    string `json:"url"`
	SkipAI bool   `json:"skip_ai"`
}

// BatchRequest is the JSON body for POST /api/v1/batches.
type BatchRequest struct {
	URLs   []string `json:"urls"`
	SkipAI bool     `json:"skip_ai"`
}

// AllowlistRequest is the JSON body for POST /api/v1/allowlist.
type AllowlistRequest struct {
	Domain string `json:"domain"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// decodeScanRequest reads and validates the request body.
func decodeScanRequest(w http.ResponseWriter, r *http.Request) (*ScanRequest, error) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("url is required")
	}
	return &req, nil
}

func decodeBatchRequest(w http.ResponseWriter, r *http.Request) (*BatchRequest, error) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("urls is required")
	}
	if len(req.URLs) > maxBatchURLs {
		return nil, fmt.Errorf("at most %d urls per batch, got %d", maxBatchURLs, len(req.URLs))
	}
	return &req, nil
}

func decodeAllowlistRequest(w http.ResponseWriter, r *http.Request) (*AllowlistRequest, error) {
	var req AllowlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Domain) == "" {
		return nil, fmt.Errorf("domain is required")
	}
	return &req, nil
}

// parseHistoryQuery reads ?limit= and ?verdict=.
func parseHistoryQuery(r *http.Request) (store.HistoryQuery, error) {
	var q store.HistoryQuery
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	if s := r.URL.Query().Get("verdict"); s != "" {
		v, ok := types.ParseVerdict(s)
		if !ok {
			return q, fmt.Errorf("invalid verdict %q (want clean, suspicious or malicious)", s)
		}
		q.Verdict = v
	}
	return q, nil
}

// parseStatsSince reads ?days= and returns the first day to include.
func parseStatsSince(r *http.Request, now time.Time) (time.Time, int, error) {
	days := defaultStatDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxStatsDays {
			return time.Time{}, 0, fmt.Errorf("invalid days %q (want 1-%d)", s, maxStatsDays)
		}
		days = n
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(days - 1)), days, nil
}
