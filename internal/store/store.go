// Package store defines persistence for scan history, daily counters and
// user allowlists. Backends live in the memory, sqlite and postgres
// subpackages and share the contract checked by storetest.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/pkg/types"
)

// ErrNotFound is returned for an unknown or foreign history entry.
var ErrNotFound = errors.New("not found")

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
	dayLayout           = "2006-01-02"
)

// HistoryEntry is a recorded scan.
type HistoryEntry struct {
	ID string `json:"id"`
	types.ScanResult
}

// HistoryQuery filters a history listing. A zero Verdict matches all.
type HistoryQuery struct {
	Limit   int
	Verdict types.Verdict
}

// EffectiveLimit clamps Limit to [1, MaxHistoryLimit], defaulting when unset.
func (q HistoryQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultHistoryLimit
	case q.Limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return q.Limit
}

// DailyStat counts one user's scans on one UTC day.
type DailyStat struct {
	Day        string `json:"day"`
	Total      int    `json:"total"`
	Clean      int    `json:"clean"`
	Suspicious int    `json:"suspicious"`
	Malicious  int    `json:"malicious"`
}

// Add counts one scan with the given verdict.
func (s *DailyStat) Add(v types.Verdict) {
	s.Total++
	switch v {
	case types.VerdictClean:
		s.Clean++
	case types.VerdictSuspicious:
		s.Suspicious++
	case types.VerdictMalicious:
		s.Malicious++
	}
}

// Day returns the UTC calendar day of t as YYYY-MM-DD.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Store is implemented by every backend.
type Store interface {
	allowlist.Store

	// Record appends result to the user's history and bumps the counters of
	// the result's UTC day in one transaction.
	Record(ctx context.Context, user string, result types.ScanResult) (HistoryEntry, error)
	// History lists the user's scans, newest first.
	History(ctx context.Context, user string, q HistoryQuery) ([]HistoryEntry, error)
	DeleteHistory(ctx context.Context, user, id string) error
	// DailyStats returns counters for days on or after since, oldest first.
	DailyStats(ctx context.Context, user string, since time.Time) ([]DailyStat, error)
	// CountToday returns the number of scans recorded for the current UTC day.
	CountToday(ctx context.Context, user string) (int, error)
	Close() error
}
