// Package memory is an in-process store for tests and ephemeral servers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/google/uuid"
)

type userData struct {
	allowlist map[string]types.AllowlistEntry
	history   []store.HistoryEntry // oldest first
	daily     map[string]*store.DailyStat
}

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userData
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{users: make(map[string]*userData), now: time.Now}
}

func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{
			allowlist: make(map[string]types.AllowlistEntry),
			daily:     make(map[string]*store.DailyStat),
		}
		s.users[id] = u
	}
	return u
}

func (s *Store) ListAllowlist(_ context.Context, user string) ([]types.AllowlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[user]
	if !ok {
		return []types.AllowlistEntry{}, nil
	}
	entries := make([]types.AllowlistEntry, 0, len(u.allowlist))
	for _, e := range u.allowlist {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Domain < entries[j].Domain })
	return entries, nil
}

func (s *Store) AddAllowlist(_ context.Context, user string, entry types.AllowlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.user(user)
	if _, ok := u.allowlist[entry.Domain]; ok {
		return allowlist.ErrExists
	}
	u.allowlist[entry.Domain] = entry
	return nil
}

func (s *Store) RemoveAllowlist(_ context.Context, user, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user]
	if !ok {
		return allowlist.ErrNotFound
	}
	if _, ok := u.allowlist[domain]; !ok {
		return allowlist.ErrNotFound
	}
	delete(u.allowlist, domain)
	return nil
}

func (s *Store) Record(_ context.Context, user string, result types.ScanResult) (store.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := store.HistoryEntry{ID: uuid.NewString(), ScanResult: cloneResult(result)}
	u := s.user(user)
	u.history = append(u.history, entry)

	day := store.Day(result.Timestamp)
	stat, ok := u.daily[day]
	if !ok {
		stat = &store.DailyStat{Day: day}
		u.daily[day] = stat
	}
	stat.Add(result.Verdict)

	return entry, nil
}

func (s *Store) History(_ context.Context, user string, q store.HistoryQuery) ([]store.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []store.HistoryEntry{}
	u, ok := s.users[user]
	if !ok {
		return out, nil
	}

	limit := q.EffectiveLimit()
	for i := len(u.history) - 1; i >= 0 && len(out) < limit; i-- {
		e := u.history[i]
		if q.Verdict != "" && e.Verdict != q.Verdict {
			continue
		}
		out = append(out, store.HistoryEntry{ID: e.ID, ScanResult: cloneResult(e.ScanResult)})
	}
	return out, nil
}

func (s *Store) DeleteHistory(_ context.Context, user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user]
	if !ok {
		return store.ErrNotFound
	}
	for i, e := range u.history {
		if e.ID == id {
			u.history = append(u.history[:i], u.history[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DailyStats(_ context.Context, user string, since time.Time) ([]store.DailyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []store.DailyStat{}
	u, ok := s.users[user]
	if !ok {
		return out, nil
	}

	from := store.Day(since)
	for day, stat := range u.daily {
		if day >= from {
			out = append(out, *stat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (s *Store) CountToday(_ context.Context, user string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[user]
	if !ok {
		return 0, nil
	}
	if stat, ok := u.daily[store.Day(s.now())]; ok {
		return stat.Total, nil
	}
	return 0, nil
}

func (s *Store) Close() error { return nil }

func cloneResult(r types.ScanResult) types.ScanResult {
	r.Reasons = append([]string(nil), r.Reasons...)
	return r
}
