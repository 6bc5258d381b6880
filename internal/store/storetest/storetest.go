// Package storetest holds the behavior every store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a backend. newStore must return an empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Allowlist", testAllowlist},
		{"AllowlistIsolation", testAllowlistIsolation},
		{"RecordAndHistory", testRecordAndHistory},
		{"HistoryFilterAndLimit", testHistoryFilterAndLimit},
		{"DeleteHistory", testDeleteHistory},
		{"DailyStats", testDailyStats},
		{"CountToday", testCountToday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

// ms drops sub-millisecond precision, which not every backend keeps.
func ms(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func result(url string, v types.Verdict, at time.Time) types.ScanResult {
	score := map[types.Verdict]int{
		types.VerdictClean:      97,
		types.VerdictSuspicious: 62,
		types.VerdictMalicious:  21,
	}[v]
	return types.ScanResult{
		URL:       url,
		Safe:      v == types.VerdictClean,
		Score:     score,
		Verdict:   v,
		Timestamp: ms(at),
		Reasons:   []string{"first reason", "second reason"},
		Factors:   types.Factors{DomainSimilarity: 75, Behavior: 40},
	}
}

func testAllowlist(t *testing.T, s store.Store) {
	ctx := context.Background()
	added := ms(time.Date(2026, 2, 3, 4, 5, 6, 7_000_000, time.UTC))

	require.NoError(t, s.AddAllowlist(ctx, "alice", types.AllowlistEntry{Domain: "zeta.example", AddedAt: added, UserAdded: true}))
	require.NoError(t, s.AddAllowlist(ctx, "alice", types.AllowlistEntry{Domain: "alpha.example", AddedAt: added, UserAdded: true}))

	err := s.AddAllowlist(ctx, "alice", types.AllowlistEntry{Domain: "alpha.example", AddedAt: added, UserAdded: true})
	assert.ErrorIs(t, err, allowlist.ErrExists)

	entries, err := s.ListAllowlist(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha.example", entries[0].Domain)
	assert.Equal(t, "zeta.example", entries[1].Domain)
	assert.True(t, entries[0].UserAdded)
	assert.True(t, added.Equal(entries[0].AddedAt), "got %v", entries[0].AddedAt)

	require.NoError(t, s.RemoveAllowlist(ctx, "alice", "alpha.example"))
	assert.ErrorIs(t, s.RemoveAllowlist(ctx, "alice", "alpha.example"), allowlist.ErrNotFound)

	entries, err = s.ListAllowlist(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "zeta.example", entries[0].Domain)
}

func testAllowlistIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	entry := types.AllowlistEntry{Domain: "shared.example", AddedAt: ms(time.Now()), UserAdded: true}

	require.NoError(t, s.AddAllowlist(ctx, "alice", entry))
	require.NoError(t, s.AddAllowlist(ctx, "bob", entry), "uniqueness is per user")

	require.NoError(t, s.RemoveAllowlist(ctx, "bob", "shared.example"))

	alice, err := s.ListAllowlist(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice, 1)

	nobody, err := s.ListAllowlist(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, nobody)
	assert.Empty(t, nobody)
	assert.ErrorIs(t, s.RemoveAllowlist(ctx, "carol", "shared.example"), allowlist.ErrNotFound)
}

func testRecordAndHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

	first, err := s.Record(ctx, "alice", result("https://a.example/", types.VerdictClean, base))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := s.Record(ctx, "alice", result("https://b.example/file.exe", types.VerdictSuspicious, base.Add(time.Minute)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := s.History(ctx, "alice", store.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, second.ID, history[0].ID, "newest first")
	assert.Equal(t, first.ID, history[1].ID)

	got := history[0]
	want := result("https://b.example/file.exe", types.VerdictSuspicious, base.Add(time.Minute))
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Safe, got.Safe)
	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, want.Verdict, got.Verdict)
	assert.Equal(t, want.Reasons, got.Reasons)
	assert.Equal(t, want.Factors, got.Factors)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "got %v", got.Timestamp)

	other, err := s.History(ctx, "bob", store.HistoryQuery{})
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func testHistoryFilterAndLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	verdicts := []types.Verdict{
		types.VerdictClean, types.VerdictMalicious, types.VerdictClean,
		types.VerdictSuspicious, types.VerdictMalicious,
	}
	for i, v := range verdicts {
		_, err := s.Record(ctx, "alice", result("https://example.com/", v, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	limited, err := s.History(ctx, "alice", store.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, types.VerdictMalicious, limited[0].Verdict)
	assert.Equal(t, types.VerdictSuspicious, limited[1].Verdict)

	malicious, err := s.History(ctx, "alice", store.HistoryQuery{Verdict: types.VerdictMalicious})
	require.NoError(t, err)
	require.Len(t, malicious, 2)
	for _, e := range malicious {
		assert.Equal(t, types.VerdictMalicious, e.Verdict)
	}
	assert.True(t, malicious[0].Timestamp.After(malicious[1].Timestamp))
}

func testDeleteHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	entry, err := s.Record(ctx, "alice", result("https://example.com/", types.VerdictClean, time.Now()))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteHistory(ctx, "bob", entry.ID), store.ErrNotFound, "foreign entries are invisible")
	assert.ErrorIs(t, s.DeleteHistory(ctx, "alice", "does-not-exist"), store.ErrNotFound)

	require.NoError(t, s.DeleteHistory(ctx, "alice", entry.ID))
	history, err := s.History(ctx, "alice", store.HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.ErrorIs(t, s.DeleteHistory(ctx, "alice", entry.ID), store.ErrNotFound)
}

func testDailyStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	day1 := time.Date(2026, 4, 9, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 4, 10, 0, 30, 0, 0, time.UTC)

	for _, r := range []types.ScanResult{
		result("https://a.example/", types.VerdictClean, day1),
		result("https://b.example/", types.VerdictMalicious, day1),
		result("https://c.example/", types.VerdictSuspicious, day2),
		result("https://d.example/", types.VerdictSuspicious, day2),
		result("https://e.example/", types.VerdictClean, day2),
	} {
		_, err := s.Record(ctx, "alice", r)
		require.NoError(t, err)
	}

	stats, err := s.DailyStats(ctx, "alice", day1.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []store.DailyStat{
		{Day: "2026-04-09", Total: 2, Clean: 1, Malicious: 1},
		{Day: "2026-04-10", Total: 3, Clean: 1, Suspicious: 2},
	}, stats)

	recent, err := s.DailyStats(ctx, "alice", day2)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2026-04-10", recent[0].Day)

	none, err := s.DailyStats(ctx, "bob", day1)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testCountToday(t *testing.T, s store.Store) {
	ctx := context.Background()

	n, err := s.CountToday(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	now := time.Now()
	for _, v := range []types.Verdict{types.VerdictClean, types.VerdictMalicious} {
		_, err := s.Record(ctx, "alice", result("https://example.com/", v, now))
		require.NoError(t, err)
	}
	_, err = s.Record(ctx, "alice", result("https://example.com/", types.VerdictClean, now.Add(-72*time.Hour)))
	require.NoError(t, err)

	n, err = s.CountToday(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
