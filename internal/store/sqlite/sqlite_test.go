package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/internal/store/storetest"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "safeurl.db"))
		require.NoError(t, err)
		return s
	})
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountToday(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "safeurl.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Record(ctx, "alice", types.ScanResult{
		URL:       "https://example.com/",
		Safe:      true,
		Score:     100,
		Verdict:   types.VerdictClean,
		Timestamp: time.Now().UTC(),
		Reasons:   []string{"This URL appears to be safe"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err, "migrations are idempotent")
	defer s.Close()

	history, err := s.History(ctx, "alice", store.HistoryQuery{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
