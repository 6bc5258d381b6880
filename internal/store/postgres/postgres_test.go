package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// Set SAFEURL_TEST_POSTGRES_DSN to a disposable database to run these tests.
// Every subtest truncates the tables.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SAFEURL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SAFEURL_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Connect(ctx, dsn)
		require.NoError(t, err)

		_, err = s.pool.Exec(ctx, `TRUNCATE allowlist, scan_history, daily_stats`)
		require.NoError(t, err)
		return s
	})
}

func TestConnect_BadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
