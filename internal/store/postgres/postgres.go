// Package postgres stores history, counters and allowlists in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is a PostgreSQL-backed store.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Connect opens a pool for dsn, checks connectivity and applies pending
// migrations.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, now: time.Now}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) ListAllowlist(ctx context.Context, user string) ([]types.AllowlistEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domain, added_at FROM allowlist WHERE user_id = $1 ORDER BY domain`, user)
	if err != nil {
		return nil, fmt.Errorf("list allowlist: %w", err)
	}
	defer rows.Close()

	entries := []types.AllowlistEntry{}
	for rows.Next() {
		var e types.AllowlistEntry
		if err := rows.Scan(&e.Domain, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scan allowlist row: %w", err)
		}
		e.AddedAt = e.AddedAt.UTC()
		e.UserAdded = true
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) AddAllowlist(ctx context.Context, user string, entry types.AllowlistEntry) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO allowlist (user_id, domain, added_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, domain) DO NOTHING
	`, user, entry.Domain, entry.AddedAt)
	if err != nil {
		return fmt.Errorf("insert allowlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return allowlist.ErrExists
	}
	return nil
}

func (s *Store) RemoveAllowlist(ctx context.Context, user, domain string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM allowlist WHERE user_id = $1 AND domain = $2`, user, domain)
	if err != nil {
		return fmt.Errorf("delete allowlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return allowlist.ErrNotFound
	}
	return nil
}

func (s *Store) Record(ctx context.Context, user string, result types.ScanResult) (store.HistoryEntry, error) {
	id := uuid.New()
	clean, suspicious, malicious := verdictCounts(result.Verdict)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO scan_history (id, user_id, url, safe, score, verdict, reasons, factors, scanned_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, id, user, result.URL, result.Safe, result.Score, string(result.Verdict),
			result.Reasons, result.Factors, result.Timestamp); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO daily_stats (user_id, day, total, clean, suspicious, malicious)
			VALUES ($1, $2, 1, $3, $4, $5)
			ON CONFLICT (user_id, day) DO UPDATE SET
			    total = daily_stats.total + 1,
			    clean = daily_stats.clean + EXCLUDED.clean,
			    suspicious = daily_stats.suspicious + EXCLUDED.suspicious,
			    malicious = daily_stats.malicious + EXCLUDED.malicious
		`, user, store.Day(result.Timestamp), clean, suspicious, malicious); err != nil {
			return fmt.Errorf("update daily stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.HistoryEntry{}, err
	}
	return store.HistoryEntry{ID: id.String(), ScanResult: result}, nil
}

func (s *Store) History(ctx context.Context, user string, q store.HistoryQuery) ([]store.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, url, safe, score, verdict, reasons, factors, scanned_at
		FROM scan_history
		WHERE user_id = $1 AND ($2 = '' OR verdict = $2)
		ORDER BY scanned_at DESC, seq DESC
		LIMIT $3
	`, user, string(q.Verdict), q.EffectiveLimit())
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []store.HistoryEntry{}
	for rows.Next() {
		var (
			e       store.HistoryEntry
			verdict string
			score   int16
		)
		if err := rows.Scan(&e.ID, &e.URL, &e.Safe, &score, &verdict, &e.Reasons, &e.Factors, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Score = int(score)
		e.Verdict = types.Verdict(verdict)
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteHistory(ctx context.Context, user, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return store.ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM scan_history WHERE id = $1 AND user_id = $2`, parsed, user)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DailyStats(ctx context.Context, user string, since time.Time) ([]store.DailyStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD'), total, clean, suspicious, malicious
		FROM daily_stats
		WHERE user_id = $1 AND day >= $2::date
		ORDER BY day
	`, user, store.Day(since))
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}

	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.DailyStat, error) {
		var d store.DailyStat
		err := row.Scan(&d.Day, &d.Total, &d.Clean, &d.Suspicious, &d.Malicious)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan daily stats: %w", err)
	}
	if stats == nil {
		stats = []store.DailyStat{}
	}
	return stats, nil
}

func (s *Store) CountToday(ctx context.Context, user string) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT total FROM daily_stats WHERE user_id = $1 AND day = $2::date`,
		user, store.Day(s.now())).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count today: %w", err)
	}
	return total, nil
}

func verdictCounts(v types.Verdict) (clean, suspicious, malicious int) {
	switch v {
	case types.VerdictClean:
		clean = 1
	case types.VerdictSuspicious:
		suspicious = 1
	case types.VerdictMalicious:
		malicious = 1
	}
	return
}
