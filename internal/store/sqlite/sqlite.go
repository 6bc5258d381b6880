// Package sqlite is the default on-disk store, built on the pure-Go
// modernc.org/sqlite driver with goose-managed migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is a SQLite-backed store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path, enables WAL, foreign keys
// and a busy timeout, and applies pending migrations. Use ":memory:" for a
// throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" to a single database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListAllowlist(ctx context.Context, user string) ([]types.AllowlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, added_at FROM allowlist WHERE user_id = ? ORDER BY domain`, user)
	if err != nil {
		return nil, fmt.Errorf("list allowlist: %w", err)
	}
	defer rows.Close()

	entries := []types.AllowlistEntry{}
	for rows.Next() {
		var (
			e       types.AllowlistEntry
			addedAt int64
		)
		if err := rows.Scan(&e.Domain, &addedAt); err != nil {
			return nil, fmt.Errorf("scan allowlist row: %w", err)
		}
		e.AddedAt = time.UnixMilli(addedAt).UTC()
		e.UserAdded = true
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) AddAllowlist(ctx context.Context, user string, entry types.AllowlistEntry) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO allowlist (user_id, domain, added_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, domain) DO NOTHING`,
		user, entry.Domain, entry.AddedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert allowlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return allowlist.ErrExists
	}
	return nil
}

func (s *Store) RemoveAllowlist(ctx context.Context, user, domain string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM allowlist WHERE user_id = ? AND domain = ?`, user, domain)
	if err != nil {
		return fmt.Errorf("delete allowlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return allowlist.ErrNotFound
	}
	return nil
}

func (s *Store) Record(ctx context.Context, user string, result types.ScanResult) (store.HistoryEntry, error) {
	reasons, err := json.Marshal(result.Reasons)
	if err != nil {
		return store.HistoryEntry{}, fmt.Errorf("encode reasons: %w", err)
	}
	factors, err := json.Marshal(result.Factors)
	if err != nil {
		return store.HistoryEntry{}, fmt.Errorf("encode factors: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.HistoryEntry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scan_history (id, user_id, url, safe, score, verdict, reasons, factors, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, user, result.URL, result.Safe, result.Score, string(result.Verdict),
		string(reasons), string(factors), result.Timestamp.UnixMilli()); err != nil {
		return store.HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}

	clean, suspicious, malicious := verdictCounts(result.Verdict)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO daily_stats (user_id, day, total, clean, suspicious, malicious)
		 VALUES (?, ?, 1, ?, ?, ?)
		 ON CONFLICT (user_id, day) DO UPDATE SET
		     total = total + 1,
		     clean = clean + excluded.clean,
		     suspicious = suspicious + excluded.suspicious,
		     malicious = malicious + excluded.malicious`,
		user, store.Day(result.Timestamp), clean, suspicious, malicious); err != nil {
		return store.HistoryEntry{}, fmt.Errorf("update daily stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return store.HistoryEntry{}, fmt.Errorf("commit: %w", err)
	}
	return store.HistoryEntry{ID: id, ScanResult: result}, nil
}

func (s *Store) History(ctx context.Context, user string, q store.HistoryQuery) ([]store.HistoryEntry, error) {
	var (
		where strings.Builder
		args  = []any{user}
	)
	where.WriteString("user_id = ?")
	if q.Verdict != "" {
		where.WriteString(" AND verdict = ?")
		args = append(args, string(q.Verdict))
	}
	args = append(args, q.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, safe, score, verdict, reasons, factors, scanned_at
		 FROM scan_history WHERE `+where.String()+`
		 ORDER BY scanned_at DESC, rowid DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []store.HistoryEntry{}
	for rows.Next() {
		var (
			e                store.HistoryEntry
			verdict          string
			reasons, factors string
			scannedAt        int64
		)
		if err := rows.Scan(&e.ID, &e.URL, &e.Safe, &e.Score, &verdict, &reasons, &factors, &scannedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Verdict = types.Verdict(verdict)
		e.Timestamp = time.UnixMilli(scannedAt).UTC()
		if err := json.Unmarshal([]byte(reasons), &e.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons of %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(factors), &e.Factors); err != nil {
			return nil, fmt.Errorf("decode factors of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteHistory(ctx context.Context, user, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_history WHERE id = ? AND user_id = ?`, id, user)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DailyStats(ctx context.Context, user string, since time.Time) ([]store.DailyStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, total, clean, suspicious, malicious FROM daily_stats
		 WHERE user_id = ? AND day >= ? ORDER BY day`, user, store.Day(since))
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	stats := []store.DailyStat{}
	for rows.Next() {
		var d store.DailyStat
		if err := rows.Scan(&d.Day, &d.Total, &d.Clean, &d.Suspicious, &d.Malicious); err != nil {
			return nil, fmt.Errorf("scan daily stats row: %w", err)
		}
		stats = append(stats, d)
	}
	return stats, rows.Err()
}

func (s *Store) CountToday(ctx context.Context, user string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT total FROM daily_stats WHERE user_id = ? AND day = ?`, user, store.Day(s.now())).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
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
