package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buemura/safeurl/internal/ai"
	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/config"
	"github.com/buemura/safeurl/internal/detector"
	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/internal/scan"
	"github.com/buemura/safeurl/internal/score"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/internal/store/memory"
	"github.com/buemura/safeurl/internal/store/postgres"
	"github.com/buemura/safeurl/internal/store/sqlite"
)

// app wires the scoring engine to the configured collaborators.
type app struct {
	cfg       *config.Config
	store     store.Store
	allowlist *allowlist.Manager
	scanner   *scan.Service
	metrics   *metrics.Metrics
}

func newApp(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*app, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	allow := allowlist.NewManager(st, appLog.Component("allowlist"))
	client := ai.NewClient(ai.Config{
		Endpoint: cfg.AI.Endpoint,
		Timeout:  cfg.AI.Timeout,
		CacheTTL: cfg.AI.CacheTTL,
	}, ai.WithLogger(appLog.Component("ai")), ai.WithMetrics(m))

	svc := scan.NewService(
		allow,
		detector.NewRunner(detector.Default(), appLog.Component("detector")),
		client,
		score.New(score.DefaultConfig()),
		scan.WithLogger(appLog.Component("scan")),
		scan.WithMetrics(m),
	)

	return &app{cfg: cfg, store: st, allowlist: allow, scanner: svc, metrics: m}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openStore returns the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		st, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return st, nil
	case "sqlite", "":
		path := cfg.DSN
		if path == "" {
			path = config.DefaultDatabasePath()
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("creating data dir: %w", err)
			}
		}
		st, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx, appConfig, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
