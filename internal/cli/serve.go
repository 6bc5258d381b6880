package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/buemura/safeurl/internal/ai"
	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/config"
	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/internal/web"
	"github.com/buemura/safeurl/internal/web/api"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var addrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SafeURL API server",
	Long:  "Serves the scan, batch, allowlist, history and analyze endpoints over HTTP.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "listen address (host:port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(true)
	a, err := newApp(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer a.Close()

	var verifier *auth.Verifier
	if cfg.Server.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.Server.JWTSecret)
		if err != nil {
			return err
		}
	} else {
		appLog.Warn("server.jwt_secret is not set, every request is anonymous")
	}

	var analyzer api.Analyzer
	if an := newAnalyzer(ctx, cfg.Analyzer, appLog.Component("analyzer")); an != nil {
		analyzer = an
	}

	srvCfg := web.DefaultConfig()
	srvCfg.Addr = cfg.Server.Addr
	srvCfg.BatchConcurrency = cfg.Concurrency
	srvCfg.ScanRatePerMinute = cfg.Server.ScanRatePerMinute
	srvCfg.AnalyzeRatePerMinute = cfg.Server.AnalyzeRatePerMinute

	s := web.NewServer(srvCfg, web.Deps{
		Scanner:   a.scanner,
		Allowlist: a.allowlist,
		Store:     a.store,
		Analyzer:  analyzer,
		Verifier:  verifier,
		Metrics:   m,
		Log:       appLog.Component("web"),
	})

	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()
	fmt.Fprintf(cmd.OutOrStdout(), "SafeURL API listening on %s\n", srvCfg.Addr)
	appLog.WithField("addr", srvCfg.Addr).WithField("store", cfg.Store.Driver).Info("server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	appLog.Info("server stopped")
	return <-errc
}

const analyzerProbeTimeout = 3 * time.Second

// newAnalyzer returns nil when no analyzer endpoint is configured. An
// unreachable endpoint is only logged: the model server may start later.
func newAnalyzer(ctx context.Context, cfg config.AnalyzerConfig, log logrus.FieldLogger) *ai.Analyzer {
	if cfg.Endpoint == "" {
		return nil
	}
	a := ai.NewAnalyzer(ai.AnalyzerConfig{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
	})

	probeCtx, cancel := context.WithTimeout(ctx, analyzerProbeTimeout)
	defer cancel()
	if !a.IsAvailable(probeCtx) {
		log.WithField("endpoint", cfg.Endpoint).Warn("analyzer endpoint is not reachable, analyze requests will fail until it is")
	}
	return a
}
