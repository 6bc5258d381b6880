// Package scan sequences one URL scan: validation, the allowlist gate, the
// detectors and the AI adapter, then aggregation. It records nothing;
// callers persist results.
package scan

import (
	"context"
	"io"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/detector"
	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/internal/score"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Assessor returns a best-effort AI assessment and never fails.
type Assessor interface {
	Assess(ctx context.Context, url string) types.AIAssessment
}

// GateSource returns the allowlist gate for a user. A non-nil gate may be
// returned together with an error; it is used anyway.
type GateSource interface {
	Gate(ctx context.Context, user string) (*allowlist.Gate, error)
}

// Service runs scans. It is safe for concurrent use.
type Service struct {
	gates      GateSource
	runner     *detector.Runner
	assessor   Assessor
	aggregator *score.Aggregator
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics records scan metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the scan timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a scan service. assessor may be nil to never consult AI.
func NewService(gates GateSource, runner *detector.Runner, assessor Assessor, aggregator *score.Aggregator, opts ...Option) *Service {
	s := &Service{
		gates:      gates,
		runner:     runner,
		assessor:   assessor,
		aggregator: aggregator,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return s
}

type scanOptions struct {
	skipAI bool
}

// ScanOption adjusts a single scan.
type ScanOption func(*scanOptions)

// WithoutAI skips the AI adapter for this scan.
func WithoutAI() ScanOption {
	return func(o *scanOptions) { o.skipAI = true }
}

// Scan scores raw for user. It fails only when raw is not a valid http(s)
// URL (types.ErrInvalidURL) or ctx ends before the detectors finish.
func (s *Service) Scan(ctx context.Context, user, raw string, opts ...ScanOption) (types.ScanResult, error) {
	var o scanOptions
	for _, opt := range opts {
		opt(&o)
	}

	u, err := types.ParseURL(raw)
	if err != nil {
		return types.ScanResult{}, err
	}

	start := time.Now()
	log := s.log.WithFields(logrus.Fields{"host": u.Hostname(), "user": user})

	gate, err := s.gates.Gate(ctx, user)
	if err != nil {
		log.WithError(err).Warn("user allowlist unavailable, using built-in entries")
	}
	if gate == nil {
		gate = allowlist.BuiltinGate()
	}

	if entry, ok := gate.Match(raw); ok {
		res := s.aggregator.Trusted(raw, s.now())
		took := time.Since(start)
		s.metrics.ObserveTrusted(took)
		log.WithFields(logrus.Fields{"allowlisted": entry.Domain, "duration": took}).Info("scan complete")
		return res, nil
	}

	var (
		factors types.Factors
		ai      = types.AIAssessment{Threats: []string{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		factors = s.runner.Run(gctx, raw)
		return nil
	})
	if s.assessor != nil && !o.skipAI {
		g.Go(func() error {
			ai = s.assessor.Assess(gctx, raw)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return types.ScanResult{}, err
	}

	breakdown := s.aggregator.Evaluate(factors, ai)
	res := s.aggregator.Aggregate(raw, factors, ai, s.now())
	took := time.Since(start)

	s.metrics.ObserveScan(res.Verdict, breakdown.Danger, took)
	log.WithFields(logrus.Fields{
		"verdict":  res.Verdict,
		"danger":   breakdown.Danger,
		"ai_risk":  ai.RiskScore,
		"duration": took,
	}).Info("scan complete")

	return res, nil
}

// Outcome is the result of one URL in a batch.
type Outcome struct {
	URL    string
	Result types.ScanResult
	Err    error
}

// ScanAll scans urls with at most concurrency scans in flight and returns
// outcomes in input order. Invalid URLs are reported per outcome.
func (s *Service) ScanAll(ctx context.Context, user string, urls []string, concurrency int, opts ...ScanOption) []Outcome {
	outcomes := make([]Outcome, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, raw := range urls {
		i, raw := i, raw // per-iteration copies (Go <1.22 loop semantics)
		g.Go(func() error {
			res, err := s.Scan(gctx, user, raw, opts...)
			outcomes[i] = Outcome{URL: raw, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
