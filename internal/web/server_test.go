package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buemura/safeurl/internal/allowlist"
	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/detector"
	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/internal/scan"
	"github.com/buemura/safeurl/internal/score"
	"github.com/buemura/safeurl/internal/store/memory"
	"github.com/buemura/safeurl/internal/web/api"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, _ string) (types.AIAssessment, error) {
	return types.AIAssessment{RiskScore: 40, Reason: "stub", Threats: []string{}}, nil
}

func newTestDeps(t *testing.T, m *metrics.Metrics, analyzer api.Analyzer) Deps {
	t.Helper()
	st := memory.New()
	allow := allowlist.NewManager(st, nil)
	svc := scan.NewService(allow, detector.NewRunner(detector.Default(), nil), nil,
		score.New(score.DefaultConfig()), scan.WithMetrics(m))
	v, err := auth.NewVerifier(testSecret)
	require.NoError(t, err)
	return Deps{
		Scanner:   svc,
		Allowlist: allow,
		Store:     st,
		Analyzer:  analyzer,
		Verifier:  v,
		Metrics:   m,
	}
}

func newTestServer(t *testing.T) *Server {
	return NewServer(DefaultConfig(), newTestDeps(t, metrics.New(false), stubAnalyzer{}))
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body map[string]string
	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsRouteOnlyWithMetrics(t *testing.T) {
	srv := NewServer(DefaultConfig(), newTestDeps(t, nil, nil))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	srv = newTestServer(t)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerHasManager(t *testing.T) {
	srv := newTestServer(t)
	assert.NotNil(t, srv.manager)
}

func TestShutdownBeforeStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := NewServer(cfg, newTestDeps(t, metrics.New(false), stubAnalyzer{}))
	require.NoError(t, srv.Shutdown(context.Background()))

	// A server shut down before it started must not start listening.
	assert.NoError(t, srv.Start())
}

func TestShutdownWhileStarting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := NewServer(cfg, newTestDeps(t, metrics.New(false), stubAnalyzer{}))

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
