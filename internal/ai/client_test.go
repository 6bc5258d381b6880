package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buemura/safeurl/internal/metrics"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertNone(t *testing.T, a types.AIAssessment) {
	t.Helper()
	assert.Equal(t, 0, a.RiskScore)
	assert.Empty(t, a.Reason)
	assert.NotNil(t, a.Threats)
	assert.Empty(t, a.Threats)
}

func assertAIOutcome(t *testing.T, m *metrics.Metrics, outcome string, n int) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP safeurl_ai_requests_total AI risk assessments by outcome.
# TYPE safeurl_ai_requests_total counter
safeurl_ai_requests_total{outcome=%q} %d
`, outcome, n)
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "safeurl_ai_requests_total"))
}

func TestClient_Assess(t *testing.T) {
	var got assessRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"riskScore": 82.4, "reason": "Imitates a bank login", "threats": ["phishing"]}`))
	}))
	defer srv.Close()

	m := metrics.New(false)
	c := NewClient(Config{Endpoint: srv.URL}, WithMetrics(m))
	a := c.Assess(context.Background(), "https://g00gle.com/login")

	assert.Equal(t, "https://g00gle.com/login", got.URL)
	assert.Equal(t, 82, a.RiskScore)
	assert.Equal(t, "Imitates a bank login", a.Reason)
	assert.Equal(t, []string{"phishing"}, a.Threats)
	assertAIOutcome(t, m, metrics.AIOutcomeOK, 1)
}

func TestClient_NilThreatsBecomeEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"riskScore": 10, "reason": "fine"}`))
	}))
	defer srv.Close()

	a := NewClient(Config{Endpoint: srv.URL}).Assess(context.Background(), "https://example.com")
	assert.Equal(t, 10, a.RiskScore)
	assert.NotNil(t, a.Threats)
}

func TestClient_Disabled(t *testing.T) {
	c := NewClient(Config{})
	assert.False(t, c.Enabled())
	assertNone(t, c.Assess(context.Background(), "https://example.com"))
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		outcome string
		logged  string
	}{
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "42")
			w.WriteHeader(http.StatusTooManyRequests)
		}, metrics.AIOutcomeRateLimited, "42"},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, metrics.AIOutcomeError, "503"},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"riskScore": `))
		}, metrics.AIOutcomeInvalid, "invalid assessment"},
		{"missing score", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"reason": "no score"}`))
		}, metrics.AIOutcomeInvalid, "missing riskScore"},
		{"out of range", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"riskScore": 140}`))
		}, metrics.AIOutcomeInvalid, "out of range"},
		{"negative", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"riskScore": -1}`))
		}, metrics.AIOutcomeInvalid, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			var logs bytes.Buffer
			log := logrus.New()
			log.SetOutput(&logs)
			m := metrics.New(false)

			c := NewClient(Config{Endpoint: srv.URL, CacheTTL: time.Minute}, WithLogger(log), WithMetrics(m))
			assertNone(t, c.Assess(context.Background(), "https://example.com"))

			assert.Contains(t, logs.String(), "ai assessment unavailable")
			assert.Contains(t, logs.String(), tt.logged)
			assertAIOutcome(t, m, tt.outcome, 1)
			assert.Equal(t, 0, c.cache.len(), "failures are not cached")
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	assertNone(t, NewClient(Config{Endpoint: endpoint}).Assess(context.Background(), "https://example.com"))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	assertNone(t, c.Assess(context.Background(), "https://example.com"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_Cache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"riskScore": 55, "reason": "suspicious", "threats": []}`))
	}))
	defer srv.Close()

	m := metrics.New(false)
	c := NewClient(Config{Endpoint: srv.URL, CacheTTL: time.Minute}, WithMetrics(m))

	first := c.Assess(context.Background(), "https://example.com/a")
	second := c.Assess(context.Background(), "https://example.com/a")
	c.Assess(context.Background(), "https://example.com/b")

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, c.cache.len())
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newCache(time.Minute, 2)
	c.now = func() time.Time { return now }

	c.put("a", types.AIAssessment{RiskScore: 1})
	_, ok := c.get("a")
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

func TestCache_Bounded(t *testing.T) {
	c := newCache(time.Minute, 2)
	c.put("a", types.AIAssessment{})
	c.put("b", types.AIAssessment{})
	c.put("c", types.AIAssessment{})

	assert.Equal(t, 2, c.len())
	_, ok := c.get("c")
	assert.True(t, ok)
}

func TestCache_Nil(t *testing.T) {
	var c *cache
	c.put("a", types.AIAssessment{})
	_, ok := c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}
