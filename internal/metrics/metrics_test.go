package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScan(t *testing.T) {
	m := New(false)

	m.ObserveScan(types.VerdictSuspicious, 37.5, 20*time.Millisecond)
	m.ObserveScan(types.VerdictSuspicious, 12.5, 10*time.Millisecond)
	m.ObserveTrusted(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.scans.WithLabelValues("suspicious")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("clean")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.allowlistHits))
	assert.Equal(t, uint64(3), sampleCount(t, m, "safeurl_scan_duration_seconds"))
	assert.Equal(t, uint64(2), sampleCount(t, m, "safeurl_danger_score"))
}

func sampleCount(t *testing.T, m *Metrics, name string) uint64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestObserveAIAndHTTP(t *testing.T) {
	m := New(false)

	m.ObserveAI(AIOutcomeOK)
	m.ObserveAI(AIOutcomeRateLimited)
	m.ObserveAI(AIOutcomeRateLimited)
	m.ObserveHTTP(http.MethodPost, http.StatusTooManyRequests)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequests.WithLabelValues(AIOutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.aiRequests.WithLabelValues(AIOutcomeRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "429")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScan(types.VerdictClean, 0, 0)
		m.ObserveTrusted(0)
		m.ObserveAI(AIOutcomeError)
		m.ObserveHTTP("GET", 200)
	})
}

func TestHandler(t *testing.T) {
	m := New(true)
	m.ObserveScan(types.VerdictMalicious, 80, time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `safeurl_scans_total{verdict="malicious"} 1`)
	assert.Contains(t, string(body), "safeurl_danger_score_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}
