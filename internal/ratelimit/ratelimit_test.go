package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(l *Limiter) *time.Time {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return &now
}

func TestAllow_Burst(t *testing.T) {
	l := PerMinute(10)
	fixedClock(l)

	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("1.2.3.4")
		require.True(t, ok, "request %d", i+1)
	}

	ok, retry := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 6*time.Second, retry)

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "keys are independent")
}

func TestAllow_Refill(t *testing.T) {
	l := PerMinute(10)
	now := fixedClock(l)

	for i := 0; i < 10; i++ {
		l.Allow("k")
	}
	ok, _ := l.Allow("k")
	require.False(t, ok)

	*now = now.Add(7 * time.Second)
	ok, _ = l.Allow("k")
	assert.True(t, ok)
}

func TestAllow_DeniedRequestsDoNotConsume(t *testing.T) {
	l := PerMinute(1)
	now := fixedClock(l)

	ok, _ := l.Allow("k")
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow("k")
		require.False(t, ok)
	}

	*now = now.Add(time.Minute + time.Second)
	ok, _ = l.Allow("k")
	assert.True(t, ok)
}

func TestAllow_Disabled(t *testing.T) {
	l := PerMinute(0)
	for i := 0; i < 1000; i++ {
		ok, _ := l.Allow("k")
		require.True(t, ok)
	}
	assert.Equal(t, 0, l.Len())
}

func TestPrune(t *testing.T) {
	l := PerMinute(5)
	now := fixedClock(l)

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	*now = now.Add(idleTTL + time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestMiddleware(t *testing.T) {
	l := PerMinute(10)
	fixedClock(l)
	h := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, do("198.51.100.1:1000").Code)
	}

	rec := do("198.51.100.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "6", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	assert.Equal(t, http.StatusOK, do("198.51.100.2:1000").Code)
}
