package web

import (
	"net/http"
	"time"

	"github.com/buemura/safeurl/internal/metrics"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// requestLogger logs one line per request and counts responses by status.
func requestLogger(log logrus.FieldLogger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				m.ObserveHTTP(r.Method, status)

				entry := log.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     status,
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start),
					"remote":     r.RemoteAddr,
					"request_id": middleware.GetReqID(r.Context()),
				})
				switch {
				case status >= 500:
					entry.Warn("request")
				default:
					entry.Debug("request")
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
