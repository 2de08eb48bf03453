package middleware

import (
	"net/http"
	"time"

	"github.com/baechuer/taskflow/internal/logger"
)

// AccessLog writes one line per request. It must run inside RequestID so the
// line carries the request id.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := newStatusWriter(w)
		start := time.Now()

		next.ServeHTTP(sw, r)

		logger.WithCtx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("latency", time.Since(start)).
			Str("remote_ip", r.RemoteAddr).
			Msg("http_request")
	})
}
