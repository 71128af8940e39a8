package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

// RequestLogger logs one line per request through the application logger.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		fields := logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			fields["request_id"] = id
		}
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			logging.Error(fields, "request failed")
		case ww.Status() >= http.StatusBadRequest:
			logging.Warn(fields, "request rejected")
		default:
			logging.Info(fields, "request served")
		}
	})
}
