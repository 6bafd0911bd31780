package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// AccessLog logs one line per request through logrus.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		fields := log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"ip":         ClientIP(r),
			"request_id": chimiddleware.GetReqID(r.Context()),
		}

		entry := log.WithFields(fields)
		switch {
		case ww.Status() >= 500:
			entry.Error("Request failed")
		case ww.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request served")
		}
	})
}
