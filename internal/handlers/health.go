package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/respond"
)

// Health reports whether the database answers a ping.
func Health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			log.WithError(err).Warn("Health check failed")
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"estado": "degradado"})
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"estado": "ok"})
	}
}
