// Package alerts polls the server-side alert counts. No alert condition
// is evaluated locally.
package alerts

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/models"
)

// DefaultInterval is how often the counts are refreshed.
const DefaultInterval = 60 * time.Second

// Source returns the current alert counts.
type Source interface {
	Alerts(ctx context.Context) (models.AlertSummary, error)
}

// Poller fetches the summary on a fixed interval.
type Poller struct {
	source   Source
	interval time.Duration
	onUpdate func(models.AlertSummary)
}

// NewPoller creates a poller delivering every successful fetch to onUpdate.
func NewPoller(source Source, interval time.Duration, onUpdate func(models.AlertSummary)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{source: source, interval: interval, onUpdate: onUpdate}
}

// Run fetches immediately and then on every tick until ctx is done.
// Failed fetches keep the last delivered counts.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	summary, err := p.source.Alerts(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Debug("Alert poll failed")
		}
		return
	}
	p.onUpdate(summary)
}
