package pipeline

import (
	"context"
	"log/slog"
	"time"
)

const defaultPollInterval = 10 * time.Second

// Poller drives the pipeline on a fixed period. A failed cycle is logged
// and the loop carries on; only context cancellation stops it.
type Poller struct {
	pipeline *Pipeline
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller builds a poller. A non-positive interval falls back to the
// default.
func NewPoller(p *Pipeline, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{pipeline: p, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled. The first cycle runs immediately so a
// fresh process has data without waiting a full period.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poll loop started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poll loop stopped")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := p.pipeline.Process(ctx); err != nil {
		p.logger.Warn("poll cycle failed", "error", err)
	}
}
