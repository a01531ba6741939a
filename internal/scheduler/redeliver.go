package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// Reclaimer re-delivers events left unacknowledged on the bus and drops
// the entries every rule is done with.
type Reclaimer interface {
	Reclaim(ctx context.Context) (int, error)
	Trim(ctx context.Context) (int64, error)
}

// Redeliverer periodically reclaims stuck bus deliveries and trims the
// stream behind them.
type Redeliverer struct {
	bus      Reclaimer
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRedeliverer creates a redelivery loop running every interval.
func NewRedeliverer(bus Reclaimer, log logger.Logger, interval time.Duration) *Redeliverer {
	return &Redeliverer{
		bus:      bus,
		logger:   log.With(logger.Component("redeliverer")),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a first pass immediately, then one per interval.
func (r *Redeliverer) Start(ctx context.Context) error {
	if err := r.Redeliver(ctx); err != nil {
		r.logger.Warn("initial redelivery failed", logger.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Redeliver(ctx); err != nil {
					r.logger.Error("redelivery failed", logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the loop.
func (r *Redeliverer) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Redeliver runs one reclaim pass, then trims. Trimming runs after the
// reclaim so redelivered entries are acknowledged first.
func (r *Redeliverer) Redeliver(ctx context.Context) error {
	n, err := r.bus.Reclaim(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		r.logger.Info("redelivered pending events", logger.Int("count", n))
	} else {
		r.logger.Debug("no pending events to redeliver")
	}

	removed, err := r.bus.Trim(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		r.logger.Debug("trimmed delivered events", logger.Int64("count", removed))
	}
	return nil
}
