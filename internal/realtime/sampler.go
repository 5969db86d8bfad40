package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/order"
)

// StatsSource supplies the store-wide aggregates carried by a
// realtimeMetrics event. Both calls re-scan storage; cost grows with total
// order count per tick.
type StatsSource interface {
	OrderStats(ctx context.Context) (order.Stats, error)
	UserCount(ctx context.Context) (int, error)
}

// Sampler periodically recomputes aggregate metrics and broadcasts them to
// every connected admin session. One process-wide sampler serves all
// sessions; sampling cost does not grow with subscriber count, and a
// detached session receives nothing because delivery goes through the hub
// registry.
type Sampler struct {
	hub      *Hub
	source   StatsSource
	interval time.Duration
	lg       *zap.Logger
}

// NewSampler creates a Sampler emitting on the given interval.
func NewSampler(hub *Hub, source StatsSource, interval time.Duration, lg *zap.Logger) *Sampler {
	return &Sampler{
		hub:      hub,
		source:   source,
		interval: interval,
		lg:       lg.Named("sampler"),
	}
}

// Run emits until the context is canceled. Ticks with no connected session
// are skipped; a failed recompute is logged and the tick dropped.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.hub.ActiveAdmins() == 0 {
				continue
			}
			s.emit(ctx)
		}
	}
}

func (s *Sampler) emit(ctx context.Context) {
	stats, err := s.source.OrderStats(ctx)
	if err != nil {
		s.lg.Warn("order stats recompute failed", zap.Error(err))
		return
	}
	users, err := s.source.UserCount(ctx)
	if err != nil {
		s.lg.Warn("user count recompute failed", zap.Error(err))
		return
	}

	s.hub.Broadcast(EventRealtimeMetrics, Metrics{
		Orders:       stats.TotalOrders,
		Revenue:      stats.Revenue.InexactFloat64(),
		Users:        users,
		ActiveAdmins: s.hub.ActiveAdmins(),
	})
}
