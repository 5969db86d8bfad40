package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/order"
)

type fakeStats struct {
	calls   atomic.Int64
	stats   order.Stats
	users   int
	statErr error
}

func (f *fakeStats) OrderStats(_ context.Context) (order.Stats, error) {
	f.calls.Add(1)
	return f.stats, f.statErr
}

func (f *fakeStats) UserCount(_ context.Context) (int, error) {
	return f.users, nil
}

func waitForEvent(t *testing.T, s *Session, event string) frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-s.send:
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			if f.Event == event {
				return f
			}
		case <-deadline:
			t.Fatalf("no %s event received", event)
		}
	}
}

func TestSampler_EmitsMetricsToSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop())
	source := &fakeStats{
		stats: order.Stats{TotalOrders: 7, Revenue: decimal.RequireFromString("1234.50")},
		users: 42,
	}
	sampler := NewSampler(h, source, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sampler.Run(ctx) }()

	s := testSession(t, h, "admin-a")
	f := waitForEvent(t, s, EventRealtimeMetrics)

	var m Metrics
	require.NoError(t, json.Unmarshal(f.Data, &m))
	assert.Equal(t, 7, m.Orders)
	assert.InDelta(t, 1234.50, m.Revenue, 0.001)
	assert.Equal(t, 42, m.Users)
	assert.Equal(t, 1, m.ActiveAdmins)
}

func TestSampler_SkipsTicksWithoutSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop())
	source := &fakeStats{}
	sampler := NewSampler(h, source, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = sampler.Run(ctx)

	assert.Zero(t, source.calls.Load(), "no recompute without connected admins")
}

func TestSampler_NothingDeliveredAfterDisconnect(t *testing.T) {
	h := NewHub(zap.NewNop())
	source := &fakeStats{users: 1}
	sampler := NewSampler(h, source, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sampler.Run(ctx) }()

	s := testSession(t, h, "admin-a")
	waitForEvent(t, s, EventRealtimeMetrics)

	s.close()
	drain(s)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, drain(s), "detached session must not receive further samples")
}

func TestSampler_StopsOnContextCancel(t *testing.T) {
	h := NewHub(zap.NewNop())
	sampler := NewSampler(h, &fakeStats{}, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sampler.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
