// Package health implements liveness and readiness probes for the API
// server. Probes run on a background ticker and flip state on consecutive
// outcomes, so a single slow database ping does not drop the service out of
// the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Consecutive outcomes required to flip probe state.
const (
	failAfter = 3
	okAfter   = 1
)

// probe is one registered check plus its flap-damped state. The counters are
// touched only by the single ticker goroutine; up and lastErr are shared with
// HTTP handlers and use atomics.
type probe struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	up      atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= failAfter {
			p.up.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= okAfter {
		p.up.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.up.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check is unhealthy", true
}

// Service tracks liveness and readiness probes and serves the probe
// endpoints. Readiness additionally requires an explicit SetReady(true),
// which the application drops again at the start of graceful shutdown.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Service in the not-ready state.
func New() *Service {
	return &Service{}
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, fn: fn}
	p.up.Store(true)
	return p
}

// AddLiveness registers a liveness probe: is the process itself functional.
func (s *Service) AddLiveness(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, newProbe(name, timeout, fn))
}

// AddReadiness registers a readiness probe: can the service take traffic.
func (s *Service) AddReadiness(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, newProbe(name, timeout, fn))
}

// Start runs every registered probe on its own ticker until Stop or context
// cancellation. Register all probes before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, 0, len(s.liveness)+len(s.readiness))
	probes = append(probes, s.liveness...)
	probes = append(probes, s.readiness...)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe is up.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.readiness {
		if !p.up.Load() {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleLive serves GET /livez.
func (s *Service) HandleLive(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.liveness))
	copy(probes, s.liveness)
	s.mu.RUnlock()

	writeStatus(w, failures(probes))
}

// HandleReady serves GET /readyz.
func (s *Service) HandleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.readiness))
	copy(probes, s.readiness)
	s.mu.RUnlock()

	fails := failures(probes)
	if !s.ready.Load() {
		fails["_readiness"] = "service is not ready"
	}
	writeStatus(w, fails)
}

func failures(probes []*probe) map[string]string {
	fails := make(map[string]string)
	for _, p := range probes {
		if msg, down := p.failure(); down {
			fails[p.name] = msg
		}
	}
	return fails
}

func writeStatus(w http.ResponseWriter, fails map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(fails) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: fails}
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
