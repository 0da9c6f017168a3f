package client

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NicolasHaas/gopanel/pkg/model"
)

const DefaultPollInterval = 30 * time.Second

// HealthChecker probes backend reachability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Poller reports backend connectivity once at start and then on a fixed
// interval. Ticks run on one goroutine: a slow probe delays the next tick
// and missed ticks are dropped, so results never arrive out of order.
type Poller struct {
	backend  HealthChecker
	sink     StatusSink
	clock    clockwork.Clock
	interval time.Duration

	status atomic.Int32
	last   atomic.Int32 // last probe outcome, for change logging
}

// NewPoller creates a Poller. A zero interval means DefaultPollInterval.
func NewPoller(backend HealthChecker, sink StatusSink, clock clockwork.Clock, interval time.Duration) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Poller{backend: backend, sink: sink, clock: clock, interval: interval}
	p.status.Store(int32(model.StatusChecking))
	p.last.Store(int32(model.StatusChecking))
	return p
}

// Run checks immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.Check(ctx)
		}
	}
}

// Check runs one probe and publishes the outcome.
func (p *Poller) Check(ctx context.Context) model.ConnectivityStatus {
	p.set(model.StatusChecking)

	status := model.StatusConnected
	if err := p.backend.Health(ctx); err != nil {
		slog.DebugContext(ctx, "health probe failed", "err", err)
		status = model.StatusDisconnected
	}
	if prev := model.ConnectivityStatus(p.last.Swap(int32(status))); prev != status {
		slog.InfoContext(ctx, "backend connectivity changed", "status", status.String())
	}
	p.set(status)
	return status
}

// Status returns the latest published status.
func (p *Poller) Status() model.ConnectivityStatus {
	return model.ConnectivityStatus(p.status.Load())
}

func (p *Poller) set(status model.ConnectivityStatus) {
	p.status.Store(int32(status))
	if p.sink != nil {
		p.sink.SetStatus(status)
	}
}
