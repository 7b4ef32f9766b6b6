// Package connectivity tracks whether the gateway is reachable and signals
// each offline to online transition.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/companion/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	pinger       Pinger
	interval     time.Duration
	probeTimeout time.Duration
	logger       logging.Logger

	online      atomic.Bool
	reconnected chan struct{}
}

type Option func(*Monitor)

func WithLogger(l logging.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.probeTimeout = d }
}

// WithInitialState sets the state assumed before the first probe. The
// default is offline.
func WithInitialState(online bool) Option {
	return func(m *Monitor) { m.online.Store(online) }
}

func New(pinger Pinger, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		pinger:       pinger,
		interval:     interval,
		probeTimeout: 3 * time.Second,
		logger:       logging.Nop{},
		reconnected:  make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(m)
	}
	m.logger = m.logger.With("module", "connectivity")
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

func (m *Monitor) Mode() Mode {
	if m.Online() {
		return ModeOnline
	}
	return ModeOffline
}

// Reconnected receives one value per offline to online edge. Edges that
// happen while a previous one is still unconsumed coalesce into it.
func (m *Monitor) Reconnected() <-chan struct{} {
	return m.reconnected
}

func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	m.logger.Info(context.Background(), "switched mode", "mode", m.Mode())
	if online {
		select {
		case m.reconnected <- struct{}{}:
		default:
		}
	}
}

// Check probes the gateway once and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.pinger.Ping(ctx)
	cancel()

	if err != nil {
		m.logger.Debug(ctx, "ping failed", "error", err)
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
