package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Monitor periodically probes every bound session and evicts those that
// did not answer the previous probe.
type Monitor struct {
	cfg    MonitorConfig
	binder *Binder
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a Monitor over the sessions of binder.
func NewMonitor(cfg MonitorConfig, binder *Binder, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:    cfg,
		binder: binder,
		logger: logger,
	}
}

// Start begins the sweep loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("liveness monitor started", "interval", m.cfg.SweepInterval)
	return nil
}

// Stop halts the sweep loop.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("liveness monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep runs one liveness pass. Sessions whose previous probe is still
// unanswered are evicted; the rest are marked pending and probed.
// It returns the number of evicted sessions.
func (m *Monitor) Sweep() int {
	evicted := 0
	for _, s := range m.binder.hub.Sessions() {
		if !s.pending.CompareAndSwap(false, true) {
			m.binder.Evict(s)
			evicted++
			continue
		}
		if err := s.transport.Ping(); err != nil {
			m.logger.Debug("ping failed", "conn_id", s.id, "error", err)
		}
	}

	if evicted > 0 {
		m.logger.Info("evicted unresponsive sessions", "count", evicted)
	}
	return evicted
}
