package session

import (
	"errors"
	"time"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/pairing"
)

// Errors
var (
	ErrSessionClosed = errors.New("session closed")
)

// Transport is the duplex channel of one client. Send queues a frame and
// never waits on the network; Ping sends a liveness probe.
type Transport interface {
	Send(ev Event) error
	Ping() error
	Close() error
}

// Pairer is the part of the pairing Coordinator a Binder drives.
type Pairer interface {
	Register(task string) (string, *pairing.Stream, error)
	Retry(task, id string) error
	Decline(task, id string) error
	Disconnect(task, id string) error
	Peer(id string) (string, bool)
	State(id string) (pairing.State, bool)
}

// OutcomeSink receives finished matches. Record must not block.
type OutcomeSink interface {
	Record(outcome model.Outcome)
}

// Config configures websocket transports.
type Config struct {
	WriteTimeout time.Duration // Write deadline per frame and per ping
	ReadLimit    int64         // Max inbound frame size in bytes
	SendBuffer   int           // Initial outbound queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
		ReadLimit:    64 << 10,
		SendBuffer:   16,
	}
}

// MonitorConfig configures the liveness Monitor.
type MonitorConfig struct {
	// SweepInterval is both the probe period and the grace period: a
	// session is evicted on the first sweep that finds the previous
	// probe unanswered.
	SweepInterval time.Duration
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SweepInterval: 30 * time.Second,
	}
}
