package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrMissingTask     = errors.New("task is required")
)

// ClientConfig configures a protocol client.
type ClientConfig struct {
	URL          string        // Websocket endpoint (e.g. ws://localhost:8080/ws)
	Task         string        // Task id sent as the taskId query parameter
	Token        string        // Optional bearer token
	PingTimeout  time.Duration // Max time without a ping before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Event channel buffer size
}

// DefaultClientConfig returns sensible defaults. PingTimeout covers three
// broker sweep intervals.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   64,
	}
}
