package pairing

import "errors"

var (
	// ErrNotFound is returned for an unknown task or connection id. Teardown
	// paths treat it as success.
	ErrNotFound = errors.New("pairing: connection not found")

	// ErrIDExhausted is returned when the id generator keeps colliding.
	ErrIDExhausted = errors.New("pairing: could not allocate a unique connection id")
)

// State is one half of a potential pairing.
type State struct {
	ConnID string `json:"connId"`

	// Peer is the paired connection id; empty while waiting.
	Peer string `json:"peer,omitempty"`

	// ClosedByPeer marks a change caused by the peer declining or leaving.
	ClosedByPeer bool `json:"closedByPeer,omitempty"`

	// Match numbers the pairing; both halves carry the same value and no two
	// pairings share one. Zero while unpaired.
	Match uint64 `json:"match,omitempty"`
}

// Paired reports whether the state references a peer.
func (s State) Paired() bool {
	return s.Peer != ""
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Connections int // live entries in the table
	Waiting     int // ids across all task queues
	Tasks       int // tasks with a non-empty queue or a held lane
}
