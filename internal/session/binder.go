package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/pairing"
)

// Session is one transport bound to one pairing connection.
type Session struct {
	id        string
	task      string
	transport Transport
	stream    *pairing.Stream
	binder    *Binder

	// pending is set by a liveness sweep and cleared by a pong.
	pending atomic.Bool

	// settled is the match number this session's pairing last scored;
	// guarded by Binder.settleMu.
	settled uint64

	closeOnce sync.Once
	pumpDone  chan struct{}
}

// ID returns the session's connection id.
func (s *Session) ID() string {
	return s.id
}

// Task returns the task the session was bound to.
func (s *Session) Task() string {
	return s.task
}

// MarkAlive records a liveness acknowledgment.
func (s *Session) MarkAlive() {
	s.pending.Store(false)
}

// HandleFrame processes one inbound frame. Malformed or unknown events are
// dropped and the session stays open.
func (s *Session) HandleFrame(frame []byte) {
	ev, err := DecodeEvent(frame)
	if err != nil {
		s.binder.logger.Warn("dropping inbound frame", "conn_id", s.id, "error", err)
		return
	}
	s.binder.handle(s, ev)
}

// Close unbinds the session: the connection is disconnected from pairing,
// the peer (if any) is notified, and the transport is closed.
func (s *Session) Close() {
	s.binder.unbind(s, "closed")
}

// Done is closed once the state pump has exited.
func (s *Session) Done() <-chan struct{} {
	return s.pumpDone
}

// Binder binds transports to the pairing engine and relays signaling
// events between paired sessions.
type Binder struct {
	pairer   Pairer
	hub      *Hub
	outcomes OutcomeSink
	logger   *slog.Logger

	settleMu sync.Mutex
}

// NewBinder creates a Binder. outcomes may be nil.
func NewBinder(pairer Pairer, outcomes OutcomeSink, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		pairer:   pairer,
		hub:      NewHub(),
		outcomes: outcomes,
		logger:   logger,
	}
}

// Hub returns the index of bound sessions.
func (b *Binder) Hub() *Hub {
	return b.hub
}

// Bind registers a new connection for task, announces its id over t and
// starts forwarding its pairing state changes. The session is in the hub
// before it enters the queue, so a peer can reach it as soon as they pair.
func (b *Binder) Bind(task string, t Transport) (*Session, error) {
	id, stream, err := b.pairer.Register(task)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s := &Session{
		id:        id,
		task:      task,
		transport: t,
		stream:    stream,
		binder:    b,
		pumpDone:  make(chan struct{}),
	}
	b.hub.add(s)

	if err := t.Send(NewEvent(EventConnect, id)); err != nil {
		b.unbind(s, "connect event failed")
		return nil, fmt.Errorf("send connect event: %w", err)
	}

	go s.pump()

	if err := b.pairer.Retry(task, id); err != nil {
		b.unbind(s, "enqueue failed")
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	b.logger.Info("session bound", "conn_id", id, "task", task)
	return s, nil
}

// Evict tears a session down after a missed liveness probe.
func (b *Binder) Evict(s *Session) {
	b.unbind(s, "liveness timeout")
}

// Shutdown closes every bound session.
func (b *Binder) Shutdown(ctx context.Context) error {
	for _, s := range b.hub.Sessions() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.unbind(s, "shutdown")
	}
	return nil
}

func (b *Binder) unbind(s *Session, reason string) {
	s.closeOnce.Do(func() {
		b.hub.remove(s)
		if err := b.pairer.Disconnect(s.task, s.id); err != nil && !errors.Is(err, pairing.ErrNotFound) {
			b.logger.Error("disconnect failed", "conn_id", s.id, "error", err)
		}
		s.transport.Close()

		b.logger.Info("session unbound", "conn_id", s.id, "task", s.task, "reason", reason)
	})
}

// pump forwards published states to the transport in publication order.
// It exits when the connection's stream is closed by Disconnect.
func (s *Session) pump() {
	defer close(s.pumpDone)

	for {
		st, ok := s.stream.Next()
		if !ok {
			return
		}

		var ev Event
		switch {
		case st.ClosedByPeer:
			ev = NewEvent(EventDisconnect, nil)
		case st.Paired():
			ev = NewEvent(EventPair, st.Peer)
			s.binder.logger.Info("pairing", "conn_id", s.id, "peer", st.Peer, "task", s.task)
		default:
			continue
		}

		if err := s.transport.Send(ev); err != nil {
			s.binder.logger.Debug("state event dropped", "conn_id", s.id, "event", ev.Event, "error", err)
		}
	}
}

func (b *Binder) handle(s *Session, ev Event) {
	switch ev.Event {
	case EventReady:
		b.forward(s, NewEvent(EventReady, nil))

	case EventRetry:
		if err := b.pairer.Retry(s.task, s.id); err != nil {
			b.logger.Debug("retry ignored", "conn_id", s.id, "error", err)
		}

	case EventPush:
		b.forward(s, Event{Event: EventPull, Data: ev.Data})

	case EventAttempt:
		b.forward(s, NewEvent(EventAttempt, nil))

	case EventWin:
		st, paired := b.pairer.State(s.id)
		paired = paired && st.Paired()
		if paired {
			b.relay(s, st.Peer, NewEvent(EventLose, nil))
		}
		s.send(NewEvent(EventWin, nil))
		if paired && b.outcomes != nil && b.settle(s, st) {
			b.outcomes.Record(model.Outcome{Task: s.task, Winner: s.id, Loser: st.Peer})
		}

	case EventDecline:
		if err := b.pairer.Decline(s.task, s.id); err != nil {
			b.logger.Debug("decline ignored", "conn_id", s.id, "error", err)
		}
		s.send(NewEvent(EventDecline, nil))

	default:
		b.logger.Warn("unknown event", "conn_id", s.id, "event", ev.Event)
	}
}

// forward sends ev to the session currently paired with s. The peer is
// looked up from the latest pairing state on every call; delivery is best
// effort.
func (b *Binder) forward(s *Session, ev Event) {
	if peer, ok := b.pairer.Peer(s.id); ok {
		b.relay(s, peer, ev)
	}
}

func (b *Binder) relay(s *Session, peer string, ev Event) {
	ps, ok := b.hub.Get(peer)
	if !ok {
		b.logger.Debug("peer not bound locally", "conn_id", s.id, "peer", peer, "event", ev.Event)
		return
	}
	ps.send(ev)
}

// settle claims the outcome of pairing st for s. Only the first win of a
// pairing is scored, whichever side sends it; later wins are relayed but
// report false.
func (b *Binder) settle(s *Session, st pairing.State) bool {
	if st.Match == 0 {
		return true
	}

	b.settleMu.Lock()
	defer b.settleMu.Unlock()

	if s.settled == st.Match {
		return false
	}
	ps, bound := b.hub.Get(st.Peer)
	if bound && ps.settled == st.Match {
		return false
	}

	s.settled = st.Match
	if bound {
		ps.settled = st.Match
	}
	return true
}

func (s *Session) send(ev Event) {
	if err := s.transport.Send(ev); err != nil {
		s.binder.logger.Debug("event dropped", "conn_id", s.id, "event", ev.Event, "error", err)
	}
}
