package pairing

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// maxIDAttempts bounds id allocation retries when the generator collides.
const maxIDAttempts = 8

// Coordinator runs Connect, Retry, Decline and Disconnect against a Queue
// and a Table. Every operation holds the task's lane for its whole duration,
// including the matching check and the resulting publications.
type Coordinator struct {
	queue  *Queue
	table  *Table
	newID  func() string
	logger *slog.Logger

	matches atomic.Uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithIDGenerator replaces the uuid-based connection id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		c.newID = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator over the given queue and table.
func NewCoordinator(queue *Queue, table *Table, opts ...Option) *Coordinator {
	c := &Coordinator{
		queue:  queue,
		table:  table,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect registers a new waiting connection in task and returns its id and
// notification stream. If another connection is already waiting, the two are
// paired before Connect returns and the pairing is already on the stream.
func (c *Coordinator) Connect(task string) (string, *Stream, error) {
	lane := c.queue.Lock(task)
	defer lane.Unlock()

	id, stream, err := c.register(lane)
	if err != nil {
		return "", nil, err
	}
	lane.Enqueue(id)

	c.match(lane)
	return id, stream, nil
}

// Register allocates an id and stream for a new connection in task without
// queueing it. The connection starts searching on its first Retry, which
// lets a caller finish its own bookkeeping before a peer can see it.
func (c *Coordinator) Register(task string) (string, *Stream, error) {
	lane := c.queue.Lock(task)
	defer lane.Unlock()

	return c.register(lane)
}

// register allocates a collision-checked id. Caller must hold the lane.
func (c *Coordinator) register(lane *Lane) (string, *Stream, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := c.newID()
		if id == "" || c.table.Has(id) || lane.Contains(id) {
			c.logger.Warn("connection id collision, retrying", "task", lane.task, "attempt", attempt)
			continue
		}

		stream, ok := c.table.Create(lane.task, id)
		if !ok {
			continue
		}

		c.logger.Debug("connection registered", "task", lane.task, "conn_id", id)
		return id, stream, nil
	}

	return "", nil, ErrIDExhausted
}

// Retry puts an unpaired connection back into its task's queue. It is a
// no-op when the connection is paired or already waiting.
func (c *Coordinator) Retry(task, id string) error {
	lane := c.queue.Lock(task)
	defer lane.Unlock()

	st, ok := c.lookup(task, id)
	if !ok {
		return ErrNotFound
	}
	if st.Paired() || lane.Contains(id) {
		return nil
	}

	lane.Enqueue(id)
	c.logger.Debug("connection re-queued", "task", task, "conn_id", id)

	c.match(lane)
	return nil
}

// Decline drops the caller's pairing. The caller is left waiting outside
// the queue and must Retry to search again; the declined peer is notified
// with ClosedByPeer and re-queued automatically. A caller that is still
// searching keeps its place in the queue.
func (c *Coordinator) Decline(task, id string) error {
	lane := c.queue.Lock(task)
	defer lane.Unlock()

	st, ok := c.lookup(task, id)
	if !ok {
		return ErrNotFound
	}

	if !st.Paired() {
		return nil
	}

	c.table.Publish(State{ConnID: id})
	c.logger.Debug("pairing declined", "task", task, "conn_id", id, "peer", st.Peer)

	c.release(lane, st.Peer, id)
	return nil
}

// Disconnect removes the connection for good. Its stream is closed, it
// leaves the queue, and a paired peer is notified and re-queued. Unknown ids
// are a no-op, so Disconnect is idempotent.
func (c *Coordinator) Disconnect(task, id string) error {
	lane := c.queue.Lock(task)
	defer lane.Unlock()

	owner, ok := c.table.Task(id)
	if !ok {
		return nil
	}
	if owner != task {
		return ErrNotFound
	}

	st, ok := c.table.Remove(id)
	if !ok {
		return nil
	}
	lane.Dequeue(id)

	c.logger.Debug("connection removed", "task", task, "conn_id", id, "peer", st.Peer)

	if st.Paired() {
		c.release(lane, st.Peer, id)
	}
	return nil
}

// State returns the current State of id.
func (c *Coordinator) State(id string) (State, bool) {
	return c.table.Get(id)
}

// Peer returns the current peer of id, if any.
func (c *Coordinator) Peer(id string) (string, bool) {
	st, ok := c.table.Get(id)
	if !ok || !st.Paired() {
		return "", false
	}
	return st.Peer, true
}

// Waiting returns the ids waiting in task, oldest first.
func (c *Coordinator) Waiting(task string) []string {
	return c.queue.Snapshot(task)
}

// Stats returns a snapshot of table and queue sizes.
func (c *Coordinator) Stats() Stats {
	waiting, tasks := c.queue.counts()
	return Stats{
		Connections: c.table.Len(),
		Waiting:     waiting,
		Tasks:       tasks,
	}
}

// lookup returns id's state if it belongs to task.
func (c *Coordinator) lookup(task, id string) (State, bool) {
	owner, ok := c.table.Task(id)
	if !ok || owner != task {
		return State{}, false
	}
	return c.table.Get(id)
}

// release unpairs peer from leaving, notifies it, and sends it back to the
// queue. Nothing happens if peer is gone or already points elsewhere.
// Caller must hold the lane.
func (c *Coordinator) release(lane *Lane, peer, leaving string) {
	ps, ok := c.table.Get(peer)
	if !ok || ps.Peer != leaving {
		return
	}

	c.table.Publish(State{ConnID: peer, ClosedByPeer: true})
	if !lane.Contains(peer) {
		lane.Enqueue(peer)
	}

	c.match(lane)
}

// match pairs the oldest waiting connection with the next one until fewer
// than two remain. Entries that disappeared or got paired meanwhile are
// dropped from the queue instead of being matched. Caller must hold the lane.
func (c *Coordinator) match(lane *Lane) {
	for lane.Len() > 1 {
		head := lane.ids[0]
		hs, ok := c.table.Get(head)
		if !ok || hs.Paired() {
			lane.Dequeue(head)
			continue
		}

		next := lane.ids[1]
		ns, ok := c.table.Get(next)
		if !ok || ns.Paired() {
			lane.Dequeue(next)
			continue
		}

		lane.Dequeue(next, head)
		m := c.matches.Add(1)
		c.table.Publish(State{ConnID: next, Peer: head, Match: m})
		c.table.Publish(State{ConnID: head, Peer: next, Match: m})

		c.logger.Debug("connections paired", "task", lane.task, "conn_id", next, "peer", head)
	}
}
