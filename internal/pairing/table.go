package pairing

import (
	"sync"

	"github.com/rickgao/peerlink/internal/buffer"
)

// streamInitialCapacity sizes a fresh Stream mailbox; a connection rarely
// sees more than a pair/disconnect couple before it is drained.
const streamInitialCapacity = 4

// Stream is the single-subscriber notification channel of one connection.
// Publish hands each State to the mailbox before returning, so the
// subscriber observes changes in the exact order they were produced, while
// the producer never waits on the subscriber.
type Stream struct {
	buf *buffer.GrowableBuffer[State]
}

func newStream() *Stream {
	return &Stream{buf: buffer.NewGrowableBuffer[State](streamInitialCapacity)}
}

// Next blocks until the next State is available. It returns false once the
// connection is disconnected and every pending State has been consumed.
func (s *Stream) Next() (State, bool) {
	return s.buf.Receive()
}

// TryNext returns the next State without blocking.
func (s *Stream) TryNext() (State, bool) {
	return s.buf.TryReceive()
}

// Pending returns the number of undelivered States.
func (s *Stream) Pending() int {
	return s.buf.Len()
}

func (s *Stream) publish(st State) bool {
	return s.buf.Send(st)
}

func (s *Stream) close() {
	s.buf.Close()
}

type entry struct {
	task   string
	state  State
	stream *Stream
}

// Table maps connection ids to their State and Stream. State writes happen
// inside the owning task's lane lock; the Table lock only guards the map and
// makes single reads consistent.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]*entry),
	}
}

// Create inserts a waiting entry for id and returns its Stream. It returns
// false if id is already present.
func (t *Table) Create(task, id string) (*Stream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[id]; ok {
		return nil, false
	}
	e := &entry{
		task:   task,
		state:  State{ConnID: id},
		stream: newStream(),
	}
	t.entries[id] = e
	return e.stream, true
}

// Get returns the current State of id.
func (t *Table) Get(id string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Task returns the task id is scoped to.
func (t *Table) Task(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return "", false
	}
	return e.task, true
}

// Has reports whether id is present.
func (t *Table) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[id]
	return ok
}

// Publish stores st as the current State of st.ConnID and delivers it to the
// subscriber. It returns false if the id is unknown.
func (t *Table) Publish(st State) bool {
	t.mu.Lock()
	e, ok := t.entries[st.ConnID]
	if ok {
		e.state = st
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	return e.stream.publish(st)
}

// Remove deletes id and releases its Stream. The last State is returned so
// the caller can unwind a pairing.
func (t *Table) Remove(id string) (State, bool) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return State{}, false
	}
	e.stream.close()
	return e.state, true
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
