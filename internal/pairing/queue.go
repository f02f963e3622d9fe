package pairing

import (
	"slices"
	"sync"
)

// Queue holds the waiting connection ids of every task. Each task has its
// own Lane and its own lock; lanes are created on first use and dropped once
// empty and unreferenced.
type Queue struct {
	mu    sync.Mutex
	lanes map[string]*Lane
}

// Lane is the ordered waiting list of a single task. A Lane returned by
// Queue.Lock is held exclusively until Unlock.
type Lane struct {
	queue *Queue
	task  string

	mu   sync.Mutex
	ids  []string
	refs int // guarded by queue.mu
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		lanes: make(map[string]*Lane),
	}
}

// Lock acquires the lane of task, creating it if needed.
func (q *Queue) Lock(task string) *Lane {
	q.mu.Lock()
	l, ok := q.lanes[task]
	if !ok {
		l = &Lane{queue: q, task: task}
		q.lanes[task] = l
	}
	l.refs++
	q.mu.Unlock()

	l.mu.Lock()
	return l
}

// Unlock releases the lane. An empty lane nobody else is waiting on is
// removed from the queue.
func (l *Lane) Unlock() {
	l.mu.Unlock()

	q := l.queue
	q.mu.Lock()
	l.refs--
	if l.refs == 0 && len(l.ids) == 0 {
		delete(q.lanes, l.task)
	}
	q.mu.Unlock()
}

// Task returns the lane's task.
func (l *Lane) Task() string {
	return l.task
}

// Enqueue appends ids in order.
func (l *Lane) Enqueue(ids ...string) {
	l.ids = append(l.ids, ids...)
}

// Dequeue removes every occurrence of ids, keeping the rest in order.
func (l *Lane) Dequeue(ids ...string) {
	l.ids = slices.DeleteFunc(l.ids, func(id string) bool {
		return slices.Contains(ids, id)
	})
}

// Head returns the oldest waiting id.
func (l *Lane) Head() (string, bool) {
	if len(l.ids) == 0 {
		return "", false
	}
	return l.ids[0], true
}

// Contains reports whether id is waiting.
func (l *Lane) Contains(id string) bool {
	return slices.Contains(l.ids, id)
}

// Len returns the number of waiting ids.
func (l *Lane) Len() int {
	return len(l.ids)
}

// IDs returns a copy of the waiting ids, oldest first.
func (l *Lane) IDs() []string {
	return slices.Clone(l.ids)
}

// Enqueue appends ids to the task's queue.
func (q *Queue) Enqueue(task string, ids ...string) {
	l := q.Lock(task)
	defer l.Unlock()
	l.Enqueue(ids...)
}

// Dequeue removes ids from the task's queue.
func (q *Queue) Dequeue(task string, ids ...string) {
	l := q.Lock(task)
	defer l.Unlock()
	l.Dequeue(ids...)
}

// PeekHead returns the oldest waiting id of task.
func (q *Queue) PeekHead(task string) (string, bool) {
	l := q.Lock(task)
	defer l.Unlock()
	return l.Head()
}

// Snapshot returns a copy of task's waiting ids, oldest first.
func (q *Queue) Snapshot(task string) []string {
	l := q.Lock(task)
	defer l.Unlock()
	return l.IDs()
}

// counts returns the number of waiting ids and of known lanes. Lanes are
// read under their own lock so the totals are never torn.
func (q *Queue) counts() (waiting, tasks int) {
	q.mu.Lock()
	names := make([]string, 0, len(q.lanes))
	for task := range q.lanes {
		names = append(names, task)
	}
	q.mu.Unlock()

	for _, task := range names {
		l := q.Lock(task)
		if n := l.Len(); n > 0 {
			waiting += n
			tasks++
		}
		l.Unlock()
	}
	return waiting, tasks
}
