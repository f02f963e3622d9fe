// Package memory is a process-local store backend.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

// Store keeps users and tasks in maps guarded by a single RWMutex.
type Store struct {
	mu    sync.RWMutex
	users map[string]model.User
	tasks map[string]model.Task
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]model.User),
		tasks: make(map[string]model.Task),
	}
}

func (s *Store) CreateUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.UUID]; ok {
		return store.ErrAlreadyExists
	}
	if s.usernameTaken(u.Username, "") {
		return store.ErrAlreadyExists
	}
	s.users[u.UUID] = u
	return nil
}

func (s *Store) User(_ context.Context, uuid string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[uuid]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByName(_ context.Context, username string) (model.User, error) {
	return s.find(func(u model.User) bool { return u.Username == username })
}

func (s *Store) UserByConn(_ context.Context, connID string) (model.User, error) {
	if connID == "" {
		return model.User{}, store.ErrNotFound
	}
	return s.find(func(u model.User) bool { return u.ConnID == connID })
}

func (s *Store) UpdateUser(_ context.Context, uuid string, upd store.UserUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uuid]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	if upd.Username != nil && s.usernameTaken(*upd.Username, uuid) {
		return model.User{}, store.ErrAlreadyExists
	}
	upd.Apply(&u)
	s.users[uuid] = u
	return u, nil
}

func (s *Store) AddPoints(_ context.Context, uuid string, delta int) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uuid]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	u.Points += delta
	s.users[uuid] = u
	return u, nil
}

func (s *Store) Leaderboard(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	store.SortUsers(users)
	return users, nil
}

func (s *Store) CreateTask(_ context.Context, t model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.UUID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range s.tasks {
		if existing.Title == t.Title {
			return store.ErrAlreadyExists
		}
	}
	t.Results = slices.Clone(t.Results)
	s.tasks[t.UUID] = t
	return nil
}

func (s *Store) Task(_ context.Context, uuid string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[uuid]
	if !ok {
		return model.Task{}, store.ErrNotFound
	}
	t.Results = slices.Clone(t.Results)
	return t, nil
}

func (s *Store) Tasks(_ context.Context) ([]model.Task, error) {
	s.mu.RLock()
	tasks := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		t.Results = slices.Clone(t.Results)
		tasks = append(tasks, t)
	}
	s.mu.RUnlock()

	store.SortTasks(tasks)
	return tasks, nil
}

func (s *Store) AppendResult(_ context.Context, taskUUID string, r model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskUUID]
	if !ok {
		return store.ErrNotFound
	}
	t.Results = append(slices.Clone(t.Results), r)
	s.tasks[taskUUID] = t
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) find(match func(model.User) bool) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

// usernameTaken reports whether a user other than except owns name.
// Caller must hold mu.
func (s *Store) usernameTaken(name, except string) bool {
	for id, u := range s.users {
		if u.Username == name && id != except {
			return true
		}
	}
	return false
}
