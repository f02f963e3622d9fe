package store

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/rickgao/peerlink/internal/model"
)

// Errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store persists users and tasks.
type Store interface {
	// CreateUser inserts u. Usernames are unique.
	CreateUser(ctx context.Context, u model.User) error
	// User returns the user with the given UUID.
	User(ctx context.Context, uuid string) (model.User, error)
	// UserByName returns the user with the given username.
	UserByName(ctx context.Context, username string) (model.User, error)
	// UserByConn returns the user last bound to connID.
	UserByConn(ctx context.Context, connID string) (model.User, error)
	// UpdateUser applies the non-nil fields of upd and returns the result.
	UpdateUser(ctx context.Context, uuid string, upd UserUpdate) (model.User, error)
	// AddPoints adds delta to the user's points and returns the result.
	AddPoints(ctx context.Context, uuid string, delta int) (model.User, error)
	// Leaderboard returns all users ordered by SortUsers.
	Leaderboard(ctx context.Context) ([]model.User, error)

	// CreateTask inserts t. Titles are unique.
	CreateTask(ctx context.Context, t model.Task) error
	// Task returns the task with the given UUID.
	Task(ctx context.Context, uuid string) (model.Task, error)
	// Tasks returns all tasks ordered by title.
	Tasks(ctx context.Context) ([]model.Task, error)
	// AppendResult appends r to the task's results.
	AppendResult(ctx context.Context, taskUUID string, r model.Result) error

	Ping(ctx context.Context) error
	Close() error
}

// UserUpdate lists the mutable user fields. Nil fields are left unchanged.
type UserUpdate struct {
	Username *string
	Avatar   *string
	ConnID   *string
}

// Apply writes the set fields of upd into u.
func (upd UserUpdate) Apply(u *model.User) {
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.ConnID != nil {
		u.ConnID = *upd.ConnID
	}
}

// SortUsers orders users by points descending, then username ascending.
func SortUsers(users []model.User) {
	slices.SortFunc(users, func(a, b model.User) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
}

// SortTasks orders tasks by title.
func SortTasks(tasks []model.Task) {
	slices.SortFunc(tasks, func(a, b model.Task) int {
		return cmp.Compare(a.Title, b.Title)
	})
}
