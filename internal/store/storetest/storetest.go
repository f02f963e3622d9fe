// Package storetest is the conformance suite shared by store backends.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

// Run exercises a backend. newStore must return an empty store; it is
// called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGetUser", testCreateAndGetUser},
		{"DuplicateUsername", testDuplicateUsername},
		{"UpdateUser", testUpdateUser},
		{"UserByConn", testUserByConn},
		{"AddPointsAndLeaderboard", testAddPointsAndLeaderboard},
		{"Tasks", testTasks},
		{"AppendResult", testAppendResult},
		{"NotFound", testNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func mustCreateUser(t *testing.T, s store.Store, uuid, name string) model.User {
	t.Helper()
	u := model.User{UUID: uuid, Username: name, Avatar: name + ".png", Hash: "hash-" + name}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", name, err)
	}
	return u
}

func testCreateAndGetUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := mustCreateUser(t, s, "u1", "alice")

	got, err := s.User(ctx, "u1")
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	if got != want {
		t.Errorf("User = %+v, want %+v", got, want)
	}

	got, err = s.UserByName(ctx, "alice")
	if err != nil {
		t.Fatalf("UserByName failed: %v", err)
	}
	if got.UUID != "u1" || got.Hash != "hash-alice" {
		t.Errorf("UserByName = %+v", got)
	}
}

func testDuplicateUsername(t *testing.T, s store.Store) {
	mustCreateUser(t, s, "u1", "alice")

	err := s.CreateUser(context.Background(), model.User{UUID: "u2", Username: "alice"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("CreateUser duplicate = %v, want ErrAlreadyExists", err)
	}
}

func testUpdateUser(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, "u1", "alice")
	mustCreateUser(t, s, "u2", "bob")

	avatar := "new.png"
	got, err := s.UpdateUser(ctx, "u1", store.UserUpdate{Avatar: &avatar})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if got.Avatar != "new.png" || got.Username != "alice" {
		t.Errorf("UpdateUser = %+v", got)
	}

	taken := "bob"
	if _, err := s.UpdateUser(ctx, "u1", store.UserUpdate{Username: &taken}); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("rename to taken username = %v, want ErrAlreadyExists", err)
	}

	same := "alice"
	if _, err := s.UpdateUser(ctx, "u1", store.UserUpdate{Username: &same}); err != nil {
		t.Errorf("rename to own username = %v, want nil", err)
	}

	stored, err := s.User(ctx, "u1")
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	if stored.Avatar != "new.png" {
		t.Errorf("stored Avatar = %q, want new.png", stored.Avatar)
	}
}

func testUserByConn(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, "u1", "alice")

	if _, err := s.UserByConn(ctx, "conn-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UserByConn before bind = %v, want ErrNotFound", err)
	}

	conn := "conn-1"
	if _, err := s.UpdateUser(ctx, "u1", store.UserUpdate{ConnID: &conn}); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	got, err := s.UserByConn(ctx, "conn-1")
	if err != nil {
		t.Fatalf("UserByConn failed: %v", err)
	}
	if got.UUID != "u1" {
		t.Errorf("UserByConn = %+v, want u1", got)
	}
}

func testAddPointsAndLeaderboard(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateUser(t, s, "u1", "alice")
	mustCreateUser(t, s, "u2", "bob")
	mustCreateUser(t, s, "u3", "carol")

	if _, err := s.AddPoints(ctx, "u2", 20); err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}
	got, err := s.AddPoints(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}
	if got.Points != 30 {
		t.Errorf("Points = %d, want 30", got.Points)
	}
	if _, err := s.AddPoints(ctx, "u3", 10); err != nil {
		t.Fatalf("AddPoints failed: %v", err)
	}

	board, err := s.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	want := []string{"bob", "carol", "alice"}
	if len(board) != len(want) {
		t.Fatalf("Leaderboard len = %d, want %d", len(board), len(want))
	}
	for i, u := range board {
		if u.Username != want[i] {
			t.Errorf("Leaderboard[%d] = %s, want %s", i, u.Username, want[i])
		}
	}
}

func testTasks(t *testing.T, s store.Store) {
	ctx := context.Background()

	for _, task := range []model.Task{
		{UUID: "t2", Title: "Reverse List", Description: "reverse it"},
		{UUID: "t1", Title: "Add Two", Description: "add them"},
	} {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask(%s) failed: %v", task.Title, err)
		}
	}

	err := s.CreateTask(ctx, model.Task{UUID: "t3", Title: "Add Two"})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("CreateTask duplicate title = %v, want ErrAlreadyExists", err)
	}

	got, err := s.Task(ctx, "t2")
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if got.Title != "Reverse List" || got.Description != "reverse it" || len(got.Results) != 0 {
		t.Errorf("Task = %+v", got)
	}

	tasks, err := s.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].UUID != "t1" || tasks[1].UUID != "t2" {
		t.Errorf("Tasks = %+v", tasks)
	}
}

func testAppendResult(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateTask(ctx, model.Task{UUID: "t1", Title: "Add Two"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	results := []model.Result{{"u1", "u2"}, {"u2", "u1"}}
	for _, r := range results {
		if err := s.AppendResult(ctx, "t1", r); err != nil {
			t.Fatalf("AppendResult failed: %v", err)
		}
	}

	got, err := s.Task(ctx, "t1")
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if len(got.Results) != 2 || got.Results[0] != results[0] || got.Results[1] != results[1] {
		t.Errorf("Results = %v, want %v", got.Results, results)
	}
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["User"] = s.User(ctx, "missing")
	_, checks["UserByName"] = s.UserByName(ctx, "missing")
	_, checks["UserByConn"] = s.UserByConn(ctx, "missing")
	_, checks["UpdateUser"] = s.UpdateUser(ctx, "missing", store.UserUpdate{})
	_, checks["AddPoints"] = s.AddPoints(ctx, "missing", 1)
	_, checks["Task"] = s.Task(ctx, "missing")
	checks["AppendResult"] = s.AppendResult(ctx, "missing", model.Result{"a", "b"})

	for op, err := range checks {
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s = %v, want ErrNotFound", op, err)
		}
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping = %v", err)
	}
}
