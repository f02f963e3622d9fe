package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/peerlink/internal/auth"
	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/pairing"
	"github.com/rickgao/peerlink/internal/session"
	"github.com/rickgao/peerlink/internal/store"
	"github.com/rickgao/peerlink/internal/store/memory"
)

type testEnv struct {
	server *httptest.Server
	store  store.Store
	coord  *pairing.Coordinator
	binder *session.Binder
}

func newTestEnv(t *testing.T, mutate func(*Config), st store.Store) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	if st == nil {
		st = memory.New()
	}
	tokens, err := auth.NewTokens(auth.Config{Secret: "test-secret", TTL: time.Hour, Issuer: "peerlink"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	coord := pairing.NewCoordinator(pairing.NewQueue(), pairing.NewTable(), pairing.WithLogger(logger))
	binder := session.NewBinder(coord, nil, logger)

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	srv := New(cfg, Deps{Store: st, Tokens: tokens, Binder: binder, Pairing: coord}, logger)

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: st, coord: coord, binder: binder}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// register creates a user and logs in, returning uuid and token.
func (e *testEnv) register(t *testing.T, username, password string) (string, string) {
	t.Helper()

	var created map[string]string
	if code := e.do(t, "POST", "/api/user", "", map[string]string{"username": username, "hash": password}, &created); code != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, code)
	}

	var tok tokenResponse
	if code := e.do(t, "POST", "/api/auth", "", map[string]string{"username": username, "hash": password}, &tok); code != http.StatusOK {
		t.Fatalf("login %s: status %d", username, code)
	}
	return created["uuid"], tok.AccessToken
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	aliceID, aliceToken := env.register(t, "alice", "pw-alice")
	bobID, _ := env.register(t, "bob", "pw-bob")

	t.Run("duplicate username", func(t *testing.T) {
		code := env.do(t, "POST", "/api/user", "", map[string]string{"username": "alice", "hash": "x"}, nil)
		if code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", code)
		}
	})

	t.Run("password is hashed", func(t *testing.T) {
		u, err := env.store.User(context.Background(), aliceID)
		if err != nil {
			t.Fatalf("User failed: %v", err)
		}
		if u.Hash == "pw-alice" || auth.CheckPassword(u.Hash, "pw-alice") != nil {
			t.Errorf("stored hash = %q", u.Hash)
		}
	})

	t.Run("login failures", func(t *testing.T) {
		if code := env.do(t, "POST", "/api/auth", "", map[string]string{"username": "alice", "hash": "wrong"}, nil); code != http.StatusUnauthorized {
			t.Errorf("wrong password status = %d, want 401", code)
		}
		if code := env.do(t, "POST", "/api/auth", "", map[string]string{"username": "nobody", "hash": "x"}, nil); code != http.StatusNotFound {
			t.Errorf("unknown user status = %d, want 404", code)
		}
	})

	t.Run("me", func(t *testing.T) {
		var me map[string]any
		if code := env.do(t, "GET", "/api/auth/user", aliceToken, nil, &me); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if me["username"] != "alice" || me["uuid"] != aliceID {
			t.Errorf("me = %v", me)
		}
		if _, ok := me["hash"]; ok {
			t.Error("password hash exposed")
		}

		if code := env.do(t, "GET", "/api/auth/user", "", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("no token status = %d, want 401", code)
		}
		if code := env.do(t, "GET", "/api/auth/user", "bogus", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("bad token status = %d, want 401", code)
		}
	})

	t.Run("bind connection and look up profile", func(t *testing.T) {
		var updated model.User
		body := map[string]string{"connId": "conn-123", "avatar": "cat.png"}
		if code := env.do(t, "PUT", "/api/auth/user", aliceToken, body, &updated); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if updated.ConnID != "conn-123" || updated.Avatar != "cat.png" || updated.Username != "alice" {
			t.Errorf("updated = %+v", updated)
		}

		var profile profileResponse
		if code := env.do(t, "GET", "/api/auth/user/conn-123", aliceToken, nil, &profile); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if profile.Username != "alice" || profile.Avatar != "cat.png" {
			t.Errorf("profile = %+v", profile)
		}

		if code := env.do(t, "GET", "/api/auth/user/conn-unknown", aliceToken, nil, nil); code != http.StatusNotFound {
			t.Errorf("unknown conn status = %d, want 404", code)
		}
	})

	t.Run("rename conflict", func(t *testing.T) {
		if code := env.do(t, "PUT", "/api/auth/user", aliceToken, map[string]string{"username": "bob"}, nil); code != http.StatusConflict {
			t.Errorf("status = %d, want 409", code)
		}
	})

	t.Run("points and leaderboard", func(t *testing.T) {
		var u model.User
		if code := env.do(t, "POST", "/api/user/points/"+bobID, "", addPointsRequest{PointsToAdd: 15}, &u); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if u.Points != 15 {
			t.Errorf("points = %d, want 15", u.Points)
		}

		var p pointsResponse
		env.do(t, "GET", "/api/user/points/"+bobID, "", nil, &p)
		if p.UUID != bobID || p.Points != 15 {
			t.Errorf("points = %+v", p)
		}

		var board []model.Standing
		env.do(t, "GET", "/api/user/points", "", nil, &board)
		if len(board) != 2 || board[0].Username != "bob" || board[1].Username != "alice" {
			t.Errorf("leaderboard = %+v", board)
		}

		if code := env.do(t, "GET", "/api/user/points/missing", "", nil, nil); code != http.StatusNotFound {
			t.Errorf("missing user status = %d, want 404", code)
		}
	})
}

func TestTasks(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	_, token := env.register(t, "alice", "pw")

	if code := env.do(t, "GET", "/api/tasks", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", code)
	}

	var empty []model.Task
	env.do(t, "GET", "/api/tasks", token, nil, &empty)
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty list = %v, want []", empty)
	}

	var created model.Task
	code := env.do(t, "POST", "/api/tasks", token, createTaskRequest{Title: "Two Sum", Description: "add"}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.UUID == "" || created.Title != "Two Sum" || created.Results == nil {
		t.Errorf("created = %+v", created)
	}

	if code := env.do(t, "POST", "/api/tasks", token, createTaskRequest{Title: "Two Sum"}, nil); code != http.StatusBadRequest {
		t.Errorf("duplicate title status = %d, want 400", code)
	}
	if code := env.do(t, "POST", "/api/tasks", token, createTaskRequest{}, nil); code != http.StatusBadRequest {
		t.Errorf("empty title status = %d, want 400", code)
	}

	env.store.AppendResult(context.Background(), created.UUID, model.Result{"w", "l"})

	var got model.Task
	if code := env.do(t, "GET", "/api/tasks/"+created.UUID, token, nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if len(got.Results) != 1 || got.Results[0] != (model.Result{"w", "l"}) {
		t.Errorf("results = %v", got.Results)
	}

	if code := env.do(t, "GET", "/api/tasks/missing", token, nil, nil); code != http.StatusNotFound {
		t.Errorf("missing task status = %d, want 404", code)
	}
}

func wsURL(env *testEnv, query string) string {
	return "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws" + query
}

func readEvent(t *testing.T, conn *websocket.Conn) session.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ev, err := session.DecodeEvent(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestWebsocket_Pairs(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(env, "?taskId=two-sum"), nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	a := dial()
	aConnect := readEvent(t, a)
	aID, _ := aConnect.StringData()
	if aConnect.Event != session.EventConnect || aID == "" {
		t.Fatalf("first event = %+v", aConnect)
	}

	b := dial()
	bConnect := readEvent(t, b)
	bID, _ := bConnect.StringData()

	if ev := readEvent(t, b); ev.Event != session.EventPair {
		t.Fatalf("b event = %q, want pair", ev.Event)
	} else if peer, _ := ev.StringData(); peer != aID {
		t.Errorf("b peer = %q, want %q", peer, aID)
	}
	if ev := readEvent(t, a); ev.Event != session.EventPair {
		t.Fatalf("a event = %q, want pair", ev.Event)
	} else if peer, _ := ev.StringData(); peer != bID {
		t.Errorf("a peer = %q, want %q", peer, bID)
	}

	if st := env.coord.Stats(); st.Connections != 2 || st.Waiting != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestWebsocket_RejectsBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RequireKnownTask = true }, nil)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing task", "", http.StatusBadRequest},
		{"unknown task", "?taskId=nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(env, tt.query), nil)
			if err == nil {
				t.Fatal("expected dial to fail")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response = %v, want status %d", resp, tt.status)
			}
		})
	}

	if err := env.store.CreateTask(context.Background(), model.Task{UUID: "known", Title: "Known"}); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env, "?taskId=known"), nil)
	if err != nil {
		t.Fatalf("dial known task: %v", err)
	}
	defer conn.Close()
	if ev := readEvent(t, conn); ev.Event != session.EventConnect {
		t.Errorf("event = %q, want connect", ev.Event)
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	var health healthResponse
	if code := env.do(t, "GET", "/health", "", nil, &health); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if health.Status != "healthy" || health.Components["storage"] != "connected" {
		t.Errorf("health = %+v", health)
	}
	pairingStats, ok := health.Components["pairing"].(map[string]any)
	if !ok || pairingStats["connections"] != float64(0) {
		t.Errorf("pairing = %v", health.Components["pairing"])
	}

	down := newTestEnv(t, nil, failingStore{memory.New()})
	if code := down.do(t, "GET", "/health", "", nil, &health); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if health.Status != "unhealthy" {
		t.Errorf("status = %q, want unhealthy", health.Status)
	}
}
