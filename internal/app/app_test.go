package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/peerlink/internal/api"
	"github.com/rickgao/peerlink/internal/config"
	"github.com/rickgao/peerlink/internal/connection"
	"github.com/rickgao/peerlink/internal/session"
	"github.com/rickgao/peerlink/internal/store/memory"
	"github.com/rickgao/peerlink/internal/store/sqlite"
)

func testConfig() *config.BrokerConfig {
	cfg := config.Default()
	cfg.Instance.ID = "test"
	cfg.Auth.JWTSecret = "secret"
	cfg.Liveness.SweepInterval = time.Hour
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
		check   func(string) bool
	}{
		{"text", config.LogConfig{Level: "info", Format: "text"}, false, func(s string) bool {
			return strings.Contains(s, "msg=hello")
		}},
		{"json", config.LogConfig{Level: "info", Format: "json"}, false, func(s string) bool {
			return strings.Contains(s, `"msg":"hello"`)
		}},
		{"level filters", config.LogConfig{Level: "error"}, false, func(s string) bool {
			return s == ""
		}},
		{"bad format", config.LogConfig{Format: "xml"}, true, nil},
		{"bad level", config.LogConfig{Level: "loud"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(tt.cfg, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			logger.Info("hello")
			if !tt.check(buf.String()) {
				t.Errorf("output = %q", buf.String())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("memory", func(t *testing.T) {
		st, err := OpenStore(ctx, config.StorageConfig{Backend: config.BackendMemory}, logger)
		if err != nil {
			t.Fatalf("OpenStore() error = %v", err)
		}
		defer st.Close()
		if _, ok := st.(*memory.Store); !ok {
			t.Errorf("store = %T, want *memory.Store", st)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.StorageConfig{
			Backend: config.BackendSQLite,
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "p.db"), PoolSize: 2},
		}
		st, err := OpenStore(ctx, cfg, logger)
		if err != nil {
			t.Fatalf("OpenStore() error = %v", err)
		}
		defer st.Close()
		if _, ok := st.(*sqlite.Store); !ok {
			t.Errorf("store = %T, want *sqlite.Store", st)
		}
		if err := st.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenStore(ctx, config.StorageConfig{Backend: "redis"}, logger)
		if err == nil || !strings.Contains(err.Error(), "redis") {
			t.Errorf("OpenStore() error = %v, want unknown backend", err)
		}
	})
}

func TestNew_RequiresAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	if _, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("expected error without token key")
	}
}

func TestRun_BadAddr(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Addr = "not-an-addr"
	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}

// startBroker serves a memory-backed broker on a loopback port.
func startBroker(t *testing.T) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	a, err := New(context.Background(), testConfig(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Serve(ctx, ln) }()

	return ln.Addr().String(), cancel, errCh
}

func TestServe_Health(t *testing.T) {
	addr, cancel, errCh := startBroker(t)

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, body %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

// player is one registered user with a live pairing connection.
type player struct {
	rest *api.Client
	conn connection.Client
}

func newPlayer(t *testing.T, ctx context.Context, addr, name, task string) *player {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	rest := api.NewClient("http://"+addr+"/api", api.WithLogger(logger))
	if _, err := rest.Register(ctx, api.Credentials{Username: name, Password: "pw-" + name}); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	if _, err := rest.Login(ctx, name, "pw-"+name); err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return &player{rest: rest, conn: connection.NewClient(connection.ClientConfig{
		URL:          "ws://" + addr + "/ws",
		Task:         task,
		PingTimeout:  time.Minute,
		WriteTimeout: time.Second,
		BufferSize:   16,
	}, logger)}
}

func (p *player) join(t *testing.T, ctx context.Context) {
	t.Helper()
	if err := p.conn.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := connection.WaitFor(ctx, p.conn, session.EventConnect); err != nil {
		t.Fatalf("wait connect: %v", err)
	}
	if _, err := p.rest.BindConnection(ctx, p.conn.ID()); err != nil {
		t.Fatalf("bind connection: %v", err)
	}
}

func TestServe_MatchAwardsPoints(t *testing.T) {
	addr, cancel, errCh := startBroker(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	setup := api.NewClient("http://"+addr+"/api", api.WithLogger(slog.New(slog.DiscardHandler)))
	if _, err := setup.Register(ctx, api.Credentials{Username: "admin", Password: "pw"}); err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if _, err := setup.Login(ctx, "admin", "pw"); err != nil {
		t.Fatalf("login admin: %v", err)
	}
	task, err := setup.CreateTask(ctx, api.NewTask{Title: "fizzbuzz"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	ann := newPlayer(t, ctx, addr, "ann", task.UUID)
	bob := newPlayer(t, ctx, addr, "bob", task.UUID)
	defer ann.conn.Close()
	defer bob.conn.Close()

	ann.join(t, ctx)
	bob.join(t, ctx)

	for _, p := range []*player{ann, bob} {
		if _, err := connection.WaitFor(ctx, p.conn, session.EventPair); err != nil {
			t.Fatalf("wait pair: %v", err)
		}
	}

	if err := connection.Win(ann.conn); err != nil {
		t.Fatalf("win: %v", err)
	}
	if _, err := connection.WaitFor(ctx, bob.conn, session.EventLose); err != nil {
		t.Fatalf("wait lose: %v", err)
	}

	me, err := ann.rest.Me(ctx)
	if err != nil {
		t.Fatalf("me: %v", err)
	}

	// Scoring is asynchronous; the result is appended after the points.
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := setup.Task(ctx, task.UUID)
		if err != nil {
			t.Fatalf("task: %v", err)
		}
		if len(got.Results) == 1 {
			if got.Results[0].Winner() != me.UUID {
				t.Errorf("winner = %s, want %s", got.Results[0].Winner(), me.UUID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("results = %v, want one", got.Results)
		}
		time.Sleep(20 * time.Millisecond)
	}

	points, err := setup.Points(ctx, me.UUID)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if points != config.DefaultWinPoints {
		t.Errorf("points = %d, want %d", points, config.DefaultWinPoints)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
