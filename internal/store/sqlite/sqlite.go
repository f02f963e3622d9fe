// Package sqlite is an embedded store backend built on zombiezen.com/go/sqlite.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	uuid     TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	avatar   TEXT NOT NULL DEFAULT '',
	hash     TEXT NOT NULL DEFAULT '',
	points   INTEGER NOT NULL DEFAULT 0,
	conn_id  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_users_conn ON users(conn_id);

CREATE TABLE IF NOT EXISTS tasks (
	uuid        TEXT PRIMARY KEY,
	title       TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS task_results (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_uuid TEXT NOT NULL,
	winner    TEXT NOT NULL,
	loser     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_results_task ON task_results(task_uuid, id);
`

const userColumns = `uuid, username, avatar, hash, points, conn_id`

// Config holds the parameters for opening the database.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4.
	PoolSize int

	Logger *slog.Logger
}

// Store is a store.Store backed by a pool of SQLite connections.
type Store struct {
	pool   *sqlitex.Pool
	path   string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path and applies
// the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", cfg.Path, err)
	}

	s := &Store{pool: pool, path: cfg.Path, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("sqlite store opened", "path", cfg.Path, "pool_size", poolSize)
	return s, nil
}

// prepareConnection applies per-connection pragmas on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite store: applying schema: %w", err)
	}
	return nil
}

// Close closes every connection. Blocks until borrowed connections return.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	s.logger.Info("sqlite store closed", "path", s.path)
	return nil
}

// Ping borrows and returns a connection.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: ping: %w", err)
	}
	defer s.pool.Put(conn)
	return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
}

// withConn runs fn on a pooled connection.
func (s *Store) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// withTx runs fn inside an IMMEDIATE transaction. The transaction rolls
// back if fn returns an error.
func (s *Store) withTx(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("sqlite store: begin transaction: %w", err)
		}
		defer endTransaction(&err)
		return fn(conn)
	})
}

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{u.UUID, u.Username, u.Avatar, u.Hash, u.Points, u.ConnID}},
		)
		return translate(err)
	})
}

func (s *Store) User(ctx context.Context, uuid string) (model.User, error) {
	return s.userWhere(ctx, "uuid = ?", uuid)
}

func (s *Store) UserByName(ctx context.Context, username string) (model.User, error) {
	return s.userWhere(ctx, "username = ?", username)
}

func (s *Store) UserByConn(ctx context.Context, connID string) (model.User, error) {
	if connID == "" {
		return model.User{}, store.ErrNotFound
	}
	return s.userWhere(ctx, "conn_id = ?", connID)
}

func (s *Store) UpdateUser(ctx context.Context, uuid string, upd store.UserUpdate) (model.User, error) {
	var u model.User
	err := s.withTx(ctx, func(conn *sqlite.Conn) error {
		var err error
		if u, err = queryUser(conn, "uuid = ?", uuid); err != nil {
			return err
		}
		upd.Apply(&u)
		err = sqlitex.Execute(conn,
			`UPDATE users SET username = ?, avatar = ?, conn_id = ? WHERE uuid = ?`,
			&sqlitex.ExecOptions{Args: []any{u.Username, u.Avatar, u.ConnID, uuid}},
		)
		return translate(err)
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *Store) AddPoints(ctx context.Context, uuid string, delta int) (model.User, error) {
	var u model.User
	err := s.withTx(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`UPDATE users SET points = points + ? WHERE uuid = ?`,
			&sqlitex.ExecOptions{Args: []any{delta, uuid}},
		)
		if err != nil {
			return translate(err)
		}
		if conn.Changes() == 0 {
			return store.ErrNotFound
		}
		u, err = queryUser(conn, "uuid = ?", uuid)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *Store) Leaderboard(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+userColumns+` FROM users ORDER BY points DESC, username ASC`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					users = append(users, scanUser(stmt))
					return nil
				},
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: leaderboard: %w", err)
	}
	return users, nil
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO tasks (uuid, title, description) VALUES (?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{t.UUID, t.Title, t.Description}},
		)
		if err != nil {
			return translate(err)
		}
		for _, r := range t.Results {
			if err := insertResult(conn, t.UUID, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Task(ctx context.Context, uuid string) (model.Task, error) {
	var task model.Task
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		found := false
		err := sqlitex.Execute(conn,
			`SELECT uuid, title, description FROM tasks WHERE uuid = ?`,
			&sqlitex.ExecOptions{
				Args: []any{uuid},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					task = scanTask(stmt)
					found = true
					return nil
				},
			},
		)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}

		results, err := queryResults(conn, uuid)
		task.Results = results[uuid]
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *Store) Tasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`SELECT uuid, title, description FROM tasks ORDER BY title`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					tasks = append(tasks, scanTask(stmt))
					return nil
				},
			},
		)
		if err != nil {
			return err
		}

		results, err := queryResults(conn, "")
		for i := range tasks {
			tasks[i].Results = results[tasks[i].UUID]
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) AppendResult(ctx context.Context, taskUUID string, r model.Result) error {
	return s.withTx(ctx, func(conn *sqlite.Conn) error {
		exists := false
		err := sqlitex.Execute(conn,
			`SELECT 1 FROM tasks WHERE uuid = ?`,
			&sqlitex.ExecOptions{
				Args:       []any{taskUUID},
				ResultFunc: func(*sqlite.Stmt) error { exists = true; return nil },
			},
		)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return insertResult(conn, taskUUID, r)
	})
}

func (s *Store) userWhere(ctx context.Context, where string, arg any) (model.User, error) {
	var u model.User
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		u, err = queryUser(conn, where, arg)
		return err
	})
	return u, err
}

func queryUser(conn *sqlite.Conn, where string, arg any) (model.User, error) {
	var u model.User
	found := false
	err := sqlitex.Execute(conn,
		`SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				u = scanUser(stmt)
				found = true
				return nil
			},
		},
	)
	if err != nil {
		return model.User{}, fmt.Errorf("sqlite store: query user: %w", err)
	}
	if !found {
		return model.User{}, store.ErrNotFound
	}
	return u, nil
}

// queryResults returns results grouped by task, in insertion order. An
// empty taskUUID selects every task.
func queryResults(conn *sqlite.Conn, taskUUID string) (map[string][]model.Result, error) {
	query := `SELECT task_uuid, winner, loser FROM task_results ORDER BY id`
	var args []any
	if taskUUID != "" {
		query = `SELECT task_uuid, winner, loser FROM task_results WHERE task_uuid = ? ORDER BY id`
		args = []any{taskUUID}
	}

	out := make(map[string][]model.Result)
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			task := stmt.ColumnText(0)
			out[task] = append(out[task], model.Result{stmt.ColumnText(1), stmt.ColumnText(2)})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query results: %w", err)
	}
	return out, nil
}

func insertResult(conn *sqlite.Conn, taskUUID string, r model.Result) error {
	err := sqlitex.Execute(conn,
		`INSERT INTO task_results (task_uuid, winner, loser) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{taskUUID, r.Winner(), r.Loser()}},
	)
	if err != nil {
		return fmt.Errorf("sqlite store: insert result: %w", err)
	}
	return nil
}

func scanUser(stmt *sqlite.Stmt) model.User {
	return model.User{
		UUID:     stmt.ColumnText(0),
		Username: stmt.ColumnText(1),
		Avatar:   stmt.ColumnText(2),
		Hash:     stmt.ColumnText(3),
		Points:   stmt.ColumnInt(4),
		ConnID:   stmt.ColumnText(5),
	}
}

func scanTask(stmt *sqlite.Stmt) model.Task {
	return model.Task{
		UUID:        stmt.ColumnText(0),
		Title:       stmt.ColumnText(1),
		Description: stmt.ColumnText(2),
	}
}

// translate maps constraint violations to store.ErrAlreadyExists.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch sqlite.ErrCode(err) {
	case sqlite.ResultConstraintUnique, sqlite.ResultConstraintPrimaryKey:
		return store.ErrAlreadyExists
	}
	return fmt.Errorf("sqlite store: %w", err)
}
