// Package postgres is a store backend on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

// Schema creates the tables used by Store. Migrate applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	uuid     TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	avatar   TEXT NOT NULL DEFAULT '',
	hash     TEXT NOT NULL DEFAULT '',
	points   INTEGER NOT NULL DEFAULT 0,
	conn_id  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_users_conn ON users (conn_id);

CREATE TABLE IF NOT EXISTS tasks (
	uuid        TEXT PRIMARY KEY,
	title       TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS task_results (
	id        BIGSERIAL PRIMARY KEY,
	task_uuid TEXT NOT NULL REFERENCES tasks (uuid) ON DELETE CASCADE,
	winner    TEXT NOT NULL,
	loser     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_results_task ON task_results (task_uuid, id);
`

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const userColumns = `uuid, username, avatar, hash, points, conn_id`

// Store is a store.Store on PostgreSQL.
type Store struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool. The Store takes ownership and closes it on Close.
func New(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("postgres schema applied")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.UUID, u.Username, u.Avatar, u.Hash, u.Points, u.ConnID,
	)
	return translate(err)
}

func (s *Store) User(ctx context.Context, uuid string) (model.User, error) {
	return s.userWhere(ctx, "uuid = $1", uuid)
}

func (s *Store) UserByName(ctx context.Context, username string) (model.User, error) {
	return s.userWhere(ctx, "username = $1", username)
}

func (s *Store) UserByConn(ctx context.Context, connID string) (model.User, error) {
	if connID == "" {
		return model.User{}, store.ErrNotFound
	}
	return s.userWhere(ctx, "conn_id = $1", connID)
}

func (s *Store) UpdateUser(ctx context.Context, uuid string, upd store.UserUpdate) (model.User, error) {
	query, args := UpdateUserQuery(uuid, upd)
	row := s.db.QueryRow(ctx, query, args...)
	u, err := scanUser(row)
	if err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) AddPoints(ctx context.Context, uuid string, delta int) (model.User, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE users SET points = points + $1 WHERE uuid = $2 RETURNING `+userColumns,
		delta, uuid,
	)
	u, err := scanUser(row)
	if err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) Leaderboard(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY points DESC, username ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan leaderboard: %w", err)
	}
	return users, nil
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO tasks (uuid, title, description) VALUES ($1, $2, $3)`,
		t.UUID, t.Title, t.Description)
	for _, r := range t.Results {
		batch.Queue(`INSERT INTO task_results (task_uuid, winner, loser) VALUES ($1, $2, $3)`,
			t.UUID, r.Winner(), r.Loser())
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return translate(err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Task(ctx context.Context, uuid string) (model.Task, error) {
	var t model.Task
	err := s.db.QueryRow(ctx,
		`SELECT uuid, title, description FROM tasks WHERE uuid = $1`, uuid,
	).Scan(&t.UUID, &t.Title, &t.Description)
	if err != nil {
		return model.Task{}, translate(err)
	}

	results, err := s.results(ctx, `WHERE task_uuid = $1`, uuid)
	if err != nil {
		return model.Task{}, err
	}
	t.Results = results[uuid]
	return t, nil
}

func (s *Store) Tasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.Query(ctx, `SELECT uuid, title, description FROM tasks ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Task, error) {
		var t model.Task
		err := row.Scan(&t.UUID, &t.Title, &t.Description)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}

	results, err := s.results(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Results = results[tasks[i].UUID]
	}
	return tasks, nil
}

func (s *Store) AppendResult(ctx context.Context, taskUUID string, r model.Result) error {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO task_results (task_uuid, winner, loser)
		SELECT uuid, $2, $3 FROM tasks WHERE uuid = $1
	`, taskUUID, r.Winner(), r.Loser())
	if err != nil {
		return translate(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) userWhere(ctx context.Context, where string, arg any) (model.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, arg)
	u, err := scanUser(row)
	if err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

// results returns task results grouped by task in insertion order.
func (s *Store) results(ctx context.Context, where string, args ...any) (map[string][]model.Result, error) {
	rows, err := s.db.Query(ctx, `SELECT task_uuid, winner, loser FROM task_results `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Result)
	for rows.Next() {
		var task string
		var r model.Result
		if err := rows.Scan(&task, &r[0], &r[1]); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out[task] = append(out[task], r)
	}
	return out, rows.Err()
}

// UpdateUserQuery builds the UPDATE ... RETURNING statement for the set
// fields of upd. With no fields set it degenerates to a plain SELECT.
func UpdateUserQuery(uuid string, upd store.UserUpdate) (string, []any) {
	var sets []string
	args := []any{uuid}
	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("username", upd.Username)
	add("avatar", upd.Avatar)
	add("conn_id", upd.ConnID)

	if len(sets) == 0 {
		return `SELECT ` + userColumns + ` FROM users WHERE uuid = $1`, args
	}

	query := `UPDATE users SET `
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	return query + ` WHERE uuid = $1 RETURNING ` + userColumns, args
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.UUID, &u.Username, &u.Avatar, &u.Hash, &u.Points, &u.ConnID)
	return u, err
}

// translate maps pgx errors to store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrAlreadyExists
	}
	return err
}
