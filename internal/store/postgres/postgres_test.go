package postgres

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/peerlink/internal/store"
)

func ptr(s string) *string { return &s }

func TestUpdateUserQuery(t *testing.T) {
	tests := []struct {
		name      string
		upd       store.UserUpdate
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "no fields",
			upd:       store.UserUpdate{},
			wantQuery: `SELECT uuid, username, avatar, hash, points, conn_id FROM users WHERE uuid = $1`,
			wantArgs:  []any{"u1"},
		},
		{
			name:      "avatar only",
			upd:       store.UserUpdate{Avatar: ptr("a.png")},
			wantQuery: `UPDATE users SET avatar = $2 WHERE uuid = $1 RETURNING uuid, username, avatar, hash, points, conn_id`,
			wantArgs:  []any{"u1", "a.png"},
		},
		{
			name:      "all fields",
			upd:       store.UserUpdate{Username: ptr("bob"), Avatar: ptr("b.png"), ConnID: ptr("c9")},
			wantQuery: `UPDATE users SET username = $2, avatar = $3, conn_id = $4 WHERE uuid = $1 RETURNING uuid, username, avatar, hash, points, conn_id`,
			wantArgs:  []any{"u1", "bob", "b.png", "c9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := UpdateUserQuery("u1", tt.upd)
			if query != tt.wantQuery {
				t.Errorf("query = %q\nwant    %q", query, tt.wantQuery)
			}
			if !slices.Equal(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, store.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Errorf("translate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	other := &pgconn.PgError{Code: "42P01"}
	if got := translate(other); got != error(other) {
		t.Errorf("translate(other) = %v, want passthrough", got)
	}
}
