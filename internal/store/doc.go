// Package store defines the persistence boundary for users and tasks.
//
// Backends live in subpackages:
//   - memory: process-local maps, the default for development and tests
//   - postgres: pgx connection pool
//   - mongo: MongoDB collections "users" and "tasks"
//   - sqlite: embedded database file via zombiezen.com/go/sqlite
//
// All backends return ErrNotFound for missing records and ErrAlreadyExists
// for username or task title collisions. storetest holds the conformance
// suite every backend runs.
package store
