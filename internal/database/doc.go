// Package database builds PostgreSQL connection pools for the postgres
// store backend.
package database
