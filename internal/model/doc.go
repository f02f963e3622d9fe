// Package model defines the records shared by the storage, scoring and
// HTTP layers of the broker.
//
// Conventions:
//   - IDs: UUID strings for users and tasks, opaque strings for connections
//   - Points: non-negative integers
//   - Task results: ordered [winner, loser] user UUID pairs
package model
