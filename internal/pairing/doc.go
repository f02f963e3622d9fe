// Package pairing implements the Connection Pairing Engine.
//
// The engine:
//   - Keeps a FIFO waiting queue per task (Queue / Lane)
//   - Tracks every live connection's State in a Table, with one ordered
//     notification Stream per connection
//   - Pairs a newly waiting connection with the oldest waiting one
//     (Coordinator), and unwinds pairings on Decline and Disconnect
//
// All mutations for one task run inside that task's lane lock, so a reader
// never observes a connection dequeued without its peer assigned. Different
// tasks share no lock beyond the Table's map guard.
package pairing
