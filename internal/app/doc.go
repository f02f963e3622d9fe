// Package app assembles the broker from configuration and runs it.
//
// New opens the configured store and builds the pairing engine, the
// session binder, the liveness monitor, the score recorder, and the HTTP
// server. Run serves until its context ends, then shuts the parts down in
// reverse order.
package app
