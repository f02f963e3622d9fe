// Package session binds client transports to pairing connections.
//
// A Binder turns each accepted websocket into a Session: it registers the
// connection with the pairing Coordinator, pumps the connection's state
// stream out as `connect`/`pair`/`disconnect` events, and relays the peer
// signaling events (`ready`, `push`→`pull`, `attempt`, `win`→`lose`) to
// whichever session currently holds the peer id.
//
// The Monitor sweeps all bound sessions on a fixed interval. A session that
// has not answered the previous sweep's ping is evicted exactly like a
// client disconnect.
package session
