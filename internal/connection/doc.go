// Package connection is a websocket client for the pairing protocol.
//
// A Client dials the broker for one task, announces itself with the
// connection id the broker assigns, and delivers every inbound event on a
// channel. It answers server pings and reports a stale connection when the
// broker stops pinging for longer than PingTimeout.
package connection
