// Package buffer provides an unbounded, order-preserving FIFO used wherever a
// producer must never block on a slow consumer: per-connection pairing
// notifications and the downstream score recorder.
package buffer
