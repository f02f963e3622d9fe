// Package api is a Go client for the broker's REST API.
//
// Reads are retried with jittered exponential backoff on 5xx and 429
// responses; writes are sent once. Endpoints that need a bearer token use
// the one set with WithToken or SetToken.
package api
