package connection

import (
	"context"

	"github.com/rickgao/peerlink/internal/session"
)

// Ready tells the peer this side is ready to start.
func Ready(c Client) error { return c.Send(session.NewEvent(session.EventReady, nil)) }

// Retry asks the broker for a new pairing attempt.
func Retry(c Client) error { return c.Send(session.NewEvent(session.EventRetry, nil)) }

// Push sends a payload the peer receives as pull.
func Push(c Client, payload any) error { return c.Send(session.NewEvent(session.EventPush, payload)) }

// Attempt tells the peer this side made an attempt.
func Attempt(c Client) error { return c.Send(session.NewEvent(session.EventAttempt, nil)) }

// Win claims the match. The peer receives lose.
func Win(c Client) error { return c.Send(session.NewEvent(session.EventWin, nil)) }

// Decline leaves the current pairing.
func Decline(c Client) error { return c.Send(session.NewEvent(session.EventDecline, nil)) }

// WaitFor blocks until an event with the given name arrives, skipping
// others. It fails when ctx ends or the connection closes.
func WaitFor(ctx context.Context, c Client, name string) (session.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return session.Event{}, ctx.Err()
		case err := <-c.Errors():
			return session.Event{}, err
		case ev, ok := <-c.Events():
			if !ok {
				return session.Event{}, ErrNotConnected
			}
			if ev.Event == name {
				return ev, nil
			}
		}
	}
}
