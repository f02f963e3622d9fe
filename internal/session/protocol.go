package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound and outbound event names.
const (
	EventConnect    = "connect"
	EventPair       = "pair"
	EventReady      = "ready"
	EventRetry      = "retry"
	EventPush       = "push"
	EventPull       = "pull"
	EventAttempt    = "attempt"
	EventWin        = "win"
	EventLose       = "lose"
	EventDecline    = "decline"
	EventDisconnect = "disconnect"
)

// ErrMalformedEvent is returned for frames that are not a JSON event object.
var ErrMalformedEvent = errors.New("malformed event")

// Event is the JSON frame exchanged with clients: {"event": "...", "data": ...}.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEvent builds an event with a JSON-encoded payload. A nil payload is
// sent as null.
func NewEvent(name string, payload any) Event {
	if payload == nil {
		return Event{Event: name}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Event: name}
	}
	return Event{Event: name, Data: data}
}

// MarshalJSON writes an absent payload as "data": null.
func (e Event) MarshalJSON() ([]byte, error) {
	data := e.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return json.Marshal(struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}{e.Event, data})
}

// DecodeEvent parses one inbound frame.
func DecodeEvent(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformedEvent)
	}
	if string(ev.Data) == "null" {
		ev.Data = nil
	}
	return ev, nil
}

// StringData decodes a string payload such as a connection id.
func (e Event) StringData() (string, bool) {
	var s string
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &s) != nil {
		return "", false
	}
	return s, true
}
