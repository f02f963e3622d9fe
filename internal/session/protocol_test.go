package session

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantName string
		wantData string
		wantErr  bool
	}{
		{"no data", `{"event":"ready"}`, "ready", "", false},
		{"null data", `{"event":"ready","data":null}`, "ready", "", false},
		{"object data", `{"event":"push","data":{"a":1}}`, "push", `{"a":1}`, false},
		{"string data", `{"event":"pair","data":"B"}`, "pair", `"B"`, false},
		{"missing name", `{"data":1}`, "", "", true},
		{"not json", `hello`, "", "", true},
		{"array", `[1,2]`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.frame))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEvent) {
					t.Fatalf("err = %v, want ErrMalformedEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Event != tt.wantName {
				t.Errorf("Event = %q, want %q", ev.Event, tt.wantName)
			}
			if string(ev.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", ev.Data, tt.wantData)
			}
		})
	}
}

func TestEventMarshal(t *testing.T) {
	data, err := json.Marshal(NewEvent(EventDisconnect, nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"event":"disconnect","data":null}` {
		t.Errorf("got %s", data)
	}

	data, err = json.Marshal(NewEvent(EventConnect, "abc"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"event":"connect","data":"abc"}` {
		t.Errorf("got %s", data)
	}
}

func TestStringData(t *testing.T) {
	if s, ok := NewEvent(EventPair, "X").StringData(); !ok || s != "X" {
		t.Errorf("StringData = (%q, %v)", s, ok)
	}
	if _, ok := NewEvent(EventPair, nil).StringData(); ok {
		t.Error("StringData on empty payload should fail")
	}
	if _, ok := NewEvent(EventPush, map[string]int{"a": 1}).StringData(); ok {
		t.Error("StringData on object payload should fail")
	}
}
