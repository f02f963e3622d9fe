package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/peerlink/internal/buffer"
)

// WSTransport adapts an upgraded gorilla websocket to Transport. A single
// write goroutine owns data frames; pings go through WriteControl, which is
// safe to call concurrently.
type WSTransport struct {
	conn   *websocket.Conn
	cfg    Config
	logger *slog.Logger

	out       *buffer.GrowableBuffer[[]byte]
	closeOnce sync.Once
	done      chan struct{}
}

// NewWSTransport wraps conn and starts its write loop.
func NewWSTransport(conn *websocket.Conn, cfg Config, logger *slog.Logger) *WSTransport {
	if logger == nil {
		logger = slog.Default()
	}

	t := &WSTransport{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		out:    buffer.NewGrowableBuffer[[]byte](cfg.SendBuffer),
		done:   make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

// Send queues an event for delivery.
func (t *WSTransport) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if !t.out.Send(data) {
		return ErrSessionClosed
	}
	return nil
}

// Ping writes a ping control frame.
func (t *WSTransport) Ping() error {
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.cfg.WriteTimeout))
}

// Close flushes queued frames, sends a close frame and closes the socket.
// Safe to call multiple times and from any goroutine.
func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		t.out.Close()
	})
	return nil
}

// Done is closed once the socket has been closed.
func (t *WSTransport) Done() <-chan struct{} {
	return t.done
}

// Serve runs the read loop until the client goes away or Close is called.
// Every text or binary frame is passed to onFrame; every pong to onPong.
// A normal close returns nil.
func (t *WSTransport) Serve(onFrame func([]byte), onPong func()) error {
	if t.cfg.ReadLimit > 0 {
		t.conn.SetReadLimit(t.cfg.ReadLimit)
	}
	t.conn.SetPongHandler(func(string) error {
		onPong()
		return nil
	})

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			select {
			case <-t.done:
				return nil
			default:
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		onFrame(data)
	}
}

// writeLoop drains the outbound queue until it is closed, then closes the socket.
func (t *WSTransport) writeLoop() {
	defer close(t.done)
	defer t.conn.Close()

	for {
		data, ok := t.out.Receive()
		if !ok {
			break
		}

		t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
		if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			t.logger.Debug("websocket write failed", "error", err)
			t.out.Close()
			t.out.DrainTo(0) // drop what is still queued
			break
		}
	}

	t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}
