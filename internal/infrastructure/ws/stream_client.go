package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

// StreamClient forwards every value of a channel to one socket as a
// frame of the given type. It stops when the channel closes or the peer
// goes away, calling onClose exactly once.
type StreamClient[T any] struct {
	conn      *connWrapper
	frameType string
	updates   <-chan T
	onClose   func()
	gone      chan struct{}
}

func NewStreamClient[T any](conn *websocket.Conn, frameType string, updates <-chan T, onClose func()) *StreamClient[T] {
	return &StreamClient[T]{
		conn:      newConnWrapper(conn),
		frameType: frameType,
		updates:   updates,
		onClose:   onClose,
		gone:      make(chan struct{}),
	}
}

// Serve blocks until the stream ends.
func (c *StreamClient[T]) Serve() {
	go func() {
		readUntilClosed(c.conn.conn)
		close(c.gone)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.onClose != nil {
			c.onClose()
		}
		c.conn.Close()
	}()

	for {
		select {
		case v, ok := <-c.updates:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(Frame{Type: c.frameType, Data: v}); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.gone:
			return
		}
	}
}
