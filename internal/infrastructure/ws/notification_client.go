package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/civicreport/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type NotificationClient struct {
	conn   *connWrapper
	send   chan domain.Notification
	UserID string
}

func NewNotificationClient(conn *websocket.Conn, userID string) *NotificationClient {
	return &NotificationClient{
		conn:   newConnWrapper(conn),
		send:   make(chan domain.Notification, 64),
		UserID: userID,
	}
}

// ReadMessage only keeps the connection alive; clients do not send
// anything meaningful on this socket.
func (c *NotificationClient) ReadMessage(core *NotificationCore) {
	defer func() {
		core.remove(c)
		c.conn.Close()
	}()

	readUntilClosed(c.conn.conn)
}

func (c *NotificationClient) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(Frame{Type: Notification, Data: n}); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readUntilClosed(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
