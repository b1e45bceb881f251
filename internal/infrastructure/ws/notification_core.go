package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
)

// NotificationCore keeps the notification sockets of every connected
// user. A user may be connected from several devices at once.
type NotificationCore struct {
	clients    map[string]map[*NotificationClient]struct{}
	register   chan *NotificationClient
	unregister chan *NotificationClient
	stopped    chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

var _ domain.Notifier = (*NotificationCore)(nil)

func NewNotificationCore(logger logging.Logger, checkOrigin func(r *http.Request) bool) *NotificationCore {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &NotificationCore{
		clients:    make(map[string]map[*NotificationClient]struct{}),
		register:   make(chan *NotificationClient),
		unregister: make(chan *NotificationClient),
		stopped:    make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (nc *NotificationCore) Run(ctx context.Context) {
	defer nc.cleanup()

	for {
		select {
		case <-ctx.Done():
			nc.logger.Info(logging.Realtime, logging.Shutdown, "notification core shutting down", nil)
			return

		case client := <-nc.register:
			nc.mu.Lock()
			set, ok := nc.clients[client.UserID]
			if !ok {
				set = make(map[*NotificationClient]struct{})
				nc.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			nc.mu.Unlock()
			nc.logger.Debug(logging.Realtime, logging.Subscription, "user registered for notifications", map[logging.ExtraKey]any{
				logging.UserID: client.UserID,
			})

		case client := <-nc.unregister:
			nc.mu.Lock()
			if set, ok := nc.clients[client.UserID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					close(client.send)
				}
				if len(set) == 0 {
					delete(nc.clients, client.UserID)
				}
			}
			nc.mu.Unlock()
		}
	}
}

// NotifyUser never blocks: a client whose buffer is full misses the
// message.
func (nc *NotificationCore) NotifyUser(userID string, n domain.Notification) {
	nc.mu.RLock()
	defer nc.mu.RUnlock()

	for client := range nc.clients[userID] {
		select {
		case client.send <- n:
		default:
			nc.logger.Warn(logging.Realtime, logging.Publish, "notification dropped, client buffer full", map[logging.ExtraKey]any{
				logging.UserID: userID,
			})
		}
	}
}

// Connected reports how many sockets userID has open.
func (nc *NotificationCore) Connected(userID string) int {
	nc.mu.RLock()
	defer nc.mu.RUnlock()
	return len(nc.clients[userID])
}

func (nc *NotificationCore) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return nc.upgrader.Upgrade(w, r, nil)
}

// Add registers client. It returns false once the core has stopped.
func (nc *NotificationCore) Add(client *NotificationClient) bool {
	select {
	case nc.register <- client:
		return true
	case <-nc.stopped:
		return false
	}
}

func (nc *NotificationCore) remove(client *NotificationClient) {
	select {
	case nc.unregister <- client:
	case <-nc.stopped:
	}
}

func (nc *NotificationCore) cleanup() {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	for _, set := range nc.clients {
		for client := range set {
			close(client.send)
		}
	}
	nc.clients = make(map[string]map[*NotificationClient]struct{})
	close(nc.stopped)
}
