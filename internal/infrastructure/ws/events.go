package ws

// Frame types written to websocket clients.
const (
	ViewSnapshot = "view.snapshot"
	Notification = "notification"
)

type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
