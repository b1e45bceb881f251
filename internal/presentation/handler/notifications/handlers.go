package notifications

import (
	"net/http"

	"github.com/hilthontt/civicreport/internal/infrastructure/json"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/ws"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
)

type Handler struct {
	core   *ws.NotificationCore
	logger logging.Logger
}

func NewHandler(core *ws.NotificationCore, logger logging.Logger) *Handler {
	return &Handler{core: core, logger: logger}
}

// ConnectHandler godoc
// @Summary      Personal notification stream
// @Description  Upgrades to a websocket that receives notification frames addressed to the caller (assignments, status changes, overdue alerts).
// @Tags         notifications
// @Param        token query string false "Bearer token for clients that cannot set headers"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} json.ErrorResponse
// @Failure      503 {object} json.ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/ws [get]
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFrom(r.Context())
	if session == nil {
		json.WriteUnauthorizedError(w, "Missing or invalid authentication")
		return
	}

	conn, err := h.core.Upgrade(w, r)
	if err != nil {
		h.logger.Warn(logging.Realtime, logging.Subscription, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.UserID:       session.UserID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewNotificationClient(conn, session.UserID)
	if !h.core.Add(client) {
		conn.Close()
		return
	}

	go client.WriteMessage()
	client.ReadMessage(h.core)
}
