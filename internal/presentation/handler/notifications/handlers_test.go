package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/ws"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndNotify(t *testing.T) {
	core := ws.NewNotificationCore(logging.NewNopLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	h := NewHandler(core, logging.NewNopLogger())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := &domain.Session{UserID: r.URL.Query().Get("user"), Role: domain.RoleCitizen}
		h.ConnectHandler(w, r.WithContext(auth.WithSession(r.Context(), session)))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=citizen-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return core.Connected("citizen-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	core.NotifyUser("citizen-2", domain.Notification{Message: "not for you"})
	core.NotifyUser("citizen-1", domain.Notification{Type: domain.EventReportStatusChanged, ReportID: "r1", Message: "Water / Drainage is now resolved"})

	var frame struct {
		Type string              `json:"type"`
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, ws.Notification, frame.Type)
	assert.Equal(t, "r1", frame.Data.ReportID)
	assert.Equal(t, "Water / Drainage is now resolved", frame.Data.Message)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return core.Connected("citizen-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
