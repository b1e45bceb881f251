package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func seeded(t *testing.T) *Handler {
	t.Helper()
	store := memory.NewActivityStore()
	ctx := context.Background()
	add := func(reportID string, kind domain.ActivityType, age time.Duration) {
		l := domain.NewActivityLog(reportID, "sup-roads", kind, nil)
		l.Timestamp = now.Add(-age)
		require.NoError(t, store.Log(ctx, l))
	}
	add("r1", domain.ActivityReportCreated, 3*time.Hour)
	add("r1", domain.ActivityStatusChanged, 2*time.Hour)
	add("r2", domain.ActivityStatusChanged, 10*24*time.Hour)
	add("r2", domain.ActivityNoteAdded, time.Hour)
	return NewHandler(store, logging.NewNopLogger(), func() time.Time { return now })
}

func get(t *testing.T, h *Handler, role domain.Role, query string) (*httptest.ResponseRecorder, activityResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/activity"+query, nil)
	req = req.WithContext(auth.WithSession(req.Context(), &domain.Session{UserID: "u", Role: role}))
	rec := httptest.NewRecorder()
	h.ListActivityHandler(rec, req)

	var resp activityResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	}
	return rec, resp
}

func TestListActivity(t *testing.T) {
	h := seeded(t)

	rec, resp := get(t, h, domain.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Activity, 4)
	assert.Equal(t, domain.ActivityNoteAdded, resp.Activity[0].EventType, "newest first")

	_, resp = get(t, h, domain.RoleAdmin, "?limit=2")
	assert.Len(t, resp.Activity, 2)

	_, resp = get(t, h, domain.RoleAdmin, "?reportId=r1")
	assert.Len(t, resp.Activity, 2)

	_, resp = get(t, h, domain.RoleAdmin, "?eventType=status_changed")
	require.Len(t, resp.Activity, 1, "default range is the last week")
	assert.Equal(t, "r1", resp.Activity[0].ReportID)

	_, resp = get(t, h, domain.RoleAdmin, "?eventType=status_changed&from=2026-06-01T00:00:00Z")
	assert.Len(t, resp.Activity, 2)
}

func TestListActivityRejects(t *testing.T) {
	h := seeded(t)

	rec, _ := get(t, h, domain.RoleSupervisor, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = get(t, h, domain.RoleAdmin, "?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, domain.RoleAdmin, "?eventType=note_added&from=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, h, domain.RoleAdmin, "?eventType=note_added&from=2026-07-02T00:00:00Z&to=2026-07-01T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
