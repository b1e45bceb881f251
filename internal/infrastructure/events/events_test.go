package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/contracts"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]domain.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: map[string][]domain.Notification{}}
}

func (n *recordingNotifier) NotifyUser(userID string, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = append(n.sent[userID], msg)
}

var occurred = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func sampleReport(t *testing.T) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(domain.NewReportParams{
		ReporterID:  "citizen-1",
		IssueType:   domain.IssueWater,
		Description: "Burst pipe",
		AssignedTo:  domain.StringPtr("sup-water"),
	})
	require.NoError(t, err)
	r.CreatedAt = occurred.Add(-50 * time.Hour)
	return r
}

func statusEvent(t *testing.T) domain.ReportEvent {
	r := sampleReport(t)
	r.AssignedToWorker = domain.StringPtr("worker-water")
	r.StatusHistory = []domain.HistoryEntry{
		domain.NewStatusEntry(domain.StatusAcknowledged, "sup-water", occurred.Add(-time.Hour), ""),
		domain.NewStatusEntry(domain.StatusInProgress, "sup-water", occurred, ""),
	}
	r.Status = domain.StatusInProgress
	entry := r.StatusHistory[1]
	ev := domain.NewReportEvent(domain.EventReportStatusChanged, "sup-water", r, &entry)
	ev.OccurredAt = occurred
	return ev
}

func TestActivityRecorder(t *testing.T) {
	store := memory.NewActivityStore()
	rec := NewActivityRecorder(store)
	ctx := context.Background()

	require.NoError(t, rec.Handle(ctx, statusEvent(t)))

	overdue := domain.NewReportEvent(domain.EventReportOverdue, "", sampleReport(t), nil)
	overdue.OccurredAt = occurred
	require.NoError(t, rec.Handle(ctx, overdue))

	require.NoError(t, rec.Handle(ctx, domain.ReportEvent{Type: "report.unknown", ReportID: "x"}))

	logs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	byType := map[domain.ActivityType]domain.ActivityLog{}
	for _, l := range logs {
		byType[l.EventType] = l
	}

	status := byType[domain.ActivityStatusChanged]
	assert.Equal(t, "sup-water", status.ActorID)
	assert.Equal(t, "acknowledged", status.Metadata["from"])
	assert.Equal(t, "in_progress", status.Metadata["to"])
	assert.Equal(t, occurred, status.Timestamp)

	assert.Equal(t, 50.0, byType[domain.ActivityReportOverdue].Metadata["age_hours"])
}

func TestPreviousStatus(t *testing.T) {
	assert.Equal(t, domain.Status(""), previousStatus(nil))

	r := sampleReport(t)
	r.StatusHistory = []domain.HistoryEntry{
		domain.NewStatusEntry(domain.StatusResolved, "sup", occurred, ""),
		domain.NewNoteEntry("sup", occurred, "done"),
	}
	assert.Equal(t, domain.StatusSubmitted, previousStatus(r))
}

func TestNotificationDispatcher(t *testing.T) {
	n := newRecordingNotifier()
	d := NewNotificationDispatcher(n)

	require.NoError(t, d.Handle(context.Background(), statusEvent(t)))

	require.Len(t, n.sent["citizen-1"], 1)
	assert.Equal(t, "Water / Drainage is now in progress", n.sent["citizen-1"][0].Message)
	require.Len(t, n.sent["worker-water"], 1)
	assert.Empty(t, n.sent["sup-water"], "actor is not notified")

	submitted := domain.NewReportEvent(domain.EventReportSubmitted, "citizen-1", sampleReport(t), nil)
	require.NoError(t, d.Handle(context.Background(), submitted))
	require.Len(t, n.sent["sup-water"], 1)
	assert.Equal(t, domain.EventReportSubmitted, n.sent["sup-water"][0].Type)
}

type failingHandler struct{ err error }

func (h failingHandler) Handle(ctx context.Context, ev domain.ReportEvent) error { return h.err }

func TestLocalPublisher(t *testing.T) {
	store := memory.NewActivityStore()
	boom := errors.New("boom")
	p := NewLocalPublisher(nil, failingHandler{err: boom}, NewActivityRecorder(store))

	ev := domain.NewReportEvent(domain.EventReportSubmitted, "citizen-1", sampleReport(t), nil)
	err := p.Publish(context.Background(), ev)
	assert.ErrorIs(t, err, boom)

	logs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1, "later handlers still run")
	assert.Equal(t, domain.ActivityReportCreated, logs[0].EventType)
}

func TestDecodeEnvelope(t *testing.T) {
	ev := statusEvent(t)
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	body, err := json.Marshal(contracts.AmqpMessage{ActorID: ev.ActorID, ReportID: ev.ReportID, Data: data})
	require.NoError(t, err)

	got, err := decode(body)
	require.NoError(t, err)
	assert.Equal(t, ev.Type, got.Type)
	assert.Equal(t, ev.ReportID, got.ReportID)
	require.NotNil(t, got.Entry)
	assert.Equal(t, domain.StatusInProgress, got.Entry.Status)

	_, err = decode([]byte("{"))
	assert.Error(t, err)
}
