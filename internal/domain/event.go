package domain

import (
	"context"
	"time"
)

// Routing keys of report lifecycle events.
const (
	EventReportSubmitted      = "report.submitted"
	EventReportStatusChanged  = "report.status_changed"
	EventReportAssigned       = "report.assigned"
	EventReportWorkerAssigned = "report.worker_assigned"
	EventReportClassified     = "report.classified"
	EventReportNoteAdded      = "report.note_added"
	EventReportOverdue        = "report.overdue"
)

type ReportEvent struct {
	Type       string        `json:"type"`
	ReportID   string        `json:"reportId"`
	ActorID    string        `json:"actorId,omitempty"`
	Report     *Report       `json:"report,omitempty"`
	Entry      *HistoryEntry `json:"entry,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func NewReportEvent(eventType string, actorID string, report *Report, entry *HistoryEntry) ReportEvent {
	ev := ReportEvent{
		Type:       eventType,
		ActorID:    actorID,
		Report:     report,
		Entry:      entry,
		OccurredAt: time.Now().UTC(),
	}
	if report != nil {
		ev.ReportID = report.ID
	}
	return ev
}

// EventPublisher hands lifecycle events to the event bus. Publishing is
// best effort: a failure never undoes the committed write.
type EventPublisher interface {
	Publish(ctx context.Context, event ReportEvent) error
}

// Notification is a message pushed to one connected user.
type Notification struct {
	Type      string         `json:"type"`
	UserID    string         `json:"userId"`
	ReportID  string         `json:"reportId,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Notifier interface {
	NotifyUser(userID string, n Notification)
}
