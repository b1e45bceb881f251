package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityReportCreated    ActivityType = "report_created"
	ActivityStatusChanged    ActivityType = "status_changed"
	ActivityReportAssigned   ActivityType = "report_assigned"
	ActivityWorkerAssigned   ActivityType = "worker_assigned"
	ActivityReportClassified ActivityType = "report_classified"
	ActivityNoteAdded        ActivityType = "note_added"
	ActivityReportOverdue    ActivityType = "report_overdue"
)

// ActivityLog is the out-of-band audit record derived from report events.
// It is separate from the history embedded in each report.
type ActivityLog struct {
	ID        string         `bson:"_id" json:"id"`
	ReportID  string         `bson:"report_id" json:"reportId"`
	ActorID   string         `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	EventType ActivityType   `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type ActivityRepository interface {
	Log(ctx context.Context, log *ActivityLog) error
	GetByReportID(ctx context.Context, reportID string, limit int) ([]ActivityLog, error)
	GetByEventType(ctx context.Context, eventType ActivityType, from, to time.Time) ([]ActivityLog, error)
	Recent(ctx context.Context, limit int) ([]ActivityLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewActivityLog(reportID, actorID string, eventType ActivityType, metadata map[string]any) *ActivityLog {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &ActivityLog{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		ActorID:   actorID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

func NewReportCreatedLog(r *Report) *ActivityLog {
	return NewActivityLog(r.ID, r.ReporterID, ActivityReportCreated, map[string]any{
		"issue_type":    string(r.IssueType),
		"assigned_dept": r.AssignedDept,
		"priority":      string(r.Priority),
	})
}

func NewStatusChangedLog(reportID, actorID string, from, to Status) *ActivityLog {
	return NewActivityLog(reportID, actorID, ActivityStatusChanged, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

func NewReportOverdueLog(reportID string, age time.Duration) *ActivityLog {
	return NewActivityLog(reportID, "", ActivityReportOverdue, map[string]any{
		"age_hours": age.Hours(),
	})
}
