package events

import (
	"context"
	"fmt"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
)

// Handler reacts to one lifecycle event after it was committed.
type Handler interface {
	Handle(ctx context.Context, ev domain.ReportEvent) error
}

// ActivityRecorder writes the cross-report activity log.
type ActivityRecorder struct {
	repo domain.ActivityRepository
}

func NewActivityRecorder(repo domain.ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo}
}

func (a *ActivityRecorder) Handle(ctx context.Context, ev domain.ReportEvent) error {
	log := activityFor(ev)
	if log == nil {
		return nil
	}
	if err := a.repo.Log(ctx, log); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}

func activityFor(ev domain.ReportEvent) *domain.ActivityLog {
	var log *domain.ActivityLog
	switch ev.Type {
	case domain.EventReportSubmitted:
		if ev.Report == nil {
			return nil
		}
		log = domain.NewReportCreatedLog(ev.Report)
	case domain.EventReportStatusChanged:
		if ev.Entry == nil {
			return nil
		}
		log = domain.NewStatusChangedLog(ev.ReportID, ev.ActorID, previousStatus(ev.Report), ev.Entry.Status)
	case domain.EventReportAssigned:
		log = domain.NewActivityLog(ev.ReportID, ev.ActorID, domain.ActivityReportAssigned, entryMetadata(ev.Entry))
	case domain.EventReportWorkerAssigned:
		log = domain.NewActivityLog(ev.ReportID, ev.ActorID, domain.ActivityWorkerAssigned, entryMetadata(ev.Entry))
	case domain.EventReportClassified:
		log = domain.NewActivityLog(ev.ReportID, ev.ActorID, domain.ActivityReportClassified, entryMetadata(ev.Entry))
	case domain.EventReportNoteAdded:
		log = domain.NewActivityLog(ev.ReportID, ev.ActorID, domain.ActivityNoteAdded, entryMetadata(ev.Entry))
	case domain.EventReportOverdue:
		age := time.Duration(0)
		if ev.Report != nil {
			age = ev.OccurredAt.Sub(ev.Report.CreatedAt)
		}
		log = domain.NewReportOverdueLog(ev.ReportID, age)
	default:
		return nil
	}
	if !ev.OccurredAt.IsZero() {
		log.Timestamp = ev.OccurredAt.UTC()
	}
	return log
}

// previousStatus finds the status before the last status entry.
func previousStatus(r *domain.Report) domain.Status {
	if r == nil {
		return ""
	}
	seen := false
	for i := len(r.StatusHistory) - 1; i >= 0; i-- {
		e := r.StatusHistory[i]
		if e.Kind != domain.EntryStatus {
			continue
		}
		if seen {
			return e.Status
		}
		seen = true
	}
	return domain.StatusSubmitted
}

func entryMetadata(e *domain.HistoryEntry) map[string]any {
	if e == nil {
		return nil
	}
	meta := map[string]any{"entry_id": e.ID, "kind": string(e.Kind)}
	if e.Note != "" {
		meta["note"] = e.Note
	}
	if e.AssignedDept != "" {
		meta["assigned_dept"] = e.AssignedDept
	}
	if e.AssignedTo != "" {
		meta["assigned_to"] = e.AssignedTo
	}
	if e.AssignedToWorker != "" {
		meta["assigned_to_worker"] = e.AssignedToWorker
	}
	if e.Classification != "" {
		meta["classification"] = e.Classification
	}
	return meta
}

// NotificationDispatcher pushes a short notice to the users an event
// concerns, skipping the actor who caused it.
type NotificationDispatcher struct {
	notifier domain.Notifier
}

func NewNotificationDispatcher(notifier domain.Notifier) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: notifier}
}

func (d *NotificationDispatcher) Handle(ctx context.Context, ev domain.ReportEvent) error {
	for userID, message := range recipients(ev) {
		if userID == "" || userID == ev.ActorID {
			continue
		}
		d.notifier.NotifyUser(userID, domain.Notification{
			Type:      ev.Type,
			UserID:    userID,
			ReportID:  ev.ReportID,
			Message:   message,
			CreatedAt: ev.OccurredAt,
		})
	}
	return nil
}

func recipients(ev domain.ReportEvent) map[string]string {
	out := map[string]string{}
	r := ev.Report
	if r == nil {
		return out
	}
	label := r.IssueLabel
	if label == "" {
		label = "Your report"
	}

	switch ev.Type {
	case domain.EventReportSubmitted:
		if r.AssignedTo != nil {
			out[*r.AssignedTo] = fmt.Sprintf("New %s report assigned to you", label)
		}
	case domain.EventReportStatusChanged:
		out[r.ReporterID] = fmt.Sprintf("%s is now %s", label, statusLabel(r.Status))
		if r.AssignedToWorker != nil {
			out[*r.AssignedToWorker] = fmt.Sprintf("%s is now %s", label, statusLabel(r.Status))
		}
	case domain.EventReportAssigned:
		if r.AssignedTo != nil {
			out[*r.AssignedTo] = fmt.Sprintf("%s report assigned to you", label)
		}
	case domain.EventReportWorkerAssigned:
		if r.AssignedToWorker != nil {
			out[*r.AssignedToWorker] = fmt.Sprintf("You have been assigned a %s report", label)
		}
	case domain.EventReportNoteAdded:
		out[r.ReporterID] = fmt.Sprintf("A note was added to your %s report", label)
	case domain.EventReportOverdue:
		if r.AssignedTo != nil {
			out[*r.AssignedTo] = fmt.Sprintf("%s report is overdue", label)
		}
	}
	return out
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusSubmitted:
		return "submitted"
	case domain.StatusAcknowledged:
		return "acknowledged"
	case domain.StatusInProgress:
		return "in progress"
	case domain.StatusResolved:
		return "resolved"
	}
	return string(s)
}
