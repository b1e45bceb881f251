package messaging

import "github.com/hilthontt/civicreport/internal/domain"

const (
	ActivityQueue      = "report_activity"
	NotificationsQueue = "report_notifications"
	DeadLetterQueue    = "dead_letter_queue"
)

// AllReportEvents is every routing key published on the reports exchange.
var AllReportEvents = []string{
	domain.EventReportSubmitted,
	domain.EventReportStatusChanged,
	domain.EventReportAssigned,
	domain.EventReportWorkerAssigned,
	domain.EventReportClassified,
	domain.EventReportNoteAdded,
	domain.EventReportOverdue,
}
