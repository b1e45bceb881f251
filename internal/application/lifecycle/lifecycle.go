package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
)

type UseCase interface {
	UpdateStatus(ctx context.Context, session *domain.Session, reportID string, status domain.Status, note string) (*domain.Report, error)
	AddNote(ctx context.Context, session *domain.Session, reportID, note string) (*domain.Report, error)
	Classify(ctx context.Context, session *domain.Session, reportID, classification, note string) (*domain.Report, error)
	History(ctx context.Context, session *domain.Session, reportID string) ([]domain.HistoryEntry, error)
}

type useCase struct {
	reports   domain.ReportRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	logger    logging.Logger
	now       func() time.Time
}

func NewUseCase(
	reports domain.ReportRepository,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger logging.Logger,
	now func() time.Time,
) UseCase {
	if now == nil {
		now = time.Now
	}
	return &useCase{
		reports:   reports,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       now,
	}
}

// UpdateStatus moves a report forward along the lifecycle. The guard
// admits every current status that may legally precede the new one, so a
// concurrent transition past it makes this write fail instead of rolling
// the report back.
func (uc *useCase) UpdateStatus(ctx context.Context, session *domain.Session, reportID string, status domain.Status, note string) (*domain.Report, error) {
	if err := session.RequireStaff(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	entry := domain.NewStatusEntry(status, session.UserID, uc.now(), strings.TrimSpace(note))
	report, err := uc.reports.Mutate(ctx, reportID, domain.Mutation{
		Status: &status,
		Entry:  entry,
		Guard:  domain.Guard{StatusIn: domain.PredecessorsOf(status)},
	})
	uc.count("status", err)
	if err != nil {
		if errors.Is(err, domain.ErrPreconditionFailed) {
			uc.logger.Warn(logging.Lifecycle, logging.Update, "rejected backward status transition", map[logging.ExtraKey]any{
				logging.ReportID: reportID,
				logging.UserID:   session.UserID,
			})
			return nil, fmt.Errorf("%w: cannot move to %s", domain.ErrInvalidTransition, status)
		}
		return nil, err
	}

	uc.logger.Info(logging.Lifecycle, logging.Update, "status updated", map[logging.ExtraKey]any{
		logging.ReportID: reportID,
		logging.UserID:   session.UserID,
	})
	uc.publish(ctx, domain.NewReportEvent(domain.EventReportStatusChanged, session.UserID, report, &entry))
	return report, nil
}

func (uc *useCase) AddNote(ctx context.Context, session *domain.Session, reportID, note string) (*domain.Report, error) {
	if err := session.RequireStaff(); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required", domain.ErrInvalidInput)
	}

	entry := domain.NewNoteEntry(session.UserID, uc.now(), note)
	report, err := uc.reports.Mutate(ctx, reportID, domain.Mutation{Entry: entry})
	uc.count("note", err)
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, domain.NewReportEvent(domain.EventReportNoteAdded, session.UserID, report, &entry))
	return report, nil
}

func (uc *useCase) Classify(ctx context.Context, session *domain.Session, reportID, classification, note string) (*domain.Report, error) {
	if err := session.RequireStaff(); err != nil {
		return nil, err
	}
	classification = strings.TrimSpace(classification)
	if classification == "" {
		return nil, fmt.Errorf("%w: classification is required", domain.ErrInvalidInput)
	}
	note = strings.TrimSpace(note)

	entry := domain.NewClassificationEntry(classification, session.UserID, uc.now(), note)
	report, err := uc.reports.Mutate(ctx, reportID, domain.Mutation{
		Classification: &domain.ClassificationChange{Value: classification, Note: note},
		Entry:          entry,
	})
	uc.count("classification", err)
	if err != nil {
		return nil, err
	}

	uc.logger.Info(logging.Lifecycle, logging.Classification, "report classified", map[logging.ExtraKey]any{
		logging.ReportID: reportID,
		logging.UserID:   session.UserID,
	})
	uc.publish(ctx, domain.NewReportEvent(domain.EventReportClassified, session.UserID, report, &entry))
	return report, nil
}

// History returns the audit trail of a report the session can see.
// Reports outside the caller's scope look missing.
func (uc *useCase) History(ctx context.Context, session *domain.Session, reportID string) ([]domain.HistoryEntry, error) {
	if err := session.Require(); err != nil {
		return nil, err
	}
	report, err := uc.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !domain.ScopeFor(session).Matches(report) {
		return nil, domain.ErrReportNotFound
	}
	return report.StatusHistory, nil
}

func (uc *useCase) count(kind string, err error) {
	if uc.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPreconditionFailed):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	uc.metrics.Mutations.WithLabelValues(kind, outcome).Inc()
}

func (uc *useCase) publish(ctx context.Context, ev domain.ReportEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, ev); err != nil {
		uc.logger.Error(logging.RabbitMQ, logging.Publish, "failed to publish report event", map[logging.ExtraKey]any{
			logging.ReportID:     ev.ReportID,
			logging.EventType:    ev.Type,
			logging.ErrorMessage: err.Error(),
		})
	}
}
