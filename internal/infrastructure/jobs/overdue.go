package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
)

// OverdueSweep finds open reports older than the threshold. Each report
// is announced once per process; the gauge always reflects the last run.
type OverdueSweep struct {
	reports   domain.ReportRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	logger    logging.Logger
	threshold time.Duration
	now       func() time.Time

	mu       sync.Mutex
	notified map[string]struct{}
}

func NewOverdueSweep(
	reports domain.ReportRepository,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger logging.Logger,
	threshold time.Duration,
	now func() time.Time,
) *OverdueSweep {
	if now == nil {
		now = time.Now
	}
	return &OverdueSweep{
		reports:   reports,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		threshold: threshold,
		now:       now,
		notified:  make(map[string]struct{}),
	}
}

// Run returns the ids of reports that became overdue since the last run.
func (s *OverdueSweep) Run(ctx context.Context) ([]string, error) {
	all, err := s.reports.List(ctx, domain.Scope{Role: domain.RoleAdmin})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.threshold)
	overdue := make(map[string]struct{})
	var fresh []string

	for i := range all {
		r := &all[i]
		if !r.IsOpen() || !r.CreatedAt.Before(cutoff) {
			continue
		}
		overdue[r.ID] = struct{}{}
		if _, done := s.notified[r.ID]; done {
			continue
		}
		fresh = append(fresh, r.ID)

		if s.publisher != nil {
			ev := domain.NewReportEvent(domain.EventReportOverdue, "", r, nil)
			ev.OccurredAt = now.UTC()
			if err := s.publisher.Publish(ctx, ev); err != nil {
				s.logger.Error(logging.Jobs, logging.Overdue, "failed to publish overdue event", map[logging.ExtraKey]any{
					logging.ReportID:     r.ID,
					logging.ErrorMessage: err.Error(),
				})
				continue
			}
		}
		s.notified[r.ID] = struct{}{}
	}

	for id := range s.notified {
		if _, still := overdue[id]; !still {
			delete(s.notified, id)
		}
	}

	if s.metrics != nil {
		s.metrics.OverdueReports.Set(float64(len(overdue)))
	}
	s.logger.Info(logging.Jobs, logging.Overdue, "overdue sweep finished", map[logging.ExtraKey]any{
		"overdue": len(overdue),
		"new":     len(fresh),
	})
	return fresh, nil
}
