package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
)

type ActivityStore struct {
	logs []domain.ActivityLog
	mu   sync.RWMutex
}

func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

var _ domain.ActivityRepository = (*ActivityStore)(nil)

func (s *ActivityStore) Log(ctx context.Context, log *domain.ActivityLog) error {
	if log == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.logs = append(s.logs, *log)
	s.mu.Unlock()
	return nil
}

func (s *ActivityStore) GetByReportID(ctx context.Context, reportID string, limit int) ([]domain.ActivityLog, error) {
	return s.filter(func(l domain.ActivityLog) bool { return l.ReportID == reportID }, limit), nil
}

func (s *ActivityStore) GetByEventType(ctx context.Context, eventType domain.ActivityType, from, to time.Time) ([]domain.ActivityLog, error) {
	return s.filter(func(l domain.ActivityLog) bool {
		return l.EventType == eventType && !l.Timestamp.Before(from) && !l.Timestamp.After(to)
	}, 0), nil
}

func (s *ActivityStore) Recent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return s.filter(func(domain.ActivityLog) bool { return true }, limit), nil
}

func (s *ActivityStore) DeleteOlderThan(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.logs[:0]
	for _, l := range s.logs {
		if !l.Timestamp.Before(before) {
			kept = append(kept, l)
		}
	}
	s.logs = kept
	return nil
}

func (s *ActivityStore) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (s *ActivityStore) filter(keep func(domain.ActivityLog) bool, limit int) []domain.ActivityLog {
	s.mu.RLock()
	out := make([]domain.ActivityLog, 0)
	for _, l := range s.logs {
		if keep(l) {
			out = append(out, l)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
