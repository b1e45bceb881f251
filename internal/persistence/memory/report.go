package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
)

// ReportStore keeps reports in process memory. It implements both the
// report repository and the change feed, and serialises writes with a
// single mutex so guarded mutations are atomic.
type ReportStore struct {
	reports  map[string]*domain.Report
	now      func() time.Time
	mu       sync.RWMutex
	watchers map[*watcher]struct{}
}

func NewReportStore(now func() time.Time) *ReportStore {
	if now == nil {
		now = time.Now
	}
	return &ReportStore{
		reports:  make(map[string]*domain.Report),
		now:      now,
		watchers: make(map[*watcher]struct{}),
	}
}

var (
	_ domain.ReportRepository = (*ReportStore)(nil)
	_ domain.ChangeFeed       = (*ReportStore)(nil)
)

func (s *ReportStore) Create(ctx context.Context, report *domain.Report) error {
	if report == nil || report.ID == "" {
		return domain.ErrInvalidReport
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return domain.ErrReportAlreadyExists
	}

	now := s.now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	stored := report.Clone()
	s.reports[report.ID] = stored
	s.notify(stored)

	return nil
}

func (s *ReportStore) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	if !exists {
		return nil, domain.ErrReportNotFound
	}
	return report.Clone(), nil
}

func (s *ReportStore) Mutate(ctx context.Context, id string, m domain.Mutation) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.reports[id]
	if !exists {
		return nil, domain.ErrReportNotFound
	}
	if !m.Guard.Holds(current) {
		return nil, domain.ErrPreconditionFailed
	}

	next := current.Clone()
	m.Apply(next, s.now().UTC())
	s.reports[id] = next
	s.notify(next)

	return next.Clone(), nil
}

func (s *ReportStore) List(ctx context.Context, scope domain.Scope) ([]domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if scope.Matches(r) {
			out = append(out, *r.Clone())
		}
	}
	s.mu.RUnlock()

	domain.SortNewestFirst(out)
	return out, nil
}

// Watch delivers every create and mutation committed after the call. The
// channel closes when ctx ends.
func (s *ReportStore) Watch(ctx context.Context) (<-chan domain.ReportChange, error) {
	w := newWatcher()

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
		w.close()
	}()

	return w.out, nil
}

// notify must be called with s.mu held.
func (s *ReportStore) notify(r *domain.Report) {
	for w := range s.watchers {
		w.push(domain.ReportChange{ReportID: r.ID, Report: r.Clone()})
	}
}

// watcher is an unbounded FIFO so a slow consumer never blocks writers
// and never loses a change.
type watcher struct {
	mu     sync.Mutex
	queue  []domain.ReportChange
	signal chan struct{}
	done   chan struct{}
	out    chan domain.ReportChange
	once   sync.Once
}

func newWatcher() *watcher {
	w := &watcher{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan domain.ReportChange),
	}
	go w.run()
	return w
}

func (w *watcher) push(c domain.ReportChange) {
	w.mu.Lock()
	w.queue = append(w.queue, c)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) run() {
	defer close(w.out)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			select {
			case <-w.signal:
				continue
			case <-w.done:
				return
			}
		}
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		select {
		case w.out <- next:
		case <-w.done:
			return
		}
	}
}

func (w *watcher) close() {
	w.once.Do(func() { close(w.done) })
}
