package projection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
)

var ErrHubStopped = errors.New("projection hub stopped")

// ViewUpdate is the full state of one subscription's view.
type ViewUpdate struct {
	Reports []domain.Report `json:"reports"`
	Stats   Stats           `json:"stats"`
	At      time.Time       `json:"at"`
}

// Subscription is a live, role-scoped view. Updates carries the latest
// snapshot; an unread snapshot is replaced by a newer one.
type Subscription struct {
	scope   domain.Scope
	view    map[string]*domain.Report
	pending []*domain.Report
	loading bool

	updates chan ViewUpdate
	hub     *Hub
	once    sync.Once
	done    chan struct{}
}

func (s *Subscription) Updates() <-chan ViewUpdate {
	return s.updates
}

func (s *Subscription) Scope() domain.Scope {
	return s.scope
}

// Close unregisters the subscription. Updates is closed afterwards.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		select {
		case s.hub.unregister <- s:
		case <-s.hub.stopped:
		}
	})
}

// apply folds one report state into the view and reports whether the
// view changed. History only grows, so its length orders states of the
// same report.
func (s *Subscription) apply(r *domain.Report) bool {
	current, present := s.view[r.ID]
	if present && len(r.StatusHistory) < len(current.StatusHistory) {
		return false
	}
	if s.scope.Matches(r) {
		s.view[r.ID] = r
		return true
	}
	if present {
		delete(s.view, r.ID)
		return true
	}
	return false
}

func (s *Subscription) snapshot(now time.Time) ViewUpdate {
	reports := make([]domain.Report, 0, len(s.view))
	for _, r := range s.view {
		reports = append(reports, *r.Clone())
	}
	domain.SortNewestFirst(reports)
	return ViewUpdate{Reports: reports, Stats: Compute(reports, now), At: now}
}

// push must only be called from the hub goroutine, which is the single
// writer of updates.
func (s *Subscription) push(u ViewUpdate) {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- u
}

type loaded struct {
	sub     *Subscription
	reports []domain.Report
}

// Hub fans report changes out to every live subscription whose scope
// the old or new state of the report falls in.
type Hub struct {
	feed    domain.ChangeFeed
	logger  logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	subs       map[*Subscription]struct{}
	register   chan *Subscription
	unregister chan *Subscription
	loaded     chan loaded
	stopped    chan struct{}
}

func NewHub(feed domain.ChangeFeed, m *metrics.Metrics, logger logging.Logger, now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	return &Hub{
		feed:       feed,
		logger:     logger,
		metrics:    m,
		now:        now,
		subs:       make(map[*Subscription]struct{}),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		loaded:     make(chan loaded),
		stopped:    make(chan struct{}),
	}
}

// Run consumes the change feed until ctx ends or the feed closes. Every
// open subscription is closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	changes, err := h.feed.Watch(ctx)
	if err != nil {
		return err
	}

	h.logger.Info(logging.Realtime, logging.Startup, "projection hub running", nil)
	for {
		select {
		case <-ctx.Done():
			return nil

		case sub := <-h.register:
			sub.loading = true
			h.subs[sub] = struct{}{}
			h.gauge(1)

		case sub := <-h.unregister:
			h.remove(sub)

		case l := <-h.loaded:
			if _, ok := h.subs[l.sub]; !ok {
				continue
			}
			sub := l.sub
			for i := range l.reports {
				r := l.reports[i]
				sub.apply(&r)
			}
			for _, r := range sub.pending {
				sub.apply(r)
			}
			sub.pending = nil
			sub.loading = false
			sub.push(sub.snapshot(h.now()))

		case change, ok := <-changes:
			if !ok {
				h.logger.Warn(logging.Realtime, logging.ChangeStream, "change feed closed", nil)
				return nil
			}
			if change.Report == nil {
				continue
			}
			h.dispatch(change.Report)
		}
	}
}

func (h *Hub) dispatch(r *domain.Report) {
	now := h.now()
	for sub := range h.subs {
		if sub.loading {
			sub.pending = append(sub.pending, r)
			continue
		}
		if sub.apply(r) {
			sub.push(sub.snapshot(now))
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.updates)
	h.gauge(-1)
}

func (h *Hub) shutdown() {
	close(h.stopped)
	for sub := range h.subs {
		h.remove(sub)
	}
}

func (h *Hub) gauge(delta float64) {
	if h.metrics != nil {
		h.metrics.LiveSubscriptions.Add(delta)
	}
}

// subscribe registers first and loads second, so a change committed
// between the two is queued rather than lost.
func (h *Hub) subscribe(ctx context.Context, scope domain.Scope, list func(context.Context, domain.Scope) ([]domain.Report, error)) (*Subscription, error) {
	sub := &Subscription{
		scope:   scope,
		view:    make(map[string]*domain.Report),
		updates: make(chan ViewUpdate, 1),
		hub:     h,
		done:    make(chan struct{}),
	}

	select {
	case h.register <- sub:
	case <-h.stopped:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	reports, err := list(ctx, scope)
	if err != nil {
		sub.Close()
		return nil, err
	}

	select {
	case h.loaded <- loaded{sub: sub, reports: reports}:
	case <-h.stopped:
		return nil, ErrHubStopped
	case <-ctx.Done():
		sub.Close()
		return nil, ctx.Err()
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}
