package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ReportEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ReportEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

var (
	supervisor = &domain.Session{UserID: "sup-water", Role: domain.RoleSupervisor}
	admin      = &domain.Session{UserID: "admin", Role: domain.RoleAdmin}
	citizen    = &domain.Session{UserID: "citizen-1", Role: domain.RoleCitizen}
	worker     = &domain.Session{UserID: "worker-1", Role: domain.RoleWorker}
)

type fixture struct {
	store     *memory.ReportStore
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	uc        UseCase
	report    *domain.Report
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewReportStore(nil)
	r, err := domain.NewReport(domain.NewReportParams{
		ReporterID: "citizen-1",
		IssueType:  domain.IssueWater,
		AssignedTo: domain.StringPtr("sup-water"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), r))

	pub := &recordingPublisher{}
	m := metrics.New()
	return &fixture{
		store:     store,
		publisher: pub,
		metrics:   m,
		uc:        NewUseCase(store, pub, m, logging.NewNopLogger(), func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }),
		report:    r,
	}
}

func TestUpdateStatusForwardAndSameState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.uc.UpdateStatus(ctx, supervisor, f.report.ID, domain.StatusAcknowledged, " seen ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, r.Status)
	require.Len(t, r.StatusHistory, 1)
	assert.Equal(t, "seen", r.StatusHistory[0].Note)
	assert.Equal(t, "sup-water", r.StatusHistory[0].ChangedBy)

	r, err = f.uc.UpdateStatus(ctx, supervisor, f.report.ID, domain.StatusAcknowledged, "")
	require.NoError(t, err)
	assert.Len(t, r.StatusHistory, 2)

	r, err = f.uc.UpdateStatus(ctx, admin, f.report.ID, domain.StatusResolved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, r.Status)

	assert.Equal(t, []string{
		domain.EventReportStatusChanged,
		domain.EventReportStatusChanged,
		domain.EventReportStatusChanged,
	}, f.publisher.types())
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.Mutations.WithLabelValues("status", "ok")))
}

func TestUpdateStatusRejectsBackward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.UpdateStatus(ctx, supervisor, f.report.ID, domain.StatusInProgress, "")
	require.NoError(t, err)

	_, err = f.uc.UpdateStatus(ctx, supervisor, f.report.ID, domain.StatusSubmitted, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.store.GetByID(ctx, f.report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
	assert.Len(t, stored.StatusHistory, 1)
	assert.Len(t, f.publisher.types(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Mutations.WithLabelValues("status", "rejected")))
}

func TestUpdateStatusConcurrentNeverRegresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, st := range []domain.Status{domain.StatusResolved, domain.StatusAcknowledged, domain.StatusInProgress} {
		wg.Add(1)
		go func(st domain.Status) {
			defer wg.Done()
			_, err := f.uc.UpdateStatus(ctx, supervisor, f.report.ID, st, "")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			}
		}(st)
	}
	wg.Wait()

	stored, err := f.store.GetByID(ctx, f.report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, stored.Status)

	prev := -1
	for _, e := range stored.StatusHistory {
		assert.GreaterOrEqual(t, e.Status.Index(), prev)
		prev = e.Status.Index()
	}
}

func TestUpdateStatusPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.UpdateStatus(ctx, citizen, f.report.ID, domain.StatusResolved, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.UpdateStatus(ctx, worker, f.report.ID, domain.StatusResolved, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.UpdateStatus(ctx, nil, f.report.ID, domain.StatusResolved, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.uc.UpdateStatus(ctx, supervisor, f.report.ID, "closed", "")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = f.uc.UpdateStatus(ctx, supervisor, "missing", domain.StatusResolved, "")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	assert.Empty(t, f.publisher.types())
}

func TestPublishFailureKeepsWrite(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	r, err := f.uc.UpdateStatus(context.Background(), supervisor, f.report.ID, domain.StatusAcknowledged, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAcknowledged, r.Status)
}

func TestAddNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.AddNote(ctx, supervisor, f.report.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	r, err := f.uc.AddNote(ctx, supervisor, f.report.ID, "called reporter")
	require.NoError(t, err)
	require.Len(t, r.StatusHistory, 1)
	assert.Equal(t, domain.EntryNote, r.StatusHistory[0].Kind)
	assert.Equal(t, domain.StatusSubmitted, r.Status)
	assert.Equal(t, []string{domain.EventReportNoteAdded}, f.publisher.types())

	_, err = f.uc.AddNote(ctx, citizen, f.report.ID, "hi")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Classify(ctx, supervisor, f.report.ID, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	r, err := f.uc.Classify(ctx, supervisor, f.report.ID, " Burst main ", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, "Burst main", r.Classification)
	assert.Equal(t, "confirmed", r.ClassificationNote)
	require.Len(t, r.StatusHistory, 1)
	assert.Equal(t, domain.EntryClassification, r.StatusHistory[0].Kind)
	assert.Equal(t, []string{domain.EventReportClassified}, f.publisher.types())
}

func TestHistoryScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.AddNote(ctx, supervisor, f.report.ID, "first")
	require.NoError(t, err)

	h, err := f.uc.History(ctx, citizen, f.report.ID)
	require.NoError(t, err)
	assert.Len(t, h, 1)

	_, err = f.uc.History(ctx, &domain.Session{UserID: "citizen-2", Role: domain.RoleCitizen}, f.report.ID)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	_, err = f.uc.History(ctx, &domain.Session{UserID: "sup-roads", Role: domain.RoleSupervisor}, f.report.ID)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}
