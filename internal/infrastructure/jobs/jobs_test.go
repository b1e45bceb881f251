package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ReportEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ReportEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func createAt(t *testing.T, store *memory.ReportStore, c *clock, at time.Time) *domain.Report {
	t.Helper()
	c.Set(at)
	r, err := domain.NewReport(domain.NewReportParams{ReporterID: "citizen-1", IssueType: domain.IssueWater, Description: "leak"})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), r))
	return r
}

func TestOverdueSweepAnnouncesOnce(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := &clock{}
	store := memory.NewReportStore(c.Now)

	old := createAt(t, store, c, start)
	recent := createAt(t, store, c, start.Add(24*time.Hour))
	done := createAt(t, store, c, start)
	resolved := domain.StatusResolved
	_, err := store.Mutate(context.Background(), done.ID, domain.Mutation{
		Status: &resolved,
		Entry:  domain.NewStatusEntry(resolved, "sup", start, ""),
	})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	sweep := NewOverdueSweep(store, pub, nil, logging.NewNopLogger(), 48*time.Hour, c.Now)

	c.Set(start.Add(49 * time.Hour))
	fresh, err := sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, fresh)
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventReportOverdue, pub.events[0].Type)

	fresh, err = sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fresh)
	assert.Len(t, pub.events, 1)

	c.Set(start.Add(73 * time.Hour))
	fresh, err = sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{recent.ID}, fresh)
	assert.Len(t, pub.events, 2)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(logging.NewNopLogger())
	job := func(schedule string) Job {
		return Job{Name: "j", Schedule: schedule, Timeout: time.Second, Sub: logging.Overdue,
			Run: func(ctx context.Context) error { return nil }}
	}

	assert.Error(t, s.Add(job("every now and then")))
	assert.NoError(t, s.Add(job("@every 15m")))
	assert.NoError(t, s.Add(job("0 3 * * *")))
}

type logLine struct {
	level string
	sub   logging.SubCategory
	job   any
}

type recordingLogger struct {
	logging.Logger
	mu    sync.Mutex
	lines []logLine
}

func (l *recordingLogger) record(level string, sub logging.SubCategory, extra map[logging.ExtraKey]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, sub: sub, job: extra[logging.Job]})
}

func (l *recordingLogger) Debug(cat logging.Category, sub logging.SubCategory, msg string, extra map[logging.ExtraKey]any) {
	l.record("debug", sub, extra)
}

func (l *recordingLogger) Error(cat logging.Category, sub logging.SubCategory, msg string, extra map[logging.ExtraKey]any) {
	l.record("error", sub, extra)
}

func TestSchedulerLogsUnderJobSubCategory(t *testing.T) {
	logger := &recordingLogger{Logger: logging.NewNopLogger()}
	s := NewScheduler(logger)

	s.run(Job{Name: "activity-retention", Timeout: time.Second, Sub: logging.Retention,
		Run: func(ctx context.Context) error { return nil }})
	s.run(Job{Name: "overdue-sweep", Timeout: time.Second, Sub: logging.Overdue,
		Run: func(ctx context.Context) error { return errors.New("store down") }})

	assert.Equal(t, []logLine{
		{level: "debug", sub: logging.Retention, job: "activity-retention"},
		{level: "error", sub: logging.Overdue, job: "overdue-sweep"},
	}, logger.lines)
}

func TestSchedulerRunHonoursTimeout(t *testing.T) {
	s := NewScheduler(logging.NewNopLogger())
	var deadline time.Time
	s.run(Job{Name: "slow", Timeout: 50 * time.Millisecond, Sub: logging.Retention,
		Run: func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		}})
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}

func TestPruneActivity(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	store := memory.NewActivityStore()
	ctx := context.Background()

	stale := domain.NewActivityLog("r1", "", domain.ActivityNoteAdded, nil)
	stale.Timestamp = now.Add(-ActivityRetention - time.Hour)
	kept := domain.NewActivityLog("r2", "", domain.ActivityNoteAdded, nil)
	kept.Timestamp = now.Add(-time.Hour)
	require.NoError(t, store.Log(ctx, stale))
	require.NoError(t, store.Log(ctx, kept))

	require.NoError(t, PruneActivity(store, func() time.Time { return now })(ctx))

	logs, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "r2", logs[0].ReportID)
}
