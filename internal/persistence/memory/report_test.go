package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newReport(t *testing.T, reporter string, supervisor string) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(domain.NewReportParams{
		ReporterID:  reporter,
		Description: "leaking pipe",
		IssueType:   domain.IssueWater,
		AssignedTo:  domain.StringPtr(supervisor),
	})
	require.NoError(t, err)
	return r
}

func TestReportStoreCreateAndGet(t *testing.T) {
	store := NewReportStore(func() time.Time { return fixedNow })
	ctx := context.Background()

	r := newReport(t, "citizen-1", "sup-water")
	require.NoError(t, store.Create(ctx, r))
	assert.Equal(t, fixedNow, r.CreatedAt)

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	got.Description = "changed"
	again, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "leaking pipe", again.Description)

	assert.ErrorIs(t, store.Create(ctx, r), domain.ErrReportAlreadyExists)
	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportStoreMutateGuard(t *testing.T) {
	store := NewReportStore(nil)
	ctx := context.Background()
	r := newReport(t, "citizen-1", "sup-water")
	require.NoError(t, store.Create(ctx, r))

	resolved := domain.StatusResolved
	out, err := store.Mutate(ctx, r.ID, domain.Mutation{
		Status: &resolved,
		Entry:  domain.NewStatusEntry(resolved, "sup-water", time.Now(), ""),
		Guard:  domain.Guard{StatusIn: domain.PredecessorsOf(resolved)},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, out.Status)
	assert.Len(t, out.StatusHistory, 1)

	back := domain.StatusAcknowledged
	_, err = store.Mutate(ctx, r.ID, domain.Mutation{
		Status: &back,
		Entry:  domain.NewStatusEntry(back, "sup-water", time.Now(), ""),
		Guard:  domain.Guard{StatusIn: domain.PredecessorsOf(back)},
	})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	stored, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, stored.Status)
	assert.Len(t, stored.StatusHistory, 1)

	_, err = store.Mutate(ctx, "missing", domain.Mutation{})
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestReportStoreConcurrentMutationsAllLand(t *testing.T) {
	store := NewReportStore(nil)
	ctx := context.Background()
	r := newReport(t, "citizen-1", "sup-water")
	require.NoError(t, store.Create(ctx, r))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Mutate(ctx, r.ID, domain.Mutation{
				Entry: domain.NewNoteEntry("sup-water", time.Now(), "note"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 50)
}

func TestReportStoreListScoped(t *testing.T) {
	clock := fixedNow
	store := NewReportStore(func() time.Time { return clock })
	ctx := context.Background()

	first := newReport(t, "citizen-1", "sup-water")
	require.NoError(t, store.Create(ctx, first))
	clock = clock.Add(time.Minute)
	second := newReport(t, "citizen-2", "sup-roads")
	require.NoError(t, store.Create(ctx, second))

	all, err := store.List(ctx, domain.Scope{Role: domain.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	mine, err := store.List(ctx, domain.Scope{Role: domain.RoleCitizen, UserID: "citizen-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	assigned, err := store.List(ctx, domain.Scope{Role: domain.RoleSupervisor, UserID: "sup-roads"})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, second.ID, assigned[0].ID)
}

func TestReportStoreWatchDeliversInOrder(t *testing.T) {
	store := NewReportStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	r := newReport(t, "citizen-1", "sup-water")
	require.NoError(t, store.Create(context.Background(), r))
	for i := 0; i < 3; i++ {
		_, err := store.Mutate(context.Background(), r.ID, domain.Mutation{
			Entry: domain.NewNoteEntry("sup-water", time.Now(), "n"),
		})
		require.NoError(t, err)
	}

	for want := 0; want <= 3; want++ {
		select {
		case c := <-changes:
			assert.Equal(t, r.ID, c.ReportID)
			assert.Len(t, c.Report.StatusHistory, want)
		case <-time.After(time.Second):
			t.Fatalf("change %d not delivered", want)
		}
	}

	cancel()
	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(time.Second):
		t.Fatal("feed not closed after cancel")
	}
}
