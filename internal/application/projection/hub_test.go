package projection

import (
	"context"
	"testing"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hubFixture struct {
	store *memory.ReportStore
	hub   *Hub
	uc    UseCase
	done  chan struct{}
}

func startHub(t *testing.T) *hubFixture {
	t.Helper()
	store := memory.NewReportStore(nil)
	hub := NewHub(store, nil, logging.NewNopLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &hubFixture{
		store: store,
		hub:   hub,
		uc:    NewUseCase(store, hub, logging.NewNopLogger(), nil),
		done:  done,
	}
}

func (f *hubFixture) create(t *testing.T, reporter string, issue domain.IssueType, supervisor string) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(domain.NewReportParams{
		ReporterID:  reporter,
		IssueType:   issue,
		Description: "needs fixing",
		AssignedTo:  domain.StringPtr(supervisor),
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Create(context.Background(), r))
	return r
}

// waitFor reads updates until one satisfies ok. Intermediate snapshots
// may be coalesced away, so only the eventual state is asserted.
func waitFor(t *testing.T, sub *Subscription, ok func(ViewUpdate) bool) ViewUpdate {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u, open := <-sub.Updates():
			require.True(t, open, "updates closed early")
			if ok(u) {
				return u
			}
		case <-timeout:
			t.Fatal("timed out waiting for view update")
			return ViewUpdate{}
		}
	}
}

func ids(u ViewUpdate) []string {
	out := make([]string, 0, len(u.Reports))
	for _, r := range u.Reports {
		out = append(out, r.ID)
	}
	return out
}

func TestSubscribeSnapshotAndUpdates(t *testing.T) {
	f := startHub(t)
	session := &domain.Session{UserID: "citizen-1", Role: domain.RoleCitizen}

	first := f.create(t, "citizen-1", domain.IssueWater, "sup-water")

	sub, err := f.uc.Subscribe(context.Background(), session)
	require.NoError(t, err)
	defer sub.Close()

	snap := waitFor(t, sub, func(u ViewUpdate) bool { return len(u.Reports) >= 1 })
	assert.Equal(t, []string{first.ID}, ids(snap))
	assert.Equal(t, 1, snap.Stats.Total)

	f.create(t, "citizen-2", domain.IssueTree, "sup-parks")
	second := f.create(t, "citizen-1", domain.IssueRoadPothole, "sup-roads")

	u := waitFor(t, sub, func(u ViewUpdate) bool { return len(u.Reports) == 2 })
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids(u))
	assert.Equal(t, 2, u.Stats.Open)
}

func TestSubscriptionSeesMutations(t *testing.T) {
	f := startHub(t)
	session := &domain.Session{UserID: "citizen-1", Role: domain.RoleCitizen}
	r := f.create(t, "citizen-1", domain.IssueWater, "sup-water")

	sub, err := f.uc.Subscribe(context.Background(), session)
	require.NoError(t, err)
	defer sub.Close()
	waitFor(t, sub, func(u ViewUpdate) bool { return len(u.Reports) == 1 })

	status := domain.StatusAcknowledged
	_, err = f.store.Mutate(context.Background(), r.ID, domain.Mutation{
		Status: &status,
		Entry:  domain.NewStatusEntry(status, "sup-water", time.Now(), ""),
	})
	require.NoError(t, err)

	u := waitFor(t, sub, func(u ViewUpdate) bool {
		return len(u.Reports) == 1 && u.Reports[0].Status == domain.StatusAcknowledged
	})
	assert.Len(t, u.Reports[0].StatusHistory, 1)
	assert.Equal(t, 1, u.Stats.Acknowledged)
}

func TestSubscriptionDropsReportLeavingScope(t *testing.T) {
	f := startHub(t)
	supervisor := &domain.Session{UserID: "sup-water", Role: domain.RoleSupervisor}
	r := f.create(t, "citizen-1", domain.IssueWater, "sup-water")

	sub, err := f.uc.Subscribe(context.Background(), supervisor)
	require.NoError(t, err)
	defer sub.Close()
	waitFor(t, sub, func(u ViewUpdate) bool { return len(u.Reports) == 1 })

	_, err = f.store.Mutate(context.Background(), r.ID, domain.Mutation{
		Assignment: &domain.AssignmentChange{Dept: "roads", SupervisorID: "sup-roads"},
		Entry:      domain.NewAssignmentEntry("roads", "sup-roads", "admin", time.Now(), ""),
	})
	require.NoError(t, err)

	u := waitFor(t, sub, func(u ViewUpdate) bool { return len(u.Reports) == 0 })
	assert.Zero(t, u.Stats.Total)
}

func TestSubscriptionClose(t *testing.T) {
	f := startHub(t)
	session := &domain.Session{UserID: "admin", Role: domain.RoleAdmin}

	sub, err := f.uc.Subscribe(context.Background(), session)
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	assert.Eventually(t, func() bool {
		select {
		case _, open := <-sub.Updates():
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	f := startHub(t)
	session := &domain.Session{UserID: "admin", Role: domain.RoleAdmin}

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := f.uc.Subscribe(ctx, session)
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, open := <-sub.Updates():
			return !open
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeAfterHubStops(t *testing.T) {
	store := memory.NewReportStore(nil)
	hub := NewHub(store, nil, logging.NewNopLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	uc := NewUseCase(store, hub, logging.NewNopLogger(), nil)
	_, err := uc.Subscribe(context.Background(), &domain.Session{UserID: "admin", Role: domain.RoleAdmin})
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestListAndGetAreScoped(t *testing.T) {
	f := startHub(t)
	ctx := context.Background()
	mine := f.create(t, "citizen-1", domain.IssueWater, "sup-water")
	theirs := f.create(t, "citizen-2", domain.IssueWater, "sup-water")

	citizen := &domain.Session{UserID: "citizen-1", Role: domain.RoleCitizen}
	view, err := f.uc.List(ctx, citizen)
	require.NoError(t, err)
	require.Len(t, view.Reports, 1)
	assert.Equal(t, mine.ID, view.Reports[0].ID)

	_, err = f.uc.Get(ctx, citizen, theirs.ID)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	supervisor := &domain.Session{UserID: "sup-water", Role: domain.RoleSupervisor}
	view, err = f.uc.List(ctx, supervisor)
	require.NoError(t, err)
	assert.Len(t, view.Reports, 2)

	_, err = f.uc.List(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	stats, err := f.uc.Stats(ctx, supervisor, 0)
	require.NoError(t, err)
	assert.Len(t, stats.Daily, DefaultChartDays)
	assert.Equal(t, 2, stats.Stats.Total)
}
