package assignment

import (
	"context"
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

var (
	admin     = &domain.Session{UserID: "admin", Role: domain.RoleAdmin}
	supWater  = &domain.Session{UserID: "sup-water", Role: domain.RoleSupervisor}
	supRoads  = &domain.Session{UserID: "sup-roads", Role: domain.RoleSupervisor}
	citizen   = &domain.Session{UserID: "citizen-1", Role: domain.RoleCitizen}
	fixedTime = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
)

type fixture struct {
	reports   *memory.ReportStore
	publisher *recordingPublisher
	uc        UseCase
}

func newFixture(depts ...domain.Department) *fixture {
	users, demoDepts := memory.DemoDirectory()
	if depts == nil {
		depts = demoDepts
	}
	reports := memory.NewReportStore(nil)
	pub := &recordingPublisher{}
	return &fixture{
		reports:   reports,
		publisher: pub,
		uc: NewUseCase(
			reports,
			memory.NewUserStore(users...),
			memory.NewDepartmentStore(depts...),
			pub,
			nil,
			logging.NewNopLogger(),
			func() time.Time { return fixedTime },
		),
	}
}

func (f *fixture) seed(t *testing.T, issue domain.IssueType, supervisor string) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(domain.NewReportParams{
		ReporterID:  "citizen-1",
		IssueType:   issue,
		Description: "something broke",
		AssignedTo:  domain.StringPtr(supervisor),
	})
	require.NoError(t, err)
	require.NoError(t, f.reports.Create(context.Background(), r))
	return r
}

func TestResolveDepartment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.uc.ResolveDepartment(ctx, domain.IssueRoadPothole)
	require.NoError(t, err)
	assert.Equal(t, "roads", res.Dept)
	require.NotNil(t, res.SupervisorID)
	assert.Equal(t, "sup-roads", *res.SupervisorID)

	res, err = f.uc.ResolveDepartment(ctx, domain.IssueOthers)
	require.NoError(t, err)
	assert.Equal(t, domain.DeptOthers, res.Dept)
	assert.Nil(t, res.SupervisorID)
}

func TestResolveDepartmentWithoutDirectoryEntry(t *testing.T) {
	f := newFixture(domain.Department{Key: "water", Name: "Water"})
	ctx := context.Background()

	res, err := f.uc.ResolveDepartment(ctx, domain.IssueStreetlight)
	require.NoError(t, err)
	assert.Equal(t, "electrical", res.Dept)
	assert.Nil(t, res.SupervisorID)

	res, err = f.uc.ResolveDepartment(ctx, domain.IssueWater)
	require.NoError(t, err)
	assert.Nil(t, res.SupervisorID)
}

func TestReassign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.seed(t, domain.IssueWater, "sup-water")

	out, err := f.uc.Reassign(ctx, admin, r.ID, "roads", "sup-roads", "")
	require.NoError(t, err)
	assert.Equal(t, "roads", out.AssignedDept)
	assert.True(t, out.IsAssignedTo("sup-roads"))
	require.Len(t, out.StatusHistory, 1)
	assert.Equal(t, "Assigned to sup-roads (roads)", out.StatusHistory[0].Note)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventReportAssigned, f.publisher.events[0].Type)

	out, err = f.uc.Reassign(ctx, admin, r.ID, "parks", "", "no supervisor yet")
	require.NoError(t, err)
	assert.Nil(t, out.AssignedTo)
}

func TestReassignClearsWorker(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.seed(t, domain.IssueWater, "sup-water")

	_, err := f.uc.AssignWorker(ctx, supWater, r.ID, "worker-water", "")
	require.NoError(t, err)
	workerScope := domain.Scope{Role: domain.RoleWorker, UserID: "worker-water"}
	visible, err := f.reports.List(ctx, workerScope)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	out, err := f.uc.Reassign(ctx, admin, r.ID, "roads", "sup-roads", "")
	require.NoError(t, err)
	assert.Nil(t, out.AssignedToWorker)
	assert.Empty(t, out.AssignedWorkerName)
	assert.Len(t, out.StatusHistory, 2, "one entry per write")

	visible, err = f.reports.List(ctx, workerScope)
	require.NoError(t, err)
	assert.Empty(t, visible, "previous crew loses the report")

	_, err = f.uc.AssignWorker(ctx, supRoads, r.ID, "worker-roads", "")
	assert.NoError(t, err, "new supervisor picks a crew")
}

func TestReassignRejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.seed(t, domain.IssueWater, "sup-water")

	_, err := f.uc.Reassign(ctx, supWater, r.ID, "roads", "sup-roads", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.uc.Reassign(ctx, admin, r.ID, "finance", "", "")
	assert.ErrorIs(t, err, domain.ErrDepartmentNotFound)

	_, err = f.uc.Reassign(ctx, admin, r.ID, domain.DeptNone, "", "")
	assert.ErrorIs(t, err, domain.ErrDepartmentNotFound)

	_, err = f.uc.Reassign(ctx, admin, r.ID, "roads", "worker-roads", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.Reassign(ctx, admin, r.ID, "roads", "ghost", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Reassign(ctx, admin, "missing", "roads", "", "")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)

	assert.Empty(t, f.publisher.events)
}

func TestAssignWorker(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.seed(t, domain.IssueWater, "sup-water")

	out, err := f.uc.AssignWorker(ctx, supWater, r.ID, "worker-water", "")
	require.NoError(t, err)
	require.NotNil(t, out.AssignedToWorker)
	assert.Equal(t, "worker-water", *out.AssignedToWorker)
	assert.Equal(t, "Water Crew", out.AssignedWorkerName)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, domain.EventReportWorkerAssigned, f.publisher.events[0].Type)
}

func TestAssignWorkerRequiresAssignee(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.seed(t, domain.IssueWater, "sup-water")

	_, err := f.uc.AssignWorker(ctx, supRoads, r.ID, "worker-roads", "")
	assert.ErrorIs(t, err, domain.ErrNotAssignee)

	stored, err := f.reports.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedToWorker)
	assert.Empty(t, stored.StatusHistory)

	_, err = f.uc.AssignWorker(ctx, admin, r.ID, "worker-water", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.uc.AssignWorker(ctx, supWater, r.ID, "sup-roads", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.AssignWorker(ctx, supWater, r.ID, " ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListWorkers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	workers, err := f.uc.ListWorkers(ctx, supWater)
	require.NoError(t, err)
	assert.NotEmpty(t, workers)
	for _, w := range workers {
		assert.Equal(t, domain.RoleWorker, w.Role)
	}

	_, err = f.uc.ListWorkers(ctx, citizen)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListDepartments(t *testing.T) {
	f := newFixture()

	views, err := f.uc.ListDepartments(context.Background())
	require.NoError(t, err)

	keys := make([]string, 0, len(views))
	for _, v := range views {
		keys = append(keys, v.Key)
		assert.NotEmpty(t, v.IssueTypes)
	}
	assert.NotContains(t, keys, domain.DeptNone)
	assert.Contains(t, keys, "roads")
	assert.Contains(t, keys, domain.DeptOthers)

	for _, v := range views {
		if v.Key == "roads" {
			assert.Equal(t, "sup-roads", v.SupervisorID)
			assert.Equal(t, "Roads", v.Name)
		}
	}
}
