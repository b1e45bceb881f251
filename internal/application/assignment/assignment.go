package assignment

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

// Resolution is the department and, when one is on record, the
// supervisor a new report is routed to.
type Resolution struct {
	Dept         string  `json:"dept"`
	SupervisorID *string `json:"supervisorId"`
}

type DepartmentView struct {
	Key          string             `json:"key"`
	Name         string             `json:"name"`
	SupervisorID string             `json:"supervisorId,omitempty"`
	IssueTypes   []domain.IssueType `json:"issueTypes"`
}

type UseCase interface {
	ResolveDepartment(ctx context.Context, issueType domain.IssueType) (Resolution, error)
	Reassign(ctx context.Context, session *domain.Session, reportID, dept, supervisorID, note string) (*domain.Report, error)
	AssignWorker(ctx context.Context, session *domain.Session, reportID, workerID, note string) (*domain.Report, error)
	ListWorkers(ctx context.Context, session *domain.Session) ([]domain.User, error)
	ListDepartments(ctx context.Context) ([]DepartmentView, error)
}

type useCase struct {
	reports     domain.ReportRepository
	users       domain.UserRepository
	departments domain.DepartmentRepository
	publisher   domain.EventPublisher
	metrics     *metrics.Metrics
	logger      logging.Logger
	now         func() time.Time
}

func NewUseCase(
	reports domain.ReportRepository,
	users domain.UserRepository,
	departments domain.DepartmentRepository,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger logging.Logger,
	now func() time.Time,
) UseCase {
	if now == nil {
		now = time.Now
	}
	return &useCase{
		reports:     reports,
		users:       users,
		departments: departments,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		now:         now,
	}
}

func (uc *useCase) ResolveDepartment(ctx context.Context, issueType domain.IssueType) (Resolution, error) {
	dept := domain.DepartmentFor(issueType)
	res := Resolution{Dept: dept}
	if dept == domain.DeptOthers || dept == domain.DeptNone {
		return res, nil
	}

	d, err := uc.departments.GetByKey(ctx, dept)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return res, nil
		}
		return res, fmt.Errorf("failed to look up department %s: %w", dept, err)
	}
	res.SupervisorID = domain.StringPtr(d.SupervisorID)
	return res, nil
}

func (uc *useCase) Reassign(ctx context.Context, session *domain.Session, reportID, dept, supervisorID, note string) (*domain.Report, error) {
	if err := session.Require(domain.RoleAdmin); err != nil {
		return nil, err
	}
	dept = strings.TrimSpace(dept)
	supervisorID = strings.TrimSpace(supervisorID)
	if !domain.IsKnownDepartment(dept) {
		return nil, domain.ErrDepartmentNotFound
	}

	if supervisorID != "" {
		user, err := uc.users.GetByID(ctx, supervisorID)
		if err != nil {
			return nil, fmt.Errorf("failed to get supervisor: %w", err)
		}
		if user.Role != domain.RoleSupervisor {
			return nil, fmt.Errorf("%w: %s is not a supervisor", domain.ErrUserNotFound, supervisorID)
		}
	}

	entry := domain.NewAssignmentEntry(dept, supervisorID, session.UserID, uc.now(), strings.TrimSpace(note))
	report, err := uc.reports.Mutate(ctx, reportID, domain.Mutation{
		Assignment: &domain.AssignmentChange{Dept: dept, SupervisorID: supervisorID},
		Entry:      entry,
	})
	uc.count("reassign", err)
	if err != nil {
		uc.logger.Warn(logging.Lifecycle, logging.Assignment, "reassignment failed", map[logging.ExtraKey]any{
			logging.ReportID:     reportID,
			logging.UserID:       session.UserID,
			logging.ErrorMessage: err.Error(),
		})
		return nil, err
	}

	uc.logger.Info(logging.Lifecycle, logging.Assignment, "report reassigned", map[logging.ExtraKey]any{
		logging.ReportID: reportID,
		logging.UserID:   session.UserID,
	})
	uc.publish(ctx, domain.NewReportEvent(domain.EventReportAssigned, session.UserID, report, &entry))
	return report, nil
}

func (uc *useCase) AssignWorker(ctx context.Context, session *domain.Session, reportID, workerID, note string) (*domain.Report, error) {
	if err := session.Require(domain.RoleSupervisor); err != nil {
		return nil, err
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, fmt.Errorf("%w: worker id is required", domain.ErrInvalidInput)
	}

	worker, err := uc.users.GetByID(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker.Role != domain.RoleWorker {
		return nil, fmt.Errorf("%w: %s is not a worker", domain.ErrUserNotFound, workerID)
	}

	entry := domain.NewWorkerAssignmentEntry(worker.ID, worker.Name, session.UserID, uc.now(), strings.TrimSpace(note))
	report, err := uc.reports.Mutate(ctx, reportID, domain.Mutation{
		Worker: &domain.WorkerChange{WorkerID: worker.ID, WorkerName: worker.Name},
		Entry:  entry,
		Guard:  domain.Guard{AssignedTo: session.UserID},
	})
	uc.count("assign_worker", err)
	if err != nil {
		if errors.Is(err, domain.ErrPreconditionFailed) {
			uc.logger.Warn(logging.Lifecycle, logging.Assignment, "worker assignment by non-assignee", map[logging.ExtraKey]any{
				logging.ReportID: reportID,
				logging.UserID:   session.UserID,
			})
			return nil, domain.ErrNotAssignee
		}
		return nil, err
	}

	uc.publish(ctx, domain.NewReportEvent(domain.EventReportWorkerAssigned, session.UserID, report, &entry))
	return report, nil
}

func (uc *useCase) ListWorkers(ctx context.Context, session *domain.Session) ([]domain.User, error) {
	if err := session.RequireStaff(); err != nil {
		return nil, err
	}
	workers, err := uc.users.ListByRole(ctx, domain.RoleWorker)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

func (uc *useCase) ListDepartments(ctx context.Context) ([]DepartmentView, error) {
	known, err := uc.departments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	byKey := make(map[string]domain.Department, len(known))
	for _, d := range known {
		byKey[d.Key] = d
	}

	views := make([]DepartmentView, 0)
	index := make(map[string]int)
	for _, c := range domain.Categories() {
		if c.Department == domain.DeptNone {
			continue
		}
		if i, ok := index[c.Department]; ok {
			views[i].IssueTypes = append(views[i].IssueTypes, c.Key)
			continue
		}
		v := DepartmentView{Key: c.Department, Name: c.Label, IssueTypes: []domain.IssueType{c.Key}}
		if d, ok := byKey[c.Department]; ok {
			if d.Name != "" {
				v.Name = d.Name
			}
			v.SupervisorID = d.SupervisorID
		}
		index[c.Department] = len(views)
		views = append(views, v)
	}
	return views, nil
}

func (uc *useCase) count(kind string, err error) {
	if uc.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
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
