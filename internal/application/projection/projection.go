package projection

import (
	"context"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
)

const DefaultChartDays = 30

type View struct {
	Reports []domain.Report `json:"reports"`
	Stats   Stats           `json:"stats"`
}

type StatsView struct {
	Stats Stats        `json:"stats"`
	Daily []DailyCount `json:"daily"`
}

type UseCase interface {
	List(ctx context.Context, session *domain.Session) (*View, error)
	Get(ctx context.Context, session *domain.Session, id string) (*domain.Report, error)
	Stats(ctx context.Context, session *domain.Session, days int) (*StatsView, error)
	Subscribe(ctx context.Context, session *domain.Session) (*Subscription, error)
}

type useCase struct {
	reports domain.ReportRepository
	hub     *Hub
	logger  logging.Logger
	now     func() time.Time
}

func NewUseCase(reports domain.ReportRepository, hub *Hub, logger logging.Logger, now func() time.Time) UseCase {
	if now == nil {
		now = time.Now
	}
	return &useCase{reports: reports, hub: hub, logger: logger, now: now}
}

func (uc *useCase) List(ctx context.Context, session *domain.Session) (*View, error) {
	if err := session.Require(); err != nil {
		return nil, err
	}
	reports, err := uc.reports.List(ctx, domain.ScopeFor(session))
	if err != nil {
		return nil, err
	}
	return &View{Reports: reports, Stats: Compute(reports, uc.now())}, nil
}

func (uc *useCase) Get(ctx context.Context, session *domain.Session, id string) (*domain.Report, error) {
	if err := session.Require(); err != nil {
		return nil, err
	}
	report, err := uc.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.ScopeFor(session).Matches(report) {
		return nil, domain.ErrReportNotFound
	}
	return report, nil
}

func (uc *useCase) Stats(ctx context.Context, session *domain.Session, days int) (*StatsView, error) {
	if err := session.Require(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultChartDays
	}
	reports, err := uc.reports.List(ctx, domain.ScopeFor(session))
	if err != nil {
		return nil, err
	}
	now := uc.now()
	return &StatsView{Stats: Compute(reports, now), Daily: DailyCounts(reports, now, days)}, nil
}

func (uc *useCase) Subscribe(ctx context.Context, session *domain.Session) (*Subscription, error) {
	if err := session.Require(); err != nil {
		return nil, err
	}
	sub, err := uc.hub.subscribe(ctx, domain.ScopeFor(session), uc.reports.List)
	if err != nil {
		return nil, err
	}
	uc.logger.Debug(logging.Realtime, logging.Subscription, "live view opened", map[logging.ExtraKey]any{
		logging.UserID: session.UserID,
	})
	return sub, nil
}
