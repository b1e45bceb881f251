package events

import (
	"context"
	"errors"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
)

// LocalPublisher delivers events to in-process handlers. It stands in
// for the broker when no RabbitMQ URI is configured.
type LocalPublisher struct {
	handlers []Handler
	metrics  *metrics.Metrics
}

var _ domain.EventPublisher = (*LocalPublisher)(nil)

func NewLocalPublisher(m *metrics.Metrics, handlers ...Handler) *LocalPublisher {
	return &LocalPublisher{handlers: handlers, metrics: m}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev domain.ReportEvent) error {
	var errs []error
	for _, h := range p.handlers {
		if err := h.Handle(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	countPublished(p.metrics, ev.Type, err)
	return err
}
