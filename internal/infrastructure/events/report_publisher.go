package events

import (
	"context"
	"encoding/json"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/contracts"
	"github.com/hilthontt/civicreport/internal/infrastructure/messaging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
)

type ReportPublisher struct {
	rabbitmq *messaging.RabbitMQ
	metrics  *metrics.Metrics
}

var _ domain.EventPublisher = (*ReportPublisher)(nil)

func NewReportPublisher(rabbitmq *messaging.RabbitMQ, m *metrics.Metrics) *ReportPublisher {
	return &ReportPublisher{
		rabbitmq: rabbitmq,
		metrics:  m,
	}
}

func (p *ReportPublisher) Publish(ctx context.Context, ev domain.ReportEvent) error {
	err := p.publish(ctx, ev)
	countPublished(p.metrics, ev.Type, err)
	return err
}

func (p *ReportPublisher) publish(ctx context.Context, ev domain.ReportEvent) error {
	eventJSON, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, ev.Type, contracts.AmqpMessage{
		ActorID:  ev.ActorID,
		ReportID: ev.ReportID,
		Data:     eventJSON,
	})
}

func countPublished(m *metrics.Metrics, routingKey string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(routingKey, outcome).Inc()
}
