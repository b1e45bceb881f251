package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/contracts"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type ReportConsumer struct {
	rabbitmq *messaging.RabbitMQ
	logger   logging.Logger
}

func NewReportConsumer(rabbitmq *messaging.RabbitMQ, logger logging.Logger) *ReportConsumer {
	return &ReportConsumer{
		rabbitmq: rabbitmq,
		logger:   logger,
	}
}

// Listen feeds every delivery of queueName to handler.
func (c *ReportConsumer) Listen(ctx context.Context, queueName string, handler Handler) error {
	return c.rabbitmq.ConsumeMessages(ctx, queueName, func(ctx context.Context, msg amqp091.Delivery) error {
		ev, err := decode(msg.Body)
		if err != nil {
			return err
		}

		c.logger.Debug(logging.RabbitMQ, logging.Consume, "report event received", map[logging.ExtraKey]any{
			logging.EventType: ev.Type,
			logging.ReportID:  ev.ReportID,
		})
		return handler.Handle(ctx, ev)
	})
}

func decode(body []byte) (domain.ReportEvent, error) {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return domain.ReportEvent{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	var ev domain.ReportEvent
	if err := json.Unmarshal(message.Data, &ev); err != nil {
		return domain.ReportEvent{}, fmt.Errorf("failed to unmarshal report event: %w", err)
	}
	return ev, nil
}
