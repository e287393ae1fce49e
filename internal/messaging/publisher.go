package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/events"
)

// Publisher is the AMQP implementation of events.Publisher. Messages are
// persistent and routed as fulfillment.<source>.<event_type> on the topic
// exchange.
type Publisher struct {
	client *RabbitMQClient
	log    *zap.Logger
}

func NewPublisher(client *RabbitMQClient, log *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		log:    log,
	}
}

func RoutingKey(event events.Event) string {
	return fmt.Sprintf("fulfillment.%s.%s", event.Source, string(event.EventType))
}

func (p *Publisher) Publish(event events.Event) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("no connection to rabbitmq")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	routingKey := RoutingKey(event)

	channel := p.client.Channel()
	err = channel.Publish(
		p.client.config.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Headers: amqp.Table{
				"correlation_id": event.CorrelationID.String(),
				"source":         event.Source,
				"event_type":     string(event.EventType),
			},
		},
	)

	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	p.log.Debug("event published",
		zap.String("routing_key", routingKey),
		zap.String("event_type", string(event.EventType)))
	return nil
}

func (p *Publisher) PublishWithRetry(event events.Event, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if err := p.Publish(event); err != nil {
			lastErr = err
			p.log.Warn("event publish failed",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", maxRetries),
				zap.Error(err))

			if i < maxRetries-1 {
				time.Sleep(time.Second * time.Duration(i+1))
				continue
			}
		} else {
			return nil
		}
	}

	return fmt.Errorf("event publish failed after %d attempts: %w", maxRetries, lastErr)
}
