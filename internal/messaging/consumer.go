package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/shopsphere/order-fulfillment/internal/events"
)

type EventHandler func(event events.Event) error

// Consumer binds a durable queue to the topic exchange and feeds incoming
// events to a handler. Delivery is at-least-once: a failed handler gets the
// message redelivered up to three times, then the message is dead-lettered.
type Consumer struct {
	client       *RabbitMQClient
	queueName    string
	consumerName string
	log          *zap.Logger
}

func NewConsumer(client *RabbitMQClient, queueName, consumerName string, log *zap.Logger) *Consumer {
	return &Consumer{
		client:       client,
		queueName:    queueName,
		consumerName: consumerName,
		log:          log,
	}
}

func (c *Consumer) ConsumeEvents(routingKeys []string, handler EventHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("no connection to rabbitmq")
	}

	channel := c.client.Channel()

	queue, err := channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("queue declare error: %w", err)
	}

	for _, routingKey := range routingKeys {
		err = channel.QueueBind(
			queue.Name,
			routingKey,
			c.client.config.Exchange,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("queue bind error (%s): %w", routingKey, err)
		}
		c.log.Info("queue bound",
			zap.String("queue", queue.Name),
			zap.String("routing_key", routingKey))
	}

	messages, err := channel.Consume(
		queue.Name,
		c.consumerName,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume start error: %w", err)
	}

	c.log.Info("consuming events", zap.String("queue", queue.Name))

	go func() {
		for {
			select {
			case msg := <-messages:
				c.handleMessage(msg, handler)
			case <-c.client.ctx.Done():
				c.log.Info("consumer stopped", zap.String("consumer", c.consumerName))
				return
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(msg amqp.Delivery, handler EventHandler) {
	var event events.Event

	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.log.Error("event deserialize error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	if err := handler(event); err != nil {
		c.log.Error("event handler error",
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))

		if c.shouldRetry(msg) {
			c.republish(msg)
		} else {
			c.log.Warn("max redeliveries reached, dead-lettering",
				zap.String("event_type", string(event.EventType)))
			msg.Nack(false, false)
		}
		return
	}

	msg.Ack(false)
}

func (c *Consumer) shouldRetry(msg amqp.Delivery) bool {
	if xDeath, ok := msg.Headers["x-death"]; ok {
		if deathArray, ok := xDeath.([]interface{}); ok && len(deathArray) > 0 {
			if death, ok := deathArray[0].(amqp.Table); ok {
				if count, ok := death["count"]; ok {
					if retryCount, ok := count.(int64); ok && retryCount >= 3 {
						return false
					}
				}
			}
		}
	}

	return true
}

func (c *Consumer) republish(msg amqp.Delivery) {
	channel := c.client.Channel()

	time.Sleep(2 * time.Second)

	err := channel.Publish(
		msg.Exchange,
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			DeliveryMode: msg.DeliveryMode,
			Headers:      msg.Headers,
		},
	)

	if err != nil {
		c.log.Error("redelivery publish error", zap.Error(err))
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
}
