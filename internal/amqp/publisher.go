// Package amqp fans decoded and raw telemetry out to the message broker.
// Publishing is fire-and-forget from the handlers' perspective; failures
// surface in logs only.
package amqp

import (
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Exchange and queue topology, declared idempotently at startup.
const (
	ExchangeTelemetry = "telemetry"

	QueueADSB           = "adsb"
	QueueNetridID       = "netrid_id"
	QueueNetridPosition = "netrid_pos"
	QueueNetridVelocity = "netrid_vel"

	RoutingKeyADSB           = "adsb"
	RoutingKeyNetridID       = "netrid:id"
	RoutingKeyNetridPosition = "netrid:pos"
	RoutingKeyNetridVelocity = "netrid:vel"
)

var queueBindings = map[string]string{
	QueueADSB:           RoutingKeyADSB,
	QueueNetridID:       RoutingKeyNetridID,
	QueueNetridPosition: RoutingKeyNetridPosition,
	QueueNetridVelocity: RoutingKeyNetridVelocity,
}

// Publisher wraps one broker channel. A Publisher with a nil channel (broker
// unreachable at startup) degrades to logged no-ops so ingest keeps running.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// Dial connects to the broker and declares the telemetry topology: one
// topic exchange and a queue per record family bound under its routing key.
func Dial(url string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial %s: %w", url, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(ExchangeTelemetry, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("amqp: declare exchange %s: %w", ExchangeTelemetry, err)
	}

	for queue, routingKey := range queueBindings {
		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("amqp: declare queue %s: %w", queue, err)
		}
		if err := channel.QueueBind(queue, routingKey, ExchangeTelemetry, false, nil); err != nil {
			return nil, fmt.Errorf("amqp: bind queue %s: %w", queue, err)
		}
	}

	logger.Info("broker topology declared",
		zap.String("exchange", ExchangeTelemetry),
		zap.Int("queues", len(queueBindings)))

	return &Publisher{conn: conn, channel: channel, logger: logger}, nil
}

// Disabled returns a publisher that logs and drops every publish. Used when
// the broker is not configured or unreachable at startup.
func Disabled(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

// Close tears down the channel and connection. Safe on a disabled publisher.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	return p.conn.Close()
}

// Publish sends the payload to the telemetry exchange under the routing key.
func (p *Publisher) Publish(routingKey, contentType string, payload []byte) error {
	if p.channel == nil {
		p.logger.Warn("broker not connected, dropping publish", zap.String("routing_key", routingKey))
		return nil
	}
	err := p.channel.Publish(ExchangeTelemetry, routingKey, false, false, amqp.Publishing{
		ContentType: contentType,
		Body:        payload,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", routingKey, err)
	}
	return nil
}
