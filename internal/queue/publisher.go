package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Publisher sends persistent JSON messages to RabbitMQ. Every publish dials
// its own connection; a circuit breaker stops dialing an unreachable broker
// on every request.
type Publisher struct {
	url     string
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
	dial    func(url string) (amqpChannel, func(), error)
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

func NewPublisher(url string, log zerolog.Logger) *Publisher {
	p := &Publisher{url: url, log: log, dial: dialChannel}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rabbitmq-publish",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

func dialChannel(url string) (amqpChannel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
}

// Publish declares the durable queue named key and sends payload to it.
// Errors are logged and returned so callers may ignore them.
func (p *Publisher) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("queue", key).Msg("marshal event failed")
		return err
	}
	_, err = p.breaker.Execute(func() (any, error) {
		ch, closeFn, err := p.dial(p.url)
		if err != nil {
			return nil, err
		}
		defer closeFn()

		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("queue declare: %w", err)
		}
		return nil, ch.PublishWithContext(ctx, "", key, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	})
	if err != nil {
		p.log.Warn().Err(err).Str("queue", key).Msg("publish failed")
	}
	return err
}
