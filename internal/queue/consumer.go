package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Consumer drains the marketplace queues and appends one line per event to
// a notification log. Activation events stand in for the outgoing mail.
type Consumer struct {
	URL     string
	LogPath string
	Log     zerolog.Logger
}

// Run connects, consumes and reconnects with backoff until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("notifier: dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn().Err(err).Msg("notifier: consume loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

type delivery struct {
	key string
	amqp.Delivery
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn().Err(err).Msg("notifier: set QoS failed")
	}

	merged := make(chan delivery)
	done := make(chan struct{})
	defer close(done)
	for _, key := range Keys {
		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", key, err)
		}
		msgs, err := ch.Consume(key, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", key, err)
		}
		go func(key string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{key: key, Delivery: d}:
				case <-done:
					return
				}
			}
		}(key, msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-merged:
			if err := c.handle(d.key, d.Body); err != nil {
				c.Log.Error().Err(err).Str("queue", d.key).Msg("notifier: handle message failed")
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(key string, body []byte) error {
	line, err := FormatEvent(key, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders one event as a single log line.
func FormatEvent(key string, body []byte) (string, error) {
	switch key {
	case OrderCreatedKey:
		var ev OrderCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Order created | order_id=%d | customer_user_id=%d | business_user_id=%d | title=%q | offer_type=%s | price=%s",
			ev.CreatedAt.Format(time.RFC3339), ev.OrderID, ev.CustomerUserID, ev.BusinessUserID, ev.Title, ev.OfferType, ev.Price), nil
	case ReviewCreatedKey:
		var ev ReviewCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Review created | review_id=%d | reviewer_user_id=%d | business_user_id=%d | rating=%d",
			ev.CreatedAt.Format(time.RFC3339), ev.ReviewID, ev.ReviewerUserID, ev.BusinessUserID, ev.Rating), nil
	case AccountActivationKey:
		var ev AccountActivationEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Activation mail | user_id=%d | username=%q | to=%s | link=%s",
			ev.RequestedAt.Format(time.RFC3339), ev.UserID, ev.Username, ev.Email, ev.ActivationURL), nil
	}
	return "", fmt.Errorf("unknown queue %q", key)
}
