package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ResetMailer delivers one password-reset email.
type ResetMailer interface {
	SendPasswordResetCode(ctx context.Context, email, name, code string, validFor time.Duration) error
}

// sendTimeout bounds the delivery of a single job.
const sendTimeout = 30 * time.Second

// StartMailConsumer connects to RabbitMQ, declares the password-reset queue
// (durable) and hands every job to mailer. It runs a reconnect loop with
// exponential backoff and returns only when ctx is cancelled. A job that
// cannot be decoded or delivered is logged and rejected without requeue so
// one bad message cannot stall the queue.
func StartMailConsumer(ctx context.Context, url string, mailer ResetMailer) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("mail-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, mailer)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("mail-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, mailer ResetMailer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnf("mail-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(PasswordResetQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(PasswordResetQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, d.Body, mailer); err != nil {
				log.Errorf("mail-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one job and sends the email.
func HandleMessage(ctx context.Context, body []byte, mailer ResetMailer) error {
	var ev PasswordResetEmail
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" || ev.Code == "" {
		return errors.New("job without email or code")
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return mailer.SendPasswordResetCode(ctx, ev.Email, ev.Name, ev.Code, time.Duration(ev.ValidForMinutes)*time.Minute)
}
