// Package service holds adapters that connect the domain services to
// outside systems.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/iliyamo/edu-platform/internal/queue"
)

// ResetMailPublisher turns password-reset notifications into jobs on the
// mail queue. Errors are logged and returned; the auth service already runs
// it off the request path.
type ResetMailPublisher struct {
	URL string
}

func NewResetMailPublisher(url string) *ResetMailPublisher {
	return &ResetMailPublisher{URL: url}
}

// SendPasswordResetCode publishes a PasswordResetEmail job. Messages are
// marked as persistent.
func (p *ResetMailPublisher) SendPasswordResetCode(ctx context.Context, email, name, code string, validFor time.Duration) error {
	return p.publish(ctx, q.PasswordResetQueue, q.PasswordResetEmail{
		Email:           email,
		Name:            name,
		Code:            code,
		ValidForMinutes: int(validFor.Minutes()),
		RequestedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *ResetMailPublisher) publish(ctx context.Context, queue string, event any) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Errorf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Errorf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so jobs survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Errorf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Errorf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Errorf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
