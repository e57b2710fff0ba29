// Package service provides the domain event publisher backed by RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/learntrack/internal/config"
	q "github.com/iliyamo/learntrack/internal/queue"
)

// EventPublisher is what handlers depend on.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

// Publisher dials the broker per message.
type Publisher struct {
	url     string
	enabled bool
}

func NewPublisher(cfg config.QueueConfig) *Publisher {
	return &Publisher{url: cfg.URL, enabled: cfg.Enabled}
}

// Publish sends event as JSON to queue.  Messages are persistent and the
// queue is declared durable before publishing.
func (p *Publisher) Publish(ctx context.Context, queue string, event any) error {
	if p == nil || !p.enabled {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// PublishAsync publishes in the background with its own timeout so a slow
// broker never delays the HTTP response.
func PublishAsync(p EventPublisher, queue string, event any) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, queue, event); err != nil {
			log.Printf("events: %s not published: %v", queue, err)
		}
	}()
}

// EnrollmentCreated publishes ev on its queue.
func EnrollmentCreated(p EventPublisher, ev q.EnrollmentCreatedEvent) {
	PublishAsync(p, q.EnrollmentCreatedQueue, ev)
}

// InstructorActivated publishes ev on its queue.
func InstructorActivated(p EventPublisher, ev q.InstructorActivatedEvent) {
	PublishAsync(p, q.InstructorActivatedQueue, ev)
}
