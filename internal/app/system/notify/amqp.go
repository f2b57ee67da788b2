// internal/app/system/notify/amqp.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// AMQPNotifier publishes notification payloads to a durable RabbitMQ queue
// consumed by the push-delivery relay. Deliveries are persistent and
// at-least-once; a circuit breaker keeps a broker outage from stalling the
// alert path, failed sends degrade to logged errors.
type AMQPNotifier struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	cb    *gobreaker.CircuitBreaker
	log   *zap.Logger
}

// NewAMQPNotifier dials the broker and declares the queue (idempotent).
func NewAMQPNotifier(amqpURL, queueName string, logger *zap.Logger) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notify-amqp",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notification circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &AMQPNotifier{conn: conn, ch: ch, queue: queueName, cb: cb, log: logger}, nil
}

// Send publishes one payload as a persistent JSON message. The payload's
// MessageID becomes the AMQP MessageId so downstream consumers can dedup
// redelivery.
func (n *AMQPNotifier) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = n.cb.Execute(func() (interface{}, error) {
		return nil, n.ch.PublishWithContext(
			ctx,
			"",      // exchange (default)
			n.queue, // routing key == queue name
			false,   // mandatory
			false,   // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    p.MessageID,
				Timestamp:    time.Now().UTC(),
				Body:         body,
			},
		)
	})
	return err
}

func (n *AMQPNotifier) Close() error {
	if n.ch != nil {
		if err := n.ch.Close(); err != nil {
			return err
		}
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
