package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const defaultRabbitMQQueue = "member.activation.emails"

// RabbitMQMailer publishes persistent messages to a durable queue. A
// channel is not safe for concurrent publishing, hence the mutex.
type RabbitMQMailer struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewRabbitMQMailer(uri, queue string) (*RabbitMQMailer, error) {
	if queue == "" {
		queue = defaultRabbitMQQueue
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, errors.Wrap(err, "connect to rabbitmq")
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare queue")
	}

	return &RabbitMQMailer{conn: conn, channel: channel, queue: queue}, nil
}

func (m *RabbitMQMailer) RequestActivationEmail(ctx context.Context, email domain.ActivationEmail) error {
	body, err := encode(email)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err = m.channel.PublishWithContext(ctx, "", m.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    email.MemberID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return errors.Wrap(err, "publish activation email")
	}
	return nil
}

func (m *RabbitMQMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return m.conn.Close()
}
