package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const defaultKafkaTopic = "member-activation-emails"

// KafkaMailer publishes one message per request, keyed by member id so a
// resend lands on the same partition as the original.
type KafkaMailer struct {
	writer *kafka.Writer
}

func NewKafkaMailer(brokers []string, topic string) (*KafkaMailer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka mailer needs at least one broker")
	}
	if topic == "" {
		topic = defaultKafkaTopic
	}
	return &KafkaMailer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}, nil
}

func (m *KafkaMailer) RequestActivationEmail(ctx context.Context, email domain.ActivationEmail) error {
	body, err := encode(email)
	if err != nil {
		return err
	}
	if err := m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(email.MemberID),
		Value: body,
		Time:  time.Now(),
	}); err != nil {
		return errors.Wrap(err, "write activation email")
	}
	return nil
}

func (m *KafkaMailer) Close() error {
	return m.writer.Close()
}
