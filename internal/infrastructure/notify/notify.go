// Package notify hands activation emails to the delivery system. Sending
// the email itself happens downstream; these mailers only enqueue a
// request on whichever transport is configured.
package notify

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	ProviderLog      = "log"
	ProviderRedis    = "redis"
	ProviderKafka    = "kafka"
	ProviderRabbitMQ = "rabbitmq"

	eventActivationRequested = "member.activation_requested"
)

var ErrUnsupportedProvider = errors.New("unsupported mailer provider")

// Mailer is an ActivationMailer that owns a transport connection.
type Mailer interface {
	domain.ActivationMailer
	io.Closer
}

type Config struct {
	Provider string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisList     string

	KafkaBrokers []string
	KafkaTopic   string

	RabbitMQURI   string
	RabbitMQQueue string
}

// New builds the mailer for cfg.Provider. An empty provider logs requests
// instead of sending them.
func New(cfg Config, logger logrus.FieldLogger) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderLog:
		return NewLogMailer(logger), nil
	case ProviderRedis:
		return NewRedisMailer(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisList)
	case ProviderKafka:
		return NewKafkaMailer(cfg.KafkaBrokers, cfg.KafkaTopic)
	case ProviderRabbitMQ:
		return NewRabbitMQMailer(cfg.RabbitMQURI, cfg.RabbitMQQueue)
	default:
		return nil, errors.Wrapf(ErrUnsupportedProvider, "%q", cfg.Provider)
	}
}

// SupportedProviders lists the values accepted by New.
func SupportedProviders() []string {
	return []string{ProviderLog, ProviderRedis, ProviderKafka, ProviderRabbitMQ}
}

type message struct {
	Type        string                 `json:"type"`
	RequestedAt time.Time              `json:"requested_at"`
	Payload     domain.ActivationEmail `json:"payload"`
}

func encode(email domain.ActivationEmail) ([]byte, error) {
	body, err := json.Marshal(message{
		Type:        eventActivationRequested,
		RequestedAt: time.Now().UTC(),
		Payload:     email,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode activation email")
	}
	return body, nil
}

// LogMailer records the request in the log. The token is left out.
type LogMailer struct {
	logger logrus.FieldLogger
}

func NewLogMailer(logger logrus.FieldLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) RequestActivationEmail(_ context.Context, email domain.ActivationEmail) error {
	m.logger.WithFields(logrus.Fields{
		"member_id":  email.MemberID,
		"email":      email.Email,
		"expires_at": email.ExpiresAt,
	}).Info("activation email requested")
	return nil
}

func (m *LogMailer) Close() error { return nil }
