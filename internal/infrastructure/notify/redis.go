package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const defaultRedisList = "member-import:activation-emails"

// RedisMailer pushes requests onto a list consumed by the mail worker.
type RedisMailer struct {
	client *redis.Client
	list   string
}

func NewRedisMailer(addr, password string, db int, list string) (*RedisMailer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}

	if list == "" {
		list = defaultRedisList
	}
	return &RedisMailer{client: client, list: list}, nil
}

func (m *RedisMailer) RequestActivationEmail(ctx context.Context, email domain.ActivationEmail) error {
	body, err := encode(email)
	if err != nil {
		return err
	}
	if err := m.client.LPush(ctx, m.list, body).Err(); err != nil {
		return errors.Wrap(err, "push activation email")
	}
	return nil
}

func (m *RedisMailer) Close() error {
	return m.client.Close()
}
