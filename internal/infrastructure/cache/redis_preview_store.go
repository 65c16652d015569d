package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	DefaultPreviewTTL = 24 * time.Hour
	previewPrefix     = "member-import:preview:"
	claimPrefix       = "member-import:claim:"
)

// RedisPreviewStore keeps preview reports as JSON values keyed by file key.
// A claim is a separate key set with SETNX, so only one commit wins.
type RedisPreviewStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPreviewStore(client *redis.Client, ttl time.Duration) *RedisPreviewStore {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &RedisPreviewStore{client: client, ttl: ttl}
}

// Save stores the report and drops any claim, so re-uploading a file that
// was already committed yields a fresh, committable preview.
func (s *RedisPreviewStore) Save(ctx context.Context, report domain.PreviewReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encode preview")
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, previewPrefix+report.FileKey, raw, s.ttl)
		pipe.Del(ctx, claimPrefix+report.FileKey)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "save preview")
	}
	return nil
}

func (s *RedisPreviewStore) Load(ctx context.Context, fileKey string) (domain.PreviewReport, error) {
	raw, err := s.client.Get(ctx, previewPrefix+fileKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PreviewReport{}, domain.ErrPreviewNotFound
		}
		return domain.PreviewReport{}, errors.Wrap(err, "load preview")
	}

	var report domain.PreviewReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return domain.PreviewReport{}, errors.Wrap(err, "decode preview")
	}
	return report, nil
}

func (s *RedisPreviewStore) Claim(ctx context.Context, fileKey string) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimPrefix+fileKey, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "claim preview")
	}
	return ok, nil
}

func (s *RedisPreviewStore) Release(ctx context.Context, fileKey string) error {
	if err := s.client.Del(ctx, claimPrefix+fileKey).Err(); err != nil {
		return errors.Wrap(err, "release preview")
	}
	return nil
}
