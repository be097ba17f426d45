package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
)

const defaultStreamLen = 10000

// RedisSink publishes each event on a pub/sub channel and appends it to a
// capped stream so late consumers can replay recent history.
type RedisSink struct {
	client *redis.Client
	prefix string
	maxLen int64
}

// NewRedisSink connects with a redis:// URL.
func NewRedisSink(url, prefix string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisSink{
		client: redis.NewClient(opts),
		prefix: prefix,
		maxLen: defaultStreamLen,
	}, nil
}

func (s *RedisSink) Stream() string { return s.prefix + ":events" }

func (s *RedisSink) Publish(ctx context.Context, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Publish(ctx, subject(s.prefix, e), data)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.Stream(),
		MaxLen: s.maxLen,
		Values: map[string]any{
			"type":    string(e.Type),
			"peer_id": e.PeerID,
			"event":   data,
		},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event to redis: %w", err)
	}
	return nil
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSink) Close() error { return s.client.Close() }
