package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/model"
)

// RedisAuditBus carries committed audit entries over a Redis Pub/Sub channel.
type RedisAuditBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisAuditBus creates a new RedisAuditBus.
func NewRedisAuditBus(rdb *redis.Client, log zerolog.Logger) *RedisAuditBus {
	return &RedisAuditBus{rdb: rdb, log: log.With().Str("component", "audit_bus").Logger()}
}

// Publish sends entry as JSON on the audit channel.
func (b *RedisAuditBus) Publish(ctx context.Context, entry model.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	return b.rdb.Publish(ctx, config.CacheKey.AuditChannel(), payload).Err()
}

// Subscribe returns decoded entries until ctx is done.
func (b *RedisAuditBus) Subscribe(ctx context.Context) (<-chan model.AuditEntry, error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.AuditChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan model.AuditEntry)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var entry model.AuditEntry
				if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
					b.log.Warn().Err(err).Msg("Dropping malformed audit message")
					continue
				}
				select {
				case out <- entry:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
