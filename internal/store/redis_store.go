package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HsiangNianian/easdk/internal/protocol"
)

// DefaultTTL applies when a RedisStore is built without one.
const DefaultTTL = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
	// ttl expires message counters together with their session.
	ttl time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (r *RedisStore) TTL() time.Duration {
	return r.ttl
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) SaveSession(ctx context.Context, s Session, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, "session:"+s.ID, raw, ttl).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, id string) (Session, bool, error) {
	raw, err := r.client.Get(ctx, "session:"+id).Bytes()
	if err == redis.Nil {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, true, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, id string) error {
	return r.client.Del(ctx, "session:"+id, "messages:"+id).Err()
}

func (r *RedisStore) RecordMessage(ctx context.Context, sessionID string, t protocol.MessageType) error {
	key := "messages:" + sessionID
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, string(t), 1)
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) MessageCounts(ctx context.Context, sessionID string) (map[protocol.MessageType]int64, error) {
	fields, err := r.client.HGetAll(ctx, "messages:"+sessionID).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[protocol.MessageType]int64, len(fields))
	for k, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode count %s: %w", k, err)
		}
		out[protocol.MessageType(k)] = n
	}
	return out, nil
}
