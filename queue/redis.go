package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a [Queue] on a Redis list. Producers LPUSH; the worker BRPOPs,
// so delivery order is FIFO.
type Redis struct {
	client *redis.Client
	name   string
}

// NewRedis creates a queue on the named Redis list. The caller owns client.
func NewRedis(client *redis.Client, name string) *Redis {
	return &Redis{client: client, name: name}
}

// Push implements [Queue].
func (q *Redis) Push(ctx context.Context, payload []byte) error {
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("pushing to %s: %w", q.name, err)
	}

	return nil
}

// Pop implements [Queue].
func (q *Redis) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}

	if err != nil {
		return nil, fmt.Errorf("popping from %s: %w", q.name, err)
	}

	// BRPOP returns [key, value].
	return []byte(res[1]), nil
}

// Len implements [Queue].
func (q *Redis) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", q.name, err)
	}

	return int(n), nil
}

// RedisDeadLetter is a [DeadLetter] on a Redis list. Entries are stored as
// JSON, newest at the head.
type RedisDeadLetter struct {
	client *redis.Client
	name   string
}

// NewRedisDeadLetter creates a dead-letter sink on the named Redis list.
// The caller owns client.
func NewRedisDeadLetter(client *redis.Client, name string) *RedisDeadLetter {
	return &RedisDeadLetter{client: client, name: name}
}

// Send implements [DeadLetter].
func (d *RedisDeadLetter) Send(ctx context.Context, payload []byte, reason string) error {
	entry, err := json.Marshal(Entry{
		Payload:   rawPayload(payload),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding dead-letter entry: %w", err)
	}

	if err := d.client.LPush(ctx, d.name, entry).Err(); err != nil {
		return fmt.Errorf("pushing to %s: %w", d.name, err)
	}

	return nil
}

// Entries implements [DeadLetter].
func (d *RedisDeadLetter) Entries(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := d.client.LRange(ctx, d.name, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", d.name, err)
	}

	entries := make([]Entry, 0, len(raw))

	for _, item := range raw {
		var entry Entry

		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decoding dead-letter entry: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Pop implements [DeadLetter].
func (d *RedisDeadLetter) Pop(ctx context.Context) (Entry, error) {
	item, err := d.client.RPop(ctx, d.name).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrEmpty
	}

	if err != nil {
		return Entry{}, fmt.Errorf("popping from %s: %w", d.name, err)
	}

	var entry Entry

	if err := json.Unmarshal([]byte(item), &entry); err != nil {
		return Entry{}, fmt.Errorf("decoding dead-letter entry: %w", err)
	}

	return entry, nil
}

// Len implements [DeadLetter].
func (d *RedisDeadLetter) Len(ctx context.Context) (int, error) {
	n, err := d.client.LLen(ctx, d.name).Result()
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", d.name, err)
	}

	return int(n), nil
}
