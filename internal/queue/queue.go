package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list holding change events.
const DefaultKey = "tutoring:changes"

// Change describes a write to a student's records. Period is the month key,
// year or date the write touched, when there is one.
type Change struct {
	StudentID  string    `json:"studentId"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	Period     string    `json:"period,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, c Change) error
	Consume(ctx context.Context) (<-chan Change, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Change
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Change, size)}
}

// Publish enqueues a change.
func (q *InMemory) Publish(ctx context.Context, c Change) error {
	select {
	case q.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers; it closes when ctx ends.
func (q *InMemory) Consume(ctx context.Context) (<-chan Change, error) {
	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			select {
			case c := <-q.ch:
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a change.
func (q *RedisQueue) Publish(ctx context.Context, c Change) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume streams changes using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Change, error) {
	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					log.Printf("queue: brpop failed: %v", err)
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var c Change
			if err := json.Unmarshal([]byte(res[1]), &c); err != nil {
				log.Printf("queue: dropping malformed change: %v", err)
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Discard drops every change; used when no queue backend is reachable.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, Change) error { return nil }

// Consume returns a channel closed when ctx ends.
func (Discard) Consume(ctx context.Context) (<-chan Change, error) {
	out := make(chan Change)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
