// Package queue carries study activity from the API process to the worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StudyActivity is one freshly recorded study day. The API publishes at most
// one per enrollment per day; the worker folds them into activity rollups.
type StudyActivity struct {
	CourseID string `json:"courseId"`
	Day      string `json:"day"`
}

// ErrInvalidActivity rejects payloads missing the course or the day.
var ErrInvalidActivity = errors.New("queue: study activity needs courseId and day")

// Queue is the transport between publisher and worker.
type Queue interface {
	Publish(ctx context.Context, a StudyActivity) error
	Consume(ctx context.Context) (<-chan StudyActivity, error)
}

func encode(a StudyActivity) (string, error) {
	if a.CourseID == "" || a.Day == "" {
		return "", ErrInvalidActivity
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(payload string) (StudyActivity, error) {
	var a StudyActivity
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return StudyActivity{}, err
	}
	if a.CourseID == "" || a.Day == "" {
		return StudyActivity{}, ErrInvalidActivity
	}
	return a, nil
}

// InMemory buffers activity in a channel. It backs dev setups and tests where
// no Redis runs; messages do not survive a restart.
type InMemory struct {
	ch chan StudyActivity
}

// NewInMemory creates a queue buffering up to size messages.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan StudyActivity, size)}
}

// Publish enqueues activity, blocking while the buffer is full.
func (q *InMemory) Publish(ctx context.Context, a StudyActivity) error {
	if a.CourseID == "" || a.Day == "" {
		return ErrInvalidActivity
	}
	select {
	case q.ch <- a:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume streams buffered activity until ctx is canceled.
func (q *InMemory) Consume(ctx context.Context) (<-chan StudyActivity, error) {
	out := make(chan StudyActivity)
	go func() {
		defer close(out)
		for {
			select {
			case a := <-q.ch:
				select {
				case out <- a:
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

const defaultKey = "learnhub:activity"

// RedisQueue keeps activity as JSON entries in a Redis list so the API and
// worker survive each other's restarts. LPUSH feeds the list, BRPOP drains
// it; several workers may share one list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue on the named list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish pushes activity onto the list.
func (q *RedisQueue) Publish(ctx context.Context, a StudyActivity) error {
	payload, err := encode(a)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume drains the list until ctx is canceled. Entries that do not decode
// to a valid activity are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan StudyActivity, error) {
	out := make(chan StudyActivity)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			// redis.Nil here means the block timed out with nothing queued.
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil || len(res) != 2 {
				continue
			}
			a, err := decode(res[1])
			if err != nil {
				continue
			}
			select {
			case out <- a:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
