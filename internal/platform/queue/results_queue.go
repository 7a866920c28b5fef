package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trackmeet/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when no job arrived within the timeout.
var ErrEmpty = errors.New("queue empty")

// ResultsQueue carries result announcements from the API to the notification worker.
type ResultsQueue struct {
	rdb  *redis.Client
	name string
}

func NewResultsQueue(rdb *redis.Client, name string) *ResultsQueue {
	return &ResultsQueue{rdb: rdb, name: name}
}

func (q *ResultsQueue) Publish(ctx context.Context, a model.Announcement) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("push announcement to %s: %w", q.name, err)
	}
	return nil
}

// Pop blocks up to timeout for the oldest announcement.
func (q *ResultsQueue) Pop(ctx context.Context, timeout time.Duration) (*model.Announcement, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// res is [queueName, value]
	if len(res) < 2 || res[1] == "" {
		return nil, ErrEmpty
	}
	var a model.Announcement
	if err := json.Unmarshal([]byte(res[1]), &a); err != nil {
		return nil, fmt.Errorf("decode announcement: %w", err)
	}
	return &a, nil
}

// Requeue puts a job back at the consuming end of the list.
func (q *ResultsQueue) Requeue(ctx context.Context, a model.Announcement) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.name, payload).Err()
}
