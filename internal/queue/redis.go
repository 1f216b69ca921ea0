// Package queue implements the push-left/pop-right FIFO queues that
// decouple ingress, the matching engine, the DB persister, and the
// settlement worker.
package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue names, matching the original pipeline's wire contract exactly.
const (
	OrderQueue      = "ORDER_QUEUE"
	DBQueue         = "DB_QUEUE"
	SettlementQueue = "SETTLEMENT_QUEUE"
)

// Client wraps a Redis connection with the push-left/pop-right FIFO
// discipline every stage of the pipeline shares.
type Client struct {
	rdb *redis.Client
}

// New connects to redisURL (e.g. "redis://localhost:6379/0").
func New(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Push enqueues payload at the head of queue (LPUSH).
func (c *Client) Push(ctx context.Context, queue string, payload []byte) error {
	return c.rdb.LPush(ctx, queue, payload).Err()
}

// Pop dequeues the oldest payload from the tail of queue (RPOP). It returns
// (nil, false, nil) when the queue is empty rather than blocking, so
// callers can apply their own idle/backoff policy.
func (c *Client) Pop(ctx context.Context, queue string) ([]byte, bool, error) {
	v, err := c.rdb.RPop(ctx, queue).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Requeue pushes payload back onto the head of queue, used when a
// downstream consumer fails and wants the item retried.
func (c *Client) Requeue(ctx context.Context, queue string, payload []byte) error {
	return c.Push(ctx, queue, payload)
}

// Close releases the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

// PollEmptyDelay is how long a consumer should sleep after observing an
// empty queue before polling again.
const PollEmptyDelay = 100 * time.Millisecond

// RetryBackoff is how long a consumer should sleep after a failed downstream
// call (e.g. a rejected settlement) before retrying the re-queued item.
const RetryBackoff = 1 * time.Second
