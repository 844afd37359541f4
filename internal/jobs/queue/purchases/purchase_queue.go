package purchasequeue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "fraudwatch:purchase_events"
	popTimeout = 5 * time.Second
	retryDelay = time.Second
)

// PurchaseEvent is the "transaction completed" message the purchase pipeline
// publishes after resolving a purchase attempt. The consumer reloads the full
// record from the database; the event only carries the id.
type PurchaseEvent struct {
	PurchaseID uint64 `json:"purchase_id"`
}

type RedisPurchaseQueue struct {
	client *redis.Client
}

func NewRedisPurchaseQueue(client *redis.Client) *RedisPurchaseQueue {
	return &RedisPurchaseQueue{client: client}
}

// Publish enqueues a finished purchase attempt for evaluation.
func (q *RedisPurchaseQueue) Publish(ctx context.Context, purchaseID uint64) error {
	if q.client == nil {
		return errors.New("purchase queue: redis client not configured")
	}

	payload, err := json.Marshal(PurchaseEvent{PurchaseID: purchaseID})
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, queueKey, payload).Err()
}

// Consume blocks popping events and invoking handler until ctx ends. Handler
// panics are not recovered; malformed payloads are dropped with a log line.
func (q *RedisPurchaseQueue) Consume(ctx context.Context, handler func(context.Context, uint64)) {
	if q.client == nil || handler == nil {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		res, err := q.client.BLPop(ctx, popTimeout, queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Purchase queue pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		// BLPop returns [key, value].
		if len(res) < 2 {
			continue
		}

		var event PurchaseEvent
		if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
			log.Error("Dropping malformed purchase event", "payload", res[1], "error", err)
			continue
		}
		handler(ctx, event.PurchaseID)
	}
}
