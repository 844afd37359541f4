package counter

import (
	"context"
	"fmt"
	"time"
)

// Counter is a namespaced integer counter with TTL-based reset. Increment and
// SetTTL are separate calls on purpose: refreshing the TTL after every
// increment gives "N events within a trailing window" semantics without
// storing individual events. A crash between the two steps leaves a stale TTL
// at worst, never a lost count.
type Counter interface {
	Increment(ctx context.Context, key string) (int64, error)
	SetTTL(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// FailedPurchasesNamespace scopes the consecutive-failure counters.
const FailedPurchasesNamespace = "failed_purchases_count"

// ProductKey scopes a counter key to one product so streaks on different
// products never interfere.
func ProductKey(productID uint64) string {
	return fmt.Sprintf("product_%d", productID)
}
