package blocklist

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"
)

// Package blocklist keeps an in-memory snapshot of active blocked values so
// the purchase-admission path can pre-screen buyers without a database
// round trip per attribute. The store remains the source of truth; the cache
// is refreshed on every blocked-object write and is allowed to lag by the few
// seconds a concurrent refresh takes. Each value carries its expiry so a
// time-bounded block stops matching the moment it lapses, without waiting for
// the next refresh.

var (
	cache       atomicBlockSets
	hydrated    atomic.Bool
	subscribed  atomic.Bool
	refreshOnce singleflight.Group
)

// blockSets maps object type -> value -> expiry; a zero expiry means the
// block never expires.
type blockSets map[string]map[string]time.Time

type atomicBlockSets struct {
	val atomic.Value
}

func (a *atomicBlockSets) Load() blockSets {
	raw, ok := a.val.Load().(blockSets)
	if !ok || raw == nil {
		empty := make(blockSets)
		a.val.Store(empty)
		return empty
	}
	return raw
}

func (a *atomicBlockSets) Store(m blockSets) {
	a.val.Store(m)
}

func init() {
	cache.Store(make(blockSets))
}

// Initialize hydrates the cache and subscribes it to store writes. Call once
// after the database is ready.
func Initialize(ctx context.Context) error {
	if subscribed.CompareAndSwap(false, true) {
		database.RegisterBlockedObjectListener(func() {
			if err := Refresh(context.Background()); err != nil {
				log.Error("Blocklist cache refresh after write failed", "error", err)
			}
		})
	}
	return Refresh(ctx)
}

// Refresh reloads the cache from the store. Concurrent callers share one
// database read.
func Refresh(ctx context.Context) error {
	_, err, _ := refreshOnce.Do("blocklist_refresh", func() (any, error) {
		records, err := database.ActiveBlockedObjects(ctx)
		if err != nil {
			return nil, err
		}
		cache.Store(toSets(records))
		hydrated.Store(true)
		return nil, nil
	})
	return err
}

// Hydrated reports whether the cache has completed at least one load.
// Callers fall back to direct store reads until it has.
func Hydrated() bool {
	return hydrated.Load()
}

// IsBlocked reports whether (objectType, value) is actively blocked according
// to the current snapshot. An entry whose expiry has passed no longer blocks,
// even before the snapshot is refreshed.
func IsBlocked(objectType, value string) bool {
	if value == "" {
		return false
	}
	values, ok := cache.Load()[objectType]
	if !ok {
		return false
	}
	expiry, blocked := values[value]
	if !blocked {
		return false
	}
	return expiry.IsZero() || expiry.After(time.Now())
}

// ResetForTests drops the snapshot and hydration mark.
func ResetForTests() {
	cache.Store(make(blockSets))
	hydrated.Store(false)
}

func toSets(records []domain.BlockedObject) blockSets {
	sets := make(blockSets)
	for _, record := range records {
		set, ok := sets[record.ObjectType]
		if !ok {
			set = make(map[string]time.Time)
			sets[record.ObjectType] = set
		}
		var expiry time.Time
		if record.ExpiresAt != nil {
			expiry = *record.ExpiresAt
		}
		set[record.ObjectValue] = expiry
	}
	return sets
}
