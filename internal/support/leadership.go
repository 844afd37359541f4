package support

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second

	leadershipRetryDelay = time.Second
	renewalTimeout       = 5 * time.Second
	minRenewalInterval   = time.Second
)

// The renew and release scripts only touch the lock when we still own it,
// so a lock stolen after our TTL lapsed is never clobbered.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

// RunWithLeader acquires a Redis leadership lock and invokes run while the
// lock is held. run receives a context that is cancelled when leadership is
// lost or the parent context ends. Multiple instances can call this with the
// same key; only one runs at a time.
func RunWithLeader(ctx context.Context, key string, ttl time.Duration, run func(context.Context)) error {
	if run == nil {
		return errors.New("support: leader run function cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}

	client, err := GetRedisClient()
	if err != nil {
		return fmt.Errorf("support: leader lock redis client: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		value := leaderID()
		ok, err := client.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("leader lock: setnx failed", "key", key, "error", err)
		}

		if ok {
			log.Debug("leader lock: acquired", "key", key)
			holdLeadership(ctx, client, key, value, ttl, run)
			log.Debug("leader lock: released", "key", key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leadershipRetryDelay):
		}
	}
}

func holdLeadership(ctx context.Context, client *redis.Client, key, value string, ttl time.Duration, run func(context.Context)) {
	leaderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		interval := ttl / 3
		if interval < minRenewalInterval {
			interval = minRenewalInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-leaderCtx.Done():
				return
			case <-ticker.C:
				if err := renewLeadership(client, key, value, ttl); err != nil {
					log.Warn("leader lock: renewal failed", "key", key, "error", err)
					cancel()
					return
				}
			}
		}
	}()

	run(leaderCtx)

	releaseCtx, releaseCancel := context.WithTimeout(context.Background(), renewalTimeout)
	defer releaseCancel()
	if err := releaseScript.Run(releaseCtx, client, []string{key}, value).Err(); err != nil {
		log.Warn("leader lock: release failed", "key", key, "error", err)
	}
}

func renewLeadership(client *redis.Client, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), renewalTimeout)
	defer cancel()

	res, err := renewScript.Run(ctx, client, []string{key}, value, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if updated, ok := res.(int64); ok && updated == 0 {
		return errors.New("support: leadership lost")
	}
	return nil
}

func leaderID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}
