package runtime

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"fraudwatch/internal/blocklist"
	"fraudwatch/internal/database"
	"fraudwatch/internal/support"
)

const (
	sweepLeaderKey       = "fraudwatch:leader:blocked_object_sweep"
	DefaultSweepInterval = time.Hour
)

// StartBlockedObjectSweep periodically returns expired blocked objects to the
// unblocked state and refreshes the blocklist cache. Guarded by a leadership
// lock so only one instance sweeps.
func StartBlockedObjectSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	err := support.RunWithLeader(ctx, sweepLeaderKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sweepExpiredBlocks(leaderCtx)
		for {
			select {
			case <-leaderCtx.Done():
				return
			case <-ticker.C:
				sweepExpiredBlocks(leaderCtx)
			}
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Error("Blocked object sweep terminated", "error", err)
	}
}

func sweepExpiredBlocks(ctx context.Context) {
	cleared, err := database.ClearExpiredBlocks(ctx)
	if err != nil {
		log.Error("Failed to clear expired blocks", "error", err)
		return
	}
	if cleared > 0 {
		log.Info("Cleared expired blocks", "count", cleared)
	}

	if err := blocklist.Refresh(ctx); err != nil {
		log.Error("Failed to refresh blocklist cache after sweep", "error", err)
	}
}

// LaunchBlockedObjectSweep runs the sweep in the background and returns a
// cancel function for shutdown.
func LaunchBlockedObjectSweep(parent context.Context, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(parent)
	go StartBlockedObjectSweep(ctx, interval)
	return cancel
}
