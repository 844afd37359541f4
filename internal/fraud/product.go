package fraud

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"fraudwatch/internal/counter"
	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"
)

// blockPurchasesOnProduct temporarily blocks a product that is being used for
// card testing. Two independent signals, OR-combined: the absolute count of
// failed attempts in a short window, and the consecutive-failure streak kept
// in the counter backend. A successful purchase resets only the streak; the
// window count keeps measuring absolute volume until it ages out.
func (e *Engine) blockPurchasesOnProduct(ctx context.Context, p *domain.Purchase) error {
	if !e.settings.FeatureEnabled(ctx, FeatureBlockPurchasesOnProduct, true) {
		return nil
	}
	if domain.IsIgnoredErrorCode(p.ErrorCode) {
		return nil
	}

	watchMinutes := e.settings.Int(ctx, SettingCardTestingProductWatchMinutes, defaultCardTestingProductWatchMinutes)
	maxFailedCount := e.settings.Int(ctx, SettingCardTestingProductMaxFailedCount, defaultCardTestingProductMaxFailedCount)
	blockHours := e.settings.Int(ctx, SettingCardTestingProductBlockHours, defaultCardTestingProductBlockHours)
	maxFailedInARow := e.settings.Int(ctx, SettingCardTestingMaxFailedInARow, defaultCardTestingMaxFailedInARow)
	streakWatchDays := e.settings.Int(ctx, SettingCardTestingFailedInARowWatchDays, defaultCardTestingFailedInARowWatchDays)

	since := time.Now().Add(-time.Duration(watchMinutes) * time.Minute)
	failedCount, err := database.CountFailedProductPurchases(ctx, p.ProductID, since)
	if err != nil {
		return err
	}

	streakKey := counter.ProductKey(p.ProductID)
	streak, err := e.counter.Increment(ctx, streakKey)
	if err != nil {
		// Counter unavailable means no streak evidence, not a reason to skip
		// the window-count signal.
		log.Warn("Failed purchase streak counter unavailable", "product_id", p.ProductID, "error", err)
		streak = 0
	} else if err := e.counter.SetTTL(ctx, streakKey, time.Duration(streakWatchDays)*24*time.Hour); err != nil {
		log.Warn("Failed to refresh streak counter TTL", "product_id", p.ProductID, "error", err)
	}

	if failedCount < int64(maxFailedCount) && streak < int64(maxFailedInARow) {
		return nil
	}

	blockDuration := time.Duration(blockHours) * time.Hour
	productValue := strconv.FormatUint(p.ProductID, 10)
	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeProduct, productValue, nil, blockDuration); err != nil {
		return err
	}

	return database.CreateComment(ctx, &domain.Comment{
		UserID: &p.SellerID,
		Content: fmt.Sprintf(
			"Product %d temporarily blocked for %dh due to card testing (%d failed attempts in %d minutes, %d failed in a row).",
			p.ProductID, blockHours, failedCount, watchMinutes, streak),
		CommentType: domain.CommentTypeOnProbation,
		AuthorName:  "block_purchases_on_product",
	})
}

// resetProductFailureStreak breaks the consecutive-failure streak after a
// successful purchase on the product.
func (e *Engine) resetProductFailureStreak(ctx context.Context, p *domain.Purchase) error {
	return e.counter.Delete(ctx, counter.ProductKey(p.ProductID))
}

// blockFraudulentFreePurchases blocks an address that keeps claiming the same
// free product. Free purchases cost nothing to automate and are used to test
// stolen accounts and inflate download counts.
func (e *Engine) blockFraudulentFreePurchases(ctx context.Context, p *domain.Purchase) error {
	if p.TotalTransactionCents != 0 {
		return nil
	}
	if p.IPAddress == "" {
		return nil
	}

	watchHours := e.settings.Int(ctx, SettingFreePurchasesWatchHours, defaultFreePurchasesWatchHours)
	maxAllowed := e.settings.Int(ctx, SettingMaxAllowedFreePurchasesOfProduct, defaultMaxAllowedFreePurchasesOfProduct)
	blockHours := e.settings.Int(ctx, SettingFraudulentFreePurchasesBlockHours, defaultFraudulentFreePurchasesBlockHours)

	since := time.Now().Add(-time.Duration(watchHours) * time.Hour)
	count, err := database.CountFreePurchasesOfProductFromIP(ctx, p.ProductID, p.IPAddress, since)
	if err != nil {
		return err
	}
	if count <= int64(maxAllowed) {
		return nil
	}

	blockDuration := time.Duration(blockHours) * time.Hour
	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeIPAddress, p.IPAddress, nil, blockDuration); err != nil {
		return err
	}

	return e.appendPurchaseNote(ctx, p, fmt.Sprintf(
		"IP address %s blocked for %dh after %d free purchases of product %d within %dh",
		describeIP(p.IPAddress), blockHours, count, p.ProductID, watchHours))
}
