package fraud

import (
	"context"
	"fmt"
	"time"

	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"
	"fraudwatch/internal/geoip"
)

// banFraudulentBuyerBrowserGUID permanently blocks a browser that has failed
// purchases with too many distinct card fingerprints, over all time. A
// browser cycling through cards is the card-testing signature.
func (e *Engine) banFraudulentBuyerBrowserGUID(ctx context.Context, p *domain.Purchase) error {
	if p.StripeFingerprint == "" || p.BrowserGUID == "" {
		return nil
	}

	maxFingerprints := e.settings.Int(ctx, SettingMaxDistinctFailedFingerprints, defaultMaxDistinctFailedFingerprints)

	count, err := database.CountDistinctFailedFingerprintsForBrowserGUID(ctx, p.BrowserGUID)
	if err != nil {
		return err
	}
	if count < int64(maxFingerprints) {
		return nil
	}

	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeBrowserGUID, p.BrowserGUID, nil, 0); err != nil {
		return err
	}

	return e.appendPurchaseNote(ctx, p, fmt.Sprintf(
		"Browser blocked after %d distinct failed card fingerprints", count))
}

// banBuyerOnFraudErrorCode fully blocks the buyer when the processor reports
// an explicitly fraud-related decline.
func (e *Engine) banBuyerOnFraudErrorCode(ctx context.Context, p *domain.Purchase) error {
	failureCode := p.FailureCode()
	if !domain.IsFraudRelatedErrorCode(failureCode) {
		return nil
	}

	return e.BlockBuyer(ctx, p, BlockBuyerOptions{
		CommentContent: fmt.Sprintf("Buyer blocked due to fraud-related error code (%s)", failureCode),
	})
}

// suspendBuyerOnFraudulentCardDecline suspends freshly created accounts that
// hit a fraudulent-card decline. Established accounts are left alone; a six
// hour old account with a flagged card was made for the card.
func (e *Engine) suspendBuyerOnFraudulentCardDecline(ctx context.Context, p *domain.Purchase) error {
	if !e.settings.FeatureEnabled(ctx, FeatureSuspendFraudulentBuyers, true) {
		return nil
	}
	if p.FailureCode() != domain.ErrorCodeCardDeclinedFraudulent {
		return nil
	}
	if p.PurchaserID == nil {
		return nil
	}

	purchaser, err := database.GetUserByID(ctx, *p.PurchaserID)
	if err != nil {
		return err
	}
	if purchaser == nil {
		return nil
	}

	maxAgeHours := e.settings.Int(ctx, SettingSuspensionMaxAccountAgeHours, defaultSuspensionMaxAccountAgeHours)
	if purchaser.CreatedAt.Before(time.Now().Add(-time.Duration(maxAgeHours) * time.Hour)) {
		return nil
	}

	if err := database.FlagUserForFraud(ctx, purchaser.ID); err != nil {
		return err
	}
	if err := database.SuspendUserForFraud(ctx, purchaser.ID); err != nil {
		return err
	}

	return database.CreateComment(ctx, &domain.Comment{
		UserID:      &purchaser.ID,
		Content:     "Account suspended for fraud after a fraudulent card decline on a new account",
		CommentType: domain.CommentTypeOnProbation,
		AuthorName:  "fraudulent_purchases_blocker",
	})
}

// banCardTesters runs the two windowed card-testing detectors.
func (e *Engine) banCardTesters(ctx context.Context, p *domain.Purchase) error {
	if p.StripeFingerprint == "" {
		return nil
	}
	if !e.settings.FeatureEnabled(ctx, FeatureBanCardTesters, true) {
		return nil
	}

	if err := e.blockBuyerOnRecentFailures(ctx, p); err != nil {
		return err
	}
	return e.blockIPOnRecentFailures(ctx, p)
}

func (e *Engine) blockBuyerOnRecentFailures(ctx context.Context, p *domain.Purchase) error {
	if p.Email == "" && p.BrowserGUID == "" {
		return nil
	}

	maxFingerprints := e.settings.Int(ctx, SettingMaxDistinctFailedFingerprints, defaultMaxDistinctFailedFingerprints)
	watchDays := e.settings.Int(ctx, SettingCardTestingBuyerWatchDays, defaultCardTestingBuyerWatchDays)
	watchPeriod := time.Duration(watchDays) * 24 * time.Hour

	count, err := database.CountDistinctFailedFingerprintsForBuyer(ctx, p.Email, p.BrowserGUID, time.Now().Add(-watchPeriod))
	if err != nil {
		return err
	}
	if count < int64(maxFingerprints) {
		return nil
	}

	return e.BlockBuyer(ctx, p, BlockBuyerOptions{
		CommentContent: fmt.Sprintf(
			"Buyer blocked for card testing (%d distinct failed card fingerprints within %dd)",
			count, watchDays),
	})
}

func (e *Engine) blockIPOnRecentFailures(ctx context.Context, p *domain.Purchase) error {
	if p.IPAddress == "" {
		return nil
	}

	// An already-blocked address keeps failing with "blocked" errors; counting
	// those again would extend the block forever.
	existing, err := database.FindActiveBlockedObject(ctx, domain.BlockedObjectTypeIPAddress, p.IPAddress)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	maxFingerprints := e.settings.Int(ctx, SettingMaxDistinctFailedFingerprints, defaultMaxDistinctFailedFingerprints)
	watchHours := e.settings.Int(ctx, SettingCardTestingIPWatchHours, defaultCardTestingIPWatchHours)
	blockDays := e.settings.Int(ctx, SettingCardTestingIPBlockDays, defaultCardTestingIPBlockDays)

	since := time.Now().Add(-time.Duration(watchHours) * time.Hour)
	count, err := database.CountDistinctFailedFingerprintsForIP(ctx, p.IPAddress, since)
	if err != nil {
		return err
	}
	if count < int64(maxFingerprints) {
		return nil
	}

	blockDuration := time.Duration(blockDays) * 24 * time.Hour
	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeIPAddress, p.IPAddress, nil, blockDuration); err != nil {
		return err
	}

	return e.appendPurchaseNote(ctx, p, fmt.Sprintf(
		"IP address %s blocked for %dd after card testing (%d distinct failed card fingerprints within %dh)",
		describeIP(p.IPAddress), blockDays, count, watchHours))
}

// describeIP renders an address with its country when GeoIP data is loaded.
func describeIP(ipAddress string) string {
	if country := geoip.CountryCode(ipAddress); country != "" {
		return fmt.Sprintf("%s (%s)", ipAddress, country)
	}
	return ipAddress
}

func (e *Engine) appendPurchaseNote(ctx context.Context, p *domain.Purchase, content string) error {
	purchaseID := p.ID
	return database.CreateComment(ctx, &domain.Comment{
		UserID:      p.PurchaserID,
		PurchaseID:  &purchaseID,
		Content:     content,
		CommentType: domain.CommentTypeOnProbation,
		AuthorName:  "fraudulent_purchases_blocker",
	})
}
