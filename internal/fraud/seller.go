package fraud

import (
	"context"
	"fmt"
	"time"

	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"
)

// pausePayoutsForSellerOnRecentFailures pauses a seller's payouts when the
// failed-charge volume in the watch window exceeds the cap. Only applies to
// established sellers; a young account tripping this looks like a stolen
// catalog and is handled by other heuristics.
func (e *Engine) pausePayoutsForSellerOnRecentFailures(ctx context.Context, p *domain.Purchase) error {
	if !e.settings.FeatureEnabled(ctx, FeatureBlockSellerOnRecentFailures, true) {
		return nil
	}
	if domain.IsIgnoredErrorCode(p.ErrorCode) {
		return nil
	}

	watchMinutes := e.settings.Int(ctx, SettingFailedSellerPurchasesWatchMinutes, defaultFailedSellerPurchasesWatchMinutes)
	maxFailedCents := e.settings.Int(ctx, SettingMaxSellerFailedPurchasesPriceCents, defaultMaxSellerFailedPurchasesPriceCents)
	ageThresholdDays := e.settings.Int(ctx, SettingSellerAgeThresholdDays, defaultSellerAgeThresholdDays)

	seller, err := database.GetUserByID(ctx, p.SellerID)
	if err != nil {
		return err
	}
	if seller == nil {
		return nil
	}
	if seller.CreatedAt.After(time.Now().AddDate(0, 0, -ageThresholdDays)) {
		return nil
	}
	// Admin- and system-sourced pauses take precedence; re-pausing would
	// overwrite who issued the original pause.
	if seller.PayoutsPausedBySource() {
		return nil
	}

	since := time.Now().Add(-time.Duration(watchMinutes) * time.Minute)
	failedCents, err := database.SumFailedSaleCentsForSeller(ctx, seller.ID, since)
	if err != nil {
		return err
	}
	if failedCents <= int64(maxFailedCents) {
		return nil
	}

	if err := database.PauseSellerPayouts(ctx, seller.ID, domain.PayoutPauseSourceSystem); err != nil {
		return err
	}

	return database.CreateComment(ctx, &domain.Comment{
		UserID: &seller.ID,
		Content: fmt.Sprintf("Payouts paused due to high volume of failed purchases (%s USD in %d minutes).",
			formatUSD(failedCents), watchMinutes),
		CommentType: domain.CommentTypeOnProbation,
		AuthorName:  "pause_payouts_for_seller_based_on_recent_failures",
	})
}

// PausePayoutsForSellerOnChargebackRate pauses payouts when the seller's
// lost-chargeback volume rate exceeds the allowed maximum. Invoked by the
// chargeback pipeline, not by purchase evaluation.
func (e *Engine) PausePayoutsForSellerOnChargebackRate(ctx context.Context, sellerID uint) error {
	seller, err := database.GetUserByID(ctx, sellerID)
	if err != nil {
		return err
	}
	if seller == nil {
		return nil
	}
	if seller.PayoutsPausedBySource() {
		return nil
	}

	rate, ok, err := database.SellerLostChargebackVolumeRate(ctx, seller.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if rate <= domain.MaxChargebackRateAllowedForPayouts {
		return nil
	}

	if err := database.PauseSellerPayouts(ctx, seller.ID, domain.PayoutPauseSourceSystem); err != nil {
		return err
	}

	return database.CreateComment(ctx, &domain.Comment{
		UserID: &seller.ID,
		Content: fmt.Sprintf("Payouts automatically paused due to chargeback rate (%.2f%%) exceeding %.1f%% volume.",
			rate, domain.MaxChargebackRateAllowedForPayouts),
		CommentType: domain.CommentTypeOnProbation,
		AuthorName:  "pause_payouts_for_seller_based_on_chargeback_rate",
	})
}

// formatUSD renders cents as $X or $X.YY, dropping cents on whole amounts.
func formatUSD(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
