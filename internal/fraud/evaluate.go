package fraud

import (
	"context"

	"github.com/charmbracelet/log"

	"fraudwatch/internal/blocklist"
	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"
)

// EvaluatePurchase runs every heuristic relevant to a finished purchase
// attempt. Heuristics are independent: one failing (a query error, the
// counter backend being down) is logged and skipped, never aborting the rest
// and never surfacing to the buyer. Missing evidence means no block.
func (e *Engine) EvaluatePurchase(ctx context.Context, p *domain.Purchase) {
	if p == nil {
		return
	}

	if p.Successful() {
		e.runHeuristic(ctx, p, "reset_product_failure_streak", e.resetProductFailureStreak)
		e.runHeuristic(ctx, p, "block_fraudulent_free_purchases", e.blockFraudulentFreePurchases)
		return
	}

	if !p.Failed() {
		return
	}

	e.runHeuristic(ctx, p, "ban_fraudulent_buyer_browser_guid", e.banFraudulentBuyerBrowserGUID)
	e.runHeuristic(ctx, p, "ban_buyer_on_fraud_related_error_code", e.banBuyerOnFraudErrorCode)
	e.runHeuristic(ctx, p, "suspend_buyer_on_fraudulent_card_decline", e.suspendBuyerOnFraudulentCardDecline)
	e.runHeuristic(ctx, p, "ban_card_testers", e.banCardTesters)
	e.runHeuristic(ctx, p, "pause_payouts_for_seller_based_on_recent_failures", e.pausePayoutsForSellerOnRecentFailures)
	e.runHeuristic(ctx, p, "block_purchases_on_product", e.blockPurchasesOnProduct)
}

func (e *Engine) runHeuristic(ctx context.Context, p *domain.Purchase, name string, heuristic func(context.Context, *domain.Purchase) error) {
	if err := heuristic(ctx, p); err != nil {
		log.Error("Fraud heuristic skipped", "heuristic", name, "purchase_id", p.ID, "error", err)
	}
}

// IsBuyerBlocked answers the admission query the purchase pipeline asks
// before authorizing a charge. Uses the in-memory blocklist snapshot when
// hydrated; falls back to the store otherwise. Never errors: an unanswerable
// lookup admits the purchase, favouring availability over blocking.
func (e *Engine) IsBuyerBlocked(ctx context.Context, p *domain.Purchase) bool {
	if p == nil {
		return false
	}

	if blocklist.Hydrated() {
		for _, attr := range buyerAttributes {
			value := attr.resolve(ctx, p)
			if value == "" {
				continue
			}
			if blocklist.IsBlocked(attr.objectType, value) {
				return true
			}
		}
		return false
	}

	blocked, err := e.BuyerBlocked(ctx, p)
	if err != nil {
		log.Error("Buyer block lookup incomplete", "purchase_id", p.ID, "error", err)
	}
	return blocked
}

// IsProductBlocked reports whether the product currently carries a
// card-testing block.
func (e *Engine) IsProductBlocked(ctx context.Context, productValue string) bool {
	if blocklist.Hydrated() {
		return blocklist.IsBlocked(domain.BlockedObjectTypeProduct, productValue)
	}

	record, err := database.FindActiveBlockedObject(ctx, domain.BlockedObjectTypeProduct, productValue)
	if err != nil {
		log.Error("Product block lookup failed", "product", productValue, "error", err)
		return false
	}
	return record != nil
}

// IsPayoutPaused reports whether the seller's payouts are currently paused,
// regardless of source.
func (e *Engine) IsPayoutPaused(ctx context.Context, sellerID uint) (bool, error) {
	seller, err := database.GetUserByID(ctx, sellerID)
	if err != nil {
		return false, err
	}
	if seller == nil {
		return false, nil
	}
	return seller.PayoutsPaused(), nil
}
