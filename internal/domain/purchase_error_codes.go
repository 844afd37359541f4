package domain

// Error codes attached to failed purchases by the charge processor or the
// purchase pipeline.
const (
	ErrorCodeCardDeclined           = "card_declined"
	ErrorCodeCardDeclinedFraudulent = "card_declined_fraudulent"
	ErrorCodeStolenCard             = "stolen_card"
	ErrorCodeLostCard               = "lost_card"
	ErrorCodePickupCard             = "pickup_card"
	ErrorCodeFraudulent             = "fraudulent"

	ErrorCodePerceivedPriceCentsNotMatching            = "perceived_price_cents_not_matching"
	ErrorCodeNotForSale                                = "not_for_sale"
	ErrorCodeTemporarilyBlockedProduct                 = "temporarily_blocked_product"
	ErrorCodeBlockedChargeProcessorFingerprint         = "blocked_charge_processor_fingerprint"
	ErrorCodeBlockedCustomerEmailAddress               = "blocked_customer_email_address"
	ErrorCodeBlockedCustomerChargeProcessorFingerprint = "blocked_customer_charge_processor_fingerprint"
)

// fraudRelatedErrorCodes trigger an immediate buyer ban regardless of volume.
var fraudRelatedErrorCodes = map[string]struct{}{
	ErrorCodeCardDeclinedFraudulent: {},
	ErrorCodeFraudulent:             {},
	ErrorCodeStolenCard:             {},
	ErrorCodeLostCard:               {},
	ErrorCodePickupCard:             {},
}

// ignoredErrorCodes are benign failures excluded from volume-based heuristics.
// Counting them would punish a condition the engine already blocked once.
var ignoredErrorCodes = map[string]struct{}{
	ErrorCodePerceivedPriceCentsNotMatching:            {},
	ErrorCodeNotForSale:                                {},
	ErrorCodeTemporarilyBlockedProduct:                 {},
	ErrorCodeBlockedChargeProcessorFingerprint:         {},
	ErrorCodeBlockedCustomerEmailAddress:               {},
	ErrorCodeBlockedCustomerChargeProcessorFingerprint: {},
}

func IsFraudRelatedErrorCode(code string) bool {
	_, ok := fraudRelatedErrorCodes[code]
	return ok
}

func IsIgnoredErrorCode(code string) bool {
	_, ok := ignoredErrorCodes[code]
	return ok
}

// IgnoredErrorCodes returns the benign code list for use in SQL NOT IN filters.
func IgnoredErrorCodes() []string {
	codes := make([]string, 0, len(ignoredErrorCodes))
	for code := range ignoredErrorCodes {
		codes = append(codes, code)
	}
	return codes
}
