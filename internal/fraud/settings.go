package fraud

// Feature toggles gating individual heuristics. All default to enabled; a
// toggle exists so a misfiring heuristic can be switched off mid-incident.
const (
	FeatureSuspendFraudulentBuyers     = "suspend_fraudulent_buyers"
	FeatureBanCardTesters              = "ban_card_testers"
	FeatureBlockSellerOnRecentFailures = "block_seller_based_on_recent_failures"
	FeatureBlockPurchasesOnProduct     = "block_purchases_on_product"
)

// Hot-tunable setting keys. Absent keys fall back to the defaults below.
const (
	SettingFailedSellerPurchasesWatchMinutes  = "failed_seller_purchases_watch_minutes"
	SettingMaxSellerFailedPurchasesPriceCents = "max_seller_failed_purchases_price_cents"
	SettingSellerAgeThresholdDays             = "seller_age_threshold_days"
	SettingCardTestingProductWatchMinutes     = "card_testing_product_watch_minutes"
	SettingCardTestingProductMaxFailedCount   = "card_testing_product_max_failed_purchases_count"
	SettingCardTestingProductBlockHours       = "card_testing_product_block_hours"
	SettingCardTestingMaxFailedInARow         = "card_testing_max_number_of_failed_purchases_in_a_row"
	SettingCardTestingFailedInARowWatchDays   = "card_testing_failed_purchases_in_a_row_watch_days"
	SettingFreePurchasesWatchHours            = "free_purchases_watch_hours"
	SettingMaxAllowedFreePurchasesOfProduct   = "max_allowed_free_purchases_of_same_product"
	SettingFraudulentFreePurchasesBlockHours  = "fraudulent_free_purchases_block_hours"
	SettingMaxDistinctFailedFingerprints      = "card_testing_max_distinct_failed_fingerprints"
	SettingCardTestingBuyerWatchDays          = "card_testing_buyer_watch_days"
	SettingCardTestingIPWatchHours            = "card_testing_ip_watch_hours"
	SettingCardTestingIPBlockDays             = "card_testing_ip_block_days"
	SettingSuspensionMaxAccountAgeHours       = "fraudulent_decline_suspension_max_account_age_hours"
)

const (
	defaultFailedSellerPurchasesWatchMinutes  = 60
	defaultMaxSellerFailedPurchasesPriceCents = 200_000 // $2000
	defaultSellerAgeThresholdDays             = 730     // 2 years

	defaultCardTestingProductWatchMinutes   = 10
	defaultCardTestingProductMaxFailedCount = 60
	defaultCardTestingProductBlockHours     = 6
	defaultCardTestingMaxFailedInARow       = 10
	defaultCardTestingFailedInARowWatchDays = 2

	defaultFreePurchasesWatchHours           = 4
	defaultMaxAllowedFreePurchasesOfProduct  = 2
	defaultFraudulentFreePurchasesBlockHours = 24

	defaultMaxDistinctFailedFingerprints = 4
	defaultCardTestingBuyerWatchDays     = 7
	defaultCardTestingIPWatchHours       = 24
	defaultCardTestingIPBlockDays        = 7
	defaultSuspensionMaxAccountAgeHours  = 6
)
