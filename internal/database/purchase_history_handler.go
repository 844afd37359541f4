package database

import (
	"context"
	"errors"
	"time"

	"fraudwatch/internal/domain"

	"gorm.io/gorm"
)

func historyDB(ctx context.Context) *gorm.DB {
	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}
	return db
}

// GetPurchaseByID loads a purchase with its purchaser; nil when absent.
func GetPurchaseByID(ctx context.Context, id uint64) (*domain.Purchase, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var purchase domain.Purchase
	err := historyDB(ctx).Preload("Purchaser").Where("id = ?", id).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// CountDistinctFailedFingerprintsForBrowserGUID counts the distinct card
// fingerprints seen on failed purchases from one browser, over all time.
func CountDistinctFailedFingerprintsForBrowserGUID(ctx context.Context, browserGUID string) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	var count int64
	err := historyDB(ctx).Model(&domain.Purchase{}).
		Where("state = ? AND browser_guid = ? AND stripe_fingerprint <> ''", domain.PurchaseStateFailed, browserGUID).
		Distinct("stripe_fingerprint").
		Count(&count).Error
	return count, err
}

// CountDistinctFailedFingerprintsForBuyer counts distinct failed stripe
// fingerprints tied to either the buyer's email or browser guid since the
// given time. Blank attributes never join the match: binding "" would count
// every other buyer whose corresponding column is blank.
func CountDistinctFailedFingerprintsForBuyer(ctx context.Context, email, browserGUID string, since time.Time) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	query := historyDB(ctx).Model(&domain.Purchase{}).
		Where("state = ? AND charge_processor_id = ? AND stripe_fingerprint <> ''",
			domain.PurchaseStateFailed, domain.ChargeProcessorStripe).
		Where("created_at >= ?", since)
	switch {
	case email != "" && browserGUID != "":
		query = query.Where("email = ? OR browser_guid = ?", email, browserGUID)
	case email != "":
		query = query.Where("email = ?", email)
	case browserGUID != "":
		query = query.Where("browser_guid = ?", browserGUID)
	default:
		return 0, nil
	}

	var count int64
	err := query.Distinct("stripe_fingerprint").Count(&count).Error
	return count, err
}

// CountDistinctFailedFingerprintsForIP is the IP-keyed variant of the card
// testing count.
func CountDistinctFailedFingerprintsForIP(ctx context.Context, ipAddress string, since time.Time) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	var count int64
	err := historyDB(ctx).Model(&domain.Purchase{}).
		Where("state = ? AND charge_processor_id = ? AND stripe_fingerprint <> ''",
			domain.PurchaseStateFailed, domain.ChargeProcessorStripe).
		Where("ip_address = ?", ipAddress).
		Where("created_at >= ?", since).
		Distinct("stripe_fingerprint").
		Count(&count).Error
	return count, err
}

// SumFailedSaleCentsForSeller sums the price of a seller's failed
// fingerprinted sales since the given time.
func SumFailedSaleCentsForSeller(ctx context.Context, sellerID uint, since time.Time) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	var total int64
	err := historyDB(ctx).Model(&domain.Purchase{}).
		Select("COALESCE(SUM(price_cents), 0)").
		Where("state = ? AND seller_id = ? AND stripe_fingerprint <> ''", domain.PurchaseStateFailed, sellerID).
		Where("created_at >= ?", since).
		Scan(&total).Error
	return total, err
}

// CountFailedProductPurchases counts recent failed paid attempts on a product,
// skipping recurring charges and benign error codes.
func CountFailedProductPurchases(ctx context.Context, productID uint64, since time.Time) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	var count int64
	err := historyDB(ctx).Model(&domain.Purchase{}).
		Where("state = ? AND product_id = ?", domain.PurchaseStateFailed, productID).
		Where("is_recurring_charge = ?", false).
		Where("price_cents > 0").
		Where("error_code NOT IN ? OR error_code = ''", domain.IgnoredErrorCodes()).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// CountFreePurchasesOfProductFromIP counts recent successful zero-value
// purchases of a product from one address.
func CountFreePurchasesOfProductFromIP(ctx context.Context, productID uint64, ipAddress string, since time.Time) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	var count int64
	err := historyDB(ctx).Model(&domain.Purchase{}).
		Where("state = ? AND product_id = ?", domain.PurchaseStateSuccessful, productID).
		Where("is_recurring_charge = ?", false).
		Where("total_transaction_cents = 0").
		Where("ip_address = ?", ipAddress).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// RecentStripeFingerprint resolves the most recent stripe fingerprint seen on
// any purchase by the same purchaser or email. Returns "" when the buyer has
// no fingerprinted history.
func RecentStripeFingerprint(ctx context.Context, purchaserID *uint, email string) (string, error) {
	if DB == nil {
		return "", errors.New("database not initialised")
	}

	query := historyDB(ctx).Model(&domain.Purchase{}).
		Where("stripe_fingerprint <> ''")

	switch {
	case purchaserID != nil && email != "":
		query = query.Where("purchaser_id = ? OR email = ?", *purchaserID, email)
	case purchaserID != nil:
		query = query.Where("purchaser_id = ?", *purchaserID)
	case email != "":
		query = query.Where("email = ?", email)
	default:
		return "", nil
	}

	var record domain.Purchase
	err := query.Order("id DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return record.StripeFingerprint, nil
}

// SellerLostChargebackVolumeRate returns the percentage of a seller's
// successful sale volume lost to chargebacks. ok is false when the seller has
// no sale volume to rate.
func SellerLostChargebackVolumeRate(ctx context.Context, sellerID uint) (float64, bool, error) {
	if DB == nil {
		return 0, false, errors.New("database not initialised")
	}

	var totals struct {
		TotalCents       int64
		ChargedBackCents int64
	}
	err := historyDB(ctx).Model(&domain.Purchase{}).
		Select("COALESCE(SUM(price_cents), 0) AS total_cents, COALESCE(SUM(CASE WHEN charged_back THEN price_cents ELSE 0 END), 0) AS charged_back_cents").
		Where("state = ? AND seller_id = ?", domain.PurchaseStateSuccessful, sellerID).
		Scan(&totals).Error
	if err != nil {
		return 0, false, err
	}

	if totals.TotalCents == 0 {
		return 0, false, nil
	}
	rate := float64(totals.ChargedBackCents) / float64(totals.TotalCents) * 100
	return rate, true, nil
}

// SetBuyerBlockedByAdmin flips the admin-block flag on a purchase.
func SetBuyerBlockedByAdmin(ctx context.Context, purchaseID uint64, blocked bool) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	return historyDB(ctx).Model(&domain.Purchase{}).
		Where("id = ?", purchaseID).
		Update("is_buyer_blocked_by_admin", blocked).Error
}
