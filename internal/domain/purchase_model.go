package domain

import "time"

const (
	PurchaseStateSuccessful = "successful"
	PurchaseStateFailed     = "failed"
)

const (
	ChargeProcessorStripe = "stripe"
	ChargeProcessorPaypal = "paypal"
)

// Purchase models the slice of a transaction record the blocking engine reads.
// Purchases are created by the purchase pipeline; the engine only queries
// recent windows of them and flips the admin-block flag.
type Purchase struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	State string `gorm:"size:32;not null;index"`

	BrowserGUID string `gorm:"size:64;index"`
	IPAddress   string `gorm:"size:45;index"`
	Email       string `gorm:"size:255;index"`
	PaypalEmail string `gorm:"size:255"`
	GifterEmail string `gorm:"size:255"`

	PurchaserID *uint
	Purchaser   *User `gorm:"foreignKey:PurchaserID"`

	SellerID  uint   `gorm:"not null;index"`
	ProductID uint64 `gorm:"not null;index"`

	ChargeProcessorID string `gorm:"size:32"`
	StripeFingerprint string `gorm:"size:255;index"`
	CardVisual        string `gorm:"size:64"`

	ErrorCode       string `gorm:"size:128"`
	StripeErrorCode string `gorm:"size:128"`

	PriceCents            int64 `gorm:"not null;default:0"`
	TotalTransactionCents int64 `gorm:"not null;default:0"`
	IsRecurringCharge     bool  `gorm:"not null;default:false"`
	ChargedBack           bool  `gorm:"not null;default:false"`

	IsBuyerBlockedByAdmin bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (p *Purchase) Successful() bool {
	return p.State == PurchaseStateSuccessful
}

func (p *Purchase) Failed() bool {
	return p.State == PurchaseStateFailed
}

// FailureCode prefers the processor-issued code over the pipeline one.
func (p *Purchase) FailureCode() string {
	if p.StripeErrorCode != "" {
		return p.StripeErrorCode
	}
	return p.ErrorCode
}

func (p *Purchase) StripeChargeProcessor() bool {
	return p.ChargeProcessorID == ChargeProcessorStripe
}

// ChargeProcessorFingerprint falls back to the card visual for processors
// that issue no stable fingerprint.
func (p *Purchase) ChargeProcessorFingerprint() string {
	if p.StripeChargeProcessor() {
		return p.StripeFingerprint
	}
	return p.CardVisual
}
