package domain

import (
	"time"

	"gorm.io/gorm"
)

const (
	BlockedObjectTypeBrowserGUID                = "browser_guid"
	BlockedObjectTypeIPAddress                  = "ip_address"
	BlockedObjectTypeEmail                      = "email"
	BlockedObjectTypeEmailDomain                = "email_domain"
	BlockedObjectTypeChargeProcessorFingerprint = "charge_processor_fingerprint"
	BlockedObjectTypeProduct                    = "product"
)

// IPAddressBlockDuration bounds every IP block issued by BlockBuyer. IP blocks
// must always carry an expiry; addresses are shared and get reassigned.
const IPAddressBlockDuration = 6 * 30 * 24 * time.Hour

// BlockedObject is the durable record of a blocked (type, value) pair. Rows
// are reused across block/unblock cycles: unblocking clears BlockedAt and
// ExpiresAt instead of deleting, so the row keeps its audit history.
type BlockedObject struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	ObjectType  string `gorm:"size:64;not null;uniqueIndex:idx_blocked_objects_type_value,priority:1"`
	ObjectValue string `gorm:"size:255;not null;uniqueIndex:idx_blocked_objects_type_value,priority:2;index"`

	// BlockedByID is the user that issued the block; nil means the block was
	// issued by an automated heuristic.
	BlockedByID *uint
	BlockedAt   *time.Time
	ExpiresAt   *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Blocked reports whether the row currently carries a block mark, expired or not.
func (b *BlockedObject) Blocked() bool {
	return b.BlockedAt != nil
}

// Active reports whether the block is currently in force.
func (b *BlockedObject) Active() bool {
	if b.BlockedAt == nil {
		return false
	}
	return b.ExpiresAt == nil || b.ExpiresAt.After(time.Now())
}

func (b *BlockedObject) BeforeSave(*gorm.DB) error {
	if b.ObjectType == BlockedObjectTypeIPAddress && b.BlockedAt != nil && b.ExpiresAt == nil {
		return ErrIPBlockRequiresExpiry
	}
	return nil
}
