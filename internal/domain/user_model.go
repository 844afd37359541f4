package domain

import "time"

const (
	PayoutPauseSourceAdmin  = "admin"
	PayoutPauseSourceSystem = "system"
)

// MaxChargebackRateAllowedForPayouts is the lost-chargeback volume percentage
// above which a seller's payouts get paused.
const MaxChargebackRateAllowedForPayouts = 1.0

// User covers both sides of a transaction: buyers (purchasers) and sellers.
type User struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Email string `gorm:"uniqueIndex;not null;size:255"`

	IsTeamMember bool `gorm:"not null;default:false"`

	PayoutsPausedInternally bool   `gorm:"not null;default:false"`
	PayoutsPausedBy         string `gorm:"size:16;not null;default:''"`

	FlaggedForFraudAt *time.Time
	SuspendedAt       *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (u *User) PayoutsPaused() bool {
	return u.PayoutsPausedInternally
}

// PayoutsPausedBySource reports whether payouts are already paused by an admin
// or the system; automated heuristics must not pile on top of those.
func (u *User) PayoutsPausedBySource() bool {
	return u.PayoutsPausedBy == PayoutPauseSourceAdmin || u.PayoutsPausedBy == PayoutPauseSourceSystem
}

func (u *User) Suspended() bool {
	return u.SuspendedAt != nil
}
