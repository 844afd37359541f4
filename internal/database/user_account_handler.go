package database

import (
	"context"
	"errors"
	"time"

	"fraudwatch/internal/domain"

	"gorm.io/gorm"
)

// GetUserByID returns nil without error when the user does not exist.
func GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if id == 0 {
		return nil, nil
	}

	var user domain.User
	err := historyDB(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// PauseSellerPayouts marks a seller's payouts paused and records the source
// (admin or system) that issued the pause.
func PauseSellerPayouts(ctx context.Context, sellerID uint, source string) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	return historyDB(ctx).Model(&domain.User{}).
		Where("id = ?", sellerID).
		Updates(map[string]any{
			"payouts_paused_internally": true,
			"payouts_paused_by":         source,
		}).Error
}

// ResumeSellerPayouts lifts a payout pause.
func ResumeSellerPayouts(ctx context.Context, sellerID uint) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	return historyDB(ctx).Model(&domain.User{}).
		Where("id = ?", sellerID).
		Updates(map[string]any{
			"payouts_paused_internally": false,
			"payouts_paused_by":         "",
		}).Error
}

// FlagUserForFraud stamps the fraud flag; repeated flags keep the first stamp.
func FlagUserForFraud(ctx context.Context, userID uint) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	now := time.Now().UTC()
	return historyDB(ctx).Model(&domain.User{}).
		Where("id = ? AND flagged_for_fraud_at IS NULL", userID).
		Update("flagged_for_fraud_at", &now).Error
}

// SuspendUserForFraud suspends the account; repeated suspensions are no-ops.
func SuspendUserForFraud(ctx context.Context, userID uint) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	now := time.Now().UTC()
	return historyDB(ctx).Model(&domain.User{}).
		Where("id = ? AND suspended_at IS NULL", userID).
		Update("suspended_at", &now).Error
}
