package domain

import "time"

type Product struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	SellerID uint   `gorm:"not null;index"`
	Name     string `gorm:"size:255;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
