package fraud

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fraudwatch/internal/blocklist"
	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEngineTest(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Product{},
		&domain.Purchase{},
		&domain.BlockedObject{},
		&domain.Comment{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	database.DB = db

	t.Cleanup(func() {
		database.DB = nil
		blocklist.ResetForTests()
	})

	return NewEngine(nil, nil), db
}

func seedUser(t *testing.T, db *gorm.DB, user domain.User) *domain.User {
	t.Helper()

	if user.Email == "" {
		user.Email = fmt.Sprintf("user-%d@example.com", time.Now().UnixNano())
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func seedPurchase(t *testing.T, db *gorm.DB, purchase domain.Purchase) *domain.Purchase {
	t.Helper()

	if purchase.State == "" {
		purchase.State = domain.PurchaseStateFailed
	}
	if purchase.ChargeProcessorID == "" {
		purchase.ChargeProcessorID = domain.ChargeProcessorStripe
	}
	if purchase.SellerID == 0 {
		purchase.SellerID = 1
	}
	if purchase.ProductID == 0 {
		purchase.ProductID = 1
	}
	if err := db.Create(&purchase).Error; err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	return &purchase
}

func activeBlock(t *testing.T, objectType, value string) *domain.BlockedObject {
	t.Helper()

	record, err := database.FindActiveBlockedObject(context.Background(), objectType, value)
	if err != nil {
		t.Fatalf("FindActiveBlockedObject(%s, %s) returned error: %v", objectType, value, err)
	}
	return record
}

func commentCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&domain.Comment{}).Count(&count).Error; err != nil {
		t.Fatalf("count comments: %v", err)
	}
	return count
}
