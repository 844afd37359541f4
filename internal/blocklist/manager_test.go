package blocklist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fraudwatch/internal/database"
	"fraudwatch/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupBlocklistTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(&domain.BlockedObject{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	database.DB = db

	t.Cleanup(func() {
		database.DB = nil
		ResetForTests()
	})
}

func TestRefreshHydratesCache(t *testing.T) {
	setupBlocklistTestDB(t)
	ctx := context.Background()

	if Hydrated() {
		t.Fatal("expected cache to start unhydrated")
	}

	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeEmail, "fraud@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}

	if err := Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if !Hydrated() {
		t.Fatal("expected cache to be hydrated")
	}
	if !IsBlocked(domain.BlockedObjectTypeEmail, "fraud@example.com") {
		t.Fatal("expected blocked email to be in the snapshot")
	}
	if IsBlocked(domain.BlockedObjectTypeEmail, "clean@example.com") {
		t.Fatal("expected clean email to be absent from the snapshot")
	}
	if IsBlocked(domain.BlockedObjectTypeIPAddress, "fraud@example.com") {
		t.Fatal("expected lookup to be scoped by object type")
	}
}

func TestRefreshDropsUnblockedValues(t *testing.T) {
	setupBlocklistTestDB(t)
	ctx := context.Background()

	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeEmail, "temp@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if err := Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !IsBlocked(domain.BlockedObjectTypeEmail, "temp@example.com") {
		t.Fatal("expected value to be blocked before unblock")
	}

	if err := database.UnblockObject(ctx, "temp@example.com"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}
	if err := Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if IsBlocked(domain.BlockedObjectTypeEmail, "temp@example.com") {
		t.Fatal("expected unblocked value to leave the snapshot")
	}
}

func TestInitializeSubscribesToWrites(t *testing.T) {
	setupBlocklistTestDB(t)
	ctx := context.Background()

	if err := Initialize(ctx); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if !Hydrated() {
		t.Fatal("expected cache to be hydrated after Initialize")
	}

	// A store write refreshes the snapshot through the listener.
	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeBrowserGUID, "guid-live", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if !IsBlocked(domain.BlockedObjectTypeBrowserGUID, "guid-live") {
		t.Fatal("expected write to be reflected in the snapshot")
	}

	if err := database.UnblockObject(ctx, "guid-live"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}
	if IsBlocked(domain.BlockedObjectTypeBrowserGUID, "guid-live") {
		t.Fatal("expected unblock to be reflected in the snapshot")
	}
}

func TestIsBlockedHonorsExpiryBetweenRefreshes(t *testing.T) {
	setupBlocklistTestDB(t)
	ctx := context.Background()

	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.9", nil, 30*time.Millisecond); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if err := Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !IsBlocked(domain.BlockedObjectTypeIPAddress, "203.0.113.9") {
		t.Fatal("expected IP to be blocked before the expiry")
	}

	// Once the block lapses the snapshot entry stops matching even though no
	// refresh has happened.
	time.Sleep(60 * time.Millisecond)

	if !Hydrated() {
		t.Fatal("expected cache to stay hydrated")
	}
	if IsBlocked(domain.BlockedObjectTypeIPAddress, "203.0.113.9") {
		t.Fatal("expected expired block to stop matching without a refresh")
	}
}

func TestIsBlockedPermanentEntryNeverExpires(t *testing.T) {
	setupBlocklistTestDB(t)
	ctx := context.Background()

	if _, err := database.BlockObject(ctx, domain.BlockedObjectTypeEmail, "forever@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if err := Refresh(ctx); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if !IsBlocked(domain.BlockedObjectTypeEmail, "forever@example.com") {
		t.Fatal("expected permanent block to keep matching")
	}
}

func TestIsBlockedBlankValue(t *testing.T) {
	setupBlocklistTestDB(t)

	if err := Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if IsBlocked(domain.BlockedObjectTypeEmail, "") {
		t.Fatal("expected blank value to never be blocked")
	}
}
