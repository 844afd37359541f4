package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fraudwatch/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

	DB = db

	t.Cleanup(func() {
		DB = nil
	})

	return db
}

func countBlockedObjects(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&domain.BlockedObject{}).Count(&count).Error; err != nil {
		t.Fatalf("count blocked objects: %v", err)
	}
	return count
}

func TestBlockObjectCreatesRecord(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	record, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.7", nil, time.Hour)
	if err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if !record.Blocked() {
		t.Fatal("expected record to be blocked")
	}
	if record.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	if got := countBlockedObjects(t, db); got != 1 {
		t.Fatalf("blocked object count = %d, want 1", got)
	}
}

func TestBlockObjectIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "abuse@example.com", nil, 0); err != nil {
		t.Fatalf("first BlockObject returned error: %v", err)
	}
	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "abuse@example.com", nil, 0); err != nil {
		t.Fatalf("second BlockObject returned error: %v", err)
	}

	if got := countBlockedObjects(t, db); got != 1 {
		t.Fatalf("blocked object count = %d, want 1", got)
	}
}

func TestBlockObjectReusesUnblockedRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "198.51.100.4", nil, time.Hour); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if err := UnblockObject(ctx, "198.51.100.4"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}
	if _, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "198.51.100.4", nil, time.Hour); err != nil {
		t.Fatalf("re-block returned error: %v", err)
	}

	if got := countBlockedObjects(t, db); got != 1 {
		t.Fatalf("blocked object count = %d, want 1", got)
	}

	record, err := FindActiveBlockedObject(ctx, domain.BlockedObjectTypeIPAddress, "198.51.100.4")
	if err != nil {
		t.Fatalf("FindActiveBlockedObject returned error: %v", err)
	}
	if record == nil {
		t.Fatal("expected re-blocked object to be active")
	}
}

func TestBlockObjectIPRequiresExpiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "192.0.2.1", nil, 0)
	if !errors.Is(err, domain.ErrIPBlockRequiresExpiry) {
		t.Fatalf("BlockObject error = %v, want ErrIPBlockRequiresExpiry", err)
	}
	if got := countBlockedObjects(t, db); got != 0 {
		t.Fatalf("blocked object count = %d, want 0", got)
	}

	// The same call without an expiry is fine for every other type.
	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "fraud@example.com", nil, 0); err != nil {
		t.Fatalf("email BlockObject returned error: %v", err)
	}
}

func TestFindActiveBlockedObjectExpiry(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.9", nil, -time.Hour); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}

	record, err := FindActiveBlockedObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.9")
	if err != nil {
		t.Fatalf("FindActiveBlockedObject returned error: %v", err)
	}
	if record != nil {
		t.Fatal("expected expired block to be inactive")
	}
}

func TestUnblockObjectUnknownValueIsNoop(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := UnblockObject(ctx, "never-blocked"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}
	if got := countBlockedObjects(t, db); got != 0 {
		t.Fatalf("blocked object count = %d, want 0", got)
	}
}

func TestUnblockObjectPreservesRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "kept@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if err := UnblockObject(ctx, "kept@example.com"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}

	var record domain.BlockedObject
	if err := db.Where("object_value = ?", "kept@example.com").First(&record).Error; err != nil {
		t.Fatalf("expected row to survive unblock: %v", err)
	}
	if record.Blocked() {
		t.Fatal("expected row to be unblocked")
	}
	if record.ExpiresAt != nil {
		t.Fatal("expected expiry to be cleared")
	}
}

func TestListBlockedObjectsByType(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "a@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "b@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if _, err := BlockObject(ctx, domain.BlockedObjectTypeBrowserGUID, "guid-1", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}

	emails, err := ListBlockedObjectsByType(ctx, domain.BlockedObjectTypeEmail)
	if err != nil {
		t.Fatalf("ListBlockedObjectsByType returned error: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("email entries = %d, want 2", len(emails))
	}
	for _, record := range emails {
		if record.ObjectType != domain.BlockedObjectTypeEmail {
			t.Fatalf("unexpected object type %q", record.ObjectType)
		}
	}
}

func TestClearExpiredBlocks(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.20", nil, -time.Minute); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if _, err := BlockObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.21", nil, time.Hour); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}

	cleared, err := ClearExpiredBlocks(ctx)
	if err != nil {
		t.Fatalf("ClearExpiredBlocks returned error: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}

	still, err := FindActiveBlockedObject(ctx, domain.BlockedObjectTypeIPAddress, "203.0.113.21")
	if err != nil {
		t.Fatalf("FindActiveBlockedObject returned error: %v", err)
	}
	if still == nil {
		t.Fatal("expected unexpired block to remain active")
	}
}

func TestBlockedObjectListenerNotified(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	notified := 0
	RegisterBlockedObjectListener(func() { notified++ })

	t.Cleanup(func() {
		blockedObjectListenersMu.Lock()
		blockedObjectListeners = nil
		blockedObjectListenersMu.Unlock()
	})

	if _, err := BlockObject(ctx, domain.BlockedObjectTypeEmail, "listener@example.com", nil, 0); err != nil {
		t.Fatalf("BlockObject returned error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("listener notified %d times after block, want 1", notified)
	}

	if err := UnblockObject(ctx, "listener@example.com"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}
	if notified != 2 {
		t.Fatalf("listener notified %d times after unblock, want 2", notified)
	}

	// No mutation, no notification.
	if err := UnblockObject(ctx, "unknown@example.com"); err != nil {
		t.Fatalf("UnblockObject returned error: %v", err)
	}
	if notified != 2 {
		t.Fatalf("listener notified %d times after no-op unblock, want 2", notified)
	}
}
