package database

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"fraudwatch/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	blockedObjectListenersMu sync.Mutex
	blockedObjectListeners   []func()
)

// RegisterBlockedObjectListener subscribes fn to blocked-object mutations.
// Used by the in-memory blocklist cache to invalidate itself on writes.
func RegisterBlockedObjectListener(fn func()) {
	if fn == nil {
		return
	}
	blockedObjectListenersMu.Lock()
	blockedObjectListeners = append(blockedObjectListeners, fn)
	blockedObjectListenersMu.Unlock()
}

func notifyBlockedObjectChange() {
	blockedObjectListenersMu.Lock()
	listeners := make([]func(), len(blockedObjectListeners))
	copy(listeners, blockedObjectListeners)
	blockedObjectListenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// BlockObject marks (objectType, objectValue) as blocked, creating the row on
// first block and refreshing it on repeat blocks. The unique index arbitrates
// concurrent calls for the same pair; no duplicate rows, no error. A zero
// expiresIn means the block never expires, which is rejected for ip_address.
func BlockObject(ctx context.Context, objectType, objectValue string, blockedByID *uint, expiresIn time.Duration) (*domain.BlockedObject, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	objectValue = strings.TrimSpace(objectValue)
	if objectValue == "" {
		return nil, errors.New("blocked object value cannot be empty")
	}

	now := time.Now().UTC()
	record := domain.BlockedObject{
		ObjectType:  objectType,
		ObjectValue: objectValue,
		BlockedByID: blockedByID,
		BlockedAt:   &now,
	}
	if expiresIn != 0 {
		expiry := now.Add(expiresIn)
		record.ExpiresAt = &expiry
	}

	if objectType == domain.BlockedObjectTypeIPAddress && record.ExpiresAt == nil {
		return nil, domain.ErrIPBlockRequiresExpiry
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "object_type"}, {Name: "object_value"}},
		DoUpdates: clause.Assignments(map[string]any{
			"blocked_by_id": record.BlockedByID,
			"blocked_at":    record.BlockedAt,
			"expires_at":    record.ExpiresAt,
			"updated_at":    now,
		}),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}

	notifyBlockedObjectChange()
	return &record, nil
}

// UnblockObject clears the block mark for every row holding objectValue,
// keeping the rows for audit history. Unknown values are a silent no-op;
// unblock is called defensively.
func UnblockObject(ctx context.Context, objectValue string) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	objectValue = strings.TrimSpace(objectValue)
	if objectValue == "" {
		return nil
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	res := db.Model(&domain.BlockedObject{}).
		Where("object_value = ?", objectValue).
		Updates(map[string]any{"blocked_at": nil, "expires_at": nil})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected > 0 {
		notifyBlockedObjectChange()
	}
	return nil
}

// FindActiveBlockedObject returns the entry for (objectType, objectValue)
// only while its block is in force, nil otherwise.
func FindActiveBlockedObject(ctx context.Context, objectType, objectValue string) (*domain.BlockedObject, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if strings.TrimSpace(objectValue) == "" {
		return nil, nil
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var record domain.BlockedObject
	err := db.
		Where("object_type = ? AND object_value = ? AND blocked_at IS NOT NULL", objectType, objectValue).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListBlockedObjectsByType returns every row of the given type, active or not.
func ListBlockedObjectsByType(ctx context.Context, objectType string) ([]domain.BlockedObject, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var records []domain.BlockedObject
	if err := db.Where("object_type = ?", objectType).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ActiveBlockedObjects returns every active blocked (type, value, expiry)
// entry, used to hydrate the in-memory blocklist cache. Expiries ride along so
// the cache can outlast a block without serving it.
func ActiveBlockedObjects(ctx context.Context) ([]domain.BlockedObject, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	var records []domain.BlockedObject
	err := db.Select("object_type", "object_value", "expires_at").
		Where("blocked_at IS NOT NULL").
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC()).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ClearExpiredBlocks returns rows whose expiry has lapsed to the unblocked
// state. Expired rows are already inactive; this keeps the table tidy without
// deleting audit history.
func ClearExpiredBlocks(ctx context.Context) (int64, error) {
	if DB == nil {
		return 0, errors.New("database not initialised")
	}

	db := DB
	if ctx != nil {
		db = db.WithContext(ctx)
	}

	res := db.Model(&domain.BlockedObject{}).
		Where("blocked_at IS NOT NULL AND expires_at IS NOT NULL AND expires_at <= ?", time.Now().UTC()).
		Updates(map[string]any{"blocked_at": nil, "expires_at": nil})
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		notifyBlockedObjectChange()
	}
	return res.RowsAffected, nil
}
