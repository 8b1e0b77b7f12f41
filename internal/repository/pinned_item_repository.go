package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/churchhub/platform-gateway/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConflict is returned when a write collides with an existing
// record, e.g. pinning the same item twice.
var ErrConflict = errors.New("record already exists")

// PinnedItemRepository handles pinned item database operations
type PinnedItemRepository struct {
	db *gorm.DB
}

// NewPinnedItemRepository creates a new pinned item repository
func NewPinnedItemRepository(db *gorm.DB) *PinnedItemRepository {
	return &PinnedItemRepository{db: db}
}

// ListByContact retrieves a user's pinned items, optionally filtered
// by item type, ordered by their explicit sort order.
func (r *PinnedItemRepository) ListByContact(ctx context.Context, contactID int, itemType models.PinnedItemType) ([]models.PinnedItem, error) {
	var items []models.PinnedItem
	q := r.db.WithContext(ctx).Where("contact_id = ?", contactID)
	if itemType != "" {
		q = q.Where("item_type = ?", itemType)
	}
	if err := q.Order("sort_order ASC, created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list pinned items: %w", err)
	}
	return items, nil
}

// Create pins a new item for a user. The next sort order is assigned
// at the end of the user's list.
func (r *PinnedItemRepository) Create(ctx context.Context, item *models.PinnedItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSort int
		err := tx.Model(&models.PinnedItem{}).
			Where("contact_id = ?", item.ContactID).
			Select("COALESCE(MAX(sort_order), -1)").
			Scan(&maxSort).Error
		if err != nil {
			return fmt.Errorf("failed to compute sort order: %w", err)
		}
		item.SortOrder = maxSort + 1

		if err := tx.Create(item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return fmt.Errorf("failed to create pinned item: %w", err)
		}
		return nil
	})
}

// Delete unpins an item. The (contact, type, id) key is unique so at
// most one row matches.
func (r *PinnedItemRepository) Delete(ctx context.Context, contactID int, itemType models.PinnedItemType, itemID string) error {
	res := r.db.WithContext(ctx).
		Where("contact_id = ? AND item_type = ? AND item_id = ?", contactID, itemType, itemID).
		Delete(&models.PinnedItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete pinned item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reorder updates the sort order of one pinned item
func (r *PinnedItemRepository) Reorder(ctx context.Context, id uuid.UUID, contactID int, sortOrder int) error {
	res := r.db.WithContext(ctx).
		Model(&models.PinnedItem{}).
		Where("id = ? AND contact_id = ?", id, contactID).
		Update("sort_order", sortOrder)
	if res.Error != nil {
		return fmt.Errorf("failed to reorder pinned item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

