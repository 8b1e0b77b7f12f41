package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PinnedItemType enumerates the kinds of cards a user can pin
type PinnedItemType string

const (
	PinnedItemBudgetProject PinnedItemType = "budget-project"
	PinnedItemEvent         PinnedItemType = "event"
	PinnedItemCustom        PinnedItemType = "custom"
)

// Valid reports whether t is a known pinned item type
func (t PinnedItemType) Valid() bool {
	switch t {
	case PinnedItemBudgetProject, PinnedItemEvent, PinnedItemCustom:
		return true
	}
	return false
}

// PinnedItem is a dashboard card a user has pinned. ItemData is a
// flexible JSON payload whose shape varies by item type.
type PinnedItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContactID int             `gorm:"not null;index:idx_pinned_items_lookup,unique,priority:1" json:"contact_id"`
	ItemType  PinnedItemType  `gorm:"type:varchar(50);not null;index:idx_pinned_items_lookup,unique,priority:2" json:"item_type"`
	ItemID    string          `gorm:"type:varchar(255);not null;index:idx_pinned_items_lookup,unique,priority:3" json:"item_id"`
	ItemData  json.RawMessage `gorm:"type:jsonb" json:"item_data"`
	Route     string          `gorm:"type:varchar(500);not null" json:"route"`
	SortOrder int             `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName overrides the table name
func (PinnedItem) TableName() string {
	return "user_pinned_items"
}

// BeforeCreate hook
func (p *PinnedItem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CreatePinnedItemRequest is the payload for pinning a new item
type CreatePinnedItemRequest struct {
	ItemType PinnedItemType  `json:"itemType"`
	ItemID   string          `json:"itemId"`
	ItemData json.RawMessage `json:"itemData"`
	Route    string          `json:"route"`
}
