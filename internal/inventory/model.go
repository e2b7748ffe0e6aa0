package inventory

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind enumerates the typed field definitions an inventory may declare.
type FieldKind string

const (
	// FieldSingleLine is a one-line text field.
	FieldSingleLine FieldKind = "SINGLELINE"
	// FieldMultiLine is a multi-line text field.
	FieldMultiLine FieldKind = "MULTILINE"
	// FieldNumber is a numeric field.
	FieldNumber FieldKind = "NUMBER"
	// FieldBool is a boolean field.
	FieldBool FieldKind = "BOOL"
	// FieldDocument is a link to an external document.
	FieldDocument FieldKind = "DOCUMENT"
)

// ParseFieldKind validates a raw field kind value.
func ParseFieldKind(raw string) (FieldKind, error) {
	kind := FieldKind(strings.ToUpper(strings.TrimSpace(raw)))
	switch kind {
	case FieldSingleLine, FieldMultiLine, FieldNumber, FieldBool, FieldDocument:
		return kind, nil
	default:
		return "", fmt.Errorf("inventory: unknown field kind %q", raw)
	}
}

// Inventory is a user-defined catalog schema plus its collaboration settings.
// The version counter starts at 1 and increments by 1 on every successful
// update; stale writers are rejected, never merged.
type Inventory struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null"`
	OwnerID     string    `gorm:"column:owner_id;size:36;not null;index"`
	Title       string    `gorm:"column:title;size:190;not null"`
	Description string    `gorm:"column:description;type:text"`
	Category    string    `gorm:"column:category;size:190"`
	IsPublic    bool      `gorm:"column:is_public;not null;default:false"`
	Version     int64     `gorm:"column:version;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Inventory) TableName() string {
	return "inventories"
}

// FieldDefinition declares one typed column of an inventory. Position defines
// stable display order; gaps are allowed.
type FieldDefinition struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null"`
	InventoryID string    `gorm:"column:inventory_id;size:36;not null;index"`
	Kind        FieldKind `gorm:"column:field_kind;size:32;not null"`
	Title       string    `gorm:"column:title;size:190;not null"`
	Description string    `gorm:"column:description;type:text"`
	ShowInTable bool      `gorm:"column:show_in_table;not null;default:false"`
	Position    int       `gorm:"column:position;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (FieldDefinition) TableName() string {
	return "field_definitions"
}

// Item is one record of an inventory. CustomID is unique within the owning
// inventory, not globally.
type Item struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null"`
	InventoryID string    `gorm:"column:inventory_id;size:36;not null;uniqueIndex:idx_items_inventory_custom,priority:1"`
	CustomID    string    `gorm:"column:custom_id;size:190;not null;uniqueIndex:idx_items_inventory_custom,priority:2"`
	CreatedByID string    `gorm:"column:created_by_id;size:36;not null"`
	Version     int64     `gorm:"column:version;not null;default:1"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	FieldValues []FieldValue `gorm:"foreignKey:ItemID;references:ID"`
}

// TableName provides the explicit table binding for GORM.
func (Item) TableName() string {
	return "items"
}

// FieldValue holds one typed slot of an item. Exactly the slot matching the
// referenced definition's kind may be populated; this is validated at write
// time, not structurally.
type FieldValue struct {
	ID                string   `gorm:"column:id;primaryKey;size:36;not null"`
	ItemID            string   `gorm:"column:item_id;size:36;not null;index"`
	FieldDefinitionID string   `gorm:"column:field_definition_id;size:36;not null"`
	ValueText         *string  `gorm:"column:value_text;type:text"`
	ValueNumber       *float64 `gorm:"column:value_number"`
	ValueBool         *bool    `gorm:"column:value_bool"`
	ValueLink         *string  `gorm:"column:value_link;size:512"`
}

// TableName provides the explicit table binding for GORM.
func (FieldValue) TableName() string {
	return "item_field_values"
}

// AccessGrant is an explicit per-user permission record on one inventory.
// The (inventory, user) pair is unique.
type AccessGrant struct {
	InventoryID string    `gorm:"column:inventory_id;primaryKey;size:36;not null"`
	UserID      string    `gorm:"column:user_id;primaryKey;size:36;not null"`
	CanWrite    bool      `gorm:"column:can_write;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (AccessGrant) TableName() string {
	return "access_grants"
}

// ItemLike records one user's like on an item; the pair is unique and toggles.
type ItemLike struct {
	ItemID    string    `gorm:"column:item_id;primaryKey;size:36;not null"`
	UserID    string    `gorm:"column:user_id;primaryKey;size:36;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ItemLike) TableName() string {
	return "item_likes"
}

// Tag labels inventories for list filtering and autocomplete.
type Tag struct {
	ID   string `gorm:"column:id;primaryKey;size:36;not null"`
	Name string `gorm:"column:name;size:190;uniqueIndex;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}

// InventoryTag joins inventories to tags.
type InventoryTag struct {
	InventoryID string `gorm:"column:inventory_id;primaryKey;size:36;not null"`
	TagID       string `gorm:"column:tag_id;primaryKey;size:36;not null"`
}

// TableName provides the explicit table binding for GORM.
func (InventoryTag) TableName() string {
	return "inventory_tags"
}
