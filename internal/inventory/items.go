package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opCreateItem = "inventory.item.create"
	opGetItem    = "inventory.item.get"
	opListItems  = "inventory.item.list"
	opUpdateItem = "inventory.item.update"
	opDeleteItem = "inventory.item.delete"
	opToggleLike = "inventory.item.toggle_like"
	opItemStats  = "inventory.stats"
)

// txSequence binds a sequence draw to the enclosing transaction so the draw
// commits or rolls back together with the item insert.
type txSequence struct {
	store *customid.SequenceStore
	tx    *gorm.DB
}

func (p txSequence) NextValue(_ context.Context, inventoryID string) (int64, error) {
	return p.store.NextValueTx(p.tx, inventoryID)
}

// FieldValueInput is one typed slot supplied by the caller.
type FieldValueInput struct {
	FieldDefinitionID string
	ValueText         *string
	ValueNumber       *float64
	ValueBool         *bool
	ValueLink         *string
}

// CreateItemParams describes a new item. An empty CustomID requests
// generation from the inventory's attached template; Overrides replace
// individual template positions verbatim.
type CreateItemParams struct {
	CustomID    string
	Overrides   map[int]string
	FieldValues []FieldValueInput
}

// CreateItem persists a new item. When no custom id is supplied one is
// rendered from the inventory's template, falling back to a timestamp-derived
// placeholder when no template is attached. A uniqueness violation from the
// store surfaces as DuplicateCustomIDError so the caller can retry with an
// override.
func (s *Service) CreateItem(ctx context.Context, actor *users.Actor, inventoryID string, params CreateItemParams) (item Item, err error) {
	defer s.observe(opCreateItem, &err)

	itemID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateItem, "id_generation_failed", err)
		return Item{}, newServiceError(opCreateItem, "id_generation_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		var definitions []FieldDefinition
		if err := tx.Where("inventory_id = ?", inventoryID).Find(&definitions).Error; err != nil {
			return newServiceError(opCreateItem, "fields_query_failed", err)
		}
		values, err := s.buildValues(itemID, definitions, params.FieldValues)
		if err != nil {
			return err
		}

		customID := strings.TrimSpace(params.CustomID)
		if customID == "" {
			customID, err = s.renderCustomID(ctx, tx, inventoryID, itemID, params.Overrides)
			if err != nil {
				return err
			}
		}

		item = Item{
			ID:          itemID,
			InventoryID: inventoryID,
			CustomID:    customID,
			CreatedByID: actor.ID,
			Version:     1,
		}
		if err := tx.Create(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &DuplicateCustomIDError{Attempted: customID}
			}
			return newServiceError(opCreateItem, "persist_failed", err)
		}
		for i := range values {
			if err := tx.Create(&values[i]).Error; err != nil {
				return newServiceError(opCreateItem, "values_persist_failed", err)
			}
		}
		item.FieldValues = values
		return nil
	})
	if txErr != nil {
		return Item{}, txErr
	}
	return item, nil
}

// renderCustomID produces the identifier for an item created without one. The
// no-template placeholder carries the item id's tail so two items created in
// the same millisecond still get distinct identifiers.
func (s *Service) renderCustomID(ctx context.Context, tx *gorm.DB, inventoryID, itemID string, overrides map[int]string) (string, error) {
	tpl, attached, err := s.sequences.TemplateForTx(tx, inventoryID)
	if err != nil {
		return "", err
	}
	if !attached {
		return fmt.Sprintf("ITEM-%d-%s", s.clock().UTC().UnixMilli(), idTail(itemID)), nil
	}
	return s.engine.Render(ctx, inventoryID, tpl, txSequence{store: s.sequences, tx: tx}, overrides)
}

func idTail(id string) string {
	const tailLen = 6
	trimmed := strings.ReplaceAll(id, "-", "")
	if len(trimmed) <= tailLen {
		return trimmed
	}
	return trimmed[len(trimmed)-tailLen:]
}

// GetItem loads one item with its field values.
func (s *Service) GetItem(ctx context.Context, actor *users.Actor, inventoryID, itemID string) (Item, error) {
	if err := s.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return Item{}, err
	}

	var item Item
	err := s.db.WithContext(ctx).
		Preload("FieldValues").
		Where("id = ? AND inventory_id = ?", itemID, inventoryID).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, &NotFoundError{Entity: "item", ID: itemID}
	}
	if err != nil {
		s.logError(opGetItem, "query_failed", err, zap.String("item_id", itemID))
		return Item{}, newServiceError(opGetItem, "query_failed", err)
	}
	return item, nil
}

// ItemQuery bounds, filters and orders an item listing. SortBy is matched
// against a fixed column whitelist; anything else falls back to creation
// order so caller input never reaches the ORDER BY clause directly.
type ItemQuery struct {
	Text     string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

var itemSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"custom_id":  "custom_id",
}

func (q ItemQuery) orderClause() string {
	column, ok := itemSortColumns[strings.ToLower(strings.TrimSpace(q.SortBy))]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	return column + " " + direction
}

// ListItems returns the inventory's items ordered per the query.
func (s *Service) ListItems(ctx context.Context, actor *users.Actor, inventoryID string, query ItemQuery) ([]Item, error) {
	if err := s.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	tx := s.db.WithContext(ctx).
		Preload("FieldValues").
		Where("inventory_id = ?", inventoryID).
		Order(query.orderClause()).
		Limit(limit).
		Offset(query.Offset)
	if trimmed := strings.TrimSpace(query.Text); trimmed != "" {
		pattern := "%" + trimmed + "%"
		tx = tx.Where(
			"custom_id LIKE ? OR id IN (?)",
			pattern,
			s.db.Model(&FieldValue{}).Select("item_id").Where("value_text LIKE ?", pattern),
		)
	}

	var items []Item
	if err := tx.Find(&items).Error; err != nil {
		s.logError(opListItems, "query_failed", err, zap.String("inventory_id", inventoryID))
		return nil, newServiceError(opListItems, "query_failed", err)
	}
	return items, nil
}

// UpdateItemParams carries the partial item update plus the caller's expected
// version. A non-nil FieldValues replaces the full value set atomically.
type UpdateItemParams struct {
	CustomID        *string
	FieldValues     []FieldValueInput
	ExpectedVersion *int64
}

// UpdateItem applies a partial update under the optimistic-lock rule.
func (s *Service) UpdateItem(ctx context.Context, actor *users.Actor, inventoryID, itemID string, params UpdateItemParams) (item Item, err error) {
	defer s.observe(opUpdateItem, &err)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		err = tx.Where("id = ? AND inventory_id = ?", itemID, inventoryID).Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		if err != nil {
			return newServiceError(opUpdateItem, "query_failed", err)
		}

		newVersion, err := CheckAndBump(params.ExpectedVersion, item.Version)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"version": newVersion}
		if params.CustomID != nil {
			updates["custom_id"] = strings.TrimSpace(*params.CustomID)
		}
		if err := tx.Model(&Item{}).Where("id = ?", itemID).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && params.CustomID != nil {
				return &DuplicateCustomIDError{Attempted: strings.TrimSpace(*params.CustomID)}
			}
			return newServiceError(opUpdateItem, "persist_failed", err)
		}

		if params.FieldValues != nil {
			var definitions []FieldDefinition
			if err := tx.Where("inventory_id = ?", inventoryID).Find(&definitions).Error; err != nil {
				return newServiceError(opUpdateItem, "fields_query_failed", err)
			}
			values, err := s.buildValues(itemID, definitions, params.FieldValues)
			if err != nil {
				return err
			}
			if err := tx.Where("item_id = ?", itemID).Delete(&FieldValue{}).Error; err != nil {
				return newServiceError(opUpdateItem, "values_clear_failed", err)
			}
			for i := range values {
				if err := tx.Create(&values[i]).Error; err != nil {
					return newServiceError(opUpdateItem, "values_persist_failed", err)
				}
			}
		}
		return tx.Preload("FieldValues").Where("id = ?", itemID).Take(&item).Error
	})
	if txErr != nil {
		return Item{}, txErr
	}
	return item, nil
}

// DeleteItem removes an item and its field values.
func (s *Service) DeleteItem(ctx context.Context, actor *users.Actor, inventoryID, itemID string) (err error) {
	defer s.observe(opDeleteItem, &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		result := tx.Where("id = ? AND inventory_id = ?", itemID, inventoryID).Delete(&Item{})
		if result.Error != nil {
			return newServiceError(opDeleteItem, "persist_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&FieldValue{}).Error; err != nil {
			return newServiceError(opDeleteItem, "delete_values_failed", err)
		}
		return tx.Where("item_id = ?", itemID).Delete(&ItemLike{}).Error
	})
}

// ToggleLike flips the actor's like on an item and reports the new state.
func (s *Service) ToggleLike(ctx context.Context, actor *users.Actor, inventoryID, itemID string) (liked bool, err error) {
	defer s.observe(opToggleLike, &err)

	if actor == nil {
		return false, &AccessDeniedError{Reason: ReasonAuthentication}
	}
	if err := s.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return false, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		err := tx.Where("id = ? AND inventory_id = ?", itemID, inventoryID).Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		if err != nil {
			return newServiceError(opToggleLike, "query_failed", err)
		}

		var like ItemLike
		err = tx.Where("item_id = ? AND user_id = ?", itemID, actor.ID).Take(&like).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			liked = true
			return tx.Create(&ItemLike{ItemID: itemID, UserID: actor.ID}).Error
		}
		if err != nil {
			return newServiceError(opToggleLike, "like_query_failed", err)
		}
		liked = false
		return tx.Where("item_id = ? AND user_id = ?", itemID, actor.ID).Delete(&ItemLike{}).Error
	})
	if txErr != nil {
		return false, txErr
	}
	return liked, nil
}

// NumberFieldStats aggregates one NUMBER field across the inventory's items.
type NumberFieldStats struct {
	Title string  `json:"title"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// Stats summarizes an inventory: item count plus per-NUMBER-field aggregates.
type Stats struct {
	ItemCount    int64                       `json:"item_count"`
	NumberFields map[string]NumberFieldStats `json:"number_fields"`
}

// GetStats computes the inventory summary for an actor with read access.
func (s *Service) GetStats(ctx context.Context, actor *users.Actor, inventoryID string) (Stats, error) {
	if err := s.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return Stats{}, err
	}

	stats := Stats{NumberFields: map[string]NumberFieldStats{}}
	if err := s.db.WithContext(ctx).Model(&Item{}).
		Where("inventory_id = ?", inventoryID).
		Count(&stats.ItemCount).Error; err != nil {
		return Stats{}, newServiceError(opItemStats, "count_failed", err)
	}

	var numberFields []FieldDefinition
	if err := s.db.WithContext(ctx).
		Where("inventory_id = ? AND field_kind = ?", inventoryID, FieldNumber).
		Find(&numberFields).Error; err != nil {
		return Stats{}, newServiceError(opItemStats, "fields_query_failed", err)
	}

	for _, field := range numberFields {
		var row struct {
			Min float64
			Max float64
			Avg float64
		}
		err := s.db.WithContext(ctx).Model(&FieldValue{}).
			Select("MIN(value_number) AS min, MAX(value_number) AS max, AVG(value_number) AS avg").
			Where("field_definition_id = ? AND value_number IS NOT NULL", field.ID).
			Scan(&row).Error
		if err != nil {
			return Stats{}, newServiceError(opItemStats, "aggregate_failed", err)
		}
		stats.NumberFields[field.ID] = NumberFieldStats{
			Title: field.Title,
			Min:   row.Min,
			Max:   row.Max,
			Avg:   row.Avg,
		}
	}
	return stats, nil
}

func (s *Service) buildValues(itemID string, definitions []FieldDefinition, inputs []FieldValueInput) ([]FieldValue, error) {
	values := make([]FieldValue, 0, len(inputs))
	for _, input := range inputs {
		id, err := s.idProvider.NewID()
		if err != nil {
			return nil, newServiceError(opCreateItem, "id_generation_failed", err)
		}
		values = append(values, FieldValue{
			ID:                id,
			ItemID:            itemID,
			FieldDefinitionID: input.FieldDefinitionID,
			ValueText:         input.ValueText,
			ValueNumber:       input.ValueNumber,
			ValueBool:         input.ValueBool,
			ValueLink:         input.ValueLink,
		})
	}
	if err := validateFieldValues(definitions, values); err != nil {
		return nil, err
	}
	return values, nil
}
