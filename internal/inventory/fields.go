package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/inventa-labs/inventa/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opAddField    = "inventory.field.add"
	opUpdateField = "inventory.field.update"
	opRemoveField = "inventory.field.remove"
	opListFields  = "inventory.field.list"
)

// AddFieldParams describes a new field definition.
type AddFieldParams struct {
	Kind        FieldKind
	Title       string
	Description string
	ShowInTable bool
}

// AddField appends a field definition to the inventory. The per-kind
// cardinality cap is enforced and the position is assigned as the current
// maximum plus one, inside the same transaction as the insert.
func (s *Service) AddField(ctx context.Context, actor *users.Actor, inventoryID string, params AddFieldParams) (field FieldDefinition, err error) {
	defer s.observe(opAddField, &err)

	if _, err := ParseFieldKind(string(params.Kind)); err != nil {
		return FieldDefinition{}, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return FieldDefinition{}, newServiceError(opAddField, "missing_title", errors.New("title is required"))
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddField, "id_generation_failed", err)
		return FieldDefinition{}, newServiceError(opAddField, "id_generation_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		var sameKind int64
		if err := tx.Model(&FieldDefinition{}).
			Where("inventory_id = ? AND field_kind = ?", inventoryID, params.Kind).
			Count(&sameKind).Error; err != nil {
			return newServiceError(opAddField, "count_failed", err)
		}
		if sameKind >= int64(s.fieldLimit) {
			return &FieldLimitExceededError{Kind: params.Kind, Limit: s.fieldLimit}
		}

		var maxPosition int
		if err := tx.Model(&FieldDefinition{}).
			Where("inventory_id = ?", inventoryID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return newServiceError(opAddField, "position_query_failed", err)
		}

		field = FieldDefinition{
			ID:          id,
			InventoryID: inventoryID,
			Kind:        params.Kind,
			Title:       strings.TrimSpace(params.Title),
			Description: params.Description,
			ShowInTable: params.ShowInTable,
			Position:    maxPosition + 1,
		}
		if err := tx.Create(&field).Error; err != nil {
			return newServiceError(opAddField, "persist_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return FieldDefinition{}, txErr
	}
	return field, nil
}

// UpdateFieldParams carries the partial field update.
type UpdateFieldParams struct {
	Title       *string
	Description *string
	ShowInTable *bool
}

// UpdateField edits the title, description, or display flag of a definition.
// The kind and position are immutable once created.
func (s *Service) UpdateField(ctx context.Context, actor *users.Actor, inventoryID, fieldID string, params UpdateFieldParams) (field FieldDefinition, err error) {
	defer s.observe(opUpdateField, &err)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		err = tx.Where("id = ? AND inventory_id = ?", fieldID, inventoryID).Take(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "field definition", ID: fieldID}
		}
		if err != nil {
			return newServiceError(opUpdateField, "query_failed", err)
		}

		updates := map[string]interface{}{}
		if params.Title != nil {
			updates["title"] = strings.TrimSpace(*params.Title)
		}
		if params.Description != nil {
			updates["description"] = *params.Description
		}
		if params.ShowInTable != nil {
			updates["show_in_table"] = *params.ShowInTable
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&FieldDefinition{}).Where("id = ?", fieldID).Updates(updates).Error; err != nil {
			return newServiceError(opUpdateField, "persist_failed", err)
		}
		return tx.Where("id = ?", fieldID).Take(&field).Error
	})
	if txErr != nil {
		return FieldDefinition{}, txErr
	}
	return field, nil
}

// RemoveField deletes a definition together with the values populated for it.
func (s *Service) RemoveField(ctx context.Context, actor *users.Actor, inventoryID, fieldID string) (err error) {
	defer s.observe(opRemoveField, &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		var field FieldDefinition
		err = tx.Where("id = ? AND inventory_id = ?", fieldID, inventoryID).Take(&field).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "field definition", ID: fieldID}
		}
		if err != nil {
			return newServiceError(opRemoveField, "query_failed", err)
		}

		if err := tx.Where("field_definition_id = ?", fieldID).Delete(&FieldValue{}).Error; err != nil {
			return newServiceError(opRemoveField, "delete_values_failed", err)
		}
		if err := tx.Where("id = ?", fieldID).Delete(&FieldDefinition{}).Error; err != nil {
			return newServiceError(opRemoveField, "persist_failed", err)
		}
		return nil
	})
}

// ListFields returns the inventory's definitions in display order.
func (s *Service) ListFields(ctx context.Context, actor *users.Actor, inventoryID string) ([]FieldDefinition, error) {
	if err := s.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return nil, err
	}

	var fields []FieldDefinition
	if err := s.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("position ASC").
		Find(&fields).Error; err != nil {
		s.logError(opListFields, "query_failed", err, zap.String("inventory_id", inventoryID))
		return nil, newServiceError(opListFields, "query_failed", err)
	}
	return fields, nil
}
