package customid

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sequence is the durable per-inventory counter row. The attached template is
// stored alongside the counter so a draw and its recipe live together.
type Sequence struct {
	InventoryID  string `gorm:"column:inventory_id;primaryKey;size:36;not null"`
	TemplateJSON string `gorm:"column:template_json;type:text;not null;default:''"`
	NextValue    int64  `gorm:"column:next_value;not null;default:1"`
}

// TableName provides the explicit table binding for GORM.
func (Sequence) TableName() string {
	return "custom_id_sequences"
}

// SequenceStore performs atomic read-and-increment draws against the counter
// table. Draws for the same inventory serialize on a row lock; draws for
// different inventories do not contend on any shared lock.
type SequenceStore struct {
	db *gorm.DB
}

// NewSequenceStore constructs a store over the provided database handle.
func NewSequenceStore(db *gorm.DB) (*SequenceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("customid: database handle required")
	}
	return &SequenceStore{db: db}, nil
}

// NextValue draws the next counter value inside its own transaction. The
// counter is created lazily at 1 on the first draw for an inventory.
func (s *SequenceStore) NextValue(ctx context.Context, inventoryID string) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		drawn, err := s.NextValueTx(tx, inventoryID)
		if err != nil {
			return err
		}
		value = drawn
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// NextValueTx draws the next counter value inside an enclosing transaction so
// the draw commits or rolls back together with the mutation that consumed it.
func (s *SequenceStore) NextValueTx(tx *gorm.DB, inventoryID string) (int64, error) {
	var row Sequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("inventory_id = ?", inventoryID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = Sequence{InventoryID: inventoryID, NextValue: 1}
		if err := tx.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("customid: create sequence: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("customid: load sequence: %w", err)
	}

	value := row.NextValue
	if err := tx.Model(&Sequence{}).
		Where("inventory_id = ?", inventoryID).
		Update("next_value", value+1).Error; err != nil {
		return 0, fmt.Errorf("customid: advance sequence: %w", err)
	}
	return value, nil
}

// AttachTemplate stores the template on the inventory's sequence row, creating
// the row when absent. The counter value is preserved across replacements.
func (s *SequenceStore) AttachTemplate(ctx context.Context, inventoryID string, tpl Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	encoded, err := tpl.Encode()
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Sequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("inventory_id = ?", inventoryID).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = Sequence{InventoryID: inventoryID, TemplateJSON: encoded, NextValue: 1}
			return tx.Create(&row).Error
		}
		if err != nil {
			return fmt.Errorf("customid: load sequence: %w", err)
		}
		return tx.Model(&Sequence{}).
			Where("inventory_id = ?", inventoryID).
			Update("template_json", encoded).Error
	})
}

// TemplateFor loads the template attached to an inventory. The second return
// reports whether a usable template exists.
func (s *SequenceStore) TemplateFor(ctx context.Context, inventoryID string) (Template, bool, error) {
	return s.templateFor(s.db.WithContext(ctx), inventoryID)
}

// TemplateForTx is TemplateFor inside an enclosing transaction.
func (s *SequenceStore) TemplateForTx(tx *gorm.DB, inventoryID string) (Template, bool, error) {
	return s.templateFor(tx, inventoryID)
}

func (s *SequenceStore) templateFor(tx *gorm.DB, inventoryID string) (Template, bool, error) {
	var row Sequence
	err := tx.Where("inventory_id = ?", inventoryID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Template{}, false, nil
	}
	if err != nil {
		return Template{}, false, fmt.Errorf("customid: load sequence: %w", err)
	}
	if row.TemplateJSON == "" {
		return Template{}, false, nil
	}

	tpl, err := ParseTemplate([]byte(row.TemplateJSON))
	if err != nil {
		return Template{}, false, err
	}
	if tpl.IsEmpty() {
		return Template{}, false, nil
	}
	return tpl, true, nil
}
