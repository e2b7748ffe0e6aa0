package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultFieldLimit = 3

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingEngine     = errors.New("custom id engine is required")
	errMissingSequences  = errors.New("sequence store is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew      = "inventory.service.new"
	opCreateInventory = "inventory.create"
	opGetInventory    = "inventory.get"
	opListInventories = "inventory.list"
	opUpdateInventory = "inventory.update"
	opDeleteInventory = "inventory.delete"
)

// IDProvider issues primary keys for newly persisted entities.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// MutationObserver receives the outcome of every coordinated mutation.
type MutationObserver interface {
	ObserveMutation(operation string, err error)
}

// ServiceConfig describes the collaborators of the mutation coordinator.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Engine     *customid.Engine
	Sequences  *customid.SequenceStore
	Logger     *zap.Logger
	Observer   MutationObserver
	FieldLimit int
}

// Service coordinates every logical mutation of an inventory and its
// children: it authorizes the actor, applies the optimistic-lock check, and
// persists the write inside one transaction.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	engine     *customid.Engine
	sequences  *customid.SequenceStore
	logger     *zap.Logger
	observer   MutationObserver
	fieldLimit int
}

// NewService constructs the coordinator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Engine == nil {
		return nil, newServiceError(opServiceNew, "missing_engine", errMissingEngine)
	}
	if cfg.Sequences == nil {
		return nil, newServiceError(opServiceNew, "missing_sequences", errMissingSequences)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	limit := cfg.FieldLimit
	if limit <= 0 {
		limit = defaultFieldLimit
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		engine:     cfg.Engine,
		sequences:  cfg.Sequences,
		logger:     logger,
		observer:   cfg.Observer,
		fieldLimit: limit,
	}, nil
}

// CreateInventoryParams carries the caller-supplied inventory draft.
type CreateInventoryParams struct {
	Title       string
	Description string
	Category    string
	IsPublic    bool
	Tags        []string
}

// CreateInventory registers a new inventory owned by the actor.
func (s *Service) CreateInventory(ctx context.Context, actor *users.Actor, params CreateInventoryParams) (inv Inventory, err error) {
	defer s.observe(opCreateInventory, &err)

	if actor == nil {
		return Inventory{}, &AccessDeniedError{Reason: ReasonAuthentication}
	}
	if strings.TrimSpace(params.Title) == "" {
		return Inventory{}, newServiceError(opCreateInventory, "missing_title", errors.New("title is required"))
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateInventory, "id_generation_failed", err)
		return Inventory{}, newServiceError(opCreateInventory, "id_generation_failed", err)
	}

	inv = Inventory{
		ID:          id,
		OwnerID:     actor.ID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Category:    params.Category,
		IsPublic:    params.IsPublic,
		Version:     1,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return newServiceError(opCreateInventory, "persist_failed", err)
		}
		return s.replaceTags(tx, inv.ID, params.Tags)
	})
	if txErr != nil {
		s.logError(opCreateInventory, "transaction_failed", txErr, zap.String("inventory_id", id))
		return Inventory{}, txErr
	}

	return inv, nil
}

// GetInventory loads one inventory the actor may read.
func (s *Service) GetInventory(ctx context.Context, actor *users.Actor, inventoryID string) (Inventory, []AccessGrant, error) {
	inv, grants, err := s.loadInventory(s.db.WithContext(ctx), inventoryID)
	if err != nil {
		return Inventory{}, nil, err
	}
	if err := Authorize(actor, ResourceFor(inv, grants), OpRead); err != nil {
		return Inventory{}, nil, err
	}
	return inv, grants, nil
}

// AuthorizeRead checks read access on an inventory without returning it.
// Collaborating services (discussion) gate their reads through this.
func (s *Service) AuthorizeRead(ctx context.Context, actor *users.Actor, inventoryID string) error {
	_, _, err := s.GetInventory(ctx, actor, inventoryID)
	return err
}

// AuthorizeWrite checks write access on an inventory without mutating it.
func (s *Service) AuthorizeWrite(ctx context.Context, actor *users.Actor, inventoryID string) error {
	inv, grants, err := s.loadInventory(s.db.WithContext(ctx), inventoryID)
	if err != nil {
		return err
	}
	return Authorize(actor, ResourceFor(inv, grants), OpWrite)
}

// ListQuery bounds and filters an inventory listing.
type ListQuery struct {
	Text     string
	Category string
	Tag      string
	Limit    int
	Offset   int
}

// ListInventories returns the inventories visible to the actor: public ones,
// owned ones, and ones with an explicit grant. Admins see everything.
func (s *Service) ListInventories(ctx context.Context, actor *users.Actor, query ListQuery) ([]Inventory, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	tx := s.db.WithContext(ctx).Model(&Inventory{}).
		Order("created_at DESC").
		Limit(limit).
		Offset(query.Offset)

	switch {
	case actor.IsAdmin():
	case actor != nil:
		tx = tx.Where(
			"is_public = ? OR owner_id = ? OR id IN (?)",
			true,
			actor.ID,
			s.db.Model(&AccessGrant{}).Select("inventory_id").Where("user_id = ?", actor.ID),
		)
	default:
		tx = tx.Where("is_public = ?", true)
	}

	if trimmed := strings.TrimSpace(query.Text); trimmed != "" {
		pattern := "%" + trimmed + "%"
		tx = tx.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if query.Category != "" {
		tx = tx.Where("category = ?", query.Category)
	}
	if query.Tag != "" {
		tx = tx.Where(
			"id IN (?)",
			s.db.Model(&InventoryTag{}).Select("inventory_id").
				Where("tag_id IN (?)", s.db.Model(&Tag{}).Select("id").Where("name = ?", query.Tag)),
		)
	}

	var inventories []Inventory
	if err := tx.Find(&inventories).Error; err != nil {
		s.logError(opListInventories, "query_failed", err)
		return nil, newServiceError(opListInventories, "query_failed", err)
	}
	return inventories, nil
}

// UpdateInventoryParams carries the partial update plus the caller's expected
// version. A nil ExpectedVersion skips the optimistic-lock check.
type UpdateInventoryParams struct {
	Title           *string
	Description     *string
	Category        *string
	IsPublic        *bool
	Tags            []string
	ExpectedVersion *int64
}

// UpdateInventory applies a partial update under the optimistic-lock rule.
// The version bump and the data change commit in the same transaction.
func (s *Service) UpdateInventory(ctx context.Context, actor *users.Actor, inventoryID string, params UpdateInventoryParams) (inv Inventory, err error) {
	defer s.observe(opUpdateInventory, &err)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		newVersion, err := CheckAndBump(params.ExpectedVersion, current.Version)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"version": newVersion}
		if params.Title != nil {
			updates["title"] = strings.TrimSpace(*params.Title)
		}
		if params.Description != nil {
			updates["description"] = *params.Description
		}
		if params.Category != nil {
			updates["category"] = *params.Category
		}
		if params.IsPublic != nil {
			updates["is_public"] = *params.IsPublic
		}

		if err := tx.Model(&Inventory{}).Where("id = ?", inventoryID).Updates(updates).Error; err != nil {
			return newServiceError(opUpdateInventory, "persist_failed", err)
		}
		if params.Tags != nil {
			if err := s.replaceTags(tx, inventoryID, params.Tags); err != nil {
				return err
			}
		}
		return tx.Where("id = ?", inventoryID).Take(&inv).Error
	})
	if txErr != nil {
		return Inventory{}, txErr
	}
	return inv, nil
}

// DeleteInventory removes the inventory and everything it owns.
func (s *Service) DeleteInventory(ctx context.Context, actor *users.Actor, inventoryID string) (err error) {
	defer s.observe(opDeleteInventory, &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		itemIDs := tx.Model(&Item{}).Select("id").Where("inventory_id = ?", inventoryID)
		if err := tx.Where("item_id IN (?)", itemIDs).Delete(&FieldValue{}).Error; err != nil {
			return newServiceError(opDeleteInventory, "delete_values_failed", err)
		}
		if err := tx.Where("item_id IN (?)", itemIDs).Delete(&ItemLike{}).Error; err != nil {
			return newServiceError(opDeleteInventory, "delete_likes_failed", err)
		}
		for _, model := range []interface{}{&Item{}, &FieldDefinition{}, &AccessGrant{}, &InventoryTag{}, &customid.Sequence{}} {
			if err := tx.Where("inventory_id = ?", inventoryID).Delete(model).Error; err != nil {
				return newServiceError(opDeleteInventory, "delete_children_failed", err)
			}
		}
		// Discussion posts cascade with their inventory.
		if err := tx.Exec("DELETE FROM discussion_posts WHERE inventory_id = ?", inventoryID).Error; err != nil {
			return newServiceError(opDeleteInventory, "delete_discussion_failed", err)
		}
		if err := tx.Where("id = ?", inventoryID).Delete(&Inventory{}).Error; err != nil {
			return newServiceError(opDeleteInventory, "persist_failed", err)
		}
		return nil
	})
}

func (s *Service) loadInventory(tx *gorm.DB, inventoryID string) (Inventory, []AccessGrant, error) {
	return s.load(tx, inventoryID, false)
}

// loadInventoryLocked holds a row lock on the inventory for the duration of
// the enclosing transaction so the version read and the bump cannot race.
func (s *Service) loadInventoryLocked(tx *gorm.DB, inventoryID string) (Inventory, []AccessGrant, error) {
	return s.load(tx, inventoryID, true)
}

func (s *Service) load(tx *gorm.DB, inventoryID string, lock bool) (Inventory, []AccessGrant, error) {
	var inv Inventory
	invQuery := tx
	if lock {
		invQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := invQuery.Where("id = ?", inventoryID).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Inventory{}, nil, &NotFoundError{Entity: "inventory", ID: inventoryID}
	}
	if err != nil {
		return Inventory{}, nil, newServiceError(opGetInventory, "query_failed", err)
	}

	var grants []AccessGrant
	if err := tx.Where("inventory_id = ?", inventoryID).Find(&grants).Error; err != nil {
		return Inventory{}, nil, newServiceError(opGetInventory, "grants_query_failed", err)
	}
	return inv, grants, nil
}

func (s *Service) replaceTags(tx *gorm.DB, inventoryID string, tags []string) error {
	if err := tx.Where("inventory_id = ?", inventoryID).Delete(&InventoryTag{}).Error; err != nil {
		return newServiceError(opUpdateInventory, "tags_clear_failed", err)
	}
	for _, name := range tags {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		var tag Tag
		err := tx.Where("name = ?", trimmed).Take(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			id, idErr := s.idProvider.NewID()
			if idErr != nil {
				return newServiceError(opUpdateInventory, "id_generation_failed", idErr)
			}
			tag = Tag{ID: id, Name: trimmed}
			if err := tx.Create(&tag).Error; err != nil {
				return newServiceError(opUpdateInventory, "tag_create_failed", err)
			}
		} else if err != nil {
			return newServiceError(opUpdateInventory, "tag_query_failed", err)
		}
		if err := tx.Create(&InventoryTag{InventoryID: inventoryID, TagID: tag.ID}).Error; err != nil {
			return newServiceError(opUpdateInventory, "tag_link_failed", err)
		}
	}
	return nil
}

func (s *Service) observe(operation string, err *error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveMutation(operation, *err)
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("inventory service error", attrs...)
}
