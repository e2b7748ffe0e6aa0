package inventory

import (
	"context"
	"errors"

	"github.com/inventa-labs/inventa/backend/internal/users"
	"gorm.io/gorm"
)

const (
	opAddGrant    = "inventory.grant.add"
	opRemoveGrant = "inventory.grant.remove"
)

// AddGrant records an explicit per-user permission on the inventory. A second
// grant for the same user is rejected with ErrGrantExists.
func (s *Service) AddGrant(ctx context.Context, actor *users.Actor, inventoryID, userID string, canWrite bool) (grant AccessGrant, err error) {
	defer s.observe(opAddGrant, &err)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		for _, existing := range grants {
			if existing.UserID == userID {
				return ErrGrantExists
			}
		}

		grant = AccessGrant{InventoryID: inventoryID, UserID: userID, CanWrite: canWrite}
		if err := tx.Create(&grant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrGrantExists
			}
			return newServiceError(opAddGrant, "persist_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return AccessGrant{}, txErr
	}
	return grant, nil
}

// RemoveGrant revokes a user's grant. Removing a grant that was never issued
// reports NotFound: the caller named a permission that does not exist.
func (s *Service) RemoveGrant(ctx context.Context, actor *users.Actor, inventoryID, userID string) (err error) {
	defer s.observe(opRemoveGrant, &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, grants, err := s.loadInventoryLocked(tx, inventoryID)
		if err != nil {
			return err
		}
		if err := Authorize(actor, ResourceFor(current, grants), OpWrite); err != nil {
			return err
		}

		result := tx.Where("inventory_id = ? AND user_id = ?", inventoryID, userID).Delete(&AccessGrant{})
		if result.Error != nil {
			return newServiceError(opRemoveGrant, "persist_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "access grant", ID: userID}
		}
		return nil
	})
}

// ListGrants returns the inventory's grant list. Only the owner and admins
// may inspect it.
func (s *Service) ListGrants(ctx context.Context, actor *users.Actor, inventoryID string) ([]AccessGrant, error) {
	inv, grants, err := s.loadInventory(s.db.WithContext(ctx), inventoryID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (actor == nil || actor.ID != inv.OwnerID) {
		return nil, &AccessDeniedError{Reason: ReasonAccessDenied}
	}
	return grants, nil
}
