package inventory

import (
	"context"
	"strings"
)

const opSearch = "inventory.search"

// SearchResult groups search hits across public inventories and their items.
type SearchResult struct {
	Inventories []Inventory
	Items       []Item
}

// Search performs a case-insensitive substring search over public inventories
// and their items. Private catalogs never surface here regardless of the
// caller; scoped browsing goes through ListInventories.
func (s *Service) Search(ctx context.Context, query string, limit int) (SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + trimmed + "%"

	var result SearchResult
	if err := s.db.WithContext(ctx).Model(&Inventory{}).
		Where("is_public = ?", true).
		Where("title LIKE ? OR description LIKE ? OR category LIKE ?", pattern, pattern, pattern).
		Limit(limit).
		Find(&result.Inventories).Error; err != nil {
		s.logError(opSearch, "inventory_query_failed", err)
		return SearchResult{}, newServiceError(opSearch, "inventory_query_failed", err)
	}

	publicIDs := s.db.Model(&Inventory{}).Select("id").Where("is_public = ?", true)
	if err := s.db.WithContext(ctx).Model(&Item{}).
		Where("inventory_id IN (?)", publicIDs).
		Where(
			"custom_id LIKE ? OR id IN (?)",
			pattern,
			s.db.Model(&FieldValue{}).Select("item_id").Where("value_text LIKE ?", pattern),
		).
		Limit(limit).
		Find(&result.Items).Error; err != nil {
		s.logError(opSearch, "item_query_failed", err)
		return SearchResult{}, newServiceError(opSearch, "item_query_failed", err)
	}

	return result, nil
}

// GetTags lists tag names by optional prefix for autocomplete.
func (s *Service) GetTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	tx := s.db.WithContext(ctx).Model(&Tag{}).Order("name ASC").Limit(limit)
	if trimmed := strings.TrimSpace(prefix); trimmed != "" {
		tx = tx.Where("name LIKE ?", trimmed+"%")
	}

	var names []string
	if err := tx.Pluck("name", &names).Error; err != nil {
		return nil, newServiceError(opSearch, "tags_query_failed", err)
	}
	return names, nil
}
