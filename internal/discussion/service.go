package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"gorm.io/gorm"
)

// Post is one markdown message in an inventory's discussion thread.
type Post struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null"`
	InventoryID  string    `gorm:"column:inventory_id;size:36;not null;index"`
	AuthorID     string    `gorm:"column:author_id;size:36;not null"`
	MarkdownText string    `gorm:"column:markdown_text;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Post) TableName() string {
	return "discussion_posts"
}

// ErrEmptyPost indicates a post with no content.
var ErrEmptyPost = errors.New("discussion: post text required")

// Access gates discussion operations on the owning inventory's policy.
type Access interface {
	AuthorizeRead(ctx context.Context, actor *users.Actor, inventoryID string) error
}

// ServiceConfig describes the dependencies of the discussion service.
type ServiceConfig struct {
	Database   *gorm.DB
	Access     Access
	IDProvider inventory.IDProvider
}

// Service manages per-inventory discussion threads.
type Service struct {
	db         *gorm.DB
	access     Access
	idProvider inventory.IDProvider
}

// NewService constructs the discussion service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("discussion: database handle required")
	}
	if cfg.Access == nil {
		return nil, fmt.Errorf("discussion: access checker required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("discussion: id provider required")
	}
	return &Service{
		db:         cfg.Database,
		access:     cfg.Access,
		idProvider: cfg.IDProvider,
	}, nil
}

// ListPosts returns the thread for an inventory the actor may read, newest
// first.
func (s *Service) ListPosts(ctx context.Context, actor *users.Actor, inventoryID string) ([]Post, error) {
	if err := s.access.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return nil, err
	}

	var posts []Post
	if err := s.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CreatePost appends a message to the thread. Posting requires an
// authenticated actor with read access to the inventory.
func (s *Service) CreatePost(ctx context.Context, actor *users.Actor, inventoryID, markdownText string) (Post, error) {
	if actor == nil {
		return Post{}, &inventory.AccessDeniedError{Reason: inventory.ReasonAuthentication}
	}
	if strings.TrimSpace(markdownText) == "" {
		return Post{}, ErrEmptyPost
	}
	if err := s.access.AuthorizeRead(ctx, actor, inventoryID); err != nil {
		return Post{}, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Post{}, err
	}
	post := Post{
		ID:           id,
		InventoryID:  inventoryID,
		AuthorID:     actor.ID,
		MarkdownText: markdownText,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return Post{}, err
	}
	return post, nil
}
