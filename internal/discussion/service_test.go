package discussion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"gorm.io/gorm"
)

// allowAccess permits reads on one inventory and rejects everything else.
type allowAccess struct {
	inventoryID string
}

func (a allowAccess) AuthorizeRead(_ context.Context, actor *users.Actor, inventoryID string) error {
	if inventoryID == a.inventoryID && actor != nil {
		return nil
	}
	return &inventory.AccessDeniedError{Reason: inventory.ReasonAccessDenied}
}

func newTestService(t *testing.T, access Access) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:discussion_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Post{}); err != nil {
		t.Fatalf("failed to migrate discussion schema: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Access:     access,
		IDProvider: inventory.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestCreatePostAndListNewestFirst(t *testing.T) {
	service := newTestService(t, allowAccess{inventoryID: "inv-1"})
	actor := &users.Actor{ID: "user-1", Roles: []users.Role{users.RoleUser}}

	first, err := service.CreatePost(context.Background(), actor, "inv-1", "first message")
	if err != nil {
		t.Fatalf("first post failed: %v", err)
	}
	second, err := service.CreatePost(context.Background(), actor, "inv-1", "second message")
	if err != nil {
		t.Fatalf("second post failed: %v", err)
	}
	if first.AuthorID != "user-1" || second.AuthorID != "user-1" {
		t.Fatalf("expected actor recorded as author")
	}

	posts, err := service.ListPosts(context.Background(), actor, "inv-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
}

func TestCreatePostRequiresAuthentication(t *testing.T) {
	service := newTestService(t, allowAccess{inventoryID: "inv-1"})

	_, err := service.CreatePost(context.Background(), nil, "inv-1", "hello")
	var denied *inventory.AccessDeniedError
	if !errors.As(err, &denied) || denied.Reason != inventory.ReasonAuthentication {
		t.Fatalf("expected authentication denial, got %v", err)
	}
}

func TestCreatePostRejectsEmptyText(t *testing.T) {
	service := newTestService(t, allowAccess{inventoryID: "inv-1"})
	actor := &users.Actor{ID: "user-1"}

	if _, err := service.CreatePost(context.Background(), actor, "inv-1", "   "); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("expected ErrEmptyPost, got %v", err)
	}
}

func TestPostsGatedByInventoryAccess(t *testing.T) {
	service := newTestService(t, allowAccess{inventoryID: "inv-1"})
	actor := &users.Actor{ID: "user-1"}

	if _, err := service.CreatePost(context.Background(), actor, "inv-other", "hello"); err == nil {
		t.Fatalf("expected post to a hidden inventory to be rejected")
	}
	if _, err := service.ListPosts(context.Background(), actor, "inv-other"); err == nil {
		t.Fatalf("expected listing a hidden inventory to be rejected")
	}
}
