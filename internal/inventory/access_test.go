package inventory

import (
	"errors"
	"testing"

	"github.com/inventa-labs/inventa/backend/internal/users"
)

func denyReason(t *testing.T, err error) string {
	t.Helper()
	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}
	return denied.Reason
}

func TestAuthorizeAdminBypassesEverything(t *testing.T) {
	admin := &users.Actor{ID: "admin-1", Roles: []users.Role{users.RoleAdmin}}
	resource := Resource{OwnerID: "someone-else", IsPublic: false}

	if err := Authorize(admin, resource, OpRead); err != nil {
		t.Fatalf("admin read rejected: %v", err)
	}
	if err := Authorize(admin, resource, OpWrite); err != nil {
		t.Fatalf("admin write rejected: %v", err)
	}
}

func TestAuthorizeOwnerAllowed(t *testing.T) {
	owner := &users.Actor{ID: "user-1", Roles: []users.Role{users.RoleUser}}
	resource := Resource{OwnerID: "user-1", IsPublic: false}

	if err := Authorize(owner, resource, OpWrite); err != nil {
		t.Fatalf("owner write rejected: %v", err)
	}
}

func TestAuthorizePublicReadOnly(t *testing.T) {
	stranger := &users.Actor{ID: "user-2", Roles: []users.Role{users.RoleUser}}
	resource := Resource{OwnerID: "user-1", IsPublic: true}

	if err := Authorize(stranger, resource, OpRead); err != nil {
		t.Fatalf("public read rejected: %v", err)
	}
	if reason := denyReason(t, Authorize(stranger, resource, OpWrite)); reason != ReasonWriteRequired {
		t.Fatalf("expected %q for public write without grant, got %q", ReasonWriteRequired, reason)
	}
}

func TestAuthorizeAnonymousActor(t *testing.T) {
	private := Resource{OwnerID: "user-1", IsPublic: false}
	public := Resource{OwnerID: "user-1", IsPublic: true}

	if err := Authorize(nil, public, OpRead); err != nil {
		t.Fatalf("anonymous public read rejected: %v", err)
	}
	if reason := denyReason(t, Authorize(nil, private, OpRead)); reason != ReasonAccessDenied {
		t.Fatalf("expected %q for anonymous private read, got %q", ReasonAccessDenied, reason)
	}
	if reason := denyReason(t, Authorize(nil, public, OpWrite)); reason != ReasonAuthentication {
		t.Fatalf("expected %q for anonymous write, got %q", ReasonAuthentication, reason)
	}
}

func TestAuthorizeGrants(t *testing.T) {
	reader := &users.Actor{ID: "reader", Roles: []users.Role{users.RoleUser}}
	writer := &users.Actor{ID: "writer", Roles: []users.Role{users.RoleUser}}
	resource := Resource{
		OwnerID:  "user-1",
		IsPublic: false,
		Grants: []AccessGrant{
			{UserID: "reader", CanWrite: false},
			{UserID: "writer", CanWrite: true},
		},
	}

	if err := Authorize(reader, resource, OpRead); err != nil {
		t.Fatalf("grant read rejected: %v", err)
	}
	if reason := denyReason(t, Authorize(reader, resource, OpWrite)); reason != ReasonWriteRequired {
		t.Fatalf("expected %q for read-only grant write, got %q", ReasonWriteRequired, reason)
	}
	if err := Authorize(writer, resource, OpWrite); err != nil {
		t.Fatalf("write grant rejected: %v", err)
	}
}

func TestAuthorizeStrangerDenied(t *testing.T) {
	stranger := &users.Actor{ID: "user-9", Roles: []users.Role{users.RoleUser}}
	resource := Resource{OwnerID: "user-1", IsPublic: false}

	if reason := denyReason(t, Authorize(stranger, resource, OpRead)); reason != ReasonAccessDenied {
		t.Fatalf("expected %q, got %q", ReasonAccessDenied, reason)
	}
}
