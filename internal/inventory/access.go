package inventory

import (
	"fmt"

	"github.com/inventa-labs/inventa/backend/internal/users"
)

// Operation distinguishes read from write authorization checks.
type Operation int

const (
	// OpRead covers viewing an inventory, its fields, items and discussion.
	OpRead Operation = iota
	// OpWrite covers every mutation of an inventory or its children.
	OpWrite
)

// Deny reasons surfaced through AccessDeniedError.
const (
	ReasonAccessDenied   = "access denied"
	ReasonWriteRequired  = "write access required"
	ReasonAuthentication = "authentication required"
)

// AccessDeniedError rejects an operation with the closest-matching reason.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("inventory: %s", e.Reason)
}

// Resource is the minimal view of an inventory that authorization needs:
// owner, visibility, and the grant list.
type Resource struct {
	OwnerID  string
	IsPublic bool
	Grants   []AccessGrant
}

// ResourceFor assembles the authorization view for an inventory.
func ResourceFor(inv Inventory, grants []AccessGrant) Resource {
	return Resource{OwnerID: inv.OwnerID, IsPublic: inv.IsPublic, Grants: grants}
}

// Authorize decides whether the actor may perform the operation on the
// resource. It is a pure function of the actor's identity and roles, the
// resource's owner and visibility, and the grant list; the first matching
// rule wins. A nil actor is an anonymous caller.
func Authorize(actor *users.Actor, resource Resource, operation Operation) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor != nil && actor.ID == resource.OwnerID {
		return nil
	}
	if operation == OpRead && resource.IsPublic {
		return nil
	}
	if actor == nil {
		if operation == OpWrite {
			return &AccessDeniedError{Reason: ReasonAuthentication}
		}
		return &AccessDeniedError{Reason: ReasonAccessDenied}
	}

	for _, grant := range resource.Grants {
		if grant.UserID != actor.ID {
			continue
		}
		if operation == OpRead || grant.CanWrite {
			return nil
		}
		return &AccessDeniedError{Reason: ReasonWriteRequired}
	}

	// On a public inventory the caller could already read; the missing
	// piece is write permission, so name that rather than access at large.
	if resource.IsPublic && operation == OpWrite {
		return &AccessDeniedError{Reason: ReasonWriteRequired}
	}
	return &AccessDeniedError{Reason: ReasonAccessDenied}
}
