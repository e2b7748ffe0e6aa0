package users

import (
	"strings"
	"time"
)

// Role names a coarse-grained capability set attached to a user account.
type Role string

const (
	// RoleAdmin grants unrestricted access to every inventory and the admin surface.
	RoleAdmin Role = "ADMIN"
	// RoleUser is the default role for every registered account.
	RoleUser Role = "USER"
)

// User captures a registered account and its role set.
type User struct {
	ID         string    `gorm:"column:id;primaryKey;size:36;not null"`
	Email      string    `gorm:"column:email;size:320;uniqueIndex;not null"`
	Name       string    `gorm:"column:name;size:190;not null"`
	AvatarURL  string    `gorm:"column:avatar_url;size:512"`
	RolesCSV   string    `gorm:"column:roles;size:190;not null;default:'USER'"`
	LastSeenAt time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// Roles parses the stored role list.
func (u User) Roles() []Role {
	return parseRoles(u.RolesCSV)
}

// Actor is the identity handed to authorization decisions. A nil *Actor
// represents an anonymous caller.
type Actor struct {
	ID    string
	Roles []Role
}

// IsAdmin reports whether the actor carries the administrator role.
func (a *Actor) IsAdmin() bool {
	if a == nil {
		return false
	}
	for _, role := range a.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}

// ActorFor builds the authorization identity for a stored user.
func ActorFor(user User) *Actor {
	return &Actor{ID: user.ID, Roles: user.Roles()}
}

func parseRoles(csv string) []Role {
	parts := strings.Split(csv, ",")
	roles := make([]Role, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToUpper(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		roles = append(roles, Role(trimmed))
	}
	if len(roles) == 0 {
		roles = append(roles, RoleUser)
	}
	return roles
}

func joinRoles(roles []Role) string {
	if len(roles) == 0 {
		return string(RoleUser)
	}
	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		parts = append(parts, string(role))
	}
	return strings.Join(parts, ",")
}
