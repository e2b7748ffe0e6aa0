package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrInvalidClaims indicates the session claims did not carry a usable identity.
	ErrInvalidClaims = errors.New("users: invalid session claims")
	// ErrUserNotFound indicates no account exists for the requested identifier.
	ErrUserNotFound = errors.New("users: user not found")
)

// ServiceConfig describes the dependencies required for account resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages user accounts and resolves session claims into actors.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// SessionClaims is the identity payload extracted from a validated session token.
type SessionClaims struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

// ResolveActor returns the actor for validated session claims, registering the
// account on first sight. Role changes made through the admin surface take
// precedence over roles carried in the token.
func (s *Service) ResolveActor(ctx context.Context, claims SessionClaims) (*Actor, error) {
	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		return nil, ErrInvalidClaims
	}

	if cached, ok := s.cache.Load(userID); ok {
		if actor, ok := cached.(*Actor); ok {
			return actor, nil
		}
	}

	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		roles := make([]Role, 0, len(claims.Roles))
		for _, raw := range claims.Roles {
			trimmed := strings.ToUpper(strings.TrimSpace(raw))
			if trimmed == "" {
				continue
			}
			roles = append(roles, Role(trimmed))
		}
		user = User{
			ID:       userID,
			Email:    strings.TrimSpace(claims.Email),
			Name:     strings.TrimSpace(claims.Name),
			RolesCSV: joinRoles(roles),
		}
		if user.Email == "" {
			return nil, ErrInvalidClaims
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		_ = s.db.WithContext(ctx).Model(&User{}).
			Where("id = ?", userID).
			Update("last_seen_at", s.now()).Error
	}

	actor := ActorFor(user)
	s.cache.Store(userID, actor)
	return actor, nil
}

// GetUser loads one account by identifier.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ListUsers returns accounts matching the optional query, newest first.
func (s *Service) ListUsers(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 50
	}
	tx := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + trimmed + "%"
		tx = tx.Where("email LIKE ? OR name LIKE ?", pattern, pattern)
	}
	var accounts []User
	if err := tx.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateRoles replaces the role set for an account and invalidates the actor cache.
func (s *Service) UpdateRoles(ctx context.Context, userID string, roles []Role) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}

	user.RolesCSV = joinRoles(roles)
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("roles", user.RolesCSV).Error; err != nil {
		return User{}, err
	}

	s.cache.Delete(userID)
	return user, nil
}
