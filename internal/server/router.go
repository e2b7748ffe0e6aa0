package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/inventa-labs/inventa/backend/internal/auth"
	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/discussion"
	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"github.com/inventa-labs/inventa/backend/internal/metrics"
	"github.com/inventa-labs/inventa/backend/internal/users"
	"go.uber.org/zap"
)

const actorContextKey = "inventa_actor"

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingUsersService     = errors.New("users service dependency required")
	errMissingInventoryService = errors.New("inventory service dependency required")
	errMissingDiscussion       = errors.New("discussion service dependency required")
)

// SessionValidator validates bearer tokens into identity claims.
type SessionValidator interface {
	ValidateToken(token string) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP surface to the core services.
type Dependencies struct {
	SessionValidator SessionValidator
	Users            *users.Service
	Inventories      *inventory.Service
	Discussions      *discussion.Service
	Metrics          *metrics.Metrics
	Logger           *zap.Logger
}

// NewHTTPHandler assembles the gin router. The HTTP layer is thin glue: every
// authorization and conflict decision lives in the services it calls.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionValidator == nil {
		return nil, errMissingSessionValidator
	}
	if deps.Users == nil {
		return nil, errMissingUsersService
	}
	if deps.Inventories == nil {
		return nil, errMissingInventoryService
	}
	if deps.Discussions == nil {
		return nil, errMissingDiscussion
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.RequestTimer())
	}

	handler := &httpHandler{
		sessions:    deps.SessionValidator,
		users:       deps.Users,
		inventories: deps.Inventories,
		discussions: deps.Discussions,
		logger:      logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/")
	api.Use(handler.resolveActor)

	api.GET("/search", handler.handleSearch)
	api.GET("/tags", handler.handleTags)
	api.POST("/custom-id/preview", handler.handlePreviewCustomID)

	api.GET("/inventories", handler.handleListInventories)
	api.POST("/inventories", handler.handleCreateInventory)
	api.GET("/inventories/:id", handler.handleGetInventory)
	api.PUT("/inventories/:id", handler.handleUpdateInventory)
	api.DELETE("/inventories/:id", handler.handleDeleteInventory)

	api.GET("/inventories/:id/fields", handler.handleListFields)
	api.POST("/inventories/:id/fields", handler.handleAddField)
	api.PUT("/inventories/:id/fields/:fieldId", handler.handleUpdateField)
	api.DELETE("/inventories/:id/fields/:fieldId", handler.handleRemoveField)

	api.GET("/inventories/:id/items", handler.handleListItems)
	api.POST("/inventories/:id/items", handler.handleCreateItem)
	api.GET("/inventories/:id/items/:itemId", handler.handleGetItem)
	api.PUT("/inventories/:id/items/:itemId", handler.handleUpdateItem)
	api.DELETE("/inventories/:id/items/:itemId", handler.handleDeleteItem)
	api.POST("/inventories/:id/items/:itemId/like", handler.handleToggleLike)

	api.GET("/inventories/:id/access", handler.handleListGrants)
	api.POST("/inventories/:id/access", handler.handleAddGrant)
	api.DELETE("/inventories/:id/access/:userId", handler.handleRemoveGrant)

	api.GET("/inventories/:id/custom-id", handler.handleGetTemplate)
	api.PUT("/inventories/:id/custom-id", handler.handleAttachTemplate)
	api.GET("/inventories/:id/stats", handler.handleStats)

	api.GET("/inventories/:id/discussion", handler.handleListPosts)
	api.POST("/inventories/:id/discussion", handler.handleCreatePost)

	admin := api.Group("/admin")
	admin.GET("/users", handler.handleListUsers)
	admin.PUT("/users/:userId/roles", handler.handleUpdateRoles)

	return router, nil
}

type httpHandler struct {
	sessions    SessionValidator
	users       *users.Service
	inventories *inventory.Service
	discussions *discussion.Service
	logger      *zap.Logger
}

// resolveActor turns an optional bearer token into an actor in the request
// context. Requests without a token proceed anonymously; the services decide
// what anonymous callers may do.
func (h *httpHandler) resolveActor(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		c.Next()
		return
	}

	token := strings.TrimPrefix(header, "Bearer ")
	claims, err := h.sessions.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	actor, err := h.users.ResolveActor(c.Request.Context(), users.SessionClaims{
		UserID: claims.Subject,
		Email:  claims.UserEmail,
		Name:   claims.UserName,
		Roles:  claims.UserRoles,
	})
	if err != nil {
		h.logger.Warn("actor resolution failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(actorContextKey, actor)
	c.Next()
}

func (h *httpHandler) actor(c *gin.Context) *users.Actor {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return nil
	}
	actor, ok := value.(*users.Actor)
	if !ok {
		return nil
	}
	return actor
}

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// logged and collapsed to 500 without leaking internals.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var denied *inventory.AccessDeniedError
	if errors.As(err, &denied) {
		status := http.StatusForbidden
		if denied.Reason == inventory.ReasonAuthentication {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": denied.Reason})
		return
	}

	var notFound *inventory.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "entity": notFound.Entity, "id": notFound.ID})
		return
	}

	var conflict *inventory.VersionConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "version_conflict", "current_version": conflict.Current})
		return
	}

	var duplicate *inventory.DuplicateCustomIDError
	if errors.As(err, &duplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_custom_id", "custom_id": duplicate.Attempted})
		return
	}

	var fieldLimit *inventory.FieldLimitExceededError
	if errors.As(err, &fieldLimit) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field_limit_exceeded", "kind": fieldLimit.Kind, "limit": fieldLimit.Limit})
		return
	}

	var invalidTemplate *customid.InvalidTemplateError
	if errors.As(err, &invalidTemplate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_template"})
		return
	}

	switch {
	case errors.Is(err, inventory.ErrGrantExists):
		c.JSON(http.StatusConflict, gin.H{"error": "grant_already_exists"})
	case errors.Is(err, inventory.ErrInvalidFieldValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_field_value"})
	case errors.Is(err, discussion.ErrEmptyPost):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_post"})
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "entity": "user"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
