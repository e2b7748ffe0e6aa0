package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/inventa-labs/inventa/backend/internal/customid"
	"github.com/inventa-labs/inventa/backend/internal/inventory"
	"github.com/inventa-labs/inventa/backend/internal/users"
)

type inventoryPayload struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	IsPublic    bool   `json:"is_public"`
	Version     int64  `json:"version"`
	CreatedAt   int64  `json:"created_at_s"`
}

func inventoryToPayload(inv inventory.Inventory) inventoryPayload {
	return inventoryPayload{
		ID:          inv.ID,
		OwnerID:     inv.OwnerID,
		Title:       inv.Title,
		Description: inv.Description,
		Category:    inv.Category,
		IsPublic:    inv.IsPublic,
		Version:     inv.Version,
		CreatedAt:   inv.CreatedAt.Unix(),
	}
}

type createInventoryRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`
}

func (h *httpHandler) handleCreateInventory(c *gin.Context) {
	var request createInventoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	inv, err := h.inventories.CreateInventory(c.Request.Context(), h.actor(c), inventory.CreateInventoryParams{
		Title:       request.Title,
		Description: request.Description,
		Category:    request.Category,
		IsPublic:    request.IsPublic,
		Tags:        request.Tags,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inventoryToPayload(inv))
}

func (h *httpHandler) handleGetInventory(c *gin.Context) {
	inv, _, err := h.inventories.GetInventory(c.Request.Context(), h.actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventoryToPayload(inv))
}

func (h *httpHandler) handleListInventories(c *gin.Context) {
	query := inventory.ListQuery{
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Limit:    intQuery(c, "limit"),
		Offset:   intQuery(c, "offset"),
	}
	inventories, err := h.inventories.ListInventories(c.Request.Context(), h.actor(c), query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	payload := make([]inventoryPayload, 0, len(inventories))
	for _, inv := range inventories {
		payload = append(payload, inventoryToPayload(inv))
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

type updateInventoryRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	IsPublic    *bool    `json:"is_public"`
	Tags        []string `json:"tags"`
	Version     *int64   `json:"version"`
}

func (h *httpHandler) handleUpdateInventory(c *gin.Context) {
	var request updateInventoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	inv, err := h.inventories.UpdateInventory(c.Request.Context(), h.actor(c), c.Param("id"), inventory.UpdateInventoryParams{
		Title:           request.Title,
		Description:     request.Description,
		Category:        request.Category,
		IsPublic:        request.IsPublic,
		Tags:            request.Tags,
		ExpectedVersion: request.Version,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventoryToPayload(inv))
}

func (h *httpHandler) handleDeleteInventory(c *gin.Context) {
	if err := h.inventories.DeleteInventory(c.Request.Context(), h.actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type fieldPayload struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ShowInTable bool   `json:"show_in_table"`
	Position    int    `json:"position"`
}

func fieldToPayload(field inventory.FieldDefinition) fieldPayload {
	return fieldPayload{
		ID:          field.ID,
		Kind:        string(field.Kind),
		Title:       field.Title,
		Description: field.Description,
		ShowInTable: field.ShowInTable,
		Position:    field.Position,
	}
}

func (h *httpHandler) handleListFields(c *gin.Context) {
	fields, err := h.inventories.ListFields(c.Request.Context(), h.actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]fieldPayload, 0, len(fields))
	for _, field := range fields {
		payload = append(payload, fieldToPayload(field))
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

type addFieldRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ShowInTable bool   `json:"show_in_table"`
}

func (h *httpHandler) handleAddField(c *gin.Context) {
	var request addFieldRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	kind, err := inventory.ParseFieldKind(request.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_field_kind"})
		return
	}

	field, err := h.inventories.AddField(c.Request.Context(), h.actor(c), c.Param("id"), inventory.AddFieldParams{
		Kind:        kind,
		Title:       request.Title,
		Description: request.Description,
		ShowInTable: request.ShowInTable,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fieldToPayload(field))
}

type updateFieldRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ShowInTable *bool   `json:"show_in_table"`
}

func (h *httpHandler) handleUpdateField(c *gin.Context) {
	var request updateFieldRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	field, err := h.inventories.UpdateField(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("fieldId"), inventory.UpdateFieldParams{
		Title:       request.Title,
		Description: request.Description,
		ShowInTable: request.ShowInTable,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fieldToPayload(field))
}

func (h *httpHandler) handleRemoveField(c *gin.Context) {
	if err := h.inventories.RemoveField(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("fieldId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type fieldValuePayload struct {
	FieldDefinitionID string   `json:"field_definition_id"`
	ValueText         *string  `json:"value_text,omitempty"`
	ValueNumber       *float64 `json:"value_number,omitempty"`
	ValueBool         *bool    `json:"value_bool,omitempty"`
	ValueLink         *string  `json:"value_link,omitempty"`
}

type itemPayload struct {
	ID          string              `json:"id"`
	CustomID    string              `json:"custom_id"`
	CreatedByID string              `json:"created_by_id"`
	Version     int64               `json:"version"`
	CreatedAt   int64               `json:"created_at_s"`
	FieldValues []fieldValuePayload `json:"field_values"`
}

func itemToPayload(item inventory.Item) itemPayload {
	values := make([]fieldValuePayload, 0, len(item.FieldValues))
	for _, value := range item.FieldValues {
		values = append(values, fieldValuePayload{
			FieldDefinitionID: value.FieldDefinitionID,
			ValueText:         value.ValueText,
			ValueNumber:       value.ValueNumber,
			ValueBool:         value.ValueBool,
			ValueLink:         value.ValueLink,
		})
	}
	return itemPayload{
		ID:          item.ID,
		CustomID:    item.CustomID,
		CreatedByID: item.CreatedByID,
		Version:     item.Version,
		CreatedAt:   item.CreatedAt.Unix(),
		FieldValues: values,
	}
}

func toValueInputs(payloads []fieldValuePayload) []inventory.FieldValueInput {
	if payloads == nil {
		return nil
	}
	inputs := make([]inventory.FieldValueInput, 0, len(payloads))
	for _, payload := range payloads {
		inputs = append(inputs, inventory.FieldValueInput{
			FieldDefinitionID: payload.FieldDefinitionID,
			ValueText:         payload.ValueText,
			ValueNumber:       payload.ValueNumber,
			ValueBool:         payload.ValueBool,
			ValueLink:         payload.ValueLink,
		})
	}
	return inputs
}

type createItemRequest struct {
	CustomID    string              `json:"custom_id"`
	Overrides   map[string]string   `json:"overrides"`
	FieldValues []fieldValuePayload `json:"field_values"`
}

func (h *httpHandler) handleCreateItem(c *gin.Context) {
	var request createItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	overrides := make(map[int]string, len(request.Overrides))
	for raw, value := range request.Overrides {
		position, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_override_position"})
			return
		}
		overrides[position] = value
	}

	item, err := h.inventories.CreateItem(c.Request.Context(), h.actor(c), c.Param("id"), inventory.CreateItemParams{
		CustomID:    request.CustomID,
		Overrides:   overrides,
		FieldValues: toValueInputs(request.FieldValues),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, itemToPayload(item))
}

func (h *httpHandler) handleGetItem(c *gin.Context) {
	item, err := h.inventories.GetItem(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("itemId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemToPayload(item))
}

func (h *httpHandler) handleListItems(c *gin.Context) {
	items, err := h.inventories.ListItems(c.Request.Context(), h.actor(c), c.Param("id"), inventory.ItemQuery{
		Text:     c.Query("q"),
		SortBy:   c.Query("sort_by"),
		SortDesc: strings.EqualFold(c.Query("sort_order"), "desc"),
		Limit:    intQuery(c, "limit"),
		Offset:   intQuery(c, "offset"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]itemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, itemToPayload(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

type updateItemRequest struct {
	CustomID    *string             `json:"custom_id"`
	FieldValues []fieldValuePayload `json:"field_values"`
	Version     *int64              `json:"version"`
}

func (h *httpHandler) handleUpdateItem(c *gin.Context) {
	var request updateItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	item, err := h.inventories.UpdateItem(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("itemId"), inventory.UpdateItemParams{
		CustomID:        request.CustomID,
		FieldValues:     toValueInputs(request.FieldValues),
		ExpectedVersion: request.Version,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, itemToPayload(item))
}

func (h *httpHandler) handleDeleteItem(c *gin.Context) {
	if err := h.inventories.DeleteItem(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("itemId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleToggleLike(c *gin.Context) {
	liked, err := h.inventories.ToggleLike(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("itemId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

type grantPayload struct {
	UserID   string `json:"user_id"`
	CanWrite bool   `json:"can_write"`
}

func (h *httpHandler) handleListGrants(c *gin.Context) {
	grants, err := h.inventories.ListGrants(c.Request.Context(), h.actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]grantPayload, 0, len(grants))
	for _, grant := range grants {
		payload = append(payload, grantPayload{UserID: grant.UserID, CanWrite: grant.CanWrite})
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

type addGrantRequest struct {
	UserID   string `json:"user_id"`
	CanWrite bool   `json:"can_write"`
}

func (h *httpHandler) handleAddGrant(c *gin.Context) {
	var request addGrantRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.UserID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	grant, err := h.inventories.AddGrant(c.Request.Context(), h.actor(c), c.Param("id"), request.UserID, request.CanWrite)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grantPayload{UserID: grant.UserID, CanWrite: grant.CanWrite})
}

func (h *httpHandler) handleRemoveGrant(c *gin.Context) {
	if err := h.inventories.RemoveGrant(c.Request.Context(), h.actor(c), c.Param("id"), c.Param("userId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleGetTemplate(c *gin.Context) {
	tpl, attached, err := h.inventories.GetTemplate(c.Request.Context(), h.actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !attached {
		c.JSON(http.StatusOK, gin.H{"attached": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attached": true, "template": tpl})
}

func (h *httpHandler) handleAttachTemplate(c *gin.Context) {
	var tpl customid.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.inventories.AttachTemplate(c.Request.Context(), h.actor(c), c.Param("id"), tpl); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attached": true})
}

func (h *httpHandler) handlePreviewCustomID(c *gin.Context) {
	var tpl customid.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	sample, err := h.inventories.PreviewCustomID(tpl)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sample": sample})
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.inventories.GetStats(c.Request.Context(), h.actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleSearch(c *gin.Context) {
	result, err := h.inventories.Search(c.Request.Context(), c.Query("q"), intQuery(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	inventories := make([]inventoryPayload, 0, len(result.Inventories))
	for _, inv := range result.Inventories {
		inventories = append(inventories, inventoryToPayload(inv))
	}
	items := make([]itemPayload, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, itemToPayload(item))
	}
	c.JSON(http.StatusOK, gin.H{"inventories": inventories, "items": items})
}

func (h *httpHandler) handleTags(c *gin.Context) {
	tags, err := h.inventories.GetTags(c.Request.Context(), c.Query("prefix"), intQuery(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

type postPayload struct {
	ID           string `json:"id"`
	AuthorID     string `json:"author_id"`
	MarkdownText string `json:"markdown_text"`
	CreatedAt    int64  `json:"created_at_s"`
}

func (h *httpHandler) handleListPosts(c *gin.Context) {
	posts, err := h.discussions.ListPosts(c.Request.Context(), h.actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]postPayload, 0, len(posts))
	for _, post := range posts {
		payload = append(payload, postPayload{
			ID:           post.ID,
			AuthorID:     post.AuthorID,
			MarkdownText: post.MarkdownText,
			CreatedAt:    post.CreatedAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

type createPostRequest struct {
	MarkdownText string `json:"markdown_text"`
}

func (h *httpHandler) handleCreatePost(c *gin.Context) {
	var request createPostRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	post, err := h.discussions.CreatePost(c.Request.Context(), h.actor(c), c.Param("id"), request.MarkdownText)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, postPayload{
		ID:           post.ID,
		AuthorID:     post.AuthorID,
		MarkdownText: post.MarkdownText,
		CreatedAt:    post.CreatedAt.Unix(),
	})
}

type userPayload struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Roles      []string `json:"roles"`
	LastSeenAt int64    `json:"last_seen_at_s,omitempty"`
}

func userToPayload(user users.User) userPayload {
	roles := user.Roles()
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	payload := userPayload{ID: user.ID, Email: user.Email, Name: user.Name, Roles: names}
	if !user.LastSeenAt.IsZero() {
		payload.LastSeenAt = user.LastSeenAt.Unix()
	}
	return payload
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	actor := h.actor(c)
	if !actor.IsAdmin() {
		h.respondAdminOnly(c, actor)
		return
	}

	accounts, err := h.users.ListUsers(c.Request.Context(), c.Query("q"), intQuery(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]userPayload, 0, len(accounts))
	for _, account := range accounts {
		payload = append(payload, userToPayload(account))
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

type updateRolesRequest struct {
	Roles []string `json:"roles"`
}

func (h *httpHandler) handleUpdateRoles(c *gin.Context) {
	actor := h.actor(c)
	if !actor.IsAdmin() {
		h.respondAdminOnly(c, actor)
		return
	}

	var request updateRolesRequest
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Roles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	roles := make([]users.Role, 0, len(request.Roles))
	for _, raw := range request.Roles {
		roles = append(roles, users.Role(strings.ToUpper(strings.TrimSpace(raw))))
	}

	account, err := h.users.UpdateRoles(c.Request.Context(), c.Param("userId"), roles)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToPayload(account))
}

func (h *httpHandler) respondAdminOnly(c *gin.Context, actor *users.Actor) {
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": inventory.ReasonAuthentication})
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": inventory.ReasonAccessDenied})
}

func intQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
