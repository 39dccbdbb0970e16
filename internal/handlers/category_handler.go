package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/services"
)

// CategoryHandler handles cost category and cost item requests.
// Mutations require the OWNER or ADMIN role in the active organization.
type CategoryHandler struct {
	categories services.CategoryServicer
	orgs       services.OrganizationServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categories services.CategoryServicer, orgs services.OrganizationServicer) *CategoryHandler {
	return &CategoryHandler{categories: categories, orgs: orgs}
}

func (h *CategoryHandler) requireOrgAdmin(c *gin.Context, userID, orgID uint) bool {
	if _, err := h.orgs.RequireOrgRole(userID, orgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		respondWithError(c, err)
		return false
	}
	return true
}

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name   string               `json:"name" binding:"required,min=1,max=200"`
	Scope  models.CategoryScope `json:"scope" binding:"required,category_scope"`
	ShopID uint                 `json:"shop_id"`
}

// UpdateCategoryRequest represents the category rename payload
type UpdateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// CostItemRequest represents the cost item create/rename payload
type CostItemRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// List lists the active organization's categories with their items
// @Summary     List categories
// @Description List cost categories, optionally filtered by scope and shop
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       scope   query string false "Filter by scope" Enums(FIXED, VARIABLE)
// @Param       shop_id query int    false "Filter by bound shop"
// @Success     200 {object} map[string]interface{} "Categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var scope *models.CategoryScope
	if s := c.Query("scope"); s != "" {
		cs := models.CategoryScope(s)
		if cs != models.ScopeFixed && cs != models.ScopeVariable {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "scope must be FIXED or VARIABLE"))
			return
		}
		scope = &cs
	}

	var shopID *uint
	if s := c.Query("shop_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "shop_id must be a positive integer"))
			return
		}
		v := uint(id)
		shopID = &v
	}

	categories, err := h.categories.ListCategories(auth.OrgID, scope, shopID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Create creates a new category
// @Summary     Create category
// @Description Create a cost category. FIXED categories cannot be bound to a shop. Requires OWNER or ADMIN.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category data"
// @Success     201 {object} models.Category "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.requireOrgAdmin(c, auth.UserID, auth.OrgID) {
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categories.CreateCategory(auth.UserID, auth.OrgID, req.Name, req.Scope, req.ShopID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// Get returns one category with its items
// @Summary     Get category
// @Description Get a single category with its cost items
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     200 {object} models.Category "Category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categories.GetCategoryByID(auth.OrgID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// Update renames a category
// @Summary     Update category
// @Description Rename a cost category. Requires OWNER or ADMIN.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                   true "Category ID"
// @Param       request body UpdateCategoryRequest true "New name"
// @Success     200 {object} models.Category "Category updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.requireOrgAdmin(c, auth.UserID, auth.OrgID) {
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categories.UpdateCategory(auth.UserID, auth.OrgID, categoryID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// Delete removes a category, its items and their entries
// @Summary     Delete category
// @Description Delete a category with its cost items and all their entries. Requires OWNER or ADMIN.
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Category ID"
// @Success     204 "Category deleted"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.requireOrgAdmin(c, auth.UserID, auth.OrgID) {
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categories.DeleteCategory(auth.UserID, auth.OrgID, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateItem adds a cost item to a category
// @Summary     Create cost item
// @Description Add a cost item to a category. Requires OWNER or ADMIN.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int             true "Category ID"
// @Param       request body CostItemRequest true "Item data"
// @Success     201 {object} models.CostItem "Item created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/items [post]
func (h *CategoryHandler) CreateItem(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.requireOrgAdmin(c, auth.UserID, auth.OrgID) {
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CostItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	item, err := h.categories.CreateCostItem(auth.UserID, auth.OrgID, categoryID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// UpdateItem renames a cost item
// @Summary     Update cost item
// @Description Rename a cost item. Requires OWNER or ADMIN.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int             true "Cost item ID"
// @Param       request body CostItemRequest true "New name"
// @Success     200 {object} models.CostItem "Item updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Item not found"
// @Router      /items/{id} [put]
func (h *CategoryHandler) UpdateItem(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.requireOrgAdmin(c, auth.UserID, auth.OrgID) {
		return
	}

	itemID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CostItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	item, err := h.categories.UpdateCostItem(auth.UserID, auth.OrgID, itemID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// DeleteItem removes a cost item and its entries
// @Summary     Delete cost item
// @Description Delete a cost item and all its entries. Requires OWNER or ADMIN.
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Cost item ID"
// @Success     204 "Item deleted"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Item not found"
// @Router      /items/{id} [delete]
func (h *CategoryHandler) DeleteItem(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.requireOrgAdmin(c, auth.UserID, auth.OrgID) {
		return
	}

	itemID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categories.DeleteCostItem(auth.UserID, auth.OrgID, itemID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
