package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/services"
)

// ShopHandler handles shop administration requests. Mutations require
// the OWNER or ADMIN role in the active organization.
type ShopHandler struct {
	shops services.ShopServicer
	orgs  services.OrganizationServicer
}

// NewShopHandler creates a new ShopHandler
func NewShopHandler(shops services.ShopServicer, orgs services.OrganizationServicer) *ShopHandler {
	return &ShopHandler{shops: shops, orgs: orgs}
}

// CreateShopRequest represents the shop creation payload
type CreateShopRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=200"`
}

// UpdateShopRequest represents the shop update payload
type UpdateShopRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=200"`
	SortOrder   *int    `json:"sort_order" binding:"omitempty,min=0"`
}

// ReorderShopsRequest represents the shop reordering payload
type ReorderShopsRequest struct {
	ShopIDs []uint `json:"shop_ids" binding:"required,min=1,dive,required"`
}

// List lists the active organization's shops
// @Summary     List shops
// @Description List the shops of the caller's active organization in display order
// @Tags        shops
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Shops"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /shops [get]
func (h *ShopHandler) List(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	shops, err := h.shops.ListShops(auth.OrgID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shops": shops})
}

// Create creates a new shop
// @Summary     Create shop
// @Description Create a shop in the active organization. Requires OWNER or ADMIN.
// @Tags        shops
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateShopRequest true "Shop data"
// @Success     201 {object} models.Shop "Shop created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Router      /shops [post]
func (h *ShopHandler) Create(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.orgs.RequireOrgRole(auth.UserID, auth.OrgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	shop, err := h.shops.CreateShop(auth.UserID, auth.OrgID, req.Name, req.DisplayName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"shop": shop})
}

// Get fetches a single shop
// @Summary     Get shop
// @Description Fetch one shop of the active organization by ID
// @Tags        shops
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Shop ID"
// @Success     200 {object} models.Shop "Shop"
// @Failure     404 {object} ErrorResponse "Shop not found"
// @Router      /shops/{id} [get]
func (h *ShopHandler) Get(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	shop, err := h.shops.VerifyShopAccess(auth.OrgID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

// Update modifies a shop
// @Summary     Update shop
// @Description Update a shop's name, display name or sort order. Requires OWNER or ADMIN.
// @Tags        shops
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "Shop ID"
// @Param       request body UpdateShopRequest true "Fields to update"
// @Success     200 {object} models.Shop "Shop updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Shop not found"
// @Router      /shops/{id} [put]
func (h *ShopHandler) Update(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.orgs.RequireOrgRole(auth.UserID, auth.OrgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		respondWithError(c, err)
		return
	}

	shopID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	shop, err := h.shops.UpdateShop(auth.UserID, auth.OrgID, shopID, req.Name, req.DisplayName, req.SortOrder)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

// Delete removes a shop
// @Summary     Delete shop
// @Description Delete a shop that has no cost entries or categories. Requires OWNER or ADMIN.
// @Tags        shops
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Shop ID"
// @Success     204 "Shop deleted"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Shop not found"
// @Failure     409 {object} ErrorResponse "Shop has entries or categories"
// @Router      /shops/{id} [delete]
func (h *ShopHandler) Delete(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.orgs.RequireOrgRole(auth.UserID, auth.OrgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		respondWithError(c, err)
		return
	}

	shopID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.shops.DeleteShop(auth.UserID, auth.OrgID, shopID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Reorder sets the display order of all shops
// @Summary     Reorder shops
// @Description Set the display order of the organization's shops. Requires OWNER or ADMIN.
// @Tags        shops
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReorderShopsRequest true "Shop IDs in display order"
// @Success     204 "Shops reordered"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Unknown shop in list"
// @Router      /shops/reorder [put]
func (h *ShopHandler) Reorder(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.orgs.RequireOrgRole(auth.UserID, auth.OrgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		respondWithError(c, err)
		return
	}

	var req ReorderShopsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.shops.ReorderShops(auth.UserID, auth.OrgID, req.ShopIDs); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
