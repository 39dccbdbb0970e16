package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/services"
)

// EntryHandler handles monthly cost entry requests
type EntryHandler struct {
	entries services.EntryServicer
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(entries services.EntryServicer) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// UpsertEntryRequest represents a single entry upsert payload
type UpsertEntryRequest struct {
	CostItemID  uint  `json:"cost_item_id" binding:"required"`
	Year        int   `json:"year" binding:"required,min=2000,max=2100"`
	Month       int   `json:"month" binding:"required,min=1,max=12"`
	ShopID      uint  `json:"shop_id"`
	AmountCents int64 `json:"amount_cents" binding:"min=0"`
}

// BulkEntryItemRequest is one item inside a bulk upsert batch
type BulkEntryItemRequest struct {
	CostItemID  uint  `json:"cost_item_id" binding:"required"`
	AmountCents int64 `json:"amount_cents" binding:"min=0"`
}

// BulkUpsertRequest represents the bulk entry upsert payload
type BulkUpsertRequest struct {
	Year   int                    `json:"year" binding:"required,min=2000,max=2100"`
	Month  int                    `json:"month" binding:"required,min=1,max=12"`
	ShopID uint                   `json:"shop_id"`
	Items  []BulkEntryItemRequest `json:"items" binding:"required,min=1,dive"`
}

// EntryResponse represents one persisted monthly entry
type EntryResponse struct {
	ID          uint  `json:"id"`
	CostItemID  uint  `json:"cost_item_id"`
	Year        int   `json:"year"`
	Month       int   `json:"month"`
	ShopID      uint  `json:"shop_id"`
	AmountCents int64 `json:"amount_cents"`
}

func toEntryResponse(e *models.CostEntry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		CostItemID:  e.CostItemID,
		Year:        e.Year,
		Month:       e.Month,
		ShopID:      e.ShopID,
		AmountCents: e.AmountCents,
	}
}

// List returns the entries for one month and scope
// @Summary     List entries
// @Description List cost entries for a year/month. shop_id 0 selects the organization-level scope.
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       year    query int true  "Year"
// @Param       month   query int true  "Month (1-12)"
// @Param       shop_id query int false "Shop ID, 0 for organization level"
// @Success     200 {object} map[string]interface{} "Entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be an integer"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be an integer"))
		return
	}

	var shopID uint
	if s := c.DefaultQuery("shop_id", "0"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "shop_id must be a non-negative integer"))
			return
		}
		shopID = uint(id)
	}

	entries, err := h.entries.GetEntries(auth.OrgID, year, month, shopID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}

	c.JSON(http.StatusOK, gin.H{"entries": out})
}

// Upsert records or replaces one monthly amount
// @Summary     Upsert entry
// @Description Record a monthly amount for a cost item. An existing entry for the same item/month/shop is replaced.
// @Tags        entries
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpsertEntryRequest true "Entry data"
// @Success     200 {object} EntryResponse "Entry recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or scope mismatch"
// @Failure     404 {object} ErrorResponse "Cost item or shop not found"
// @Router      /entries [post]
func (h *EntryHandler) Upsert(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	entry, err := h.entries.UpsertEntry(auth.UserID, auth.OrgID, services.EntryInput{
		CostItemID:  req.CostItemID,
		Year:        req.Year,
		Month:       req.Month,
		ShopID:      req.ShopID,
		AmountCents: req.AmountCents,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": toEntryResponse(entry)})
}

// BulkUpsert records a batch of amounts for one month and scope
// @Summary     Bulk upsert entries
// @Description Record many amounts for one year/month/shop in a single transaction. All items succeed or none do.
// @Tags        entries
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkUpsertRequest true "Batch data"
// @Success     200 {object} map[string]interface{} "Entries recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or scope mismatch"
// @Failure     404 {object} ErrorResponse "Cost item or shop not found"
// @Router      /entries/bulk [post]
func (h *EntryHandler) BulkUpsert(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	items := make([]services.BulkEntryItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.BulkEntryItem{
			CostItemID:  it.CostItemID,
			AmountCents: it.AmountCents,
		})
	}

	entries, err := h.entries.BulkUpsertEntries(auth.UserID, auth.OrgID, req.Year, req.Month, req.ShopID, items)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}

	c.JSON(http.StatusOK, gin.H{"entries": out})
}
