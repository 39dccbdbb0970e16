package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/services"
)

// StatisticsHandler handles cost statistics requests
type StatisticsHandler struct {
	stats services.StatisticsServicer
}

// NewStatisticsHandler creates a new StatisticsHandler
func NewStatisticsHandler(stats services.StatisticsServicer) *StatisticsHandler {
	return &StatisticsHandler{stats: stats}
}

// StatisticsRequest represents the statistics query
type StatisticsRequest struct {
	View    string `form:"view,default=ALL" binding:"stats_view"`
	ShopID  uint   `form:"shop_id"`
	GroupBy string `form:"group_by,default=total" binding:"oneof=total categories"`
}

// StatisticsCategoriesRequest represents the category listing query
type StatisticsCategoriesRequest struct {
	View string `form:"view,default=ALL" binding:"stats_view"`
}

// Get returns the trailing-12-month series
// @Summary     Get statistics
// @Description Monthly totals for the trailing 12 months, optionally grouped by category
// @Tags        statistics
// @Produce     json
// @Security    BearerAuth
// @Param       view     query string false "View" Enums(ALL, FIXED, SHOP) default(ALL)
// @Param       shop_id  query int    false "Shop ID, required for SHOP view"
// @Param       group_by query string false "Grouping" Enums(total, categories) default(total)
// @Success     200 {object} map[string]interface{} "Monthly series"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Shop not found"
// @Router      /statistics [get]
func (h *StatisticsHandler) Get(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StatisticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	view := services.StatsView(req.View)
	if view == services.ViewShop && req.ShopID == 0 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "shop_id is required for the SHOP view"))
		return
	}

	series, err := h.stats.GetStatistics(auth.OrgID, view, req.ShopID, req.GroupBy)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": series})
}

// Categories returns the category names visible in a view
// @Summary     List statistics categories
// @Description Category names that can appear in a view's grouped series
// @Tags        statistics
// @Produce     json
// @Security    BearerAuth
// @Param       view query string false "View" Enums(ALL, FIXED, SHOP) default(ALL)
// @Success     200 {object} map[string]interface{} "Category names"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /statistics/categories [get]
func (h *StatisticsHandler) Categories(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req StatisticsCategoriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	names, err := h.stats.GetStatisticsCategories(auth.OrgID, services.StatsView(req.View))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": names})
}
