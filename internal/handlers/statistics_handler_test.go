package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/services"
)

// --- mock statistics service ---

type mockStatsService struct {
	getStatisticsFn           func(orgID uint, view services.StatsView, shopID uint, groupBy string) ([]services.MonthlyPoint, error)
	getStatisticsCategoriesFn func(orgID uint, view services.StatsView) ([]string, error)
}

func (m *mockStatsService) GetStatistics(orgID uint, view services.StatsView, shopID uint, groupBy string) ([]services.MonthlyPoint, error) {
	if m.getStatisticsFn != nil {
		return m.getStatisticsFn(orgID, view, shopID, groupBy)
	}
	return []services.MonthlyPoint{}, nil
}

func (m *mockStatsService) GetStatisticsCategories(orgID uint, view services.StatsView) ([]string, error) {
	if m.getStatisticsCategoriesFn != nil {
		return m.getStatisticsCategoriesFn(orgID, view)
	}
	return []string{}, nil
}

var _ services.StatisticsServicer = (*mockStatsService)(nil)

func setupStatsRouter(handler *StatisticsHandler, orgID uint) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectAuth(1, orgID, models.RoleUser))
	auth.GET("/statistics", handler.Get)
	auth.GET("/statistics/categories", handler.Categories)
	return r
}

func TestStatisticsHandler_Get(t *testing.T) {
	t.Run("defaults to ALL view and total grouping", func(t *testing.T) {
		var gotView services.StatsView
		var gotGroupBy string
		statsSvc := &mockStatsService{
			getStatisticsFn: func(_ uint, view services.StatsView, _ uint, groupBy string) ([]services.MonthlyPoint, error) {
				gotView, gotGroupBy = view, groupBy
				return []services.MonthlyPoint{{Month: "2026-08", TotalCents: 100}}, nil
			},
		}
		handler := NewStatisticsHandler(statsSvc)
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotView != services.ViewAll || gotGroupBy != services.GroupByTotal {
			t.Errorf("expected ALL/total defaults, got %s/%s", gotView, gotGroupBy)
		}
		series := parseJSON(t, rec)["series"].([]interface{})
		if len(series) != 1 {
			t.Fatalf("expected 1 point, got %d", len(series))
		}
	})

	t.Run("SHOP view forwards shop_id", func(t *testing.T) {
		var gotShopID uint
		statsSvc := &mockStatsService{
			getStatisticsFn: func(_ uint, _ services.StatsView, shopID uint, _ string) ([]services.MonthlyPoint, error) {
				gotShopID = shopID
				return nil, nil
			},
		}
		handler := NewStatisticsHandler(statsSvc)
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics?view=SHOP&shop_id=3", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotShopID != 3 {
			t.Errorf("expected shop 3, got %d", gotShopID)
		}
	})

	t.Run("returns 400 for SHOP view without shop_id", func(t *testing.T) {
		handler := NewStatisticsHandler(&mockStatsService{})
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics?view=SHOP", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown view", func(t *testing.T) {
		handler := NewStatisticsHandler(&mockStatsService{})
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics?view=WAREHOUSE", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on unknown grouping", func(t *testing.T) {
		handler := NewStatisticsHandler(&mockStatsService{})
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics?group_by=weekly", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when the shop is not visible", func(t *testing.T) {
		statsSvc := &mockStatsService{
			getStatisticsFn: func(_ uint, _ services.StatsView, _ uint, _ string) ([]services.MonthlyPoint, error) {
				return nil, apperrors.ErrShopNotFound
			},
		}
		handler := NewStatisticsHandler(statsSvc)
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics?view=SHOP&shop_id=99", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestStatisticsHandler_Categories(t *testing.T) {
	t.Run("returns names for the view", func(t *testing.T) {
		statsSvc := &mockStatsService{
			getStatisticsCategoriesFn: func(_ uint, view services.StatsView) ([]string, error) {
				if view != services.ViewFixed {
					t.Errorf("expected FIXED view, got %s", view)
				}
				return []string{"Cost of Marketing", "Operating Costs"}, nil
			},
		}
		handler := NewStatisticsHandler(statsSvc)
		r := setupStatsRouter(handler, 5)

		rec := doRequest(r, "GET", "/statistics/categories?view=FIXED", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		names := parseJSON(t, rec)["categories"].([]interface{})
		if len(names) != 2 {
			t.Fatalf("expected 2 names, got %d", len(names))
		}
	})

	t.Run("returns 403 without organization selection", func(t *testing.T) {
		handler := NewStatisticsHandler(&mockStatsService{})
		r := setupStatsRouter(handler, 0)

		rec := doRequest(r, "GET", "/statistics/categories", "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
