package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
)

// statisticsService rolls cost entries up into monthly series. Reads only.
type statisticsService struct {
	db    *gorm.DB
	shops ShopServicer
}

// NewStatisticsService creates a new StatisticsServicer.
func NewStatisticsService(db *gorm.DB, shops ShopServicer) StatisticsServicer {
	return &statisticsService{db: db, shops: shops}
}

// statsRow is the flat projection the rollup query returns.
type statsRow struct {
	Year         int
	Month        int
	CategoryName string
	AmountCents  int64
}

// GetStatistics returns exactly 12 buckets covering the trailing 12
// months ending at the current month. The ALL view is the union of every
// entry in the organization regardless of shop; FIXED restricts to
// organization-level entries; SHOP restricts to one verified shop.
func (s *statisticsService) GetStatistics(orgID uint, view StatsView, shopID uint, groupBy string) ([]MonthlyPoint, error) {
	if groupBy != GroupByTotal && groupBy != GroupByCategories {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group_by must be total or categories")
	}

	months := trailingMonths(time.Now(), 12)

	query := s.db.Model(&models.CostEntry{}).
		Select("cost_entries.year AS year, cost_entries.month AS month, categories.name AS category_name, cost_entries.amount_cents AS amount_cents").
		Joins("JOIN cost_items ON cost_items.id = cost_entries.cost_item_id").
		Joins("JOIN categories ON categories.id = cost_items.category_id").
		Where("categories.organization_id = ?", orgID)

	switch view {
	case ViewFixed:
		query = query.Where("cost_entries.shop_id = 0")
	case ViewShop:
		if _, err := s.shops.VerifyShopAccess(orgID, shopID); err != nil {
			return nil, err
		}
		query = query.Where("cost_entries.shop_id = ?", shopID)
	case ViewAll:
		// Union of all entries, no shop filter.
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "view must be ALL, FIXED or SHOP")
	}

	// Month window as a linear index so it works across the year boundary.
	first, last := months[0], months[len(months)-1]
	query = query.Where("cost_entries.year * 12 + cost_entries.month BETWEEN ? AND ?",
		first.year*12+first.month, last.year*12+last.month)

	var rows []statsRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	buckets := make(map[string]*MonthlyPoint, len(months))
	series := make([]MonthlyPoint, len(months))
	for i, m := range months {
		key := monthKey(m.year, m.month)
		series[i] = MonthlyPoint{Month: key}
		if groupBy == GroupByCategories {
			series[i].Categories = make(map[string]int64)
		}
		buckets[key] = &series[i]
	}

	for _, row := range rows {
		point, ok := buckets[monthKey(row.Year, row.Month)]
		if !ok {
			continue
		}
		if groupBy == GroupByTotal {
			point.TotalCents += row.AmountCents
		} else {
			point.Categories[row.CategoryName] += row.AmountCents
		}
	}

	return series, nil
}

// GetStatisticsCategories lists the distinct category names a view can
// contain: FIXED scope for the fixed view, VARIABLE for the shop view,
// and everything for the organization-wide view.
func (s *statisticsService) GetStatisticsCategories(orgID uint, view StatsView) ([]string, error) {
	query := s.db.Model(&models.Category{}).Where("organization_id = ?", orgID)

	switch view {
	case ViewFixed:
		query = query.Where("scope = ?", models.ScopeFixed)
	case ViewShop:
		query = query.Where("scope = ?", models.ScopeVariable)
	case ViewAll:
		// No scope filter.
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "view must be ALL, FIXED or SHOP")
	}

	var names []string
	if err := query.Distinct("name").Order("name ASC").Pluck("name", &names).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return names, nil
}

type yearMonth struct {
	year  int
	month int
}

// trailingMonths returns n months ending at now's month, oldest first.
func trailingMonths(now time.Time, n int) []yearMonth {
	months := make([]yearMonth, 0, n)
	for i := n - 1; i >= 0; i-- {
		t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		months = append(months, yearMonth{year: t.Year(), month: int(t.Month())})
	}
	return months
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
