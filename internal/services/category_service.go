package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
)

// categoryService handles cost categories and cost items, always scoped
// to one organization.
type categoryService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB, audit AuditServicer) CategoryServicer {
	return &categoryService{db: db, audit: audit}
}

// ListCategories returns the organization's categories with their items,
// both in sort order. Scope and shop filters are optional.
func (s *categoryService) ListCategories(orgID uint, scope *models.CategoryScope, shopID *uint) ([]models.Category, error) {
	query := s.db.Where("organization_id = ?", orgID)
	if scope != nil {
		query = query.Where("scope = ?", *scope)
	}
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}

	var categories []models.Category
	if err := query.
		Preload("CostItems", func(db *gorm.DB) *gorm.DB { return db.Order("cost_items.sort_order ASC") }).
		Order("sort_order ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID returns a category when it belongs to the organization.
// Foreign categories are reported as not found.
func (s *categoryService) GetCategoryByID(orgID, categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.OrganizationID != orgID {
		return nil, apperrors.ErrCategoryNotFound
	}
	return &category, nil
}

// CreateCategory creates a category at the end of the sort order.
// Shop-scoped categories must be VARIABLE and reference a shop of the
// same organization; FIXED categories cannot name a shop.
func (s *categoryService) CreateCategory(actorID, orgID uint, name string, scope models.CategoryScope, shopID uint) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if scope == "" {
		scope = models.ScopeFixed
	}
	if scope == models.ScopeFixed && shopID != 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidationFailed, "a fixed category cannot be bound to a shop")
	}
	if scope == models.ScopeVariable && shopID != 0 {
		var shop models.Shop
		if err := s.db.First(&shop, shopID).Error; err != nil || shop.OrganizationID != orgID {
			return nil, apperrors.ErrShopNotFound
		}
	}

	var count int64
	s.db.Model(&models.Category{}).
		Where("organization_id = ? AND name = ?", orgID, name).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	var maxOrder struct{ Max int }
	s.db.Model(&models.Category{}).
		Select("COALESCE(MAX(sort_order), -1) AS max").
		Where("organization_id = ?", orgID).
		Scan(&maxOrder)

	category := &models.Category{
		OrganizationID: orgID,
		Name:           name,
		Scope:          scope,
		ShopID:         shopID,
		SortOrder:      maxOrder.Max + 1,
		CreatedByID:    actorID,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionCreate, "Category", category.ID, orgID, nil,
		map[string]any{"name": category.Name, "scope": category.Scope, "shop_id": category.ShopID})
	return category, nil
}

// UpdateCategory renames a category within the organization.
func (s *categoryService) UpdateCategory(actorID, orgID, categoryID uint, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	category, err := s.GetCategoryByID(orgID, categoryID)
	if err != nil {
		return nil, err
	}

	var count int64
	s.db.Model(&models.Category{}).
		Where("organization_id = ? AND name = ? AND id <> ?", orgID, name, categoryID).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	old := map[string]any{"name": category.Name}
	if err := s.db.Model(category).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionUpdate, "Category", category.ID, orgID, old, map[string]any{"name": name})
	return category, nil
}

// DeleteCategory removes a category with its items and their entries,
// all in one transaction.
func (s *categoryService) DeleteCategory(actorID, orgID, categoryID uint) error {
	category, err := s.GetCategoryByID(orgID, categoryID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var itemIDs []uint
		if err := tx.Model(&models.CostItem{}).Where("category_id = ?", categoryID).Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("cost_item_id IN ?", itemIDs).Delete(&models.CostEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id = ?", categoryID).Delete(&models.CostItem{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(category).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionDelete, "Category", categoryID, orgID, map[string]any{"name": category.Name}, nil)
	return nil
}

// CreateCostItem adds an item to a category of the organization, at the
// end of the category's sort order.
func (s *categoryService) CreateCostItem(actorID, orgID, categoryID uint, name string) (*models.CostItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cost item name is required")
	}

	if _, err := s.GetCategoryByID(orgID, categoryID); err != nil {
		return nil, err
	}

	var maxOrder struct{ Max int }
	s.db.Model(&models.CostItem{}).
		Select("COALESCE(MAX(sort_order), -1) AS max").
		Where("category_id = ?", categoryID).
		Scan(&maxOrder)

	item := &models.CostItem{
		CategoryID:  categoryID,
		Name:        name,
		SortOrder:   maxOrder.Max + 1,
		CreatedByID: actorID,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionCreate, "CostItem", item.ID, orgID, nil,
		map[string]any{"name": item.Name, "category_id": categoryID})
	return item, nil
}

// UpdateCostItem renames a cost item within the organization.
func (s *categoryService) UpdateCostItem(actorID, orgID, itemID uint, name string) (*models.CostItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cost item name is required")
	}

	item, err := s.itemInOrg(orgID, itemID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{"name": item.Name}
	if err := s.db.Model(item).Update("name", name).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionUpdate, "CostItem", item.ID, orgID, old, map[string]any{"name": name})
	return item, nil
}

// DeleteCostItem removes an item and its entries in one transaction.
func (s *categoryService) DeleteCostItem(actorID, orgID, itemID uint) error {
	item, err := s.itemInOrg(orgID, itemID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cost_item_id = ?", itemID).Delete(&models.CostEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionDelete, "CostItem", itemID, orgID, map[string]any{"name": item.Name}, nil)
	return nil
}

// itemInOrg loads a cost item and verifies, through its category, that
// it belongs to the organization. Foreign items are reported as not found.
func (s *categoryService) itemInOrg(orgID, itemID uint) (*models.CostItem, error) {
	var item models.CostItem
	if err := s.db.Preload("Category").First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCostItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if item.Category == nil || item.Category.OrganizationID != orgID {
		return nil, apperrors.ErrCostItemNotFound
	}
	return &item, nil
}
