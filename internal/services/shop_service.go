package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
)

// shopService handles shop administration and shop-access checks.
type shopService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewShopService creates a new ShopServicer.
func NewShopService(db *gorm.DB, audit AuditServicer) ShopServicer {
	return &shopService{db: db, audit: audit}
}

// ListShops returns the organization's shops in sort order.
func (s *shopService) ListShops(orgID uint) ([]models.Shop, error) {
	var shops []models.Shop
	if err := s.db.Where("organization_id = ?", orgID).Order("sort_order ASC").Find(&shops).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shops, nil
}

// VerifyShopAccess returns the shop only when it exists and belongs to
// the caller's organization. Missing and foreign shops produce the same
// error so callers cannot probe other tenants' IDs.
func (s *shopService) VerifyShopAccess(orgID, shopID uint) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.First(&shop, shopID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShopNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if shop.OrganizationID != orgID {
		return nil, apperrors.ErrShopNotFound
	}
	return &shop, nil
}

// CreateShop creates a shop at the end of the sort order.
func (s *shopService) CreateShop(actorID, orgID uint, name, displayName string) (*models.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "shop name is required")
	}

	var maxOrder struct{ Max int }
	s.db.Model(&models.Shop{}).
		Select("COALESCE(MAX(sort_order), -1) AS max").
		Where("organization_id = ?", orgID).
		Scan(&maxOrder)

	shop := &models.Shop{
		OrganizationID: orgID,
		Name:           name,
		DisplayName:    displayName,
		SortOrder:      maxOrder.Max + 1,
	}
	if err := s.db.Create(shop).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionCreate, "Shop", shop.ID, orgID, nil, map[string]any{"name": shop.Name})
	return shop, nil
}

// UpdateShop updates a shop's name, display name or sort order.
func (s *shopService) UpdateShop(actorID, orgID, shopID uint, name, displayName *string, sortOrder *int) (*models.Shop, error) {
	shop, err := s.VerifyShopAccess(orgID, shopID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{"name": shop.Name, "display_name": shop.DisplayName, "sort_order": shop.SortOrder}

	updates := make(map[string]any)
	if name != nil && strings.TrimSpace(*name) != "" {
		updates["name"] = strings.TrimSpace(*name)
	}
	if displayName != nil {
		updates["display_name"] = *displayName
	}
	if sortOrder != nil {
		updates["sort_order"] = *sortOrder
	}

	if len(updates) > 0 {
		if err := s.db.Model(shop).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.audit.Log(actorID, models.AuditActionUpdate, "Shop", shop.ID, orgID, old, updates)
	}

	return shop, nil
}

// DeleteShop removes a shop, rejected while cost entries or shop-scoped
// categories still reference it.
func (s *shopService) DeleteShop(actorID, orgID, shopID uint) error {
	shop, err := s.VerifyShopAccess(orgID, shopID)
	if err != nil {
		return err
	}

	var entries int64
	if err := s.db.Model(&models.CostEntry{}).Where("shop_id = ?", shopID).Count(&entries).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if entries > 0 {
		return apperrors.WithMessage(apperrors.ErrShopInUse, "Shop has cost entries; delete or reassign them first")
	}

	var categories int64
	if err := s.db.Model(&models.Category{}).Where("shop_id = ?", shopID).Count(&categories).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if categories > 0 {
		return apperrors.WithMessage(apperrors.ErrShopInUse, "Shop has shop-scoped categories; delete them first")
	}

	if err := s.db.Delete(shop).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionDelete, "Shop", shopID, orgID, map[string]any{"name": shop.Name}, nil)
	return nil
}

// ReorderShops rewrites the sort order to match the given ID sequence.
// Every ID must belong to the organization; the whole reorder is one
// transaction.
func (s *shopService) ReorderShops(actorID, orgID uint, shopIDs []uint) error {
	if len(shopIDs) == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "shop IDs are required")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for index, shopID := range shopIDs {
			res := tx.Model(&models.Shop{}).
				Where("id = ? AND organization_id = ?", shopID, orgID).
				Update("sort_order", index)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.ErrShopNotFound
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionUpdate, "Shop", 0, orgID, nil, map[string]any{"reorder": shopIDs})
	return nil
}
