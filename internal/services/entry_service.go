package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
)

// Bounds for recordable months.
const (
	MinEntryYear = 2000
	MaxEntryYear = 2100
)

// entryService handles monthly cost entries: the keyed upsert, the bulk
// batch and month listings.
type entryService struct {
	db    *gorm.DB
	shops ShopServicer
	audit AuditServicer
}

// NewEntryService creates a new EntryServicer.
func NewEntryService(db *gorm.DB, shops ShopServicer, audit AuditServicer) EntryServicer {
	return &entryService{db: db, shops: shops, audit: audit}
}

// UpsertEntry writes one monthly amount. The write is a single INSERT
// ... ON CONFLICT on the (year, month, shop_id, cost_item_id) key, so
// concurrent upserts of the same key converge to one row with the last
// written amount.
func (s *entryService) UpsertEntry(actorID, orgID uint, in EntryInput) (*models.CostEntry, error) {
	if err := validateEntryBounds(in.Year, in.Month, in.AmountCents); err != nil {
		return nil, err
	}
	if _, err := s.resolveEligibleItem(orgID, in.CostItemID, in.ShopID); err != nil {
		return nil, err
	}

	prior, err := s.priorAmount(in)
	if err != nil {
		return nil, err
	}

	entry := &models.CostEntry{
		CostItemID:  in.CostItemID,
		Year:        in.Year,
		Month:       in.Month,
		ShopID:      in.ShopID,
		AmountCents: in.AmountCents,
		CreatedByID: actorID,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}, {Name: "month"}, {Name: "shop_id"}, {Name: "cost_item_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount_cents": in.AmountCents,
			"updated_at":   time.Now(),
		}),
	}).Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Reload by key: on the update path Create does not report the
	// surviving row's ID.
	stored, err := s.entryByKey(in)
	if err != nil {
		return nil, err
	}

	s.logEntryAudit(actorID, orgID, stored, prior)
	return stored, nil
}

// BulkUpsertEntries applies one month's batch for a single scope.
// Every item is validated (bounds, tenant, eligibility) before anything
// is written, then all upserts run in one transaction: a failure rolls
// the whole batch back.
func (s *entryService) BulkUpsertEntries(actorID, orgID uint, year, month int, shopID uint, items []BulkEntryItem) ([]models.CostEntry, error) {
	if len(items) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "entries are required")
	}

	inputs := make([]EntryInput, 0, len(items))
	priors := make([]*int64, 0, len(items))
	for _, item := range items {
		in := EntryInput{
			CostItemID:  item.CostItemID,
			Year:        year,
			Month:       month,
			ShopID:      shopID,
			AmountCents: item.AmountCents,
		}
		if err := validateEntryBounds(in.Year, in.Month, in.AmountCents); err != nil {
			return nil, err
		}
		if _, err := s.resolveEligibleItem(orgID, in.CostItemID, in.ShopID); err != nil {
			return nil, err
		}
		prior, err := s.priorAmount(in)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
		priors = append(priors, prior)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, in := range inputs {
			entry := &models.CostEntry{
				CostItemID:  in.CostItemID,
				Year:        in.Year,
				Month:       in.Month,
				ShopID:      in.ShopID,
				AmountCents: in.AmountCents,
				CreatedByID: actorID,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "year"}, {Name: "month"}, {Name: "shop_id"}, {Name: "cost_item_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"amount_cents": in.AmountCents,
					"updated_at":   time.Now(),
				}),
			}).Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	stored := make([]models.CostEntry, 0, len(inputs))
	for i, in := range inputs {
		entry, err := s.entryByKey(in)
		if err != nil {
			return nil, err
		}
		stored = append(stored, *entry)
		s.logEntryAudit(actorID, orgID, entry, priors[i])
	}
	return stored, nil
}

// GetEntries lists one month's entries in the given scope. ShopID 0
// selects organization-level (fixed) entries.
func (s *entryService) GetEntries(orgID uint, year, month int, shopID uint) ([]models.CostEntry, error) {
	if err := validateEntryBounds(year, month, 0); err != nil {
		return nil, err
	}
	if shopID != 0 {
		if _, err := s.shops.VerifyShopAccess(orgID, shopID); err != nil {
			return nil, err
		}
	}

	var entries []models.CostEntry
	if err := s.db.
		Joins("JOIN cost_items ON cost_items.id = cost_entries.cost_item_id").
		Joins("JOIN categories ON categories.id = cost_items.category_id").
		Where("categories.organization_id = ?", orgID).
		Where("cost_entries.year = ? AND cost_entries.month = ? AND cost_entries.shop_id = ?", year, month, shopID).
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// validateEntryBounds checks year, month and amount ranges before any
// persistence is touched.
func validateEntryBounds(year, month int, amountCents int64) error {
	if year < MinEntryYear || year > MaxEntryYear {
		return apperrors.WithMessage(apperrors.ErrValidationFailed,
			fmt.Sprintf("year must be between %d and %d", MinEntryYear, MaxEntryYear))
	}
	if month < 1 || month > 12 {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "month must be between 1 and 12")
	}
	if amountCents < 0 {
		return apperrors.WithMessage(apperrors.ErrValidationFailed, "amount must be non-negative")
	}
	return nil
}

// resolveEligibleItem loads the item through its category, enforces the
// tenant boundary and the shop eligibility rules:
//   - a category bound to one shop accepts only that shop;
//   - a FIXED category accepts only organization-level entries;
//   - an unbound VARIABLE category requires some shop of the organization.
func (s *entryService) resolveEligibleItem(orgID, costItemID, shopID uint) (*models.CostItem, error) {
	var item models.CostItem
	if err := s.db.Preload("Category").First(&item, costItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCostItemNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if item.Category == nil || item.Category.OrganizationID != orgID {
		// Same error as a missing item: foreign IDs must not be
		// distinguishable from absent ones.
		return nil, apperrors.ErrCostItemNotFound
	}

	category := item.Category
	if category.ShopID != 0 {
		if shopID != category.ShopID {
			return nil, apperrors.WithMessage(apperrors.ErrValidationFailed,
				"entry must target the shop this category belongs to")
		}
	} else if category.Scope == models.ScopeFixed {
		if shopID != 0 {
			return nil, apperrors.WithMessage(apperrors.ErrValidationFailed,
				"a fixed category accepts only organization-level entries")
		}
	} else if shopID == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidationFailed,
			"a shop-level category requires a target shop")
	}

	if shopID != 0 {
		if _, err := s.shops.VerifyShopAccess(orgID, shopID); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

// priorAmount returns the existing amount for the entry key, or nil.
func (s *entryService) priorAmount(in EntryInput) (*int64, error) {
	var existing models.CostEntry
	err := s.db.Where("year = ? AND month = ? AND shop_id = ? AND cost_item_id = ?",
		in.Year, in.Month, in.ShopID, in.CostItemID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	amount := existing.AmountCents
	return &amount, nil
}

// entryByKey loads the surviving row for an upsert key.
func (s *entryService) entryByKey(in EntryInput) (*models.CostEntry, error) {
	var entry models.CostEntry
	if err := s.db.Where("year = ? AND month = ? AND shop_id = ? AND cost_item_id = ?",
		in.Year, in.Month, in.ShopID, in.CostItemID).First(&entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &entry, nil
}

// logEntryAudit emits the upsert audit record with prior and new amounts.
func (s *entryService) logEntryAudit(actorID, orgID uint, entry *models.CostEntry, prior *int64) {
	action := models.AuditActionCreate
	var old map[string]any
	if prior != nil {
		action = models.AuditActionUpdate
		old = map[string]any{"amount_cents": *prior}
	}
	s.audit.Log(actorID, action, "CostEntry", entry.ID, orgID, old, map[string]any{
		"amount_cents": entry.AmountCents,
		"year":         entry.Year,
		"month":        entry.Month,
		"shop_id":      entry.ShopID,
	})
}
