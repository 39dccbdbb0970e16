package models

// CostEntry is one monthly amount for a cost item, keyed by
// (year, month, shop_id, cost_item_id). ShopID 0 means an
// organization-level (fixed) entry; the zero sentinel rather than NULL
// keeps the composite unique index a real key, so the ON CONFLICT upsert
// works for organization-level rows too.
type CostEntry struct {
	Base
	CostItemID  uint  `gorm:"not null;uniqueIndex:idx_entry_key" json:"cost_item_id"`
	Year        int   `gorm:"not null;uniqueIndex:idx_entry_key" json:"year"`
	Month       int   `gorm:"not null;uniqueIndex:idx_entry_key" json:"month"`
	ShopID      uint  `gorm:"not null;default:0;uniqueIndex:idx_entry_key" json:"shop_id,omitempty"`
	AmountCents int64 `gorm:"not null" json:"amount_cents"`
	CreatedByID uint  `json:"created_by_id"`

	CostItem *CostItem `gorm:"foreignKey:CostItemID" json:"cost_item,omitempty"`
}
