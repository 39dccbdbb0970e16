package models

// CategoryScope classifies a cost category as organization-level (FIXED)
// or shop-level (VARIABLE).
type CategoryScope string

const (
	ScopeFixed    CategoryScope = "FIXED"
	ScopeVariable CategoryScope = "VARIABLE"
)

// Category groups cost items. Name is unique per organization, not
// globally. ShopID is 0 for organization-level categories and set only
// when the category belongs to a single shop.
type Category struct {
	Base
	OrganizationID uint          `gorm:"not null;uniqueIndex:idx_org_category_name" json:"organization_id"`
	Name           string        `gorm:"not null;uniqueIndex:idx_org_category_name" json:"name"`
	Scope          CategoryScope `gorm:"not null;default:FIXED" json:"scope"`
	ShopID         uint          `gorm:"not null;default:0;index" json:"shop_id,omitempty"`
	SortOrder      int           `gorm:"not null;default:0" json:"sort_order"`
	CreatedByID    uint          `json:"created_by_id"`

	CostItems []CostItem `gorm:"foreignKey:CategoryID" json:"cost_items,omitempty"`
}

// CostItem is a named line inside a category. It inherits organization
// and shop scope transitively through its category.
type CostItem struct {
	Base
	CategoryID  uint   `gorm:"not null;index" json:"category_id"`
	Name        string `gorm:"not null" json:"name"`
	SortOrder   int    `gorm:"not null;default:0" json:"sort_order"`
	CreatedByID uint   `json:"created_by_id"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
