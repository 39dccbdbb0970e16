package models

// Shop is a storefront sub-scope of an organization. Shop-scoped
// categories and cost entries reference it; organization-level (fixed)
// data uses shop ID 0.
type Shop struct {
	Base
	OrganizationID uint   `gorm:"not null;index" json:"organization_id"`
	Name           string `gorm:"not null" json:"name"`
	DisplayName    string `json:"display_name"`
	SortOrder      int    `gorm:"not null;default:0" json:"sort_order"`
}
