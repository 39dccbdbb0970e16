package models

// Organization is the root tenant boundary. Shops, categories and cost
// data all hang off an organization; users join through OrganizationUser.
type Organization struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	CreatedByID uint   `gorm:"not null" json:"created_by_id"`

	Shops      []Shop             `gorm:"foreignKey:OrganizationID" json:"shops,omitempty"`
	Categories []Category         `gorm:"foreignKey:OrganizationID" json:"categories,omitempty"`
	Members    []OrganizationUser `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
}

// OrgRole is the per-organization role, distinct from the platform Role.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
)

// OrganizationUser is the membership edge between User and Organization
// and the sole source of per-tenant role.
type OrganizationUser struct {
	Base
	UserID         uint    `gorm:"not null;uniqueIndex:idx_org_member" json:"user_id"`
	OrganizationID uint    `gorm:"not null;uniqueIndex:idx_org_member" json:"organization_id"`
	OrgRole        OrgRole `gorm:"not null;default:MEMBER" json:"org_role"`

	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
