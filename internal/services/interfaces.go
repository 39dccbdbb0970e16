package services

import (
	"time"

	"costwise/internal/models"
	"costwise/internal/pagination"
)

// AccountStatus reports the lockout state of an account without
// consuming a login attempt.
type AccountStatus struct {
	Exists            bool       `json:"exists"`
	IsActive          bool       `json:"is_active"`
	Locked            bool       `json:"locked"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	AttemptsRemaining int        `json:"attempts_remaining"`
}

// UserServicer defines the contract for user accounts, credentials and
// the login lockout state machine.
type UserServicer interface {
	CreateUser(email, password, name string, role models.Role) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
	CheckAccountStatus(email string) (*AccountStatus, error)
	ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	UpdateUser(actorID, userID uint, name *string, role *models.Role, isActive *bool) (*models.User, error)
	ResetPassword(actorID, userID uint, newPassword string) error
	DeleteUser(actorID, userID uint) error
	RecordLogout(userID uint)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// OrganizationMembership pairs an organization with the caller's role in it.
type OrganizationMembership struct {
	ID      uint           `json:"id"`
	Name    string         `json:"name"`
	OrgRole models.OrgRole `json:"org_role"`
}

// OrganizationServicer defines the contract for tenants and membership.
// RequireOrgRole is the per-organization authorization gate: every
// admin-level mutation inside a tenant goes through it.
type OrganizationServicer interface {
	CreateOrganization(userID uint, name string) (*models.Organization, error)
	GetOrganization(orgID uint) (*models.Organization, error)
	GetUserOrganizations(userID uint) ([]OrganizationMembership, error)
	GetMembership(userID, orgID uint) (*models.OrganizationUser, error)
	RequireOrgRole(userID, orgID uint, roles ...models.OrgRole) (*models.OrganizationUser, error)
	ListMembers(orgID uint) ([]models.OrganizationUser, error)
	InviteMember(actorID, orgID uint, email string, role models.OrgRole) (*models.OrganizationUser, error)
	UpdateMemberRole(actorID, orgID, membershipID uint, role models.OrgRole) (*models.OrganizationUser, error)
	RemoveMember(actorID, orgID, membershipID uint) error
}

// ShopServicer defines the contract for shop administration and the
// shop-access tenancy check.
type ShopServicer interface {
	ListShops(orgID uint) ([]models.Shop, error)
	VerifyShopAccess(orgID, shopID uint) (*models.Shop, error)
	CreateShop(actorID, orgID uint, name, displayName string) (*models.Shop, error)
	UpdateShop(actorID, orgID, shopID uint, name, displayName *string, sortOrder *int) (*models.Shop, error)
	DeleteShop(actorID, orgID, shopID uint) error
	ReorderShops(actorID, orgID uint, shopIDs []uint) error
}

// CategoryServicer defines the contract for cost categories and items.
type CategoryServicer interface {
	ListCategories(orgID uint, scope *models.CategoryScope, shopID *uint) ([]models.Category, error)
	GetCategoryByID(orgID, categoryID uint) (*models.Category, error)
	CreateCategory(actorID, orgID uint, name string, scope models.CategoryScope, shopID uint) (*models.Category, error)
	UpdateCategory(actorID, orgID, categoryID uint, name string) (*models.Category, error)
	DeleteCategory(actorID, orgID, categoryID uint) error
	CreateCostItem(actorID, orgID, categoryID uint, name string) (*models.CostItem, error)
	UpdateCostItem(actorID, orgID, itemID uint, name string) (*models.CostItem, error)
	DeleteCostItem(actorID, orgID, itemID uint) error
}

// EntryInput is one monthly amount to record. ShopID 0 targets the
// organization-level (fixed) scope.
type EntryInput struct {
	CostItemID  uint
	Year        int
	Month       int
	ShopID      uint
	AmountCents int64
}

// BulkEntryItem is one item amount inside a bulk upsert batch.
type BulkEntryItem struct {
	CostItemID  uint
	AmountCents int64
}

// EntryServicer defines the contract for monthly cost entries.
type EntryServicer interface {
	UpsertEntry(actorID, orgID uint, in EntryInput) (*models.CostEntry, error)
	BulkUpsertEntries(actorID, orgID uint, year, month int, shopID uint, items []BulkEntryItem) ([]models.CostEntry, error)
	GetEntries(orgID uint, year, month int, shopID uint) ([]models.CostEntry, error)
}

// StatsView selects which slice of the organization a statistics query covers.
type StatsView string

const (
	ViewAll   StatsView = "ALL"
	ViewFixed StatsView = "FIXED"
	ViewShop  StatsView = "SHOP"
)

// Statistics grouping modes.
const (
	GroupByTotal      = "total"
	GroupByCategories = "categories"
)

// MonthlyPoint is one month's bucket in a statistics series. Categories
// is populated only when grouping by category; names without entries in
// the month are absent from the map.
type MonthlyPoint struct {
	Month      string           `json:"month"`
	TotalCents int64            `json:"total_cents,omitempty"`
	Categories map[string]int64 `json:"categories,omitempty"`
}

// StatisticsServicer defines the read-only rollup of entries into
// trailing-12-month series.
type StatisticsServicer interface {
	GetStatistics(orgID uint, view StatsView, shopID uint, groupBy string) ([]MonthlyPoint, error)
	GetStatisticsCategories(orgID uint, view StatsView) ([]string, error)
}

// AuditFilter holds optional filter parameters for listing audit logs.
type AuditFilter struct {
	Entity string
	Action string
	UserID uint
}

// AuditStats summarizes recent audit activity.
type AuditStats struct {
	TotalLogs          int64 `json:"total_logs"`
	RecentLogins       int64 `json:"recent_logins"`
	RecentFailedLogins int64 `json:"recent_failed_logins"`
}

// AuditServicer defines the contract for the audit side channel. Log is
// best-effort: it never returns an error and never disturbs the caller.
type AuditServicer interface {
	Log(userID uint, action, entity string, entityID, orgID uint, oldValue, newValue map[string]any)
	GetLogs(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
	GetStats() (*AuditStats, error)
}
