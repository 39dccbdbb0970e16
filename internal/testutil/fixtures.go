package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"costwise/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plaintext password every fixture user is created with.
const TestPassword = "password123"

// CreateTestUser creates an active user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         fmt.Sprintf("Test User %d", nextID()),
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestOrganization creates an organization with the given user as OWNER.
func CreateTestOrganization(t *testing.T, db *gorm.DB, ownerID uint) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:        fmt.Sprintf("Test Org %d", nextID()),
		CreatedByID: ownerID,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	AddTestMember(t, db, org.ID, ownerID, models.OrgRoleOwner)
	return org
}

// AddTestMember adds a user to an organization with the given role.
func AddTestMember(t *testing.T, db *gorm.DB, orgID, userID uint, role models.OrgRole) *models.OrganizationUser {
	t.Helper()

	membership := &models.OrganizationUser{
		OrganizationID: orgID,
		UserID:         userID,
		OrgRole:        role,
	}
	if err := db.Create(membership).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}
	return membership
}

// CreateTestShop creates a shop in the given organization.
func CreateTestShop(t *testing.T, db *gorm.DB, orgID uint) *models.Shop {
	t.Helper()

	n := nextID()
	shop := &models.Shop{
		OrganizationID: orgID,
		Name:           fmt.Sprintf("shop-%d", n),
		DisplayName:    fmt.Sprintf("Test Shop %d", n),
	}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("failed to create test shop: %v", err)
	}
	return shop
}

// CreateTestCategory creates a category of the given scope. A shopID of 0
// leaves the category unbound.
func CreateTestCategory(t *testing.T, db *gorm.DB, orgID uint, scope models.CategoryScope, shopID uint) *models.Category {
	t.Helper()

	category := &models.Category{
		OrganizationID: orgID,
		Name:           fmt.Sprintf("Test Category %d", nextID()),
		Scope:          scope,
		ShopID:         shopID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestCostItem creates a cost item in the given category.
func CreateTestCostItem(t *testing.T, db *gorm.DB, categoryID uint) *models.CostItem {
	t.Helper()

	item := &models.CostItem{
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Item %d", nextID()),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create test cost item: %v", err)
	}
	return item
}

// CreateTestEntry creates a cost entry with the given key and amount (in cents).
func CreateTestEntry(t *testing.T, db *gorm.DB, itemID uint, year, month int, shopID uint, amountCents int64) *models.CostEntry {
	t.Helper()

	entry := &models.CostEntry{
		CostItemID:  itemID,
		Year:        year,
		Month:       month,
		ShopID:      shopID,
		AmountCents: amountCents,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test entry: %v", err)
	}
	return entry
}
