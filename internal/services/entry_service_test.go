package services

import (
	"testing"

	"costwise/internal/models"
	"costwise/internal/testutil"

	"gorm.io/gorm"
)

func newTestEntryService(db *gorm.DB) EntryServicer {
	audit := NewAuditService(db)
	return NewEntryService(db, NewShopService(db, audit), audit)
}

// entryFixture is the base set of records the entry tests operate on:
// one organization with a shop, a fixed category and a variable one
// bound to the shop, each with a cost item.
type entryFixture struct {
	user      *models.User
	org       *models.Organization
	shop      *models.Shop
	fixedItem *models.CostItem
	shopItem  *models.CostItem
}

func setupEntryFixture(t *testing.T, db *gorm.DB) entryFixture {
	t.Helper()
	user := testutil.CreateTestUser(t, db)
	org := testutil.CreateTestOrganization(t, db, user.ID)
	shop := testutil.CreateTestShop(t, db, org.ID)
	fixedCat := testutil.CreateTestCategory(t, db, org.ID, models.ScopeFixed, 0)
	shopCat := testutil.CreateTestCategory(t, db, org.ID, models.ScopeVariable, shop.ID)
	return entryFixture{
		user:      user,
		org:       org,
		shop:      shop,
		fixedItem: testutil.CreateTestCostItem(t, db, fixedCat.ID),
		shopItem:  testutil.CreateTestCostItem(t, db, shopCat.ID),
	}
}

func TestUpsertEntry(t *testing.T) {
	t.Run("creates_then_replaces", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		first, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: 10000,
		})
		testutil.AssertNoError(t, err)
		if first.AmountCents != 10000 {
			t.Errorf("expected 10000, got %d", first.AmountCents)
		}

		second, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: 25000,
		})
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Errorf("expected the same row to survive, got %d then %d", first.ID, second.ID)
		}
		if second.AmountCents != 25000 {
			t.Errorf("expected last write to win with 25000, got %d", second.AmountCents)
		}

		var count int64
		db.Model(&models.CostEntry{}).Count(&count)
		if count != 1 {
			t.Errorf("expected exactly one row for the key, got %d", count)
		}
	})

	t.Run("separate_months_separate_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertNoError(t, err)
		_, err = svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 7, AmountCents: 200,
		})
		testutil.AssertNoError(t, err)

		var count int64
		db.Model(&models.CostEntry{}).Count(&count)
		if count != 2 {
			t.Errorf("expected two rows, got %d", count)
		}
	})

	t.Run("year_out_of_bounds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 1999, Month: 6, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		_, err = svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2101, Month: 6, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("month_out_of_bounds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 13, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("negative_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: -1,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("fixed_item_rejects_shop_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, ShopID: fx.shop.ID, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("bound_item_rejects_other_shop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)
		other := testutil.CreateTestShop(t, db, fx.org.ID)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.shopItem.ID, Year: 2025, Month: 6, ShopID: other.ID, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("bound_item_rejects_org_level", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.shopItem.ID, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")
	})

	t.Run("unbound_variable_requires_shop", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)
		unboundCat := testutil.CreateTestCategory(t, db, fx.org.ID, models.ScopeVariable, 0)
		item := testutil.CreateTestCostItem(t, db, unboundCat.ID)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: item.ID, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "VALIDATION_FAILED")

		// Any shop of the organization is acceptable.
		_, err = svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: item.ID, Year: 2025, Month: 6, ShopID: fx.shop.ID, AmountCents: 100,
		})
		testutil.AssertNoError(t, err)
	})

	t.Run("foreign_item_reads_as_missing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		outsider := testutil.CreateTestUser(t, db)
		foreignOrg := testutil.CreateTestOrganization(t, db, outsider.ID)
		foreignCat := testutil.CreateTestCategory(t, db, foreignOrg.ID, models.ScopeFixed, 0)
		foreignItem := testutil.CreateTestCostItem(t, db, foreignCat.ID)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: foreignItem.ID, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "COST_ITEM_NOT_FOUND")

		_, err = svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: 99999, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "COST_ITEM_NOT_FOUND")
	})

	t.Run("foreign_shop_reads_as_missing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		outsider := testutil.CreateTestUser(t, db)
		foreignOrg := testutil.CreateTestOrganization(t, db, outsider.ID)
		foreignShop := testutil.CreateTestShop(t, db, foreignOrg.ID)

		unboundCat := testutil.CreateTestCategory(t, db, fx.org.ID, models.ScopeVariable, 0)
		item := testutil.CreateTestCostItem(t, db, unboundCat.ID)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: item.ID, Year: 2025, Month: 6, ShopID: foreignShop.ID, AmountCents: 100,
		})
		testutil.AssertAppError(t, err, "SHOP_NOT_FOUND")
	})

	t.Run("zero_amount_is_recordable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		entry, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: 0,
		})
		testutil.AssertNoError(t, err)
		if entry.AmountCents != 0 {
			t.Errorf("expected 0, got %d", entry.AmountCents)
		}
	})
}

func TestBulkUpsertEntries(t *testing.T) {
	t.Run("applies_whole_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		cat := testutil.CreateTestCategory(t, db, fx.org.ID, models.ScopeFixed, 0)
		other := testutil.CreateTestCostItem(t, db, cat.ID)

		entries, err := svc.BulkUpsertEntries(fx.user.ID, fx.org.ID, 2025, 6, 0, []BulkEntryItem{
			{CostItemID: fx.fixedItem.ID, AmountCents: 100},
			{CostItemID: other.ID, AmountCents: 200},
		})
		testutil.AssertNoError(t, err)
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
	})

	t.Run("rejects_batch_on_single_bad_item", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.BulkUpsertEntries(fx.user.ID, fx.org.ID, 2025, 6, 0, []BulkEntryItem{
			{CostItemID: fx.fixedItem.ID, AmountCents: 100},
			{CostItemID: 99999, AmountCents: 200},
		})
		testutil.AssertAppError(t, err, "COST_ITEM_NOT_FOUND")

		// Nothing from the batch may land.
		var count int64
		db.Model(&models.CostEntry{}).Count(&count)
		if count != 0 {
			t.Errorf("expected no entries written, got %d", count)
		}
	})

	t.Run("empty_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.BulkUpsertEntries(fx.user.ID, fx.org.ID, 2025, 6, 0, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("replaces_existing_amounts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertNoError(t, err)

		entries, err := svc.BulkUpsertEntries(fx.user.ID, fx.org.ID, 2025, 6, 0, []BulkEntryItem{
			{CostItemID: fx.fixedItem.ID, AmountCents: 999},
		})
		testutil.AssertNoError(t, err)
		if entries[0].AmountCents != 999 {
			t.Errorf("expected 999, got %d", entries[0].AmountCents)
		}

		var count int64
		db.Model(&models.CostEntry{}).Count(&count)
		if count != 1 {
			t.Errorf("expected one surviving row, got %d", count)
		}
	})
}

func TestGetEntries(t *testing.T) {
	t.Run("filters_by_month_and_scope", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		_, err := svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.fixedItem.ID, Year: 2025, Month: 6, AmountCents: 100,
		})
		testutil.AssertNoError(t, err)
		_, err = svc.UpsertEntry(fx.user.ID, fx.org.ID, EntryInput{
			CostItemID: fx.shopItem.ID, Year: 2025, Month: 6, ShopID: fx.shop.ID, AmountCents: 200,
		})
		testutil.AssertNoError(t, err)

		fixed, err := svc.GetEntries(fx.org.ID, 2025, 6, 0)
		testutil.AssertNoError(t, err)
		if len(fixed) != 1 || fixed[0].AmountCents != 100 {
			t.Errorf("expected only the organization-level entry, got %+v", fixed)
		}

		scoped, err := svc.GetEntries(fx.org.ID, 2025, 6, fx.shop.ID)
		testutil.AssertNoError(t, err)
		if len(scoped) != 1 || scoped[0].AmountCents != 200 {
			t.Errorf("expected only the shop entry, got %+v", scoped)
		}
	})

	t.Run("does_not_leak_other_tenants", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestEntryService(db)
		fx := setupEntryFixture(t, db)

		outsider := testutil.CreateTestUser(t, db)
		foreignOrg := testutil.CreateTestOrganization(t, db, outsider.ID)
		foreignCat := testutil.CreateTestCategory(t, db, foreignOrg.ID, models.ScopeFixed, 0)
		foreignItem := testutil.CreateTestCostItem(t, db, foreignCat.ID)
		testutil.CreateTestEntry(t, db, foreignItem.ID, 2025, 6, 0, 7777)

		entries, err := svc.GetEntries(fx.org.ID, 2025, 6, 0)
		testutil.AssertNoError(t, err)
		if len(entries) != 0 {
			t.Errorf("expected no foreign entries, got %d", len(entries))
		}
	})
}
