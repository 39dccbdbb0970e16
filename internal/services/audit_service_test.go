package services

import (
	"testing"
	"time"

	"costwise/internal/models"
	"costwise/internal/pagination"
	"costwise/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	t.Run("persists_entry_with_snapshots", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		user := testutil.CreateTestUser(t, db)
		svc.Log(user.ID, models.AuditActionUpdate, "shop", 42, 7,
			map[string]any{"name": "Old"},
			map[string]any{"name": "New"},
		)

		var entry models.AuditLog
		if err := db.First(&entry).Error; err != nil {
			t.Fatalf("expected audit row to exist: %v", err)
		}
		if entry.UserID != user.ID || entry.Entity != "shop" || entry.EntityID != 42 {
			t.Errorf("unexpected entry: %+v", entry)
		}
		if entry.OrganizationID != 7 {
			t.Errorf("expected organization 7, got %d", entry.OrganizationID)
		}
		if entry.OldValue != `{"name":"Old"}` {
			t.Errorf("unexpected old value %q", entry.OldValue)
		}
		if entry.NewValue != `{"name":"New"}` {
			t.Errorf("unexpected new value %q", entry.NewValue)
		}
	})

	t.Run("nil_snapshots_stored_empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		user := testutil.CreateTestUser(t, db)
		svc.Log(user.ID, models.AuditActionLogin, "user", user.ID, 0, nil, nil)

		var entry models.AuditLog
		if err := db.First(&entry).Error; err != nil {
			t.Fatalf("expected audit row to exist: %v", err)
		}
		if entry.OldValue != "" || entry.NewValue != "" {
			t.Errorf("expected empty snapshots, got %q / %q", entry.OldValue, entry.NewValue)
		}
	})
}

func TestGetAuditLogs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)

	svc.Log(alice.ID, models.AuditActionCreate, "shop", 1, 1, nil, map[string]any{"name": "A"})
	svc.Log(alice.ID, models.AuditActionUpdate, "shop", 1, 1, nil, nil)
	svc.Log(bob.ID, models.AuditActionCreate, "category", 2, 1, nil, nil)

	t.Run("returns_all_newest_first", func(t *testing.T) {
		result, err := svc.GetLogs(AuditFilter{}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Fatalf("expected 3 logs, got %d", result.TotalItems)
		}
		for i := 1; i < len(result.Data); i++ {
			if result.Data[i].CreatedAt.After(result.Data[i-1].CreatedAt) {
				t.Error("logs are not ordered newest first")
			}
		}
	})

	t.Run("filters_by_entity", func(t *testing.T) {
		result, err := svc.GetLogs(AuditFilter{Entity: "category"}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 || result.Data[0].Entity != "category" {
			t.Errorf("expected one category log, got %+v", result.Data)
		}
	})

	t.Run("filters_by_action_and_user", func(t *testing.T) {
		result, err := svc.GetLogs(AuditFilter{Action: models.AuditActionCreate, UserID: alice.ID}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Fatalf("expected one log, got %d", result.TotalItems)
		}
		if result.Data[0].UserID != alice.ID {
			t.Errorf("expected alice's log, got user %d", result.Data[0].UserID)
		}
	})

	t.Run("preloads_acting_user", func(t *testing.T) {
		result, err := svc.GetLogs(AuditFilter{UserID: bob.ID}, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if len(result.Data) != 1 || result.Data[0].User.Email != bob.Email {
			t.Error("expected acting user to be preloaded")
		}
	})

	t.Run("paginates", func(t *testing.T) {
		result, err := svc.GetLogs(AuditFilter{}, pagination.PageRequest{Page: 1, PageSize: 2})
		testutil.AssertNoError(t, err)
		if len(result.Data) != 2 || result.TotalItems != 3 || result.TotalPages != 2 {
			t.Errorf("unexpected page: %d rows, %d total, %d pages",
				len(result.Data), result.TotalItems, result.TotalPages)
		}
	})
}

func TestGetAuditStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	user := testutil.CreateTestUser(t, db)
	svc.Log(user.ID, models.AuditActionLogin, "user", user.ID, 0, nil, nil)
	svc.Log(user.ID, models.AuditActionLoginFailed, "user", user.ID, 0, nil, nil)
	svc.Log(user.ID, models.AuditActionCreate, "shop", 1, 1, nil, nil)

	// A login older than the 24h window must not count as recent.
	stale := models.AuditLog{UserID: user.ID, Action: models.AuditActionLogin, Entity: "user", EntityID: user.ID}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("failed to create stale log: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := db.Model(&stale).Update("created_at", old).Error; err != nil {
		t.Fatalf("failed to backdate stale log: %v", err)
	}

	stats, err := svc.GetStats()
	testutil.AssertNoError(t, err)
	if stats.TotalLogs != 4 {
		t.Errorf("expected 4 total logs, got %d", stats.TotalLogs)
	}
	if stats.RecentLogins != 1 {
		t.Errorf("expected 1 recent login, got %d", stats.RecentLogins)
	}
	if stats.RecentFailedLogins != 1 {
		t.Errorf("expected 1 recent failed login, got %d", stats.RecentFailedLogins)
	}
}
