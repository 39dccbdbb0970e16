package services

import (
	"sync"
	"testing"
	"time"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/testutil"

	"gorm.io/gorm"
)

func newTestUserService(db *gorm.DB) UserServicer {
	return NewUserService(db, NewAuditService(db))
}

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user, err := svc.CreateUser("alice@example.com", "password123", "Alice", models.RoleUser)
		testutil.AssertNoError(t, err)

		if user.ID == 0 {
			t.Fatal("expected non-zero user ID")
		}
		if user.Email != "alice@example.com" {
			t.Errorf("expected email alice@example.com, got %s", user.Email)
		}
		if !user.IsActive {
			t.Error("expected user to be active")
		}
	})

	t.Run("lowercases_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user, err := svc.CreateUser("Bob@Example.COM", "password123", "", models.RoleUser)
		testutil.AssertNoError(t, err)
		if user.Email != "bob@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		_, err := svc.CreateUser("dup@example.com", "password123", "", models.RoleUser)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("dup@example.com", "password456", "", models.RoleUser)
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("empty_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		_, err := svc.CreateUser("", "password123", "", models.RoleUser)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAttemptLogin(t *testing.T) {
	t.Run("success_resets_counter", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("failed_login_attempts", 3)

		got, err := svc.AttemptLogin(user.Email, testutil.TestPassword)
		testutil.AssertNoError(t, err)

		if got.FailedLoginAttempts != 0 {
			t.Errorf("expected counter reset, got %d", got.FailedLoginAttempts)
		}
		if got.LastLoginAt == nil {
			t.Error("expected last login timestamp to be set")
		}
	})

	t.Run("unknown_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		_, err := svc.AttemptLogin("nobody@example.com", "whatever")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("wrong_password_increments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)

		_, err := svc.AttemptLogin(user.Email, "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

		appErr := err.(*apperrors.AppError)
		if appErr.Details["attempts_remaining"] != 4 {
			t.Errorf("expected 4 attempts remaining, got %v", appErr.Details["attempts_remaining"])
		}

		var updated models.User
		db.First(&updated, user.ID)
		if updated.FailedLoginAttempts != 1 {
			t.Errorf("expected 1 failed attempt, got %d", updated.FailedLoginAttempts)
		}
		if updated.LockedUntil != nil {
			t.Error("account should not be locked after one failure")
		}
	})

	t.Run("locks_after_max_attempts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)

		var lastErr error
		for i := 0; i < 5; i++ {
			_, lastErr = svc.AttemptLogin(user.Email, "wrong")
		}
		testutil.AssertAppError(t, lastErr, "ACCOUNT_LOCKED")

		appErr := lastErr.(*apperrors.AppError)
		if appErr.Details["locked_until"] == nil {
			t.Error("expected locked_until detail")
		}

		var updated models.User
		db.First(&updated, user.ID)
		if updated.LockedUntil == nil || !updated.LockedUntil.After(time.Now()) {
			t.Error("expected a future lockout timestamp")
		}
	})

	t.Run("concurrent_failures_cannot_skip_the_lock", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("failed_login_attempts", 3)

		// Two attempts race for the 5th slot. The single-UPDATE CASE
		// must count both and lock, never leave the counter at 4.
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				svc.AttemptLogin(user.Email, "wrong")
			}()
		}
		wg.Wait()

		var updated models.User
		db.First(&updated, user.ID)
		if updated.FailedLoginAttempts != 5 {
			t.Errorf("expected 5 failed attempts, got %d", updated.FailedLoginAttempts)
		}
		if updated.LockedUntil == nil || !updated.LockedUntil.After(time.Now()) {
			t.Error("expected a future lockout timestamp")
		}
	})

	t.Run("locked_rejects_correct_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		until := time.Now().Add(10 * time.Minute)
		db.Model(user).Updates(map[string]any{
			"failed_login_attempts": 5,
			"locked_until":          until,
		})

		_, err := svc.AttemptLogin(user.Email, testutil.TestPassword)
		testutil.AssertAppError(t, err, "ACCOUNT_LOCKED")

		// The rejected attempt must not grow the counter.
		var updated models.User
		db.First(&updated, user.ID)
		if updated.FailedLoginAttempts != 5 {
			t.Errorf("expected counter unchanged at 5, got %d", updated.FailedLoginAttempts)
		}
	})

	t.Run("expired_lock_resets_and_allows_login", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		until := time.Now().Add(-time.Minute)
		db.Model(user).Updates(map[string]any{
			"failed_login_attempts": 5,
			"locked_until":          until,
		})

		got, err := svc.AttemptLogin(user.Email, testutil.TestPassword)
		testutil.AssertNoError(t, err)
		if got.FailedLoginAttempts != 0 {
			t.Errorf("expected counter reset after expired lock, got %d", got.FailedLoginAttempts)
		}
	})

	t.Run("expired_lock_then_wrong_password_starts_fresh", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		until := time.Now().Add(-time.Minute)
		db.Model(user).Updates(map[string]any{
			"failed_login_attempts": 5,
			"locked_until":          until,
		})

		_, err := svc.AttemptLogin(user.Email, "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

		var updated models.User
		db.First(&updated, user.ID)
		if updated.FailedLoginAttempts != 1 {
			t.Errorf("expected counter restarted at 1, got %d", updated.FailedLoginAttempts)
		}
		if updated.LockedUntil != nil {
			t.Error("expected lock cleared after expiry")
		}
	})

	t.Run("deactivated_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("is_active", false)

		_, err := svc.AttemptLogin(user.Email, "wrong")
		testutil.AssertAppError(t, err, "ACCOUNT_DEACTIVATED")

		// A deactivated account never consumes attempts.
		var updated models.User
		db.First(&updated, user.ID)
		if updated.FailedLoginAttempts != 0 {
			t.Errorf("expected no attempts consumed, got %d", updated.FailedLoginAttempts)
		}
	})
}

func TestCheckAccountStatus(t *testing.T) {
	t.Run("unknown_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		status, err := svc.CheckAccountStatus("nobody@example.com")
		testutil.AssertNoError(t, err)
		if status.Exists {
			t.Error("expected exists=false")
		}
		if status.AttemptsRemaining != 5 {
			t.Errorf("expected 5 attempts remaining, got %d", status.AttemptsRemaining)
		}
	})

	t.Run("locked_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		until := time.Now().Add(10 * time.Minute)
		db.Model(user).Updates(map[string]any{
			"failed_login_attempts": 5,
			"locked_until":          until,
		})

		status, err := svc.CheckAccountStatus(user.Email)
		testutil.AssertNoError(t, err)
		if !status.Locked {
			t.Error("expected locked=true")
		}
		if status.AttemptsRemaining != 0 {
			t.Errorf("expected 0 attempts remaining, got %d", status.AttemptsRemaining)
		}
		if status.LockedUntil == nil {
			t.Error("expected locked_until to be set")
		}
	})

	t.Run("probe_does_not_consume_attempt", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("failed_login_attempts", 2)

		_, err := svc.CheckAccountStatus(user.Email)
		testutil.AssertNoError(t, err)

		var updated models.User
		db.First(&updated, user.ID)
		if updated.FailedLoginAttempts != 2 {
			t.Errorf("expected counter unchanged at 2, got %d", updated.FailedLoginAttempts)
		}
	})
}

func TestResetPassword(t *testing.T) {
	t.Run("clears_lockout", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		admin := testutil.CreateTestUser(t, db)
		until := time.Now().Add(10 * time.Minute)
		db.Model(user).Updates(map[string]any{
			"failed_login_attempts": 5,
			"locked_until":          until,
		})

		err := svc.ResetPassword(admin.ID, user.ID, "newpassword123")
		testutil.AssertNoError(t, err)

		got, err := svc.AttemptLogin(user.Email, "newpassword123")
		testutil.AssertNoError(t, err)
		if got.FailedLoginAttempts != 0 {
			t.Errorf("expected counter reset, got %d", got.FailedLoginAttempts)
		}
	})

	t.Run("empty_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		err := svc.ResetPassword(user.ID, user.ID, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("self_delete_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		user := testutil.CreateTestUser(t, db)
		err := svc.DeleteUser(user.ID, user.ID)
		testutil.AssertAppError(t, err, "SELF_DELETE")
	})

	t.Run("deletes_other_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestUserService(db)

		admin := testutil.CreateTestUser(t, db)
		victim := testutil.CreateTestUser(t, db)

		err := svc.DeleteUser(admin.ID, victim.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.GetUserByID(victim.ID)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestUserService(db)

	user := testutil.CreateTestUser(t, db)

	err := svc.StoreRefreshTokenHash(user.ID, "abc123")
	testutil.AssertNoError(t, err)

	hash, err := svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if hash != "abc123" {
		t.Errorf("expected stored hash, got %q", hash)
	}

	// Logout-style invalidation.
	err = svc.StoreRefreshTokenHash(user.ID, "")
	testutil.AssertNoError(t, err)
	hash, err = svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if hash != "" {
		t.Errorf("expected cleared hash, got %q", hash)
	}
}
