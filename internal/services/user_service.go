package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"costwise/internal/config"
	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/pagination"
)

// userService handles user accounts and the login lockout state machine.
type userService struct {
	db          *gorm.DB
	audit       AuditServicer
	maxAttempts int
	lockout     time.Duration
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, audit AuditServicer) UserServicer {
	cfg := config.Get()
	return &userService{
		db:          db,
		audit:       audit,
		maxAttempts: cfg.LoginMaxAttempts,
		lockout:     cfg.LockoutDuration,
	}
}

// CreateUser registers a new user with the given platform role.
func (s *userService) CreateUser(email, password, name string, role models.Role) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if role == "" {
		role = models.RoleUser
	}

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", strings.ToLower(email)).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:        strings.ToLower(email),
		PasswordHash: string(hashedPassword),
		Name:         name,
		Role:         role,
		IsActive:     true,
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByEmail retrieves an active user by email.
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(email), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// AttemptLogin runs the lockout state machine for one login attempt.
//
// Order matters: deactivated accounts fail without consuming an attempt,
// a live lock rejects before the password is ever evaluated, and an
// expired lock resets the counter before the credential check.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDeactivated
	}

	now := time.Now()
	if user.LockedUntil != nil {
		if user.LockedUntil.After(now) {
			return nil, apperrors.WithDetails(apperrors.ErrAccountLocked, map[string]any{
				"locked_until": user.LockedUntil.UTC().Format(time.RFC3339),
			})
		}
		// Lock expired: lazy reset before evaluating the credential.
		if err := s.db.Model(&user).Updates(map[string]any{
			"failed_login_attempts": 0,
			"locked_until":          nil,
		}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, s.recordFailedAttempt(&user)
	}

	if err := s.db.Model(&user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	s.audit.Log(user.ID, models.AuditActionLogin, "User", user.ID, 0, nil, nil)
	return &user, nil
}

// recordFailedAttempt increments the counter and locks the account when
// the threshold is reached, in a single UPDATE so two concurrent
// attempts cannot both observe the pre-increment count.
func (s *userService) recordFailedAttempt(user *models.User) error {
	now := time.Now()
	lockUntil := now.Add(s.lockout)

	err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
		"locked_until": gorm.Expr(
			"CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END",
			s.maxAttempts, lockUntil,
		),
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var updated models.User
	if err := s.db.First(&updated, user.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	locked := updated.LockedUntil != nil && updated.LockedUntil.After(now)
	s.audit.Log(user.ID, models.AuditActionLoginFailed, "User", user.ID, 0, nil, map[string]any{
		"attempts": updated.FailedLoginAttempts,
		"locked":   locked,
	})

	if locked {
		return apperrors.WithDetails(apperrors.ErrAccountLocked, map[string]any{
			"locked_until": updated.LockedUntil.UTC().Format(time.RFC3339),
		})
	}

	remaining := s.maxAttempts - updated.FailedLoginAttempts
	if remaining < 0 {
		remaining = 0
	}
	return apperrors.WithDetails(apperrors.ErrInvalidCredentials, map[string]any{
		"attempts_remaining": remaining,
	})
}

// CheckAccountStatus reports the lockout state for an email without
// consuming an attempt or evaluating any credential.
func (s *userService) CheckAccountStatus(email string) (*AccountStatus, error) {
	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AccountStatus{Exists: false, AttemptsRemaining: s.maxAttempts}, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	status := &AccountStatus{
		Exists:            true,
		IsActive:          user.IsActive,
		AttemptsRemaining: s.maxAttempts - user.FailedLoginAttempts,
	}
	if status.AttemptsRemaining < 0 {
		status.AttemptsRemaining = 0
	}
	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		status.Locked = true
		status.LockedUntil = user.LockedUntil
	}
	return status, nil
}

// ListUsers returns all users, newest first.
func (s *userService) ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.User{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	if err := s.db.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateUser updates name, platform role and active flag.
func (s *userService) UpdateUser(actorID, userID uint, name *string, role *models.Role, isActive *bool) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	old := map[string]any{"name": user.Name, "role": user.Role, "is_active": user.IsActive}

	updates := make(map[string]any)
	if name != nil {
		updates["name"] = *name
	}
	if role != nil {
		updates["role"] = *role
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.audit.Log(actorID, models.AuditActionUpdate, "User", user.ID, 0, old, updates)
	}

	return user, nil
}

// ResetPassword replaces a user's password hash.
func (s *userService) ResetPassword(actorID, userID uint, newPassword string) error {
	if newPassword == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "password is required")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// A reset also clears any active lockout.
	if err := s.db.Model(user).Updates(map[string]any{
		"password_hash":         string(hashed),
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionUpdate, "User", user.ID, 0, nil, map[string]any{"password_reset": true})
	return nil
}

// DeleteUser removes a user. Deleting your own account is rejected.
func (s *userService) DeleteUser(actorID, userID uint) error {
	if actorID == userID {
		return apperrors.ErrSelfDelete
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(user).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionDelete, "User", userID, 0, map[string]any{"email": user.Email}, nil)
	return nil
}

// RecordLogout emits the LOGOUT audit event.
func (s *userService) RecordLogout(userID uint) {
	s.audit.Log(userID, models.AuditActionLogout, "User", userID, 0, nil, nil)
}

// StoreRefreshTokenHash saves the hash of the user's current refresh token.
func (s *userService) StoreRefreshTokenHash(userID uint, tokenHash string) error {
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Update("refresh_token_hash", tokenHash).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash for a user.
func (s *userService) GetRefreshTokenHash(userID uint) (string, error) {
	var user models.User
	if err := s.db.Select("refresh_token_hash").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user.RefreshTokenHash, nil
}
