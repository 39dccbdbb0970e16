package services

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "costwise/internal/errors"
	"costwise/internal/logger"
	"costwise/internal/models"
	"costwise/internal/pagination"
)

// auditService handles audit log recording and admin-side queries.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation. Callers invoke it after their
// own transaction has committed, never inside it.
func (s *auditService) Log(userID uint, action, entity string, entityID, orgID uint, oldValue, newValue map[string]any) {
	entry := &models.AuditLog{
		UserID:         userID,
		Action:         action,
		Entity:         entity,
		EntityID:       entityID,
		OrganizationID: orgID,
		OldValue:       marshalSnapshot(action, oldValue),
		NewValue:       marshalSnapshot(action, newValue),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"entity", entity,
			"entity_id", entityID,
		)
	}
}

func marshalSnapshot(action string, snapshot map[string]any) string {
	if snapshot == nil {
		return ""
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		logger.Get().Errorw("failed to marshal audit snapshot", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}

// GetLogs returns audit entries filtered by entity, action and user,
// newest first.
func (s *auditService) GetLogs(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	page.Defaults()

	base := s.db.Model(&models.AuditLog{})
	if filter.Entity != "" {
		base = base.Where("entity = ?", filter.Entity)
	}
	if filter.Action != "" {
		base = base.Where("action = ?", filter.Action)
	}
	if filter.UserID != 0 {
		base = base.Where("user_id = ?", filter.UserID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.AuditLog
	if err := base.Preload("User").Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(logs, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetStats summarizes audit activity: total rows plus logins and failed
// logins over the last 24 hours. The three counts run concurrently.
func (s *auditService) GetStats() (*AuditStats, error) {
	since := time.Now().Add(-24 * time.Hour)
	stats := &AuditStats{}

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.AuditLog{}).Count(&stats.TotalLogs).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.AuditLog{}).
			Where("action = ? AND created_at >= ?", models.AuditActionLogin, since).
			Count(&stats.RecentLogins).Error
	})
	g.Go(func() error {
		return s.db.WithContext(ctx).Model(&models.AuditLog{}).
			Where("action = ? AND created_at >= ?", models.AuditActionLoginFailed, since).
			Count(&stats.RecentFailedLogins).Error
	})

	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stats, nil
}
