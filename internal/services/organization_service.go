package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
)

// organizationService handles tenants and membership.
type organizationService struct {
	db    *gorm.DB
	audit AuditServicer
}

// NewOrganizationService creates a new OrganizationServicer.
func NewOrganizationService(db *gorm.DB, audit AuditServicer) OrganizationServicer {
	return &organizationService{db: db, audit: audit}
}

// CreateOrganization creates a tenant and makes the creator its OWNER,
// both inside one transaction.
func (s *organizationService) CreateOrganization(userID uint, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "organization name is required")
	}

	org := &models.Organization{Name: name, CreatedByID: userID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		member := &models.OrganizationUser{
			UserID:         userID,
			OrganizationID: org.ID,
			OrgRole:        models.OrgRoleOwner,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(userID, models.AuditActionCreate, "Organization", org.ID, org.ID, nil, map[string]any{"name": org.Name})
	return org, nil
}

// GetOrganization returns an organization by ID.
func (s *organizationService) GetOrganization(orgID uint) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.First(&org, orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrganizationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &org, nil
}

// GetUserOrganizations lists the organizations the user belongs to,
// oldest membership first.
func (s *organizationService) GetUserOrganizations(userID uint) ([]OrganizationMembership, error) {
	var memberships []models.OrganizationUser
	if err := s.db.Preload("Organization").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := make([]OrganizationMembership, 0, len(memberships))
	for _, m := range memberships {
		if m.Organization == nil {
			continue
		}
		result = append(result, OrganizationMembership{
			ID:      m.Organization.ID,
			Name:    m.Organization.Name,
			OrgRole: m.OrgRole,
		})
	}
	return result, nil
}

// GetMembership returns the caller's membership row for an organization.
func (s *organizationService) GetMembership(userID, orgID uint) (*models.OrganizationUser, error) {
	var membership models.OrganizationUser
	if err := s.db.Where("user_id = ? AND organization_id = ?", userID, orgID).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrgForbidden
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &membership, nil
}

// RequireOrgRole resolves the caller's membership and fails unless the
// per-organization role is one of the given roles. Non-members get the
// same error as members with insufficient role.
func (s *organizationService) RequireOrgRole(userID, orgID uint, roles ...models.OrgRole) (*models.OrganizationUser, error) {
	membership, err := s.GetMembership(userID, orgID)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		if membership.OrgRole == role {
			return membership, nil
		}
	}
	return nil, apperrors.ErrOrgForbidden
}

// ListMembers returns an organization's members with user details,
// oldest first.
func (s *organizationService) ListMembers(orgID uint) ([]models.OrganizationUser, error) {
	var members []models.OrganizationUser
	if err := s.db.Preload("User").
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

// InviteMember adds an existing user to the organization by email.
// Requires OWNER or ADMIN.
func (s *organizationService) InviteMember(actorID, orgID uint, email string, role models.OrgRole) (*models.OrganizationUser, error) {
	if _, err := s.RequireOrgRole(actorID, orgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.OrgRoleMember
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	s.db.Model(&models.OrganizationUser{}).
		Where("user_id = ? AND organization_id = ?", user.ID, orgID).
		Count(&count)
	if count > 0 {
		return nil, apperrors.ErrAlreadyMember
	}

	membership := &models.OrganizationUser{
		UserID:         user.ID,
		OrganizationID: orgID,
		OrgRole:        role,
	}
	if err := s.db.Create(membership).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionCreate, "OrganizationUser", membership.ID, orgID, nil,
		map[string]any{"user_id": user.ID, "org_role": role})
	return membership, nil
}

// UpdateMemberRole changes a member's per-organization role. Only an
// OWNER may change roles, and the last OWNER cannot be demoted.
func (s *organizationService) UpdateMemberRole(actorID, orgID, membershipID uint, role models.OrgRole) (*models.OrganizationUser, error) {
	if _, err := s.RequireOrgRole(actorID, orgID, models.OrgRoleOwner); err != nil {
		return nil, err
	}

	membership, err := s.memberInOrg(orgID, membershipID)
	if err != nil {
		return nil, err
	}

	if membership.OrgRole == models.OrgRoleOwner && role != models.OrgRoleOwner {
		if err := s.guardLastOwner(orgID); err != nil {
			return nil, err
		}
	}

	old := map[string]any{"org_role": membership.OrgRole}
	if err := s.db.Model(membership).Update("org_role", role).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionUpdate, "OrganizationUser", membership.ID, orgID, old,
		map[string]any{"org_role": role})
	return membership, nil
}

// RemoveMember removes a member from the organization. Requires OWNER or
// ADMIN; the last OWNER cannot be removed.
func (s *organizationService) RemoveMember(actorID, orgID, membershipID uint) error {
	if _, err := s.RequireOrgRole(actorID, orgID, models.OrgRoleOwner, models.OrgRoleAdmin); err != nil {
		return err
	}

	membership, err := s.memberInOrg(orgID, membershipID)
	if err != nil {
		return err
	}

	if membership.OrgRole == models.OrgRoleOwner {
		if err := s.guardLastOwner(orgID); err != nil {
			return err
		}
	}

	if err := s.db.Delete(membership).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.Log(actorID, models.AuditActionDelete, "OrganizationUser", membershipID, orgID,
		map[string]any{"user_id": membership.UserID, "org_role": membership.OrgRole}, nil)
	return nil
}

// memberInOrg loads a membership row and verifies it belongs to the
// caller's organization. Foreign rows are reported as not found.
func (s *organizationService) memberInOrg(orgID, membershipID uint) (*models.OrganizationUser, error) {
	var membership models.OrganizationUser
	if err := s.db.First(&membership, membershipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if membership.OrganizationID != orgID {
		return nil, apperrors.ErrMemberNotFound
	}
	return &membership, nil
}

// guardLastOwner rejects the operation when the organization has only
// one OWNER left.
func (s *organizationService) guardLastOwner(orgID uint) error {
	var owners int64
	if err := s.db.Model(&models.OrganizationUser{}).
		Where("organization_id = ? AND org_role = ?", orgID, models.OrgRoleOwner).
		Count(&owners).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if owners <= 1 {
		return apperrors.ErrLastOwner
	}
	return nil
}
