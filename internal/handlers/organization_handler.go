package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/middleware"
	"costwise/internal/models"
	"costwise/internal/services"
)

// OrganizationHandler handles tenant and membership requests
type OrganizationHandler struct {
	orgs  services.OrganizationServicer
	users services.UserServicer
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(orgs services.OrganizationServicer, users services.UserServicer) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, users: users}
}

// CreateOrganizationRequest represents the organization creation payload
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,min=2,max=200"`
}

// InviteMemberRequest represents the member invitation payload
type InviteMemberRequest struct {
	Email string         `json:"email" binding:"required,email"`
	Role  models.OrgRole `json:"role" binding:"required,org_role"`
}

// UpdateMemberRoleRequest represents the member role change payload
type UpdateMemberRoleRequest struct {
	Role models.OrgRole `json:"role" binding:"required,org_role"`
}

// SwitchOrganizationRequest represents the active-organization switch payload
type SwitchOrganizationRequest struct {
	OrganizationID uint `json:"organization_id" binding:"required"`
}

// MemberResponse represents one organization membership
type MemberResponse struct {
	ID      uint           `json:"id"`
	UserID  uint           `json:"user_id"`
	Email   string         `json:"email"`
	Name    string         `json:"name"`
	OrgRole models.OrgRole `json:"org_role"`
}

func toMemberResponse(m *models.OrganizationUser) MemberResponse {
	return MemberResponse{
		ID:      m.ID,
		UserID:  m.UserID,
		Email:   m.User.Email,
		Name:    m.User.Name,
		OrgRole: m.OrgRole,
	}
}

// Create creates a new organization owned by the caller
// @Summary     Create organization
// @Description Create an organization; the caller becomes its OWNER
// @Tags        organizations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateOrganizationRequest true "Organization data"
// @Success     201 {object} models.Organization "Organization created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	org, err := h.orgs.CreateOrganization(auth.UserID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"organization": org})
}

// ListMine lists the caller's organizations
// @Summary     List organizations
// @Description List the organizations the caller belongs to, with their role in each
// @Tags        organizations
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Organizations"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /organizations [get]
func (h *OrganizationHandler) ListMine(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	memberships, err := h.orgs.GetUserOrganizations(auth.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": memberships})
}

// GetCurrent returns the caller's active organization
// @Summary     Get current organization
// @Description Get the organization selected in the caller's token
// @Tags        organizations
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Organization and role"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "No organization selected"
// @Router      /organizations/current [get]
func (h *OrganizationHandler) GetCurrent(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	membership, err := h.orgs.GetMembership(auth.UserID, auth.OrgID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	org, err := h.orgs.GetOrganization(auth.OrgID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization": org,
		"org_role":     membership.OrgRole,
	})
}

// Switch changes the caller's active organization and mints a new token pair
// @Summary     Switch organization
// @Description Switch the caller's active organization. Returns a new token pair bound to it.
// @Tags        organizations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SwitchOrganizationRequest true "Target organization"
// @Success     200 {object} AuthResponse "New token pair"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member of the organization"
// @Router      /organizations/switch [post]
func (h *OrganizationHandler) Switch(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SwitchOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if _, err := h.orgs.GetMembership(auth.UserID, req.OrganizationID); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.users.GetUserByID(auth.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accessToken, err := middleware.GenerateAccessToken(user, req.OrganizationID)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(user, req.OrganizationID)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if err := h.users.StoreRefreshTokenHash(user.ID, middleware.HashToken(refreshToken)); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		OrganizationID: req.OrganizationID,
		User: UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	})
}

// ListMembers lists the active organization's members
// @Summary     List members
// @Description List the members of the caller's active organization
// @Tags        organizations
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Members"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /organizations/members [get]
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.orgs.GetMembership(auth.UserID, auth.OrgID); err != nil {
		respondWithError(c, err)
		return
	}

	members, err := h.orgs.ListMembers(auth.OrgID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, toMemberResponse(&members[i]))
	}

	c.JSON(http.StatusOK, gin.H{"members": out})
}

// Invite adds an existing user to the active organization
// @Summary     Invite member
// @Description Add a registered user to the organization by email. Requires OWNER or ADMIN.
// @Tags        organizations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body InviteMemberRequest true "Invitation data"
// @Success     201 {object} MemberResponse "Member added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /organizations/members [post]
func (h *OrganizationHandler) Invite(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.orgs.InviteMember(auth.UserID, auth.OrgID, req.Email, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"member": toMemberResponse(member)})
}

// UpdateMemberRole changes a member's role
// @Summary     Update member role
// @Description Change a member's role in the organization. Requires OWNER. The last OWNER cannot be demoted.
// @Tags        organizations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                     true "Membership ID"
// @Param       request body UpdateMemberRoleRequest true "New role"
// @Success     200 {object} MemberResponse "Member updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Would remove the last owner"
// @Router      /organizations/members/{id} [put]
func (h *OrganizationHandler) UpdateMemberRole(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	membershipID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.orgs.UpdateMemberRole(auth.UserID, auth.OrgID, membershipID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"member": toMemberResponse(member)})
}

// RemoveMember removes a member from the organization
// @Summary     Remove member
// @Description Remove a member from the organization. Requires OWNER or ADMIN. The last OWNER cannot be removed.
// @Tags        organizations
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Membership ID"
// @Success     204 "Member removed"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Would remove the last owner"
// @Router      /organizations/members/{id} [delete]
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	auth, err := requireOrganization(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	membershipID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.orgs.RemoveMember(auth.UserID, auth.OrgID, membershipID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
