package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/metrics"
	"costwise/internal/middleware"
	"costwise/internal/models"
	"costwise/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users services.UserServicer
	orgs  services.OrganizationServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users services.UserServicer, orgs services.OrganizationServicer) *AuthHandler {
	return &AuthHandler{users: users, orgs: orgs}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Name     string `json:"name" binding:"max=200"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AccountStatusRequest represents the lockout status probe payload
type AccountStatusRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID    uint        `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// AuthResponse represents the authentication response with tokens
type AuthResponse struct {
	AccessToken    string       `json:"access_token"`
	RefreshToken   string       `json:"refresh_token"`
	OrganizationID uint         `json:"organization_id,omitempty"`
	User           UserResponse `json:"user"`
}

// issueTokens generates, stores and returns an access/refresh token pair
// bound to the given organization selection.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User, orgID uint, status int) {
	accessToken, err := middleware.GenerateAccessToken(user, orgID)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	refreshToken, err := middleware.GenerateRefreshToken(user, orgID)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if err := h.users.StoreRefreshTokenHash(user.ID, middleware.HashToken(refreshToken)); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(status, AuthResponse{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		OrganizationID: orgID,
		User: UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	})
}

// defaultOrganization picks the caller's oldest membership as the
// initial organization selection, 0 when the user has none yet.
func (h *AuthHandler) defaultOrganization(userID uint) uint {
	memberships, err := h.orgs.GetUserOrganizations(userID)
	if err != nil || len(memberships) == 0 {
		return 0
	}
	return memberships[0].ID
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user with email and password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and tokens generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Duplicate email"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.users.CreateUser(req.Email, req.Password, req.Name, models.RoleUser)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.issueTokens(c, user, 0, http.StatusCreated)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token pair. Repeated failures lock the account temporarily.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and tokens generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     423 {object} ErrorResponse "Account locked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.users.AttemptLogin(req.Email, req.Password)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrAccountLocked.Code {
			metrics.CountLogin("locked")
		} else {
			metrics.CountLogin("failed")
		}
		respondWithError(c, err)
		return
	}

	metrics.CountLogin("success")
	h.issueTokens(c, user, h.defaultOrganization(user.ID), http.StatusOK)
}

// RefreshToken exchanges a valid refresh token for a new token pair
// @Summary     Refresh tokens
// @Description Exchange a refresh token for a new access/refresh token pair
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RefreshRequest true "Refresh token"
// @Success     200 {object} AuthResponse "New token pair"
// @Failure     401 {object} ErrorResponse "Invalid refresh token"
// @Router      /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	claims, err := middleware.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}

	storedHash, err := h.users.GetRefreshTokenHash(claims.UserID)
	if err != nil || storedHash != middleware.HashToken(req.RefreshToken) {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(claims.UserID)
	if err != nil {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}

	h.issueTokens(c, user, claims.OrganizationID, http.StatusOK)
}

// Logout invalidates the stored refresh token and records the event
// @Summary     Logout
// @Description Invalidate the caller's refresh token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     204 "Logged out"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.users.StoreRefreshTokenHash(auth.UserID, ""); err != nil {
		respondWithError(c, err)
		return
	}
	h.users.RecordLogout(auth.UserID)

	c.Status(http.StatusNoContent)
}

// AccountStatus reports the lockout state of an account
// @Summary     Check account status
// @Description Report lockout state and remaining attempts for an email without consuming an attempt
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body AccountStatusRequest true "Account email"
// @Success     200 {object} services.AccountStatus "Account status"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /auth/status [post]
func (h *AuthHandler) AccountStatus(c *gin.Context) {
	var req AccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	status, err := h.users.CheckAccountStatus(req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetProfile returns the user's profile
// @Summary     Get user profile
// @Description Get the authenticated user's profile information
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.users.GetUserByID(auth.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": UserResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
		"organization_id": auth.OrgID,
	})
}
