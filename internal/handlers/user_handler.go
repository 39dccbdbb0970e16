package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/models"
	"costwise/internal/pagination"
	"costwise/internal/services"
)

// UserHandler handles platform-level user administration. All routes
// require the platform ADMIN role.
type UserHandler struct {
	users services.UserServicer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users services.UserServicer) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUserRequest represents the admin user creation payload
type CreateUserRequest struct {
	Email    string      `json:"email" binding:"required,email,max=255"`
	Password string      `json:"password" binding:"required,min=8,max=128"`
	Name     string      `json:"name" binding:"max=200"`
	Role     models.Role `json:"role" binding:"required,platform_role"`
}

// UpdateUserRequest represents the admin user update payload
type UpdateUserRequest struct {
	Name     *string      `json:"name" binding:"omitempty,max=200"`
	Role     *models.Role `json:"role" binding:"omitempty,platform_role"`
	IsActive *bool        `json:"is_active"`
}

// ResetPasswordRequest represents the admin password reset payload
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// List returns all users, paginated
// @Summary     List users
// @Description List all user accounts
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number" default(1)
// @Param       page_size query int false "Page size" default(50)
// @Success     200 {object} map[string]interface{} "Users"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	page.Defaults()

	users, err := h.users.ListUsers(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// Create creates a user account
// @Summary     Create user
// @Description Create a user account with an explicit platform role
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateUserRequest true "User data"
// @Success     201 {object} UserResponse "User created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Failure     409 {object} ErrorResponse "Duplicate email"
// @Router      /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.users.CreateUser(req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}})
}

// Update modifies a user account
// @Summary     Update user
// @Description Update a user's name, role or active flag
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int               true "User ID"
// @Param       request body UpdateUserRequest true "Fields to update"
// @Success     200 {object} UserResponse "User updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	user, err := h.users.UpdateUser(auth.UserID, userID, req.Name, req.Role, req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}})
}

// ResetPassword sets a new password for a user
// @Summary     Reset password
// @Description Set a new password for a user. Clears any active lockout.
// @Tags        users
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                  true "User ID"
// @Param       request body ResetPasswordRequest true "New password"
// @Success     204 "Password reset"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /admin/users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.users.ResetPassword(auth.UserID, userID, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete removes a user account
// @Summary     Delete user
// @Description Delete a user account. Admins cannot delete themselves.
// @Tags        users
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "User ID"
// @Success     204 "User deleted"
// @Failure     403 {object} ErrorResponse "Admin only or self delete"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	auth, err := getAuth(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	userID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.users.DeleteUser(auth.UserID, userID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
