package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/logger"
	"costwise/internal/middleware"
	"costwise/internal/models"
)

// authContext is the caller identity and tenant selection resolved from
// the access token by the auth middleware.
type authContext struct {
	UserID uint
	Email  string
	Role   models.Role
	OrgID  uint
}

// getAuth extracts the authenticated caller from the Gin context.
// Returns ErrUnauthorized if the auth middleware did not run.
func getAuth(c *gin.Context) (authContext, error) {
	userID, exists := c.Get(middleware.CtxUserID)
	if !exists {
		return authContext{}, apperrors.ErrUnauthorized
	}
	auth := authContext{UserID: userID.(uint)}
	if email, ok := c.Get(middleware.CtxEmail); ok {
		auth.Email = email.(string)
	}
	if role, ok := c.Get(middleware.CtxRole); ok {
		auth.Role = role.(models.Role)
	}
	if orgID, ok := c.Get(middleware.CtxOrgID); ok {
		auth.OrgID = orgID.(uint)
	}
	return auth, nil
}

// requireOrganization resolves the caller and fails when the token
// carries no current-organization selection.
func requireOrganization(c *gin.Context) (authContext, error) {
	auth, err := getAuth(c)
	if err != nil {
		return authContext{}, err
	}
	if auth.OrgID == 0 {
		return authContext{}, apperrors.ErrOrganizationRequired
	}
	return auth, nil
}

// parsePathID parses a uint path parameter.
// Returns ErrInvalidInput if the parameter is not a valid positive integer.
//
//nolint:unparam // param is intentionally generic for reuse across handlers with different path params
func parsePathID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return uint(id), nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, message, and details.
// Otherwise it logs the unexpected error and returns a generic internal
// server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, gin.H{"error": appErr})
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{"error": apperrors.ErrInternalServer})
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
