// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("platform_role", validatePlatformRole)
		_ = v.RegisterValidation("org_role", validateOrgRole)
		_ = v.RegisterValidation("category_scope", validateCategoryScope)
		_ = v.RegisterValidation("audit_action", validateAuditAction)
		_ = v.RegisterValidation("stats_view", validateStatsView)
	}
}

func validatePlatformRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "ADMIN", "USER":
		return true
	}
	return false
}

func validateOrgRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "OWNER", "ADMIN", "MEMBER":
		return true
	}
	return false
}

func validateCategoryScope(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "FIXED", "VARIABLE":
		return true
	}
	return false
}

func validateAuditAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "CREATE", "UPDATE", "DELETE", "LOGIN", "LOGIN_FAILED", "LOGOUT":
		return true
	}
	return false
}

func validateStatsView(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "ALL", "FIXED", "SHOP":
		return true
	}
	return false
}
