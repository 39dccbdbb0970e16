package models

// Audit actions.
const (
	AuditActionCreate      = "CREATE"
	AuditActionUpdate      = "UPDATE"
	AuditActionDelete      = "DELETE"
	AuditActionLogin       = "LOGIN"
	AuditActionLoginFailed = "LOGIN_FAILED"
	AuditActionLogout      = "LOGOUT"
)

// AuditLog records mutations and authentication events. Rows are
// append-only and written best-effort: a failed audit write never aborts
// the operation that triggered it.
type AuditLog struct {
	Base
	UserID         uint   `gorm:"not null;index" json:"user_id"`
	Action         string `gorm:"not null;index" json:"action"`
	Entity         string `gorm:"not null;index" json:"entity"`
	EntityID       uint   `json:"entity_id"`
	OldValue       string `json:"old_value,omitempty"`
	NewValue       string `json:"new_value,omitempty"`
	OrganizationID uint   `gorm:"index" json:"organization_id,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
