package models

// AuditLog records sensitive operations for security and compliance.
type AuditLog struct {
	Base
	UserID       string `gorm:"not null;index" json:"user_id"`
	OperationID  string `gorm:"index" json:"operation_id,omitempty"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
