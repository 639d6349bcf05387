package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit outcomes
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
	AuditOutcomeDenied  = "denied"
)

// AuditEvent records a state-changing operation (or an attempt at one).
// Writes are fire-and-forget: an audit failure never fails the operation.
type AuditEvent struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorEmail   string         `gorm:"column:actor_email;type:varchar(255);not null;index" json:"actorEmail"`
	ActorRoles   string         `gorm:"column:actor_roles;type:varchar(255)" json:"actorRoles"`
	Action       string         `gorm:"type:varchar(64);not null;index" json:"action"`
	ResourceType string         `gorm:"column:resource_type;type:varchar(40);not null" json:"resourceType"`
	ResourceID   string         `gorm:"column:resource_id;type:char(36);index" json:"resourceId"`
	Outcome      string         `gorm:"type:varchar(10);not null" json:"outcome"`
	Detail       datatypes.JSON `gorm:"type:json" json:"detail"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for AuditEvent
func (AuditEvent) TableName() string {
	return "audit_events"
}
