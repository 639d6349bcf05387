package model

import (
	"time"

	"gorm.io/datatypes"
)

// AccessRequest statuses
const (
	AccessRequestStatusPending  = "pending"
	AccessRequestStatusApproved = "approved"
	AccessRequestStatusDenied   = "denied"
	AccessRequestStatusRevoked  = "revoked"
)

// DecidedByAutoApproved marks requests auto-approved for open-access endpoints
const DecidedByAutoApproved = "AUTO_APPROVED"

// AccessRequest represents a consumer entity's request to use a published endpoint
type AccessRequest struct {
	ID               string `gorm:"type:char(36);primaryKey" json:"id"`
	EndpointID       string `gorm:"column:endpoint_id;type:char(36);not null;index" json:"endpointId"`
	ConsumerEntityID string `gorm:"column:consumer_entity_id;type:char(36);not null;index" json:"consumerEntityId"`
	ProviderEntityID string `gorm:"column:provider_entity_id;type:char(36);not null;index" json:"providerEntityId"`

	Status          string         `gorm:"type:varchar(10);not null;default:pending;index" json:"status"`
	RequestedScopes datatypes.JSON `gorm:"column:requested_scopes;type:json" json:"requestedScopes"`
	ApprovedScopes  datatypes.JSON `gorm:"column:approved_scopes;type:json" json:"approvedScopes"`

	RequestedAt  time.Time  `gorm:"column:requested_at;not null" json:"requestedAt"`
	DecidedAt    *time.Time `gorm:"column:decided_at" json:"decidedAt"`
	DecidedBy    *string    `gorm:"column:decided_by;type:varchar(255)" json:"decidedBy"`
	DenialReason *string    `gorm:"column:denial_reason;type:varchar(512)" json:"denialReason"`

	IsDeleted bool      `gorm:"not null;default:false;index" json:"isDeleted"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for AccessRequest
func (AccessRequest) TableName() string {
	return "endpoint_access_requests"
}
