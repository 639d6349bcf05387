package model

import (
	"time"

	"gorm.io/datatypes"
)

// ConsumerGrant represents the materialized permission created when an
// access request is approved. A revoked grant (is_active=false) is terminal.
type ConsumerGrant struct {
	ID               string `gorm:"type:char(36);primaryKey" json:"id"`
	AccessRequestID  string `gorm:"column:access_request_id;type:char(36);not null;uniqueIndex" json:"accessRequestId"`
	EndpointID       string `gorm:"column:endpoint_id;type:char(36);not null;index" json:"endpointId"`
	ConsumerEntityID string `gorm:"column:consumer_entity_id;type:char(36);not null;index" json:"consumerEntityId"`

	GrantedScopes datatypes.JSON `gorm:"column:granted_scopes;type:json" json:"grantedScopes"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true;index" json:"isActive"`

	GrantedAt        time.Time  `gorm:"column:granted_at;not null" json:"grantedAt"`
	RevokedAt        *time.Time `gorm:"column:revoked_at" json:"revokedAt"`
	RevokedBy        *string    `gorm:"column:revoked_by;type:varchar(255)" json:"revokedBy"`
	RevocationReason *string    `gorm:"column:revocation_reason;type:varchar(512)" json:"revocationReason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for ConsumerGrant
func (ConsumerGrant) TableName() string {
	return "endpoint_consumer_grants"
}
