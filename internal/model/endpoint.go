package model

import (
	"time"

	"gorm.io/datatypes"
)

// Endpoint verification statuses
const (
	VerificationStatusPending  = "PENDING"
	VerificationStatusSent     = "SENT"
	VerificationStatusVerified = "VERIFIED"
	VerificationStatusFailed   = "FAILED"
	VerificationStatusExpired  = "EXPIRED"
)

// Endpoint publication statuses
const (
	PublicationStatusDraft       = "draft"
	PublicationStatusPublished   = "published"
	PublicationStatusUnpublished = "unpublished"
)

// Endpoint access models
const (
	AccessModelOpen       = "open"
	AccessModelRestricted = "restricted"
	AccessModelPrivate    = "private"
)

// Endpoint represents an M2M communication channel owned by a legal entity
type Endpoint struct {
	ID            string `gorm:"type:char(36);primaryKey" json:"id"`
	LegalEntityID string `gorm:"column:legal_entity_id;type:char(36);not null;index" json:"legalEntityId"`

	Name         string  `gorm:"column:endpoint_name;type:varchar(255);not null" json:"endpointName"`
	URL          string  `gorm:"column:endpoint_url;type:varchar(1024);not null" json:"endpointUrl"`
	Description  *string `gorm:"type:varchar(1024)" json:"description"`
	EndpointType *string `gorm:"column:endpoint_type;type:varchar(64)" json:"endpointType"`
	DataCategory *string `gorm:"column:data_category;type:varchar(64)" json:"dataCategory"`
	AuthMethod   *string `gorm:"column:auth_method;type:varchar(64)" json:"authMethod"`

	// Connectivity test results
	LastTestAt           *time.Time     `gorm:"column:last_test_at" json:"lastTestAt"`
	LastConnectionStatus *string        `gorm:"column:last_connection_status;type:varchar(20)" json:"lastConnectionStatus"` // success|warning|failed
	TestResultData       datatypes.JSON `gorm:"column:test_result_data;type:json" json:"testResultData"`

	// Lifecycle flags
	IsActive           bool       `gorm:"column:is_active;not null;default:false;index" json:"isActive"`
	ActivationDate     *time.Time `gorm:"column:activation_date" json:"activationDate"`
	DeactivationDate   *time.Time `gorm:"column:deactivation_date" json:"deactivationDate"`
	DeactivationReason *string    `gorm:"column:deactivation_reason;type:varchar(255)" json:"deactivationReason"`

	// Verification state
	VerificationStatus    string     `gorm:"column:verification_status;type:varchar(10);not null;default:PENDING;index" json:"verificationStatus"`
	VerificationToken     *string    `gorm:"column:verification_token;type:char(64)" json:"-"`
	VerificationSentAt    *time.Time `gorm:"column:verification_sent_at" json:"verificationSentAt"`
	VerificationExpiresAt *time.Time `gorm:"column:verification_expires_at" json:"verificationExpiresAt"`
	ConnectionTestDetails *string    `gorm:"column:connection_test_details;type:varchar(1024)" json:"connectionTestDetails"`

	// Publication state
	PublicationStatus string     `gorm:"column:publication_status;type:varchar(15);not null;default:draft;index" json:"publicationStatus"`
	PublishedAt       *time.Time `gorm:"column:published_at" json:"publishedAt"`

	AccessModel string `gorm:"column:access_model;type:varchar(15);not null;default:restricted" json:"accessModel"`

	IsDeleted bool       `gorm:"not null;default:false;index" json:"isDeleted"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deletedAt"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for Endpoint
func (Endpoint) TableName() string {
	return "legal_entity_endpoints"
}
