package model

import "time"

// Contact represents a person attached to a legal entity. The authorization
// guard resolves actor identity (JWT email) to entity ownership through
// active contacts.
type Contact struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	LegalEntityID string    `gorm:"column:legal_entity_id;type:char(36);not null;index" json:"legalEntityId"`
	Email         string    `gorm:"type:varchar(255);not null;index" json:"email"`
	FullName      string    `gorm:"column:full_name;type:varchar(255)" json:"fullName"`
	IsActive      bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}
