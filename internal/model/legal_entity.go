package model

import "time"

// LegalEntity represents a registered trade-network member organisation
type LegalEntity struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	KvkNumber  *string    `gorm:"column:kvk_number;type:varchar(20);index" json:"kvkNumber"`
	LEICode    *string    `gorm:"column:lei_code;type:varchar(20)" json:"leiCode"`
	EORINumber *string    `gorm:"column:eori_number;type:varchar(20)" json:"eoriNumber"`
	IsDeleted  bool       `gorm:"not null;default:false;index" json:"isDeleted"`
	DeletedAt  *time.Time `gorm:"column:deleted_at" json:"deletedAt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for LegalEntity
func (LegalEntity) TableName() string {
	return "legal_entities"
}
