package model

import "time"

// UserStatus represents user status
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// Portal user roles
const (
	RoleSystemAdmin      = "SystemAdmin"
	RoleAssociationAdmin = "AssociationAdmin"
	RoleMember           = "Member"
)

// User represents a portal user. Non-admin users are tied to legal entities
// through the contacts table (matched by email).
type User struct {
	ID           int        `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Roles        string     `gorm:"type:varchar(255);default:'Member'" json:"roles"` // comma-separated
	Status       UserStatus `gorm:"type:enum('active','inactive');default:'active'" json:"status"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
