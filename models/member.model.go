package models

import (
	"time"

	"gorm.io/gorm"
)

// Member role values
const (
	RoleMember     = "MEMBER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER-ADMIN"
)

// Member is an AMAP adherent owning one or more subscriptions
type Member struct {
	gorm.Model
	FirstName  string `gorm:"not null;default:''" json:"firstName"`
	LastName   string `gorm:"not null;default:'';index" json:"lastName"`
	Email      string `gorm:"unique;not null" json:"email"`
	Mobile     string `gorm:"default:''" json:"mobile"`
	Role       string `gorm:"type:varchar(20);default:'MEMBER'" json:"role"` // MEMBER, ADMIN, SUPER-ADMIN
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`

	// back-office credentials, only set for ADMIN and SUPER-ADMIN
	Password            string     `json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	BlockedUntil        *time.Time `json:"-"`
	LastLogin           *time.Time `json:"lastLogin,omitempty"`
}

func (Member) TableName() string {
	return "members"
}
