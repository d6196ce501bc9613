package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginTracking records one successful back-office login
type LoginTracking struct {
	gorm.Model
	MemberID  uint      `gorm:"not null;index" json:"memberId"`
	IPAddress string    `json:"ipAddress"`
	Device    string    `json:"device"`
	Timestamp time.Time `json:"timestamp"`
}

func (LoginTracking) TableName() string {
	return "login_tracking"
}
