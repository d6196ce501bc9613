package distribution

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionPause is a date range (both ends inclusive) during which the
// subscription receives no basket.
type SubscriptionPause struct {
	gorm.Model
	SubscriptionID uint      `gorm:"not null;index" json:"subscriptionId"`
	StartDate      time.Time `gorm:"not null;type:date" json:"startDate"`
	EndDate        time.Time `gorm:"not null;type:date" json:"endDate"`
	Reason         string    `gorm:"type:text;default:''" json:"reason"`
}

func (SubscriptionPause) TableName() string {
	return "subscription_pauses"
}
