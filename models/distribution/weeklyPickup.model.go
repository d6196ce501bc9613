package distribution

import (
	"time"
)

// WeeklyPickup records whether a subscription collected its basket for one
// week. At most one row exists per (SubscriptionID, BasketID); rows are
// never deleted.
type WeeklyPickup struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	SubscriptionID uint      `gorm:"not null;uniqueIndex:idx_weekly_pickups_pair" json:"subscriptionId"`
	BasketID       uint      `gorm:"not null;uniqueIndex:idx_weekly_pickups_pair;index" json:"basketId"`
	WasPickedUp    bool      `gorm:"not null;default:false" json:"wasPickedUp"`
	Notes          string    `gorm:"type:text;default:''" json:"notes"`
}

func (WeeklyPickup) TableName() string {
	return "weekly_pickups"
}
