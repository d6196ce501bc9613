package distribution

import (
	"amap/models"
	"time"

	"gorm.io/gorm"
)

// Status is the persisted (audit) status of a subscription
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// SubscriptionType enum values
const (
	TypeAnnual    = "ANNUAL"
	TypeDiscovery = "DISCOVERY"
)

// BasketSize enum values
const (
	BasketSmall = "SMALL"
	BasketLarge = "LARGE"
)

// PricingType enum values
const (
	PricingNormal     = "NORMAL"
	PricingSolidarity = "SOLIDARITY"
)

// Subscription entitles a member to one basket per distribution week
// between StartDate and EndDate (both inclusive).
type Subscription struct {
	gorm.Model
	Number           string     `gorm:"not null;uniqueIndex;type:varchar(40)" json:"number"`
	MemberID         uint       `gorm:"not null;index" json:"memberId"`
	Type             string     `gorm:"not null;type:varchar(20)" json:"type"`                        // ANNUAL, DISCOVERY
	BasketSize       string     `gorm:"not null;type:varchar(10)" json:"basketSize"`                  // SMALL, LARGE
	PricingType      string     `gorm:"not null;type:varchar(20);default:'NORMAL'" json:"pricingType"` // NORMAL, SOLIDARITY
	Status           Status     `gorm:"not null;type:varchar(20);default:'PENDING';index" json:"status"`
	StartDate        time.Time  `gorm:"not null;type:date" json:"startDate"`
	EndDate          time.Time  `gorm:"not null;type:date" json:"endDate"`
	Price            float64    `gorm:"not null;default:0" json:"price"`
	PaidAmount       float64    `gorm:"not null;default:0" json:"paidAmount"`
	PickupLocationID uint       `gorm:"not null;index" json:"pickupLocationId"`
	CancelledAt      *time.Time `json:"cancelledAt"`
	CancelReason     string     `gorm:"type:text;default:''" json:"cancelReason"`

	// Relations
	Member         models.Member         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	PickupLocation models.PickupLocation `gorm:"foreignKey:PickupLocationID" json:"pickupLocation,omitempty"`
	Pauses         []SubscriptionPause   `gorm:"foreignKey:SubscriptionID" json:"pauses,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
