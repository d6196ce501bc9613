package distribution

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HistoryAction enum values
const (
	ActionCreated        = "CREATED"
	ActionActivated      = "ACTIVATED"
	ActionPaused         = "PAUSED"
	ActionPauseScheduled = "PAUSE_SCHEDULED"
	ActionPauseRemoved   = "PAUSE_REMOVED"
	ActionResumed        = "RESUMED"
	ActionCancelled      = "CANCELLED"
	ActionPaymentAdded   = "PAYMENT_RECORDED"
	ActionReconciled     = "STATUS_RECONCILED"
)

// ActorType enum values
const (
	ActorAdmin  = "ADMIN"
	ActorSystem = "SYSTEM"
)

// SubscriptionHistory is the audit log of every action taken on a subscription
type SubscriptionHistory struct {
	gorm.Model
	SubscriptionID uint           `gorm:"not null;index" json:"subscriptionId"`
	Action         string         `gorm:"not null;type:varchar(30)" json:"action"`
	FromStatus     Status         `gorm:"type:varchar(20)" json:"fromStatus"`
	ToStatus       Status         `gorm:"type:varchar(20)" json:"toStatus"`
	ActorID        uint           `gorm:"not null;default:0" json:"actorId"`
	ActorType      string         `gorm:"not null;type:varchar(10)" json:"actorType"` // ADMIN, SYSTEM
	Comments       string         `gorm:"type:text" json:"comments"`
	Metadata       datatypes.JSON `json:"metadata"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}
