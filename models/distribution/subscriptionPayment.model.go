package distribution

import "time"

// SubscriptionPayment records a processor payment applied to a subscription.
// PaymentID is unique so one processor payment is never counted twice.
type SubscriptionPayment struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	SubscriptionID uint      `gorm:"not null;index" json:"subscriptionId"`
	PaymentID      string    `gorm:"not null;uniqueIndex;type:varchar(100)" json:"paymentId"`
	Amount         float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	ActorID        uint      `gorm:"not null;default:0" json:"actorId"`
}

func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}
