package distributionValidator

import (
	"amap/validators"
	"time"

	"github.com/gofiber/fiber/v2"
)

type CreateSubscriptionRequest struct {
	MemberID         uint    `json:"memberId" validate:"required"`
	Type             string  `json:"type" validate:"required,oneof=ANNUAL DISCOVERY"`
	BasketSize       string  `json:"basketSize" validate:"required,oneof=SMALL LARGE"`
	PricingType      string  `json:"pricingType" validate:"omitempty,oneof=NORMAL SOLIDARITY"`
	StartDate        string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate          string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	Price            float64 `json:"price" validate:"gte=0"`
	PickupLocationID uint    `json:"pickupLocationId" validate:"required"`

	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// CreateSubscription validates a subscription creation request
func CreateSubscription() fiber.Handler {
	return validators.Body("validatedCreateSubscription", func(r *CreateSubscriptionRequest, errs map[string]string) {
		r.Start, r.End = validators.ParseDate(r.StartDate), validators.ParseDate(r.EndDate)
		if r.End.Before(r.Start) {
			errs["endDate"] = "End date must not be before start date!"
		}
	})
}

type ListSubscriptionsRequest struct {
	Status   string `json:"status" query:"status" validate:"omitempty,oneof=PENDING ACTIVE PAUSED EXPIRED CANCELLED"`
	MemberID uint   `json:"memberId" query:"memberId"`
	Page     int    `json:"page" query:"page" validate:"gte=0"`
	Limit    int    `json:"limit" query:"limit" validate:"gte=0,lte=200"`
}

// ListSubscriptions validates the subscription listing filters
func ListSubscriptions() fiber.Handler {
	return validators.Query[ListSubscriptionsRequest]("validatedListSubscriptions", nil)
}

type PauseRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"max=255"`

	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// PauseSubscription validates a pause window. Ordering and overlap are
// checked by the engine.
func PauseSubscription() fiber.Handler {
	return validators.Body("validatedPause", func(r *PauseRequest, _ map[string]string) {
		r.Start, r.End = validators.ParseDate(r.StartDate), validators.ParseDate(r.EndDate)
	})
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// CancelSubscription validates a cancellation request
func CancelSubscription() fiber.Handler {
	return validators.Body[CancelRequest]("validatedCancel", nil)
}

type PaymentRequest struct {
	Amount    *float64 `json:"amount" validate:"required_without=PaymentID,omitempty,gt=0"`
	PaymentID string   `json:"paymentId" validate:"required_without=Amount,max=100"`
}

// RecordPayment validates a payment: either an explicit amount or the id of
// a payment the processor authorized
func RecordPayment() fiber.Handler {
	return validators.Body[PaymentRequest]("validatedPayment", nil)
}

type StatusQuery struct {
	Date string `json:"date" query:"date" validate:"omitempty,datetime=2006-01-02"`

	AsOf time.Time `json:"-"`
}

// StatusAt validates the optional ?date= of status and roster lookups
func StatusAt() fiber.Handler {
	return validators.Query("validatedStatusAt", func(r *StatusQuery, _ map[string]string) {
		r.AsOf = validators.ParseDate(r.Date)
	})
}

type SyncRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`

	AsOf time.Time `json:"-"`
}

// SyncStatuses validates a manual status sync request
func SyncStatuses() fiber.Handler {
	return validators.Body("validatedSync", func(r *SyncRequest, _ map[string]string) {
		r.AsOf = validators.ParseDate(r.Date)
	})
}
