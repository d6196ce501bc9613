package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amap/models"
	"amap/models/distribution"
	"amap/services/interval"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionService drives the subscription state machine. Every mutation
// runs in one transaction holding a row lock on the subscription, first
// bringing the persisted status in line with today's pause windows and
// EndDate, then applying the requested transition.
type SubscriptionService struct {
	db     *gorm.DB
	pauses *PauseManager
	clock  Clock
}

func NewSubscriptionService(db *gorm.DB, pauses *PauseManager, clock Clock) *SubscriptionService {
	return &SubscriptionService{db: db, pauses: pauses, clock: clock}
}

// NewSubscription holds the fields of an approved subscription request.
type NewSubscription struct {
	MemberID         uint
	Type             string
	BasketSize       string
	PricingType      string
	StartDate        time.Time
	EndDate          time.Time
	Price            float64
	PickupLocationID uint
}

// SubscriptionFilter narrows List. Zero values mean "any".
type SubscriptionFilter struct {
	Status   distribution.Status
	MemberID uint
	Page     int
	Limit    int
}

var (
	validTypes       = map[string]bool{distribution.TypeAnnual: true, distribution.TypeDiscovery: true}
	validSizes       = map[string]bool{distribution.BasketSmall: true, distribution.BasketLarge: true}
	validPricingKind = map[string]bool{distribution.PricingNormal: true, distribution.PricingSolidarity: true}
)

// Create stores a PENDING subscription and assigns its number.
func (s *SubscriptionService) Create(ctx context.Context, in NewSubscription) (*distribution.Subscription, error) {
	if in.PricingType == "" {
		in.PricingType = distribution.PricingNormal
	}
	switch {
	case !validTypes[in.Type]:
		return nil, invalidInput("type must be ANNUAL or DISCOVERY")
	case !validSizes[in.BasketSize]:
		return nil, invalidInput("basket size must be SMALL or LARGE")
	case !validPricingKind[in.PricingType]:
		return nil, invalidInput("pricing type must be NORMAL or SOLIDARITY")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return nil, invalidInput("start and end dates are required")
	case !interval.Valid(in.StartDate, in.EndDate):
		return nil, invalidInput("start date must not be after end date")
	case in.Price < 0:
		return nil, invalidInput("price must not be negative")
	}

	sub := distribution.Subscription{
		// placeholder keeps the unique index satisfied until the id is known
		Number:           uuid.NewString(),
		MemberID:         in.MemberID,
		Type:             in.Type,
		BasketSize:       in.BasketSize,
		PricingType:      in.PricingType,
		Status:           distribution.StatusPending,
		StartDate:        interval.Day(in.StartDate),
		EndDate:          interval.Day(in.EndDate),
		Price:            in.Price,
		PickupLocationID: in.PickupLocationID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.First(&member, in.MemberID).Error; err != nil {
			return notFound(err, "member", in.MemberID)
		}
		var location models.PickupLocation
		if err := tx.First(&location, in.PickupLocationID).Error; err != nil {
			return notFound(err, "pickup location", in.PickupLocationID)
		}

		if err := tx.Omit(clause.Associations).Create(&sub).Error; err != nil {
			return err
		}
		sub.Number = fmt.Sprintf("AMAP-%d-%05d", sub.StartDate.Year(), sub.ID)
		if err := tx.Model(&sub).Omit(clause.Associations).Update("number", sub.Number).Error; err != nil {
			return err
		}
		return recordHistory(ctx, tx, sub.ID, distribution.ActionCreated, "", sub.Status, "", nil)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Activate moves a PENDING subscription to ACTIVE.
func (s *SubscriptionService) Activate(ctx context.Context, id uint) (*distribution.Subscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
		if sub.Status != distribution.StatusPending {
			return transitionError("activate", sub.Status)
		}
		return setStatus(ctx, tx, sub, distribution.StatusActive, distribution.ActionActivated, "", nil)
	})
}

// Pause attaches a pause window to an ACTIVE subscription. The persisted
// status becomes PAUSED when the window covers today; a window starting
// later is recorded as a scheduled pause and the status stays ACTIVE until
// a later reconciliation observes it.
func (s *SubscriptionService) Pause(ctx context.Context, id uint, startDate, endDate time.Time, reason string) (*distribution.Subscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
		if sub.Status != distribution.StatusActive {
			return transitionError("pause", sub.Status)
		}

		window, err := s.pauses.WithTx(tx).CreateWindow(ctx, sub, startDate, endDate, reason)
		if err != nil {
			return err
		}
		sub.Pauses = append(sub.Pauses, *window)

		meta := map[string]interface{}{
			"pauseId":   window.ID,
			"startDate": window.StartDate.Format(time.DateOnly),
			"endDate":   window.EndDate.Format(time.DateOnly),
		}
		if target := persistedTarget(sub, today); target == distribution.StatusPaused {
			return setStatus(ctx, tx, sub, target, distribution.ActionPaused, reason, meta)
		}
		return recordHistory(ctx, tx, sub.ID, distribution.ActionPauseScheduled, sub.Status, sub.Status, reason, meta)
	})
}

// Resume ends the pause window open today and sets the subscription back to
// ACTIVE. The window now ends yesterday, so the resume day itself is served.
func (s *SubscriptionService) Resume(ctx context.Context, id uint) (*distribution.Subscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
		if sub.Status != distribution.StatusPaused {
			return transitionError("resume", sub.Status)
		}

		pauses := s.pauses.WithTx(tx)
		window, err := pauses.CloseOpenWindow(ctx, sub, today)
		if err != nil {
			return err
		}
		if sub.Pauses, err = pauses.ListWindows(ctx, sub.ID); err != nil {
			return err
		}
		meta := map[string]interface{}{
			"pauseId":     window.ID,
			"resumedOn":   today.Format(time.DateOnly),
			"pausedSince": window.StartDate.Format(time.DateOnly),
		}
		return setStatus(ctx, tx, sub, distribution.StatusActive, distribution.ActionResumed, "", meta)
	})
}

// Cancel terminates a PENDING, ACTIVE or PAUSED subscription. No pause or
// pickup can be recorded against it afterwards.
func (s *SubscriptionService) Cancel(ctx context.Context, id uint, reason string) (*distribution.Subscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
		if !CanTransition(sub.Status, distribution.StatusCancelled) {
			return transitionError("cancel", sub.Status)
		}

		now := s.clock.now()
		sub.CancelledAt = &now
		sub.CancelReason = reason
		if err := tx.Model(sub).Omit(clause.Associations).Updates(map[string]interface{}{
			"cancelled_at":  now,
			"cancel_reason": reason,
		}).Error; err != nil {
			return err
		}
		return setStatus(ctx, tx, sub, distribution.StatusCancelled, distribution.ActionCancelled, reason, nil)
	})
}

// RecordPayment adds an amount to PaidAmount. The first positive payment
// activates a PENDING subscription.
func (s *SubscriptionService) RecordPayment(ctx context.Context, id uint, amount float64) (*distribution.Subscription, error) {
	return s.recordPayment(ctx, id, "", amount)
}

// RecordProcessorPayment is RecordPayment for an amount authorized by the
// payment processor under paymentID. A payment id already applied to any
// subscription is rejected with ErrInvalidTransition.
func (s *SubscriptionService) RecordProcessorPayment(ctx context.Context, id uint, paymentID string, amount float64) (*distribution.Subscription, error) {
	if paymentID == "" {
		return nil, invalidInput("payment id is required")
	}
	return s.recordPayment(ctx, id, paymentID, amount)
}

func (s *SubscriptionService) recordPayment(ctx context.Context, id uint, paymentID string, amount float64) (*distribution.Subscription, error) {
	if amount < 0 {
		return nil, invalidInput("payment amount must not be negative")
	}
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
		if sub.Status == distribution.StatusCancelled || sub.Status == distribution.StatusExpired {
			return transitionError("record a payment on", sub.Status)
		}

		meta := map[string]interface{}{"amount": amount}
		if paymentID != "" {
			if err := applyPaymentOnce(ctx, tx, sub.ID, paymentID, amount); err != nil {
				return err
			}
			meta["paymentId"] = paymentID
		}

		before := sub.PaidAmount
		sub.PaidAmount += amount
		if err := tx.Model(sub).Omit(clause.Associations).Update("paid_amount", sub.PaidAmount).Error; err != nil {
			return err
		}
		meta["paidBefore"] = before
		meta["paidAfter"] = sub.PaidAmount
		if err := recordHistory(ctx, tx, sub.ID, distribution.ActionPaymentAdded, sub.Status, sub.Status, "", meta); err != nil {
			return err
		}

		if sub.Status == distribution.StatusPending && amount > 0 {
			return setStatus(ctx, tx, sub, distribution.StatusActive, distribution.ActionActivated, "first payment", nil)
		}
		return nil
	})
}

// applyPaymentOnce stores the payment row. The unique index on payment_id
// also catches a replay racing on another subscription.
func applyPaymentOnce(ctx context.Context, tx *gorm.DB, subscriptionID uint, paymentID string, amount float64) error {
	var applied distribution.SubscriptionPayment
	err := tx.Where("payment_id = ?", paymentID).First(&applied).Error
	switch {
	case err == nil:
		return fmt.Errorf("%w: payment %s was already applied to subscription %d", ErrInvalidTransition, paymentID, applied.SubscriptionID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	err = tx.Create(&distribution.SubscriptionPayment{
		SubscriptionID: subscriptionID,
		PaymentID:      paymentID,
		Amount:         amount,
		ActorID:        ActorFrom(ctx).ID,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: payment %s was already applied", ErrInvalidTransition, paymentID)
	}
	return err
}

// RemovePause deletes a pause window that has not started yet.
func (s *SubscriptionService) RemovePause(ctx context.Context, id, windowID uint) (*distribution.Subscription, error) {
	return s.mutate(ctx, id, func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
		if sub.Status == distribution.StatusCancelled || sub.Status == distribution.StatusExpired {
			return transitionError("remove a pause from", sub.Status)
		}

		window, err := s.pauses.WithTx(tx).RemoveWindow(ctx, sub, windowID)
		if err != nil {
			return err
		}
		kept := sub.Pauses[:0]
		for _, p := range sub.Pauses {
			if p.ID != window.ID {
				kept = append(kept, p)
			}
		}
		sub.Pauses = kept

		return recordHistory(ctx, tx, sub.ID, distribution.ActionPauseRemoved, sub.Status, sub.Status, "", map[string]interface{}{
			"pauseId":   window.ID,
			"startDate": window.StartDate.Format(time.DateOnly),
			"endDate":   window.EndDate.Format(time.DateOnly),
		})
	})
}

// Get loads a subscription with its member, pickup location and pauses.
func (s *SubscriptionService) Get(ctx context.Context, id uint) (*distribution.Subscription, error) {
	var sub distribution.Subscription
	if err := s.db.WithContext(ctx).
		Preload("Member").
		Preload("PickupLocation").
		Preload("Pauses", func(db *gorm.DB) *gorm.DB { return db.Order("start_date ASC") }).
		First(&sub, id).Error; err != nil {
		return nil, notFound(err, "subscription", id)
	}
	return &sub, nil
}

// List returns one page of subscriptions and the total count for filter.
func (s *SubscriptionService) List(ctx context.Context, filter SubscriptionFilter) ([]distribution.Subscription, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&distribution.Subscription{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []distribution.Subscription
	if err := query.
		Preload("Member").
		Preload("Pauses").
		Order("id ASC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// EffectiveStatus reconciles one subscription on asOf.
func (s *SubscriptionService) EffectiveStatus(ctx context.Context, id uint, asOf time.Time) (distribution.Status, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return ReconcileStatus(sub, asOf), nil
}

// History returns the audit trail of a subscription, oldest first.
func (s *SubscriptionService) History(ctx context.Context, id uint) ([]distribution.SubscriptionHistory, error) {
	var entries []distribution.SubscriptionHistory
	if err := s.db.WithContext(ctx).
		Where("subscription_id = ?", id).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes a subscription and its pauses. Subscriptions with pickup
// records are kept for the ledger.
func (s *SubscriptionService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := lockSubscription(tx, id)
		if err != nil {
			return err
		}

		var pickups int64
		if err := tx.Model(&distribution.WeeklyPickup{}).Where("subscription_id = ?", id).Count(&pickups).Error; err != nil {
			return err
		}
		if pickups > 0 {
			return fmt.Errorf("%w: subscription %s has %d pickup records", ErrInUse, sub.Number, pickups)
		}

		if err := tx.Unscoped().Where("subscription_id = ?", id).Delete(&distribution.SubscriptionPause{}).Error; err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", id).Delete(&distribution.SubscriptionPayment{}).Error; err != nil {
			return err
		}
		return tx.Delete(sub).Error
	})
}

// SyncStatuses reconciles the persisted status of every open subscription
// as of asOf and returns how many changed. Each subscription is handled in
// its own transaction.
func (s *SubscriptionService) SyncStatuses(ctx context.Context, asOf time.Time) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).
		Model(&distribution.Subscription{}).
		Where("status IN ?", []distribution.Status{distribution.StatusPending, distribution.StatusActive, distribution.StatusPaused}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	changed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			sub, err := lockSubscription(tx, id)
			if err != nil {
				return err
			}
			before := sub.Status
			if err := reconcilePersisted(ctx, tx, sub, interval.Day(asOf)); err != nil {
				return err
			}
			if sub.Status != before {
				changed++
			}
			return nil
		})
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

func (s *SubscriptionService) mutate(ctx context.Context, id uint, fn func(tx *gorm.DB, sub *distribution.Subscription, today time.Time) error) (*distribution.Subscription, error) {
	var out *distribution.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := lockSubscription(tx, id)
		if err != nil {
			return err
		}
		today := s.clock.Today()
		if err := reconcilePersisted(ctx, tx, sub, today); err != nil {
			return err
		}
		if err := fn(tx, sub, today); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockSubscription loads a subscription with SELECT ... FOR UPDATE and its
// pause windows.
func lockSubscription(tx *gorm.DB, id uint) (*distribution.Subscription, error) {
	var sub distribution.Subscription
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, id).Error; err != nil {
		return nil, notFound(err, "subscription", id)
	}
	if err := tx.Where("subscription_id = ?", id).Order("start_date ASC").Find(&sub.Pauses).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// reconcilePersisted writes persistedTarget back when the stored status lags.
func reconcilePersisted(ctx context.Context, tx *gorm.DB, sub *distribution.Subscription, today time.Time) error {
	target := persistedTarget(sub, today)
	if target == sub.Status {
		return nil
	}
	return setStatus(ctx, tx, sub, target, distribution.ActionReconciled, "", map[string]interface{}{
		"asOf": today.Format(time.DateOnly),
	})
}

func setStatus(ctx context.Context, tx *gorm.DB, sub *distribution.Subscription, to distribution.Status, action, comments string, meta map[string]interface{}) error {
	from := sub.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	if err := tx.Model(sub).Omit(clause.Associations).Update("status", to).Error; err != nil {
		return err
	}
	sub.Status = to
	return recordHistory(ctx, tx, sub.ID, action, from, to, comments, meta)
}

func recordHistory(ctx context.Context, tx *gorm.DB, subscriptionID uint, action string, from, to distribution.Status, comments string, meta map[string]interface{}) error {
	actor := ActorFrom(ctx)
	entry := distribution.SubscriptionHistory{
		SubscriptionID: subscriptionID,
		Action:         action,
		FromStatus:     from,
		ToStatus:       to,
		ActorID:        actor.ID,
		ActorType:      actor.Type,
		Comments:       comments,
	}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		entry.Metadata = datatypes.JSON(raw)
	}
	return tx.Create(&entry).Error
}

func transitionError(action string, status distribution.Status) error {
	return fmt.Errorf("%w: cannot %s a %s subscription", ErrInvalidTransition, action, status)
}
