package services

import (
	"context"
	"fmt"

	"amap/models/distribution"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PickupLedger records which roster members collected their basket.
type PickupLedger struct {
	db *gorm.DB
}

func NewPickupLedger(db *gorm.DB) *PickupLedger {
	return &PickupLedger{db: db}
}

// Stats aggregates the ledger over a basket's roster.
type Stats struct {
	BasketID         uint `json:"basketId"`
	TotalSubscribers int  `json:"totalSubscribers"`
	PickedUp         int  `json:"pickedUp"`
	Pending          int  `json:"pending"`
	SmallBaskets     int  `json:"smallBaskets"`
	LargeBaskets     int  `json:"largeBaskets"`
}

// MarkPickup sets both the pickup state and the note of a roster member,
// creating the record on first use. Repeated or concurrent calls converge on
// a single row; the last write wins.
func (l *PickupLedger) MarkPickup(ctx context.Context, subscriptionID, basketID uint, wasPickedUp bool, notes string) (*distribution.WeeklyPickup, error) {
	row := distribution.WeeklyPickup{WasPickedUp: wasPickedUp, Notes: notes}
	return l.upsert(ctx, subscriptionID, basketID, row, "was_picked_up", "notes")
}

// SetPickedUp changes the pickup state and leaves an existing note alone.
func (l *PickupLedger) SetPickedUp(ctx context.Context, subscriptionID, basketID uint, wasPickedUp bool) (*distribution.WeeklyPickup, error) {
	row := distribution.WeeklyPickup{WasPickedUp: wasPickedUp}
	return l.upsert(ctx, subscriptionID, basketID, row, "was_picked_up")
}

// SetNote changes the note and leaves an existing pickup state alone.
func (l *PickupLedger) SetNote(ctx context.Context, subscriptionID, basketID uint, notes string) (*distribution.WeeklyPickup, error) {
	row := distribution.WeeklyPickup{Notes: notes}
	return l.upsert(ctx, subscriptionID, basketID, row, "notes")
}

// GetStats counts the roster of a basket and how many of its members have
// picked up. PickedUp + Pending always equals TotalSubscribers.
func (l *PickupLedger) GetStats(ctx context.Context, basketID uint) (*Stats, error) {
	db := l.db.WithContext(ctx)
	var basket distribution.WeeklyBasket
	if err := db.First(&basket, basketID).Error; err != nil {
		return nil, notFound(err, "basket", basketID)
	}

	roster, err := computeRoster(db, &basket)
	if err != nil {
		return nil, err
	}

	stats := &Stats{BasketID: basket.ID, TotalSubscribers: len(roster)}
	for _, entry := range roster {
		if entry.Pickup != nil && entry.Pickup.WasPickedUp {
			stats.PickedUp++
		}
		switch entry.BasketSize {
		case distribution.BasketSmall:
			stats.SmallBaskets++
		case distribution.BasketLarge:
			stats.LargeBaskets++
		}
	}
	stats.Pending = stats.TotalSubscribers - stats.PickedUp
	return stats, nil
}

// ListPickups returns every ledger row of a basket, including rows of
// subscriptions that have since left the roster.
func (l *PickupLedger) ListPickups(ctx context.Context, basketID uint) ([]distribution.WeeklyPickup, error) {
	var pickups []distribution.WeeklyPickup
	if err := l.db.WithContext(ctx).
		Where("basket_id = ?", basketID).
		Order("subscription_id ASC").
		Find(&pickups).Error; err != nil {
		return nil, err
	}
	return pickups, nil
}

// MemberHistory returns the ledger rows of one subscription, oldest basket first.
func (l *PickupLedger) MemberHistory(ctx context.Context, subscriptionID uint) ([]distribution.WeeklyPickup, error) {
	var pickups []distribution.WeeklyPickup
	if err := l.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("basket_id ASC").
		Find(&pickups).Error; err != nil {
		return nil, err
	}
	return pickups, nil
}

// upsert checks roster membership under a share lock on the basket and a
// lock on the subscription row, then relies on the (subscription_id,
// basket_id) unique index to turn a second insert into an update of the
// given columns.
func (l *PickupLedger) upsert(ctx context.Context, subscriptionID, basketID uint, row distribution.WeeklyPickup, columns ...string) (*distribution.WeeklyPickup, error) {
	var out distribution.WeeklyPickup
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the share lock holds off Unpublish and Delete until this row is committed
		var basket distribution.WeeklyBasket
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&basket, basketID).Error; err != nil {
			return notFound(err, "basket", basketID)
		}
		sub, err := lockSubscription(tx, subscriptionID)
		if err != nil {
			return err
		}
		if !IsEligible(sub, &basket) {
			return fmt.Errorf("%w: subscription %s on %s is %s", ErrSubscriptionNotEligible,
				sub.Number, basket.DistributionDate.Format("2006-01-02"), ReconcileStatus(sub, basket.DistributionDate))
		}

		row.SubscriptionID = subscriptionID
		row.BasketID = basketID
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "basket_id"}},
			DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
		}).Create(&row).Error; err != nil {
			return err
		}

		return tx.Where("subscription_id = ? AND basket_id = ?", subscriptionID, basketID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
