package services

import (
	"context"
	"sort"

	"amap/models/distribution"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// RosterEntry is one member entitled to a basket on a distribution date.
type RosterEntry struct {
	Subscription distribution.Subscription `json:"subscription"`
	BasketSize   string                    `json:"basketSize"`
	Pickup       *distribution.WeeklyPickup `json:"pickup"`
}

// RosterResolver computes who receives a basket on a distribution date. It
// reads only and keeps nothing between calls.
type RosterResolver struct {
	db *gorm.DB
}

func NewRosterResolver(db *gorm.DB) *RosterResolver {
	return &RosterResolver{db: db}
}

// ComputeRoster lists the subscriptions whose effective status on the
// basket's distribution date is ACTIVE, with their pickup record for this
// basket when one exists. Entries are ordered by member surname, first
// name, then subscription number. An unpublished basket has no roster.
func (r *RosterResolver) ComputeRoster(ctx context.Context, basket *distribution.WeeklyBasket) ([]RosterEntry, error) {
	return computeRoster(r.db.WithContext(ctx), basket)
}

// ComputeRosterByID loads the basket first.
func (r *RosterResolver) ComputeRosterByID(ctx context.Context, basketID uint) ([]RosterEntry, error) {
	var basket distribution.WeeklyBasket
	if err := r.db.WithContext(ctx).First(&basket, basketID).Error; err != nil {
		return nil, notFound(err, "basket", basketID)
	}
	return r.ComputeRoster(ctx, &basket)
}

// IsEligible reports whether sub belongs on the roster of basket.
func IsEligible(sub *distribution.Subscription, basket *distribution.WeeklyBasket) bool {
	return basket.IsPublished && ReconcileStatus(sub, basket.DistributionDate) == distribution.StatusActive
}

func computeRoster(db *gorm.DB, basket *distribution.WeeklyBasket) ([]RosterEntry, error) {
	roster := []RosterEntry{}
	if !basket.IsPublished {
		return roster, nil
	}
	date := basket.DistributionDate

	var subs []distribution.Subscription
	if err := db.
		Preload("Member").
		Preload("Pauses").
		Where("start_date <= ? AND end_date >= ?", date, date).
		Where("status NOT IN ?", []distribution.Status{distribution.StatusPending, distribution.StatusCancelled}).
		Find(&subs).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(subs))
	for i := range subs {
		if IsEligible(&subs[i], basket) {
			roster = append(roster, RosterEntry{Subscription: subs[i], BasketSize: subs[i].BasketSize})
			ids = append(ids, subs[i].ID)
		}
	}
	if len(roster) == 0 {
		return roster, nil
	}

	var pickups []distribution.WeeklyPickup
	if err := db.Where("basket_id = ? AND subscription_id IN ?", basket.ID, ids).Find(&pickups).Error; err != nil {
		return nil, err
	}
	bySub := make(map[uint]*distribution.WeeklyPickup, len(pickups))
	for i := range pickups {
		bySub[pickups[i].SubscriptionID] = &pickups[i]
	}
	for i := range roster {
		roster[i].Pickup = bySub[roster[i].Subscription.ID]
	}

	sortRoster(roster)
	return roster, nil
}

// sortRoster orders entries the way members read a sign-off sheet: French
// collation on surname then first name, subscription number as tie-break.
func sortRoster(roster []RosterEntry) {
	col := collate.New(language.French, collate.IgnoreCase)
	sort.SliceStable(roster, func(i, j int) bool {
		a, b := roster[i].Subscription, roster[j].Subscription
		if c := col.CompareString(a.Member.LastName, b.Member.LastName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.Member.FirstName, b.Member.FirstName); c != 0 {
			return c < 0
		}
		return a.Number < b.Number
	})
}
