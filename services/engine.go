package services

import "gorm.io/gorm"

// Engine wires the distribution components over one database handle.
type Engine struct {
	Subscriptions *SubscriptionService
	Pauses        *PauseManager
	Baskets       *BasketRegistry
	Roster        *RosterResolver
	Pickups       *PickupLedger
}

func NewEngine(db *gorm.DB, clock Clock) *Engine {
	pauses := NewPauseManager(db, clock)
	return &Engine{
		Subscriptions: NewSubscriptionService(db, pauses, clock),
		Pauses:        pauses,
		Baskets:       NewBasketRegistry(db, clock),
		Roster:        NewRosterResolver(db),
		Pickups:       NewPickupLedger(db),
	}
}
