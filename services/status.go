package services

import (
	"time"

	"amap/models/distribution"
	"amap/services/interval"
)

type transition struct {
	From distribution.Status
	To   distribution.Status
}

// validTransitions lists every persisted status change the engine performs.
var validTransitions = map[transition]bool{
	{distribution.StatusPending, distribution.StatusActive}:    true, // activation or first payment
	{distribution.StatusActive, distribution.StatusPaused}:     true,
	{distribution.StatusPaused, distribution.StatusActive}:     true,
	{distribution.StatusPending, distribution.StatusCancelled}: true,
	{distribution.StatusActive, distribution.StatusCancelled}:  true,
	{distribution.StatusPaused, distribution.StatusCancelled}:  true,
	{distribution.StatusPending, distribution.StatusExpired}:   true,
	{distribution.StatusActive, distribution.StatusExpired}:    true,
	{distribution.StatusPaused, distribution.StatusExpired}:    true,
}

// CanTransition reports whether a subscription may move from one persisted
// status to another.
func CanTransition(from, to distribution.Status) bool {
	return validTransitions[transition{from, to}]
}

// ReconcileStatus computes the effective status of sub on asOf from its
// dates, its persisted status and its pause windows (sub.Pauses must be
// loaded). It has no side effects and is the only status the roster trusts.
//
//   - EXPIRED when asOf is after EndDate
//   - CANCELLED when the subscription was cancelled
//   - PENDING when it was never activated or asOf precedes StartDate
//   - PAUSED when a pause window contains asOf
//   - ACTIVE otherwise
func ReconcileStatus(sub *distribution.Subscription, asOf time.Time) distribution.Status {
	day := interval.Day(asOf)
	if day.After(interval.Day(sub.EndDate)) {
		return distribution.StatusExpired
	}
	if sub.Status == distribution.StatusCancelled {
		return distribution.StatusCancelled
	}
	if sub.Status == distribution.StatusPending || day.Before(interval.Day(sub.StartDate)) {
		return distribution.StatusPending
	}
	if pausedOn(sub.Pauses, day) != nil {
		return distribution.StatusPaused
	}
	return distribution.StatusActive
}

// persistedTarget is the persisted status sub should carry on today so that
// PAUSED only holds inside a window and EXPIRED only after EndDate.
func persistedTarget(sub *distribution.Subscription, today time.Time) distribution.Status {
	switch sub.Status {
	case distribution.StatusCancelled, distribution.StatusExpired:
		return sub.Status
	}
	if interval.Day(today).After(interval.Day(sub.EndDate)) {
		return distribution.StatusExpired
	}
	if sub.Status == distribution.StatusPending {
		return distribution.StatusPending
	}
	if pausedOn(sub.Pauses, today) != nil {
		return distribution.StatusPaused
	}
	return distribution.StatusActive
}

func pausedOn(pauses []distribution.SubscriptionPause, day time.Time) *distribution.SubscriptionPause {
	for i := range pauses {
		if interval.Contains(day, pauses[i].StartDate, pauses[i].EndDate) {
			return &pauses[i]
		}
	}
	return nil
}
