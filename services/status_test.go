package services

import (
	"testing"
	"time"

	"amap/models/distribution"

	"github.com/stretchr/testify/assert"
)

func yearSubscription(status distribution.Status, pauses ...distribution.SubscriptionPause) *distribution.Subscription {
	return &distribution.Subscription{
		Status:    status,
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 12, 31),
		Pauses:    pauses,
	}
}

func TestReconcileStatus_ActiveWithoutPauses(t *testing.T) {
	sub := yearSubscription(distribution.StatusActive)

	assert.Equal(t, distribution.StatusActive, ReconcileStatus(sub, day(2024, 6, 15)))
}

func TestReconcileStatus_PauseWindow(t *testing.T) {
	sub := yearSubscription(distribution.StatusPaused,
		distribution.SubscriptionPause{StartDate: day(2024, 7, 1), EndDate: day(2024, 7, 15)})

	assert.Equal(t, distribution.StatusPaused, ReconcileStatus(sub, day(2024, 7, 10)))
	assert.Equal(t, distribution.StatusActive, ReconcileStatus(sub, day(2024, 7, 16)))
	assert.Equal(t, distribution.StatusPaused, ReconcileStatus(sub, day(2024, 7, 1)))
	assert.Equal(t, distribution.StatusPaused, ReconcileStatus(sub, day(2024, 7, 15)))
}

func TestReconcileStatus_Precedence(t *testing.T) {
	pause := distribution.SubscriptionPause{StartDate: day(2024, 7, 1), EndDate: day(2024, 7, 15)}

	tests := []struct {
		name string
		sub  *distribution.Subscription
		asOf time.Time
		want distribution.Status
	}{
		{"past end date", yearSubscription(distribution.StatusActive), day(2025, 1, 1), distribution.StatusExpired},
		{"cancelled past end date", yearSubscription(distribution.StatusCancelled), day(2025, 1, 1), distribution.StatusExpired},
		{"cancelled inside pause", yearSubscription(distribution.StatusCancelled, pause), day(2024, 7, 10), distribution.StatusCancelled},
		{"never activated", yearSubscription(distribution.StatusPending), day(2024, 3, 1), distribution.StatusPending},
		{"before start date", yearSubscription(distribution.StatusActive), day(2023, 12, 31), distribution.StatusPending},
		{"persisted paused outside window", yearSubscription(distribution.StatusPaused, pause), day(2024, 8, 1), distribution.StatusActive},
		{"persisted active inside window", yearSubscription(distribution.StatusActive, pause), day(2024, 7, 2), distribution.StatusPaused},
		{"persisted expired is recomputed", yearSubscription(distribution.StatusExpired), day(2024, 5, 5), distribution.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReconcileStatus(tt.sub, tt.asOf))
		})
	}
}

// PAUSED iff a window contains the date, the subscription is not cancelled
// and the date lies inside the subscription range.
func TestReconcileStatus_PausedIffInsideWindow(t *testing.T) {
	windows := []distribution.SubscriptionPause{
		{StartDate: day(2024, 2, 10), EndDate: day(2024, 2, 20)},
		{StartDate: day(2024, 7, 1), EndDate: day(2024, 7, 15)},
		{StartDate: day(2024, 12, 25), EndDate: day(2024, 12, 31)},
	}

	for _, status := range []distribution.Status{distribution.StatusActive, distribution.StatusPaused, distribution.StatusCancelled} {
		sub := yearSubscription(status, windows...)
		for d := day(2023, 12, 20); !d.After(day(2025, 1, 10)); d = d.AddDate(0, 0, 1) {
			inWindow := false
			for _, w := range windows {
				if !d.Before(w.StartDate) && !d.After(w.EndDate) {
					inWindow = true
				}
			}
			inRange := !d.Before(sub.StartDate) && !d.After(sub.EndDate)
			want := inWindow && inRange && status != distribution.StatusCancelled

			got := ReconcileStatus(sub, d) == distribution.StatusPaused
			if got != want {
				t.Fatalf("status %s on %s: paused=%v, want %v", status, d.Format(time.DateOnly), got, want)
			}
		}
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(distribution.StatusPending, distribution.StatusActive))
	assert.True(t, CanTransition(distribution.StatusPaused, distribution.StatusCancelled))
	assert.False(t, CanTransition(distribution.StatusCancelled, distribution.StatusActive))
	assert.False(t, CanTransition(distribution.StatusExpired, distribution.StatusActive))
	assert.False(t, CanTransition(distribution.StatusPending, distribution.StatusPaused))
	assert.False(t, CanTransition(distribution.StatusCancelled, distribution.StatusCancelled))
}
