package services

import (
	"sync"
	"testing"

	"amap/models/distribution"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countPickups(t *testing.T, f *fixture, subID, basketID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&distribution.WeeklyPickup{}).
		Where("subscription_id = ? AND basket_id = ?", subID, basketID).
		Count(&n).Error)
	return n
}

func TestMarkPickup_RepeatedCallsKeepOneRow(t *testing.T) {
	f := newFixture(t, day(2024, 7, 10))
	sub := f.active(f.member("Jeanne", "Dupont"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	basket := f.published(day(2024, 7, 10))

	first, err := f.engine.Pickups.MarkPickup(f.ctx, sub.ID, basket.ID, true, "")
	require.NoError(t, err)
	second, err := f.engine.Pickups.MarkPickup(f.ctx, sub.ID, basket.ID, true, "left with neighbor")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.WasPickedUp)
	assert.Equal(t, "left with neighbor", second.Notes)
	assert.EqualValues(t, 1, countPickups(t, f, sub.ID, basket.ID))

	for i := 0; i < 5; i++ {
		_, err := f.engine.Pickups.MarkPickup(f.ctx, sub.ID, basket.ID, i%2 == 0, "")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, countPickups(t, f, sub.ID, basket.ID))

	history, err := f.engine.Pickups.MemberHistory(f.ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].WasPickedUp)
	assert.Empty(t, history[0].Notes)
}

func TestSetPickedUpAndSetNote(t *testing.T) {
	f := newFixture(t, day(2024, 7, 10))
	sub := f.active(f.member("Jeanne", "Dupont"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	basket := f.published(day(2024, 7, 10))

	noted, err := f.engine.Pickups.SetNote(f.ctx, sub.ID, basket.ID, "passera à 19h")
	require.NoError(t, err)
	assert.False(t, noted.WasPickedUp)
	assert.Equal(t, "passera à 19h", noted.Notes)

	picked, err := f.engine.Pickups.SetPickedUp(f.ctx, sub.ID, basket.ID, true)
	require.NoError(t, err)
	assert.True(t, picked.WasPickedUp)
	assert.Equal(t, "passera à 19h", picked.Notes)

	renoted, err := f.engine.Pickups.SetNote(f.ctx, sub.ID, basket.ID, "venu à 18h")
	require.NoError(t, err)
	assert.True(t, renoted.WasPickedUp)
	assert.Equal(t, "venu à 18h", renoted.Notes)
	assert.EqualValues(t, 1, countPickups(t, f, sub.ID, basket.ID))
}

func TestMarkPickup_NotEligible(t *testing.T) {
	f := newFixture(t, day(2024, 6, 3))
	m := f.member("Jeanne", "Dupont")
	cancelled := f.active(m, day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	_, err := f.engine.Subscriptions.Cancel(f.ctx, cancelled.ID, "")
	require.NoError(t, err)
	paused := f.active(m, day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	_, err = f.engine.Subscriptions.Pause(f.ctx, paused.ID, day(2024, 7, 1), day(2024, 7, 15), "")
	require.NoError(t, err)
	pending := f.pending(m, day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	later := f.active(m, day(2024, 9, 1), day(2025, 8, 31), distribution.BasketSmall)
	eligible := f.active(m, day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)

	basket := f.published(day(2024, 7, 10))
	draft := f.draft(day(2024, 7, 17))

	tests := []struct {
		name     string
		subID    uint
		basketID uint
		wantErr  error
	}{
		{name: "cancelled", subID: cancelled.ID, basketID: basket.ID, wantErr: ErrSubscriptionNotEligible},
		{name: "paused on that date", subID: paused.ID, basketID: basket.ID, wantErr: ErrSubscriptionNotEligible},
		{name: "pending", subID: pending.ID, basketID: basket.ID, wantErr: ErrSubscriptionNotEligible},
		{name: "not started", subID: later.ID, basketID: basket.ID, wantErr: ErrSubscriptionNotEligible},
		{name: "unpublished basket", subID: eligible.ID, basketID: draft.ID, wantErr: ErrSubscriptionNotEligible},
		{name: "unknown basket", subID: eligible.ID, basketID: 999, wantErr: ErrNotFound},
		{name: "unknown subscription", subID: 999, basketID: basket.ID, wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Pickups.MarkPickup(f.ctx, tt.subID, tt.basketID, true, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	pickups, err := f.engine.Pickups.ListPickups(f.ctx, basket.ID)
	require.NoError(t, err)
	assert.Empty(t, pickups)
}

func TestMarkPickup_Concurrent(t *testing.T) {
	f := newFixture(t, day(2024, 7, 10))
	sub := f.active(f.member("Jeanne", "Dupont"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	basket := f.published(day(2024, 7, 10))

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Pickups.MarkPickup(f.ctx, sub.ID, basket.ID, true, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, countPickups(t, f, sub.ID, basket.ID))
}

func TestMarkPickup_RacesUnpublish(t *testing.T) {
	f := newFixture(t, day(2024, 7, 10))
	sub := f.active(f.member("Jeanne", "Dupont"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	basket := f.published(day(2024, 7, 10))

	var (
		wg           sync.WaitGroup
		pickupErr    error
		unpublishErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, pickupErr = f.engine.Pickups.MarkPickup(f.ctx, sub.ID, basket.ID, true, "")
	}()
	go func() {
		defer wg.Done()
		_, unpublishErr = f.engine.Baskets.Unpublish(f.ctx, basket.ID)
	}()
	wg.Wait()

	// exactly one side wins and the ledger never points at a hidden basket
	stored, err := f.engine.Baskets.Get(f.ctx, basket.ID)
	require.NoError(t, err)
	if pickupErr == nil {
		assert.ErrorIs(t, unpublishErr, ErrInUse)
		assert.True(t, stored.IsPublished)
		assert.EqualValues(t, 1, countPickups(t, f, sub.ID, basket.ID))
	} else {
		assert.ErrorIs(t, pickupErr, ErrSubscriptionNotEligible)
		assert.NoError(t, unpublishErr)
		assert.False(t, stored.IsPublished)
		assert.EqualValues(t, 0, countPickups(t, f, sub.ID, basket.ID))
	}
}

func TestGetStats(t *testing.T) {
	f := newFixture(t, day(2024, 7, 10))
	a := f.active(f.member("Jeanne", "Dupont"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	b := f.active(f.member("Paul", "Martin"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketLarge)
	f.active(f.member("Lucie", "Bernard"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketLarge)
	basket := f.published(day(2024, 7, 10))

	stats, err := f.engine.Pickups.GetStats(f.ctx, basket.ID)
	require.NoError(t, err)
	assert.Equal(t, Stats{BasketID: basket.ID, TotalSubscribers: 3, Pending: 3, SmallBaskets: 1, LargeBaskets: 2}, *stats)

	_, err = f.engine.Pickups.MarkPickup(f.ctx, a.ID, basket.ID, true, "")
	require.NoError(t, err)
	_, err = f.engine.Pickups.SetNote(f.ctx, b.ID, basket.ID, "absent")
	require.NoError(t, err)

	stats, err = f.engine.Pickups.GetStats(f.ctx, basket.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSubscribers)
	assert.Equal(t, 1, stats.PickedUp)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, stats.TotalSubscribers, stats.PickedUp+stats.Pending)

	_, err = f.engine.Pickups.GetStats(f.ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerKeepsRowsOfCancelledSubscriptions(t *testing.T) {
	f := newFixture(t, day(2024, 7, 10))
	sub := f.active(f.member("Jeanne", "Dupont"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	stays := f.active(f.member("Paul", "Martin"), day(2024, 1, 1), day(2024, 12, 31), distribution.BasketSmall)
	basket := f.published(day(2024, 7, 10))

	_, err := f.engine.Pickups.MarkPickup(f.ctx, sub.ID, basket.ID, true, "")
	require.NoError(t, err)

	f.today = day(2024, 7, 12)
	_, err = f.engine.Subscriptions.Cancel(f.ctx, sub.ID, "déménagement")
	require.NoError(t, err)

	pickups, err := f.engine.Pickups.ListPickups(f.ctx, basket.ID)
	require.NoError(t, err)
	require.Len(t, pickups, 1)
	assert.Equal(t, sub.ID, pickups[0].SubscriptionID)

	history, err := f.engine.Pickups.MemberHistory(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// Stats follow the roster, which no longer lists the cancelled subscription.
	stats, err := f.engine.Pickups.GetStats(f.ctx, basket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSubscribers)
	assert.Zero(t, stats.PickedUp)

	roster, err := f.engine.Roster.ComputeRoster(f.ctx, basket)
	require.NoError(t, err)
	assert.Equal(t, []uint{stays.ID}, rosterIDs(roster))
}
