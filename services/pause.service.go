package services

import (
	"context"
	"fmt"
	"time"

	"amap/models/distribution"
	"amap/services/interval"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PauseManager owns the pause windows of subscriptions: no two windows of a
// subscription overlap and every window lies inside the subscription range.
type PauseManager struct {
	db    *gorm.DB
	clock Clock
}

func NewPauseManager(db *gorm.DB, clock Clock) *PauseManager {
	return &PauseManager{db: db, clock: clock}
}

// WithTx returns a manager bound to an open transaction.
func (m *PauseManager) WithTx(tx *gorm.DB) *PauseManager {
	return &PauseManager{db: tx, clock: m.clock}
}

// CreateWindow validates and stores a new pause window for sub. The
// subscription row is locked while the overlap check runs so two concurrent
// calls cannot both succeed with overlapping ranges.
func (m *PauseManager) CreateWindow(ctx context.Context, sub *distribution.Subscription, startDate, endDate time.Time, reason string) (*distribution.SubscriptionPause, error) {
	start, end := interval.Day(startDate), interval.Day(endDate)
	if !interval.Valid(start, end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if !interval.Within(start, end, sub.StartDate, sub.EndDate) {
		return nil, fmt.Errorf("%w: window must lie within the subscription period %s to %s",
			ErrInvalidWindow, sub.StartDate.Format(time.DateOnly), sub.EndDate.Format(time.DateOnly))
	}

	window := distribution.SubscriptionPause{
		SubscriptionID: sub.ID,
		StartDate:      start,
		EndDate:        end,
		Reason:         reason,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked distribution.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, sub.ID).Error; err != nil {
			return notFound(err, "subscription", sub.ID)
		}

		var existing []distribution.SubscriptionPause
		if err := tx.Where("subscription_id = ?", sub.ID).Find(&existing).Error; err != nil {
			return err
		}
		for _, w := range existing {
			if interval.Overlaps(start, end, w.StartDate, w.EndDate) {
				return fmt.Errorf("%w: overlaps pause %s to %s", ErrInvalidWindow,
					w.StartDate.Format(time.DateOnly), w.EndDate.Format(time.DateOnly))
			}
		}

		return tx.Create(&window).Error
	})
	if err != nil {
		return nil, err
	}
	return &window, nil
}

// CloseOpenWindow ends the window containing asOf so that asOf is the first
// unpaused day: the window's EndDate becomes the day before asOf, or the
// window is removed when it starts on asOf.
func (m *PauseManager) CloseOpenWindow(ctx context.Context, sub *distribution.Subscription, asOf time.Time) (*distribution.SubscriptionPause, error) {
	day := interval.Day(asOf)

	var open []distribution.SubscriptionPause
	if err := m.db.WithContext(ctx).
		Where("subscription_id = ?", sub.ID).
		Find(&open).Error; err != nil {
		return nil, err
	}

	var window *distribution.SubscriptionPause
	for i := range open {
		if interval.Contains(day, open[i].StartDate, open[i].EndDate) {
			window = &open[i]
			break
		}
	}
	if window == nil {
		return nil, fmt.Errorf("%w: no pause window is open on %s", ErrInvalidWindow, day.Format(time.DateOnly))
	}

	if interval.Day(window.StartDate).Equal(day) {
		if err := m.db.WithContext(ctx).Delete(window).Error; err != nil {
			return nil, err
		}
		return window, nil
	}

	window.EndDate = interval.AddDays(day, -1)
	if err := m.db.WithContext(ctx).Model(window).Update("end_date", window.EndDate).Error; err != nil {
		return nil, err
	}
	return window, nil
}

// ListWindows returns the pause windows of a subscription ordered by start date.
func (m *PauseManager) ListWindows(ctx context.Context, subscriptionID uint) ([]distribution.SubscriptionPause, error) {
	var windows []distribution.SubscriptionPause
	if err := m.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("start_date ASC").
		Find(&windows).Error; err != nil {
		return nil, err
	}
	return windows, nil
}

// RemoveWindow deletes a window that has not started yet. Windows that
// already took effect are history and stay.
func (m *PauseManager) RemoveWindow(ctx context.Context, sub *distribution.Subscription, windowID uint) (*distribution.SubscriptionPause, error) {
	var window distribution.SubscriptionPause
	if err := m.db.WithContext(ctx).
		Where("id = ? AND subscription_id = ?", windowID, sub.ID).
		First(&window).Error; err != nil {
		return nil, notFound(err, "pause window", windowID)
	}

	if !interval.Day(window.StartDate).After(m.clock.Today()) {
		return nil, fmt.Errorf("%w: pause starting %s has already begun", ErrInvalidWindow, window.StartDate.Format(time.DateOnly))
	}

	if err := m.db.WithContext(ctx).Delete(&window).Error; err != nil {
		return nil, err
	}
	return &window, nil
}
