package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds returned by the engine. Callers match them with errors.Is;
// every returned error wraps exactly one of these or a storage error.
var (
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrInvalidWindow           = errors.New("invalid pause window")
	ErrEmptyBasket             = errors.New("basket has no items")
	ErrNotFound                = errors.New("not found")
	ErrSubscriptionNotEligible = errors.New("subscription is not on the basket roster")
	ErrDuplicateWeek           = errors.New("a basket already exists for this week")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInUse                   = errors.New("referenced by pickup records")
)

// notFound maps gorm's missing-row error onto ErrNotFound and leaves every
// other error untouched.
func notFound(err error, what string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
	}
	return err
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
