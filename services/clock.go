package services

import (
	"context"
	"time"

	"amap/models/distribution"
	"amap/services/interval"
)

// Clock decides what "today" is for the engine. Dates are compared at day
// granularity in Location.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock always reports the given day. Handy for tests and replays.
func FixedClock(day time.Time) Clock {
	return Clock{Now: func() time.Time { return day }, Location: time.UTC}
}

// Today returns the current calendar date.
func (c Clock) Today() time.Time {
	return interval.Today(c.now(), c.Location)
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Actor identifies who triggered a mutation, for the audit history.
type Actor struct {
	ID   uint
	Type string
}

type actorKey struct{}

// WithActor attaches an admin actor to ctx.
func WithActor(ctx context.Context, adminID uint) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{ID: adminID, Type: distribution.ActorAdmin})
}

// ActorFrom returns the actor stored in ctx, or the system actor.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{ID: 0, Type: distribution.ActorSystem}
}
