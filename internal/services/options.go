package services

import (
	"time"
)

// Clock returns the current time. Tests inject a fixed or steppable clock.
type Clock func() time.Time

// Options carries the knobs shared by every service.
type Options struct {
	Clock Clock
	// Location interprets exam dates and time-of-day bounds.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}
