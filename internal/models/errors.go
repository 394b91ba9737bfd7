package models

import "errors"

var (
	// ErrUnknownActivityType is returned when persisting an activity type outside the enumeration.
	ErrUnknownActivityType = errors.New("unknown activity type")

	// ErrTooShort is returned when persisting an interval under MinDurationSeconds.
	ErrTooShort = errors.New("activity shorter than minimum duration")

	// ErrBadInterval is returned when an interval's bounds or duration are inconsistent.
	ErrBadInterval = errors.New("inconsistent activity interval")
)
