package services

import "errors"

var (
	// ErrUnknownReminderType is returned for a reminder type the engine does not dispatch.
	ErrUnknownReminderType = errors.New("unknown reminder type")
	// ErrInvalidRecurrence is returned when a recurrence fails validation.
	ErrInvalidRecurrence = errors.New("invalid recurrence")
)
