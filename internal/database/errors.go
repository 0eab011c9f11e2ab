package database

import "errors"

var (
	// ErrPastSlot and ErrSlotConflict are deterministic outcomes: retrying
	// the same request cannot change them.
	ErrPastSlot     = errors.New("slot start is in the past")
	ErrSlotConflict = errors.New("slot overlaps an existing booking")

	ErrResourceNotFound = errors.New("resource not found")
	ErrBookingNotFound  = errors.New("booking not found")
)
