package service

import (
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub002/internal/models"
)

// Validation reasons returned by SlotValidator.
const (
	ReasonPast      = "past"
	ReasonMalformed = "malformed"
)

// SlotValidator is the cheap advisory check run before presenting slots or
// opening a transaction. It shares the clock with the database layer so the
// advisory past-check and the in-transaction re-check cannot disagree on
// "now". It is not trusted for correctness: the authoritative check runs
// under the resource lock.
type SlotValidator struct {
	now func() time.Time
	loc *time.Location
}

func NewSlotValidator(now func() time.Time, loc *time.Location) *SlotValidator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &SlotValidator{now: now, loc: loc}
}

// Validate reports whether the slot is still presentable, with a reason when
// it is not. No database access, no side effects.
func (v *SlotValidator) Validate(slot models.TimeSlot) (bool, string) {
	start, err := slot.Start(v.loc)
	if err != nil || slot.ResourceID == "" || slot.DurationMinutes <= 0 {
		return false, ReasonMalformed
	}
	if start.Before(v.now()) {
		return false, ReasonPast
	}
	return true, ""
}

// FilterValid keeps only presentable slots, preserving order.
func (v *SlotValidator) FilterValid(slots []models.TimeSlot) []models.TimeSlot {
	valid := make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if ok, _ := v.Validate(slot); ok {
			valid = append(valid, slot)
		}
	}
	return valid
}
