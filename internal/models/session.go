package models

import "time"

// SessionState is the ephemeral per-customer conversation state. It lives in
// the session repository under a TTL; an expired session reads back as nil and
// the flow falls back to defaults rather than resurrecting a stale snapshot.
type SessionState struct {
	CustomerID       string     `json:"customer_id"`
	Language         string     `json:"language"`
	Step             string     `json:"step"`
	CandidateSlots   []TimeSlot `json:"candidate_slots,omitempty"`
	LastQuery        *SlotQuery `json:"last_query,omitempty"`
	PendingBookingID string     `json:"pending_booking_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FindSlot looks the given reference up in the presented snapshot. Selections
// are only honored against the snapshot, never against client-echoed payloads.
func (s *SessionState) FindSlot(ref SlotRef) (TimeSlot, bool) {
	if s == nil {
		return TimeSlot{}, false
	}
	for _, slot := range s.CandidateSlots {
		if slot.Date == ref.Date && slot.Time == ref.Time && slot.ResourceID == ref.ResourceID {
			return slot, true
		}
	}
	return TimeSlot{}, false
}
