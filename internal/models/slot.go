package models

import (
	"fmt"
	"time"
)

const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04"
)

// TimeSlot is a candidate appointment produced by the slot source. It is a
// read-only value; committing one as a booking goes through the database layer.
type TimeSlot struct {
	Date            string  `json:"date"` // 2006-01-02
	Time            string  `json:"time"` // 15:04, local wall clock
	ResourceID      string  `json:"resource_id"`
	ServiceID       string  `json:"service_id"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price,omitempty"`
	IsPreferred     bool    `json:"is_preferred,omitempty"`
}

// Start resolves the slot's wall-clock date and time in the given location.
func (s TimeSlot) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(SlotDateLayout+" "+SlotTimeLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot date/time %q %q: %w", s.Date, s.Time, err)
	}
	return t, nil
}

// End is Start shifted by the service duration.
func (s TimeSlot) End(loc *time.Location) (time.Time, error) {
	start, err := s.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(s.DurationMinutes) * time.Minute), nil
}

// Ref returns the slot's selection payload, the part echoed back by the client.
func (s TimeSlot) Ref() SlotRef {
	return SlotRef{Date: s.Date, Time: s.Time, ResourceID: s.ResourceID}
}

// SlotRef identifies one presented slot inside a selection token.
type SlotRef struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	ResourceID string `json:"resource_id"`
}

// SlotQuery is the structured request handed over by the intent-understanding
// collaborator. ResourceID empty means "any available resource".
type SlotQuery struct {
	ResourceID    string `json:"resource_id,omitempty"`
	ServiceID     string `json:"service_id"`
	PreferredDate string `json:"preferred_date,omitempty"`
	PreferredTime string `json:"preferred_time,omitempty"`
}

func (q SlotQuery) Validate() error {
	if q.ServiceID == "" {
		return fmt.Errorf("slot query: service_id is required")
	}
	if q.PreferredDate != "" {
		if _, err := time.Parse(SlotDateLayout, q.PreferredDate); err != nil {
			return fmt.Errorf("slot query: invalid preferred_date %q", q.PreferredDate)
		}
	}
	if q.PreferredTime != "" {
		if _, err := time.Parse(SlotTimeLayout, q.PreferredTime); err != nil {
			return fmt.Errorf("slot query: invalid preferred_time %q", q.PreferredTime)
		}
	}
	return nil
}
