package models

import "time"

type Booking struct {
	ID          string    `json:"id"`
	ResourceID  string    `json:"resource_id"`
	ServiceID   string    `json:"service_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"` // pending, confirmed, cancelled, no_show, completed
	CustomerRef string    `json:"customer_ref"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resource is the staff member or asset a service is performed by. It is the
// unit of serialization for conflict checks: every booking against a resource
// goes through the lock on its row.
type Resource struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`
}

type Service struct {
	ID              string  `json:"id" yaml:"id"`
	Name            string  `json:"name" yaml:"name"`
	DurationMinutes int     `json:"duration_minutes" yaml:"duration_minutes"`
	Price           float64 `json:"price" yaml:"price"`
	IsActive        bool    `json:"is_active" yaml:"is_active"`
}
