package entities

import "time"

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID           int       `json:"id"`
	ClientID     int       `json:"client_id"`
	ContactPhone string    `json:"contact_phone"`
	ContactName  string    `json:"contact_name"`
	ServiceID    int       `json:"service_id"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	Reminded     bool      `json:"reminded"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service is a bookable offering with a fixed duration.
type Service struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	DurationMin int     `json:"duration_min"`
	Price       float64 `json:"price"`
	Active      bool    `json:"active"`
}

// WorkingHours covers one weekday. Times are "HH:MM" in the tenant's zone.
type WorkingHours struct {
	Weekday int    `json:"weekday"` // 0 = Sunday
	Opens   string `json:"opens"`
	Closes  string `json:"closes"`
	Enabled bool   `json:"enabled"`
}
