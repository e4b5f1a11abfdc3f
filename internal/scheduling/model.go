package scheduling

import "github.com/google/uuid"

// Appointment status state machine:
// PENDING --(payment confirmed)--> CONFIRMED
// PENDING|CONFIRMED --(cancel)--> CANCELLED
// CANCELLED is terminal.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Service is a bookable offering with a price and a slot duration.
type Service struct {
	ID              uuid.UUID
	Name            string
	Price           float64
	DurationMinutes int
}

// Professional is a provider with a daily working window.
type Professional struct {
	ID        uuid.UUID
	Name      string
	Role      string
	StartTime string // "HH:MM"
	EndTime   string // "HH:MM"
}

// Appointment is a booking row.
type Appointment struct {
	ID             uuid.UUID
	ContactID      uuid.UUID
	ServiceID      uuid.UUID
	ProfessionalID uuid.UUID
	CompanyID      uuid.UUID
	Date           string // "YYYY-MM-DD"
	Time           string // "HH:MM"
	Status         string
	GoogleEventID  string
}

// AppointmentSummary is the joined projection returned to the model by
// list_my_appointments.
type AppointmentSummary struct {
	ID               uuid.UUID
	Date             string
	Time             string
	Status           string
	ServiceName      string
	ServicePrice     float64
	ProfessionalName string
}
