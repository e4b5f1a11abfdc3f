package calendar

import "github.com/google/uuid"

// Action discriminates sync job intent.
const (
	ActionUpsert = "UPSERT"
	ActionDelete = "DELETE"
)

// SyncJob is one queued calendar synchronization request.
type SyncJob struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Action        string    `json:"action"`
	Attempt       int       `json:"attempt"`
}

// SyncRecord is everything one sync needs about an appointment, loaded in a
// single joined query.
type SyncRecord struct {
	AppointmentID   uuid.UUID
	Date            string // "YYYY-MM-DD"
	Time            string // "HH:MM:SS"
	GoogleEventID   string
	ServiceName     string
	DurationMinutes int
	ContactName     string
	RefreshToken    string
}
