package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when the appointment backing a sync job is gone.
var ErrNotFound = errors.New("calendar: appointment not found")

type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store loads sync records and writes back event ids.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("calendar: querier required")
	}
	return &Store{pool: pool}
}

// Load gathers the appointment, its service and contact, and the company's
// Google refresh token in one query.
func (s *Store) Load(ctx context.Context, appointmentID uuid.UUID) (*SyncRecord, error) {
	var rec SyncRecord
	err := s.pool.QueryRow(ctx, `
		SELECT a.id, a.appointment_date, a.appointment_time, COALESCE(a.google_event_id, ''),
		       COALESCE(s.name, ''), COALESCE(s.duration_minutes, 60),
		       COALESCE(ct.name, ''), COALESCE(co.google_refresh_token, '')
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		LEFT JOIN contacts ct ON ct.id = a.contact_id
		JOIN companies co ON co.id = a.company_id
		WHERE a.id = $1
	`, appointmentID).Scan(&rec.AppointmentID, &rec.Date, &rec.Time, &rec.GoogleEventID,
		&rec.ServiceName, &rec.DurationMinutes, &rec.ContactName, &rec.RefreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("calendar: load sync record: %w", err)
	}
	return &rec, nil
}

// SaveEventID stores the Google event id after the first insert.
func (s *Store) SaveEventID(ctx context.Context, appointmentID uuid.UUID, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE appointments SET google_event_id = $2 WHERE id = $1
	`, appointmentID, eventID)
	if err != nil {
		return fmt.Errorf("calendar: save event id: %w", err)
	}
	return nil
}
