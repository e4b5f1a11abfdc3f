package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("scheduling: not found")

// Querier abstracts the pgx pool so tests can inject pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists services, professionals and appointments.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("scheduling: querier required")
	}
	return &Store{pool: pool}
}

// ListServices returns the company's offerings.
func (s *Store) ListServices(ctx context.Context, companyID uuid.UUID) ([]Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, price, duration_minutes
		FROM services
		WHERE company_id = $1
		ORDER BY name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Price, &svc.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scheduling: scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate services: %w", err)
	}
	return services, nil
}

// ListProfessionals returns the company's providers.
func (s *Store) ListProfessionals(ctx context.Context, companyID uuid.UUID) ([]Professional, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, COALESCE(role, ''), start_time, end_time
		FROM professionals
		WHERE company_id = $1
		ORDER BY name
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list professionals: %w", err)
	}
	defer rows.Close()

	var pros []Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.StartTime, &p.EndTime); err != nil {
			return nil, fmt.Errorf("scheduling: scan professional: %w", err)
		}
		pros = append(pros, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate professionals: %w", err)
	}
	return pros, nil
}

// GetService loads one service.
func (s *Store) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var svc Service
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, price, duration_minutes FROM services WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.Price, &svc.DurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduling: load service: %w", err)
	}
	return &svc, nil
}

// GetProfessional loads one professional.
func (s *Store) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	var p Professional
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(role, ''), start_time, end_time FROM professionals WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Role, &p.StartTime, &p.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduling: load professional: %w", err)
	}
	return &p, nil
}

// OccupiedTimes lists the appointment start times already booked for a
// professional on a date, excluding cancelled rows.
func (s *Store) OccupiedTimes(ctx context.Context, professionalID uuid.UUID, date string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE professional_id = $1 AND appointment_date = $2 AND status <> $3
	`, professionalID, date, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("scheduling: occupied times: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scheduling: scan occupied time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate occupied times: %w", err)
	}
	return times, nil
}

// Insert creates a PENDING appointment and returns its id.
func (s *Store) Insert(ctx context.Context, a Appointment) (uuid.UUID, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO appointments (id, contact_id, service_id, professional_id, company_id, appointment_date, appointment_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, a.ContactID, a.ServiceID, a.ProfessionalID, a.CompanyID, a.Date, a.Time, StatusPending)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return id, nil
}

// Get loads an appointment.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := s.pool.QueryRow(ctx, `
		SELECT id, contact_id, service_id, professional_id, company_id,
		       appointment_date, appointment_time, status, COALESCE(google_event_id, '')
		FROM appointments
		WHERE id = $1
	`, id).Scan(&a.ID, &a.ContactID, &a.ServiceID, &a.ProfessionalID, &a.CompanyID,
		&a.Date, &a.Time, &a.Status, &a.GoogleEventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduling: load appointment: %w", err)
	}
	return &a, nil
}

// SetStatus updates an appointment's status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE appointments SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("scheduling: set status: %w", err)
	}
	return nil
}

// SetGoogleEventID stores the external-calendar event id after first insert.
func (s *Store) SetGoogleEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE appointments SET google_event_id = $2 WHERE id = $1
	`, id, eventID)
	if err != nil {
		return fmt.Errorf("scheduling: set google event id: %w", err)
	}
	return nil
}

// ListUpcoming returns a contact's appointments dated fromDate or later,
// earliest first, joined with service and professional names. Past rows are
// intentionally excluded so the model cannot act on stale data.
func (s *Store) ListUpcoming(ctx context.Context, contactID uuid.UUID, fromDate string, limit int) ([]AppointmentSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.appointment_date, a.appointment_time, a.status,
		       s.name, s.price, p.name
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		JOIN professionals p ON p.id = a.professional_id
		WHERE a.contact_id = $1 AND a.appointment_date >= $2
		ORDER BY a.appointment_date, a.appointment_time
		LIMIT $3
	`, contactID, fromDate, limit)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list upcoming: %w", err)
	}
	defer rows.Close()

	var result []AppointmentSummary
	for rows.Next() {
		var sum AppointmentSummary
		if err := rows.Scan(&sum.ID, &sum.Date, &sum.Time, &sum.Status,
			&sum.ServiceName, &sum.ServicePrice, &sum.ProfessionalName); err != nil {
			return nil, fmt.Errorf("scheduling: scan upcoming: %w", err)
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate upcoming: %w", err)
	}
	return result, nil
}
