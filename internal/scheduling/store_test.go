package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreInsertAppointmentDefaultsPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	contactID := uuid.New()
	serviceID := uuid.New()
	professionalID := uuid.New()
	companyID := uuid.New()

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), contactID, serviceID, professionalID, companyID, "2025-11-10", "14:00", StatusPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Insert(context.Background(), Appointment{
		ContactID:      contactID,
		ServiceID:      serviceID,
		ProfessionalID: professionalID,
		CompanyID:      companyID,
		Date:           "2025-11-10",
		Time:           "14:00",
	})
	if err != nil {
		t.Fatalf("insert appointment: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected generated appointment id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreOccupiedTimesExcludesCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	professionalID := uuid.New()

	mock.ExpectQuery("SELECT appointment_time").
		WithArgs(professionalID, "2025-11-10", StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).AddRow("10:00:00").AddRow("11:30:00"))

	times, err := store.OccupiedTimes(context.Background(), professionalID, "2025-11-10")
	if err != nil {
		t.Fatalf("occupied times: %v", err)
	}
	if len(times) != 2 || times[0] != "10:00:00" {
		t.Fatalf("unexpected occupied times: %v", times)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	id := uuid.New()
	mock.ExpectQuery("SELECT id, contact_id, service_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := store.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListUpcoming(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	contactID := uuid.New()
	apptID := uuid.New()

	mock.ExpectQuery("SELECT a.id, a.appointment_date").
		WithArgs(contactID, "2025-11-03", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date", "time", "status", "service", "price", "professional"}).
			AddRow(apptID, "2025-11-10", "14:00:00", StatusPending, "Corte", 50.0, "Ana"))

	upcoming, err := store.ListUpcoming(context.Background(), contactID, "2025-11-03", 10)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ServiceName != "Corte" || upcoming[0].ID != apptID {
		t.Fatalf("unexpected upcoming: %+v", upcoming)
	}
}
