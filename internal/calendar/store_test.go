package calendar

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestLoadSyncRecord(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()

	mock.ExpectQuery("FROM appointments a").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_date", "appointment_time", "google_event_id",
			"name", "duration_minutes", "name", "google_refresh_token",
		}).AddRow(apptID, "2025-11-10", "14:00", "", "Corte", 45, "Maria", "refresh-token"))

	rec, err := store.Load(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-10", rec.Date)
	assert.Equal(t, "14:00", rec.Time)
	assert.Equal(t, 45, rec.DurationMinutes)
	assert.Equal(t, "Corte", rec.ServiceName)
	assert.Equal(t, "refresh-token", rec.RefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMissingAppointmentIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()

	mock.ExpectQuery("FROM appointments a").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_date", "appointment_time", "google_event_id",
			"name", "duration_minutes", "name", "google_refresh_token",
		}))

	_, err := store.Load(context.Background(), apptID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEventID(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()

	mock.ExpectExec("UPDATE appointments SET google_event_id").
		WithArgs(apptID, "evt_123").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SaveEventID(context.Background(), apptID, "evt_123"))
	require.NoError(t, mock.ExpectationsWereMet())
}
