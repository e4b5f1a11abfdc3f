package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	upserts []uuid.UUID
	deletes []uuid.UUID
}

func (f *fakeEnqueuer) Upsert(_ context.Context, id uuid.UUID) error {
	f.upserts = append(f.upserts, id)
	return nil
}

func (f *fakeEnqueuer) Delete(_ context.Context, id uuid.UUID) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func TestSyncHandlerDefaultsToUpsert(t *testing.T) {
	q := &fakeEnqueuer{}
	h := NewHandler(q, nil)
	id := uuid.New()

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"appointmentId":"%s"}`, id)
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/internal/calendar/sync", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, q.upserts)
	assert.Empty(t, q.deletes)
}

func TestSyncHandlerDelete(t *testing.T) {
	q := &fakeEnqueuer{}
	h := NewHandler(q, nil)
	id := uuid.New()

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"appointmentId":"%s","action":"DELETE"}`, id)
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/internal/calendar/sync", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, q.deletes)
}

func TestSyncHandlerRejectsMissingID(t *testing.T) {
	h := NewHandler(&fakeEnqueuer{}, nil)
	rec := httptest.NewRecorder()
	h.Sync(rec, httptest.NewRequest(http.MethodPost, "/internal/calendar/sync", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
