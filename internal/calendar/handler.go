package calendar

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/zap-ai/zapai/pkg/logging"
)

// Enqueuer is implemented by Queue; split out so the handler is testable
// with a fake.
type Enqueuer interface {
	Upsert(ctx context.Context, appointmentID uuid.UUID) error
	Delete(ctx context.Context, appointmentID uuid.UUID) error
}

// Handler exposes the internal calendar-sync trigger endpoint.
type Handler struct {
	queue  Enqueuer
	logger *logging.Logger
}

func NewHandler(queue Enqueuer, logger *logging.Logger) *Handler {
	if queue == nil {
		panic("calendar: queue required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{queue: queue, logger: logger.Component("calendar_handler")}
}

// Sync handles POST /internal/calendar/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppointmentID uuid.UUID `json:"appointmentId"`
		Action        string    `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AppointmentID == uuid.Nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	if req.Action == ActionDelete {
		err = h.queue.Delete(r.Context(), req.AppointmentID)
	} else {
		err = h.queue.Upsert(r.Context(), req.AppointmentID)
	}
	if err != nil {
		h.logger.Error("sync enqueue failed", "appointment_id", req.AppointmentID, "error", err)
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
