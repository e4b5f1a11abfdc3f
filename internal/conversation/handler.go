package conversation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zap-ai/zapai/pkg/logging"
)

// TurnRunner is implemented by Engine; split out so the handler is testable
// with a fake.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, req TurnRequest) (Outcome, error)
}

// Handler exposes the internal engine-trigger endpoint.
type Handler struct {
	engine TurnRunner
	logger *logging.Logger
}

func NewHandler(engine TurnRunner, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("conversation: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger.Component("conversation_handler")}
}

// ProcessTurn handles POST /internal/conversations/process.
func (h *Handler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("invalid turn request", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.engine.ProcessTurn(r.Context(), req)
	if err != nil {
		h.logger.Error("turn failed", "error", err, "conversation_id", req.ConversationID)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if outcome == OutcomeSkipped {
		_, _ = w.Write([]byte("Skipped"))
		return
	}
	_, _ = w.Write([]byte("OK"))
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
