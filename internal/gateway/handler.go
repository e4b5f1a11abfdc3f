package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zap-ai/zapai/internal/company"
	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/pkg/logging"
)

var tracer = otel.Tracer("zapai.internal.gateway")

// Provider acknowledgement bodies. The Evolution API only checks the HTTP
// status, but the bodies make webhook logs readable.
const (
	ackStatusUpdated   = "Status atualizado"
	ackIgnored         = "Ignorado"
	ackGroupIgnored    = "Grupo ignorado"
	ackNoContent       = "Sem conteúdo processável"
	ackUnknownInstance = "Instância não encontrada"
)

// pdfMarker tells the agent a receipt-like document arrived without running
// it through OCR.
const pdfMarkerFormat = "[Arquivo PDF: %s]: O usuário enviou um comprovante ou documento em PDF. IA, se o usuário disser que é um comprovante, use a ferramenta de checagem de pagamento para confirmar."

const mediaPlaceholder = "(Mídia)"

// turnTimeout bounds a background engine turn. It must comfortably exceed
// the debounce quiet window.
const turnTimeout = 2 * time.Minute

// CompanyReader is the company configuration slice the gateway reads.
type CompanyReader interface {
	InstanceByName(ctx context.Context, name string) (*company.Instance, error)
	UpdateConnectionStatus(ctx context.Context, instanceName, state string) error
	Agent(ctx context.Context, id uuid.UUID) (*company.Agent, error)
}

// ConversationWriter is the conversation persistence the gateway writes.
type ConversationWriter interface {
	UpsertContact(ctx context.Context, phone, name string, companyID uuid.UUID) (uuid.UUID, error)
	UpsertConversation(ctx context.Context, contactID, instanceID uuid.UUID) (*conversation.Conversation, error)
	InsertMessage(ctx context.Context, conversationID uuid.UUID, sender conversation.Sender, content string) error
	TouchPreview(ctx context.Context, id uuid.UUID, preview string, incrementUnread bool) error
}

// MediaFetcher downloads message media from the provider.
type MediaFetcher interface {
	FetchBase64(ctx context.Context, instanceName, token, messageID string) (string, error)
}

// MediaEnricher converts media payloads to transcript text.
type MediaEnricher interface {
	TranscribeAudio(ctx context.Context, b64 string) string
	DescribeImage(ctx context.Context, b64 string) string
}

// TurnRunner schedules conversation turns.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, req conversation.TurnRequest) (conversation.Outcome, error)
}

// Handler is the WhatsApp webhook intake. It persists every message and
// triggers the engine asynchronously so the provider gets its ack before the
// debounce window even starts.
type Handler struct {
	companies CompanyReader
	convs     ConversationWriter
	fetcher   MediaFetcher
	enricher  MediaEnricher
	engine    TurnRunner
	metrics   *metrics.PipelineMetrics
	logger    *logging.Logger
	// spawn runs the async engine trigger; tests replace it to run inline.
	spawn func(func())
}

type HandlerConfig struct {
	Companies CompanyReader
	Convs     ConversationWriter
	Fetcher   MediaFetcher
	Enricher  MediaEnricher
	Engine    TurnRunner
	Metrics   *metrics.PipelineMetrics
	Logger    *logging.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Companies == nil {
		panic("gateway: company reader required")
	}
	if cfg.Convs == nil {
		panic("gateway: conversation writer required")
	}
	if cfg.Fetcher == nil {
		panic("gateway: media fetcher required")
	}
	if cfg.Enricher == nil {
		panic("gateway: media enricher required")
	}
	if cfg.Engine == nil {
		panic("gateway: turn runner required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		companies: cfg.Companies,
		convs:     cfg.Convs,
		fetcher:   cfg.Fetcher,
		enricher:  cfg.Enricher,
		engine:    cfg.Engine,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.Component("gateway"),
		spawn:     func(fn func()) { go fn() },
	}
}

// HandleWebhook is POST /webhooks/whatsapp.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "gateway.webhook")
	defer span.End()

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.metrics.ObserveInbound("malformed", "rejected")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("zapai.event", payload.Event),
		attribute.String("zapai.instance", payload.Instance),
	)

	switch payload.Event {
	case "connection.update", "instance.update":
		h.handleConnectionUpdate(ctx, w, &payload)
		return
	case "messages.upsert":
		if payload.Data == nil {
			h.metrics.ObserveInbound(payload.Event, "ignored")
			writeText(w, http.StatusOK, ackIgnored)
			return
		}
		h.handleMessage(ctx, w, &payload)
		return
	default:
		h.metrics.ObserveInbound(payload.Event, "ignored")
		writeText(w, http.StatusOK, ackIgnored)
	}
}

func (h *Handler) handleConnectionUpdate(ctx context.Context, w http.ResponseWriter, payload *webhookPayload) {
	if state := payload.connectionState(); state != "" {
		if err := h.companies.UpdateConnectionStatus(ctx, payload.Instance, state); err != nil {
			h.logger.Error("connection status update failed", "instance", payload.Instance, "error", err)
		} else {
			h.logger.Info("instance status updated", "instance", payload.Instance, "state", state)
		}
	}
	h.metrics.ObserveInbound(payload.Event, "ok")
	writeText(w, http.StatusOK, ackStatusUpdated)
}

func (h *Handler) handleMessage(ctx context.Context, w http.ResponseWriter, payload *webhookPayload) {
	data := payload.Data
	if data.Key == nil {
		h.metrics.ObserveInbound(payload.Event, "ignored")
		writeText(w, http.StatusOK, ackIgnored)
		return
	}

	remoteJid := data.Key.RemoteJid
	if strings.Contains(remoteJid, "@g.us") {
		h.metrics.ObserveInbound(payload.Event, "group_ignored")
		writeText(w, http.StatusOK, ackGroupIgnored)
		return
	}
	phone := strings.SplitN(remoteJid, "@", 2)[0]
	pushName := data.PushName
	if pushName == "" {
		pushName = phone
	}

	inst, err := h.companies.InstanceByName(ctx, payload.Instance)
	if err != nil {
		h.metrics.ObserveInbound(payload.Event, "unknown_instance")
		writeText(w, http.StatusNotFound, ackUnknownInstance)
		return
	}
	agent, err := h.companies.Agent(ctx, inst.AgentID)
	if err != nil {
		h.logger.Error("agent lookup failed", "instance", payload.Instance, "error", err)
		http.Error(w, "agent lookup failed", http.StatusInternalServerError)
		return
	}

	contactID, err := h.convs.UpsertContact(ctx, phone, pushName, inst.CompanyID)
	if err != nil {
		h.fail(w, payload.Event, "contact upsert failed", err)
		return
	}
	conv, err := h.convs.UpsertConversation(ctx, contactID, inst.ID)
	if err != nil {
		h.fail(w, payload.Event, "conversation upsert failed", err)
		return
	}

	text := h.extractContent(ctx, payload, inst, agent)
	if text == "" && !data.Key.FromMe {
		h.metrics.ObserveInbound(payload.Event, "no_content")
		writeText(w, http.StatusOK, ackNoContent)
		return
	}

	sender := conversation.SenderUser
	if data.Key.FromMe {
		sender = conversation.SenderOperator
	}
	content := text
	if content == "" {
		content = mediaPlaceholder
	}
	if err := h.convs.InsertMessage(ctx, conv.ID, sender, content); err != nil {
		h.fail(w, payload.Event, "message insert failed", err)
		return
	}
	if err := h.convs.TouchPreview(ctx, conv.ID, content, !data.Key.FromMe); err != nil {
		h.logger.Error("preview update failed", "conversation_id", conv.ID, "error", err)
	}

	if !data.Key.FromMe && !conv.IsHumanActive {
		req := conversation.TurnRequest{
			ConversationID: conv.ID,
			InstanceID:     inst.ID,
			Phone:          phone,
			TextAdded:      text,
		}
		h.spawn(func() {
			turnCtx, cancel := context.WithTimeout(context.Background(), turnTimeout)
			defer cancel()
			if _, err := h.engine.ProcessTurn(turnCtx, req); err != nil {
				h.logger.Error("engine turn failed", "conversation_id", req.ConversationID, "error", err)
			}
		})
	}

	h.metrics.ObserveInbound(payload.Event, "ok")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// extractContent turns the message body into transcript text. Media types an
// agent has disabled fall through to empty content.
func (h *Handler) extractContent(ctx context.Context, payload *webhookPayload, inst *company.Instance, agent *company.Agent) string {
	msg := payload.Data.Message
	if msg == nil {
		return ""
	}
	switch {
	case msg.Conversation != "":
		return msg.Conversation
	case msg.ExtendedTextMessage != nil && msg.ExtendedTextMessage.Text != "":
		return msg.ExtendedTextMessage.Text
	case msg.AudioMessage != nil && agent.EnableAudio:
		b64 := h.fetchMedia(ctx, payload, inst)
		if b64 == "" {
			return ""
		}
		return h.enricher.TranscribeAudio(ctx, b64)
	case msg.ImageMessage != nil && agent.EnableImage:
		b64 := h.fetchMedia(ctx, payload, inst)
		if b64 == "" {
			return ""
		}
		return "[Imagem]: " + h.enricher.DescribeImage(ctx, b64)
	case msg.DocumentMessage != nil && msg.DocumentMessage.Mimetype == "application/pdf":
		name := msg.DocumentMessage.FileName
		if name == "" {
			name = "documento.pdf"
		}
		return fmt.Sprintf(pdfMarkerFormat, name)
	}
	return ""
}

func (h *Handler) fetchMedia(ctx context.Context, payload *webhookPayload, inst *company.Instance) string {
	b64, err := h.fetcher.FetchBase64(ctx, payload.Instance, inst.Token, payload.Data.Key.ID)
	if err != nil {
		h.logger.Warn("media fetch failed", "instance", payload.Instance, "error", err)
		return ""
	}
	return b64
}

func (h *Handler) fail(w http.ResponseWriter, event, msg string, err error) {
	h.logger.Error(msg, "error", err)
	h.metrics.ObserveInbound(event, "error")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
