package outbound

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zap-ai/zapai/internal/company"
	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/pkg/logging"
)

// TextSender is the transport slice the dispatcher needs.
type TextSender interface {
	SendText(ctx context.Context, instanceName, token, phone, text string) error
}

// TranscriptWriter records delivered replies on the conversation.
type TranscriptWriter interface {
	InsertMessage(ctx context.Context, conversationID uuid.UUID, sender conversation.Sender, content string) error
	TouchPreview(ctx context.Context, id uuid.UUID, preview string, incrementUnread bool) error
}

// Dispatcher sends the engine's reply and records it. The send comes first:
// a reply we failed to deliver must not appear in the transcript as if the
// customer saw it.
type Dispatcher struct {
	sender  TextSender
	store   TranscriptWriter
	metrics *metrics.PipelineMetrics
	logger  *logging.Logger
}

func NewDispatcher(sender TextSender, store TranscriptWriter, m *metrics.PipelineMetrics, logger *logging.Logger) *Dispatcher {
	if sender == nil {
		panic("outbound: sender required")
	}
	if store == nil {
		panic("outbound: transcript writer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{sender: sender, store: store, metrics: m, logger: logger.Component("dispatcher")}
}

// DeliverReply implements conversation.ReplyDispatcher.
func (d *Dispatcher) DeliverReply(ctx context.Context, inst *company.Instance, conversationID uuid.UUID, phone, reply string) error {
	if err := d.sender.SendText(ctx, inst.Name, inst.Token, phone, reply); err != nil {
		d.metrics.ObserveOutbound("error")
		return fmt.Errorf("outbound: deliver reply: %w", err)
	}
	d.metrics.ObserveOutbound("ok")

	if err := d.store.InsertMessage(ctx, conversationID, conversation.SenderAI, reply); err != nil {
		// Delivered but not recorded; log loudly instead of resending.
		d.logger.Error("reply delivered but not recorded", "conversation_id", conversationID, "error", err)
		return nil
	}
	if err := d.store.TouchPreview(ctx, conversationID, reply, false); err != nil {
		d.logger.Error("preview update failed", "conversation_id", conversationID, "error", err)
	}
	return nil
}
