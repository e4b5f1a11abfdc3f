package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zap-ai/zapai/internal/billing"
	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/internal/scheduling"
	"github.com/zap-ai/zapai/pkg/logging"
)

var tracer = otel.Tracer("zapai.internal.tools")

// SchedulingStore is the scheduling persistence the handlers use.
type SchedulingStore interface {
	ListServices(ctx context.Context, companyID uuid.UUID) ([]scheduling.Service, error)
	ListProfessionals(ctx context.Context, companyID uuid.UUID) ([]scheduling.Professional, error)
	GetService(ctx context.Context, id uuid.UUID) (*scheduling.Service, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (*scheduling.Professional, error)
	OccupiedTimes(ctx context.Context, professionalID uuid.UUID, date string) ([]string, error)
	Insert(ctx context.Context, a scheduling.Appointment) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	ListUpcoming(ctx context.Context, contactID uuid.UUID, fromDate string, limit int) ([]scheduling.AppointmentSummary, error)
}

// BillingStore is the invoice/charge persistence the payment handlers use.
type BillingStore interface {
	EnsureInvoice(ctx context.Context, appointmentID, contactID, companyID uuid.UUID, amount float64) (uuid.UUID, error)
	UpsertCharge(ctx context.Context, c billing.PixCharge) error
	LatestTxID(ctx context.Context, appointmentID uuid.UUID) (string, error)
	MarkInvoicesPaid(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error)
	MarkChargesDone(ctx context.Context, invoiceIDs []uuid.UUID) error
	MarkChargeDoneByTxID(ctx context.Context, txid string) error
	ContactBilling(ctx context.Context, contactID uuid.UUID) (name, cpf string, err error)
}

// PaymentGateway is the PIX automation client.
type PaymentGateway interface {
	GeneratePix(ctx context.Context, req billing.ChargeRequest) (billing.PixPayload, error)
	CheckStatus(ctx context.Context, appointmentID uuid.UUID, txid string) (string, error)
}

// CalendarNotifier schedules calendar synchronization after booking changes.
type CalendarNotifier interface {
	Upsert(ctx context.Context, appointmentID uuid.UUID) error
	Delete(ctx context.Context, appointmentID uuid.UUID) error
}

// Registry executes the model's tool calls against the booking and billing
// stores. It satisfies conversation.ToolExecutor.
type Registry struct {
	scheduling SchedulingStore
	billing    BillingStore
	payments   PaymentGateway
	calendar   CalendarNotifier
	metrics    *metrics.PipelineMetrics
	logger     *logging.Logger
	loc        *time.Location
	now        func() time.Time
}

// RegistryConfig wires a Registry. Metrics is optional.
type RegistryConfig struct {
	Scheduling SchedulingStore
	Billing    BillingStore
	Payments   PaymentGateway
	Calendar   CalendarNotifier
	Metrics    *metrics.PipelineMetrics
	Logger     *logging.Logger
	Location   *time.Location
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Scheduling == nil {
		panic("tools: scheduling store required")
	}
	if cfg.Billing == nil {
		panic("tools: billing store required")
	}
	if cfg.Payments == nil {
		panic("tools: payment gateway required")
	}
	if cfg.Calendar == nil {
		panic("tools: calendar notifier required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Registry{
		scheduling: cfg.Scheduling,
		billing:    cfg.Billing,
		payments:   cfg.Payments,
		calendar:   cfg.Calendar,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.Component("tools"),
		loc:        cfg.Location,
		now:        time.Now,
	}
}

// Definitions returns the callable surface advertised to the model.
func (r *Registry) Definitions() []openai.Tool {
	return definitions()
}

// Execute dispatches one tool call. Failures are returned as text the model
// can read and recover from, never as errors that would abort the turn.
func (r *Registry) Execute(ctx context.Context, call openai.ToolCall, scope conversation.ToolScope) string {
	name := call.Function.Name
	ctx, span := tracer.Start(ctx, "tools.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("zapai.tool", name),
		attribute.String("zapai.company_id", scope.CompanyID.String()),
	)

	result, err := r.dispatch(ctx, name, []byte(call.Function.Arguments), scope)
	if err != nil {
		span.RecordError(err)
		r.metrics.ObserveToolCall(name, "error")
		r.logger.Warn("tool call failed", "tool", name, "error", err)
		return fmt.Sprintf("Erro ao executar %s: %v", name, err)
	}
	r.metrics.ObserveToolCall(name, "ok")
	return result
}

func (r *Registry) dispatch(ctx context.Context, name string, args []byte, scope conversation.ToolScope) (string, error) {
	switch name {
	case NameListServices:
		return r.listServices(ctx, scope)
	case NameListProfessionals:
		return r.listProfessionals(ctx, scope)
	case NameGetAvailableSlots:
		return r.getAvailableSlots(ctx, args)
	case NameCreateAppointment:
		return r.createAppointment(ctx, args, scope)
	case NameListAppointments:
		return r.listMyAppointments(ctx, scope)
	case NameCancelAppointment:
		return r.cancelAppointment(ctx, args)
	case NameGeneratePayment:
		return r.generatePayment(ctx, args, scope)
	case NameCheckPaymentStatus:
		return r.checkPaymentStatus(ctx, args)
	default:
		return fmt.Sprintf("Erro: Ferramenta %s não implementada.", name), nil
	}
}

type appointmentArgs struct {
	AppointmentID string `json:"appointment_id"`
}

func parseUUIDArg(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("tools: invalid %s %q", field, raw)
	}
	return id, nil
}

func decodeArgs(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("tools: missing arguments")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("tools: decode arguments: %w", err)
	}
	return nil
}
