package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zap-ai/zapai/internal/company"
	"github.com/zap-ai/zapai/internal/hours"
	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/pkg/logging"
)

var engineTracer = otel.Tracer("zapai.internal.conversation.engine")

// maxToolRounds caps model round-trips per turn so a pathological
// tool-call loop cannot spin forever.
const maxToolRounds = 10

const defaultTemperature = 0.7

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ToolScope carries the tenant identity every tool call executes under.
type ToolScope struct {
	CompanyID  uuid.UUID
	ContactID  uuid.UUID
	InstanceID uuid.UUID
}

// ToolExecutor is the registry of callable capabilities exposed to the model.
// Execute never returns an error: failures come back as result text the model
// can recover from.
type ToolExecutor interface {
	Definitions() []openai.Tool
	Execute(ctx context.Context, call openai.ToolCall, scope ToolScope) string
}

// CompanyDirectory is the read-side of company configuration the engine needs.
type CompanyDirectory interface {
	InstanceByID(ctx context.Context, id uuid.UUID) (*company.Instance, error)
	Agent(ctx context.Context, id uuid.UUID) (*company.Agent, error)
	Settings(ctx context.Context, companyID uuid.UUID) (hours.Settings, error)
}

// EngineStore is the transcript/conversation persistence the engine reads.
type EngineStore interface {
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
}

// ReplyDispatcher delivers the finished reply through the messaging provider
// and records it on the conversation.
type ReplyDispatcher interface {
	DeliverReply(ctx context.Context, inst *company.Instance, conversationID uuid.UUID, phone, reply string) error
}

// Engine drives one debounced conversation turn: claim the buffer, assemble
// system context, loop with the tool registry against the model, dispatch the
// final reply.
type Engine struct {
	debouncer    *Debouncer
	store        EngineStore
	companies    CompanyDirectory
	chat         chatClient
	tools        ToolExecutor
	dispatcher   ReplyDispatcher
	metrics      *metrics.PipelineMetrics
	logger       *logging.Logger
	model        string
	historyLimit int
	modelTimeout time.Duration
	loc          *time.Location
	now          func() time.Time
}

// EngineConfig wires an Engine. All fields except Metrics are required.
type EngineConfig struct {
	Debouncer    *Debouncer
	Store        EngineStore
	Companies    CompanyDirectory
	Chat         chatClient
	Tools        ToolExecutor
	Dispatcher   ReplyDispatcher
	Metrics      *metrics.PipelineMetrics
	Logger       *logging.Logger
	Model        string
	HistoryLimit int
	ModelTimeout time.Duration
	Location     *time.Location
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Debouncer == nil {
		panic("conversation: debouncer required")
	}
	if cfg.Store == nil {
		panic("conversation: store required")
	}
	if cfg.Companies == nil {
		panic("conversation: company directory required")
	}
	if cfg.Chat == nil {
		panic("conversation: chat client required")
	}
	if cfg.Tools == nil {
		panic("conversation: tool executor required")
	}
	if cfg.Dispatcher == nil {
		panic("conversation: reply dispatcher required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{
		debouncer:    cfg.Debouncer,
		store:        cfg.Store,
		companies:    cfg.Companies,
		chat:         cfg.Chat,
		tools:        cfg.Tools,
		dispatcher:   cfg.Dispatcher,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.Component("engine"),
		model:        cfg.Model,
		historyLimit: cfg.HistoryLimit,
		modelTimeout: cfg.ModelTimeout,
		loc:          cfg.Location,
		now:          time.Now,
	}
}

// ProcessTurn runs the full pipeline for one scheduled turn. OutcomeSkipped
// means the debounce ballot went to a newer fragment; it is not an error.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (Outcome, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("zapai.conversation_id", req.ConversationID.String()),
		attribute.String("zapai.instance_id", req.InstanceID.String()),
	)
	started := e.now()

	text, claimed, err := e.debouncer.Collect(ctx, req.ConversationID, req.TextAdded)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if !claimed {
		e.metrics.ObserveTurn(string(OutcomeSkipped), e.now().Sub(started).Seconds())
		return OutcomeSkipped, nil
	}

	conv, err := e.store.Get(ctx, req.ConversationID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	inst, err := e.companies.InstanceByID(ctx, req.InstanceID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	agent, err := e.companies.Agent(ctx, inst.AgentID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	settings, err := e.companies.Settings(ctx, inst.CompanyID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	now := e.now().In(e.loc)
	system := BuildSystemPrompt(agent, settings, hours.IsOpen(settings, now), now)

	history, err := e.store.RecentMessages(ctx, conv.ID, e.historyLimit)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		role := openai.ChatMessageRoleAssistant
		if m.Sender == SenderUser {
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	temperature := agent.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	scope := ToolScope{CompanyID: inst.CompanyID, ContactID: conv.ContactID, InstanceID: inst.ID}

	reply, err := e.runToolLoop(ctx, msgs, temperature, scope)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if reply == "" {
		e.logger.Info("model produced no final content", "conversation_id", conv.ID)
		e.metrics.ObserveTurn(string(OutcomeNoReply), e.now().Sub(started).Seconds())
		return OutcomeNoReply, nil
	}

	if err := e.dispatcher.DeliverReply(ctx, inst, conv.ID, req.Phone, reply); err != nil {
		span.RecordError(err)
		return "", err
	}
	e.metrics.ObserveTurn(string(OutcomeProcessed), e.now().Sub(started).Seconds())
	return OutcomeProcessed, nil
}

func (e *Engine) runToolLoop(ctx context.Context, msgs []openai.ChatCompletionMessage, temperature float32, scope ToolScope) (string, error) {
	var lastContent string
	for round := 0; round < maxToolRounds; round++ {
		resp, err := e.complete(ctx, msgs, temperature)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("conversation: model returned no choices")
		}
		msg := resp.Choices[0].Message
		lastContent = msg.Content
		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), nil
		}

		msgs = append(msgs, msg)
		for _, call := range msg.ToolCalls {
			result := e.tools.Execute(ctx, call, scope)
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}
	e.logger.Warn("tool loop hit round cap", "rounds", maxToolRounds)
	return strings.TrimSpace(lastContent), nil
}

func (e *Engine) complete(ctx context.Context, msgs []openai.ChatCompletionMessage, temperature float32) (openai.ChatCompletionResponse, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.model")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, e.modelTimeout)
	defer cancel()

	resp, err := e.chat.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       e.model,
		Messages:    msgs,
		Tools:       e.tools.Definitions(),
		Temperature: temperature,
	})
	if err != nil {
		span.RecordError(err)
		return openai.ChatCompletionResponse{}, fmt.Errorf("conversation: model completion failed: %w", err)
	}
	return resp, nil
}
