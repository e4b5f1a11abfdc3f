package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zap-ai/zapai/internal/company"
	"github.com/zap-ai/zapai/internal/hours"
)

type stubBufferStore struct {
	text    string
	claimed bool
}

func (s *stubBufferStore) AppendBuffer(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (s *stubBufferStore) ClaimBuffer(context.Context, uuid.UUID, time.Time) (string, bool, error) {
	return s.text, s.claimed, nil
}

type scriptedChat struct {
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
}

func (c *scriptedChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.requests = append(c.requests, req)
	if len(c.responses) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("script exhausted")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

type recordingTools struct {
	calls  []openai.ToolCall
	scopes []ToolScope
	result string
}

func (r *recordingTools) Definitions() []openai.Tool {
	return []openai.Tool{{
		Type:     openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{Name: "get_available_slots"},
	}}
}

func (r *recordingTools) Execute(_ context.Context, call openai.ToolCall, scope ToolScope) string {
	r.calls = append(r.calls, call)
	r.scopes = append(r.scopes, scope)
	return r.result
}

type fakeDirectory struct {
	instance *company.Instance
	agent    *company.Agent
	settings hours.Settings
}

func (f *fakeDirectory) InstanceByID(context.Context, uuid.UUID) (*company.Instance, error) {
	return f.instance, nil
}

func (f *fakeDirectory) Agent(context.Context, uuid.UUID) (*company.Agent, error) {
	return f.agent, nil
}

func (f *fakeDirectory) Settings(context.Context, uuid.UUID) (hours.Settings, error) {
	return f.settings, nil
}

type fakeEngineStore struct {
	conv    *Conversation
	history []Message
}

func (f *fakeEngineStore) Get(context.Context, uuid.UUID) (*Conversation, error) {
	return f.conv, nil
}

func (f *fakeEngineStore) RecentMessages(context.Context, uuid.UUID, int) ([]Message, error) {
	return f.history, nil
}

type recordingDispatcher struct {
	instance *company.Instance
	convID   uuid.UUID
	phone    string
	reply    string
	sent     int
}

func (r *recordingDispatcher) DeliverReply(_ context.Context, inst *company.Instance, conversationID uuid.UUID, phone, reply string) error {
	r.instance = inst
	r.convID = conversationID
	r.phone = phone
	r.reply = reply
	r.sent++
	return nil
}

func newTestEngine(buffer *stubBufferStore, chat *scriptedChat, tools *recordingTools, dir *fakeDirectory, store *fakeEngineStore, disp *recordingDispatcher) *Engine {
	return NewEngine(EngineConfig{
		Debouncer:  NewDebouncer(buffer, time.Second, nil, WithSleeper(func(context.Context, time.Duration) error { return nil })),
		Store:      store,
		Companies:  dir,
		Chat:       chat,
		Tools:      tools,
		Dispatcher: disp,
	})
}

func TestProcessTurnToolLoopThenReply(t *testing.T) {
	instanceID := uuid.New()
	companyID := uuid.New()
	contactID := uuid.New()
	convID := uuid.New()

	buffer := &stubBufferStore{text: "quais horários amanhã?", claimed: true}
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			ToolCalls: []openai.ToolCall{{
				ID:   "call_1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "get_available_slots",
					Arguments: `{"data":"2025-11-04"}`,
				},
			}},
		}}}},
		{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			Content: "Temos 09:00 e 10:30 disponíveis. Qual prefere?",
		}}}},
	}}
	tools := &recordingTools{result: `{"horarios":["09:00","10:30"]}`}
	dir := &fakeDirectory{
		instance: &company.Instance{ID: instanceID, CompanyID: companyID, AgentID: uuid.New(), Name: "barbearia-01"},
		agent:    &company.Agent{Prompt: "Você é a recepcionista virtual.", Temperature: 0.4},
		settings: hours.Settings{WorkingDays: []string{"Terça"}, OpenTime: "09:00", CloseTime: "18:00"},
	}
	store := &fakeEngineStore{
		conv: &Conversation{ID: convID, ContactID: contactID, InstanceID: instanceID},
		history: []Message{
			{Sender: SenderUser, Content: "oi"},
			{Sender: SenderAI, Content: "Olá! Como posso ajudar?"},
		},
	}
	disp := &recordingDispatcher{}

	engine := newTestEngine(buffer, chat, tools, dir, store, disp)

	outcome, err := engine.ProcessTurn(context.Background(), TurnRequest{
		ConversationID: convID,
		InstanceID:     instanceID,
		Phone:          "5511999990000",
		TextAdded:      "quais horários amanhã?",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	// Tool executed under the tenant scope of the instance, not the request.
	require.Len(t, tools.calls, 1)
	assert.Equal(t, "get_available_slots", tools.calls[0].Function.Name)
	assert.Equal(t, ToolScope{CompanyID: companyID, ContactID: contactID, InstanceID: instanceID}, tools.scopes[0])

	// Second model call sees the assistant tool-call message and its result.
	require.Len(t, chat.requests, 2)
	second := chat.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, tools.result, last.Content)
	assert.Equal(t, float32(0.4), chat.requests[0].Temperature)

	// History precedes the claimed buffer text, oldest first after the system prompt.
	first := chat.requests[0].Messages
	assert.Equal(t, openai.ChatMessageRoleSystem, first[0].Role)
	assert.Equal(t, "oi", first[1].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, first[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, first[2].Role)
	assert.Equal(t, "quais horários amanhã?", first[len(first)-1].Content)

	assert.Equal(t, 1, disp.sent)
	assert.Equal(t, "Temos 09:00 e 10:30 disponíveis. Qual prefere?", disp.reply)
	assert.Equal(t, "5511999990000", disp.phone)
	assert.Equal(t, convID, disp.convID)
}

func TestProcessTurnSkipsWhenSuperseded(t *testing.T) {
	buffer := &stubBufferStore{claimed: false}
	chat := &scriptedChat{}
	disp := &recordingDispatcher{}

	engine := newTestEngine(buffer, chat, &recordingTools{}, &fakeDirectory{}, &fakeEngineStore{}, disp)

	outcome, err := engine.ProcessTurn(context.Background(), TurnRequest{ConversationID: uuid.New(), InstanceID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Empty(t, chat.requests, "model is never called for a superseded turn")
	assert.Zero(t, disp.sent)
}

func TestProcessTurnNoReplyWhenModelSilent(t *testing.T) {
	convID := uuid.New()
	instanceID := uuid.New()

	buffer := &stubBufferStore{text: "ok", claimed: true}
	chat := &scriptedChat{responses: []openai.ChatCompletionResponse{
		{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "  "}}}},
	}}
	dir := &fakeDirectory{
		instance: &company.Instance{ID: instanceID, CompanyID: uuid.New(), AgentID: uuid.New()},
		agent:    &company.Agent{Prompt: "atendente"},
	}
	store := &fakeEngineStore{conv: &Conversation{ID: convID, ContactID: uuid.New()}}
	disp := &recordingDispatcher{}

	engine := newTestEngine(buffer, chat, &recordingTools{}, dir, store, disp)

	outcome, err := engine.ProcessTurn(context.Background(), TurnRequest{ConversationID: convID, InstanceID: instanceID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoReply, outcome)
	assert.Zero(t, disp.sent)
}

func TestRunToolLoopStopsAtRoundCap(t *testing.T) {
	convID := uuid.New()
	instanceID := uuid.New()

	// Every response asks for another tool call; the loop must give up after
	// the cap instead of spinning.
	toolResp := openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
		Content: "um momento",
		ToolCalls: []openai.ToolCall{{
			ID:       "loop",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: "get_available_slots", Arguments: "{}"},
		}},
	}}}}
	responses := make([]openai.ChatCompletionResponse, maxToolRounds+5)
	for i := range responses {
		responses[i] = toolResp
	}

	buffer := &stubBufferStore{text: "oi", claimed: true}
	chat := &scriptedChat{responses: responses}
	tools := &recordingTools{result: "{}"}
	dir := &fakeDirectory{
		instance: &company.Instance{ID: instanceID, CompanyID: uuid.New(), AgentID: uuid.New()},
		agent:    &company.Agent{Prompt: "atendente"},
	}
	store := &fakeEngineStore{conv: &Conversation{ID: convID, ContactID: uuid.New()}}
	disp := &recordingDispatcher{}

	engine := newTestEngine(buffer, chat, tools, dir, store, disp)

	outcome, err := engine.ProcessTurn(context.Background(), TurnRequest{ConversationID: convID, InstanceID: instanceID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Len(t, chat.requests, maxToolRounds)
	assert.Equal(t, "um momento", disp.reply)
}
