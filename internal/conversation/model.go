package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message row.
type Sender string

const (
	SenderUser     Sender = "USER"
	SenderAI       Sender = "AI"
	SenderOperator Sender = "OPERATOR"
	SenderSystem   Sender = "SYSTEM"
)

// Conversation is the per-contact channel state. temp_buffer,
// last_message_at and is_human_active together form the debounce ballot:
// concurrent webhook invocations coordinate only through this row.
type Conversation struct {
	ID            uuid.UUID
	ContactID     uuid.UUID
	InstanceID    uuid.UUID
	TempBuffer    string
	LastMessageAt time.Time
	IsHumanActive bool
	LastMessage   string
	LastTimestamp time.Time
	UnreadCount   int
}

// Message is an immutable transcript entry. Rows are append-only.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Sender         Sender
	Content        string
	Timestamp      time.Time
}

// TurnRequest is the payload the gateway posts to trigger an engine turn.
type TurnRequest struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	InstanceID     uuid.UUID `json:"instance_id"`
	Phone          string    `json:"phone"`
	TextAdded      string    `json:"text_added"`
}

// Outcome describes how a scheduled turn ended.
type Outcome string

const (
	// OutcomeProcessed means the turn claimed the buffer and a reply was sent.
	OutcomeProcessed Outcome = "processed"
	// OutcomeSkipped means the turn was superseded by a newer fragment or a
	// human operator took over; a designed no-op, not an error.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeNoReply means the model finished without final content.
	OutcomeNoReply Outcome = "no_reply"
)
