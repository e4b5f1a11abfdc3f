package company

import "github.com/google/uuid"

// Instance is one messaging channel (e.g. a WhatsApp number) owned by a
// company and linked to an agent persona.
type Instance struct {
	ID               uuid.UUID
	Name             string
	Token            string
	CompanyID        uuid.UUID
	AgentID          uuid.UUID
	ConnectionStatus string
}

// Agent is the AI persona configured by the company. It is read as an
// immutable snapshot for the duration of a conversation turn.
type Agent struct {
	ID            uuid.UUID
	Prompt        string
	KnowledgeBase string
	Temperature   float32
	EnableAudio   bool
	EnableImage   bool
}

// InstagramAccount holds the Meta messaging credentials a company configured.
type InstagramAccount struct {
	CompanyID   uuid.UUID
	BusinessID  string
	AccessToken string
	VerifyToken string
}

// KeywordRule is an Instagram DM auto-reply rule.
type KeywordRule struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Keyword   string
	ReplyText string
	Active    bool
}
