package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstracts the pgx pool so tests can inject pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists contacts, conversations and the append-only message log.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("conversation: querier required")
	}
	return &Store{pool: pool}
}

const previewLength = 100

// UpsertContact creates or refreshes a contact keyed by (phone, company).
// Idempotent so at-least-once webhook delivery is harmless.
func (s *Store) UpsertContact(ctx context.Context, phone, name string, companyID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (id, phone, name, company_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone, company_id)
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, uuid.New(), phone, name, companyID).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("conversation: upsert contact: %w", err)
	}
	return id, nil
}

// UpsertConversation creates or returns the single conversation for a
// contact, keeping it pointed at the instance that last delivered a message.
func (s *Store) UpsertConversation(ctx context.Context, contactID, instanceID uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, contact_id, instance_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (contact_id)
		DO UPDATE SET instance_id = EXCLUDED.instance_id
		RETURNING id, contact_id, instance_id, temp_buffer, last_message_at, is_human_active, unread_count
	`, uuid.New(), contactID, instanceID).
		Scan(&c.ID, &c.ContactID, &c.InstanceID, &c.TempBuffer, &c.LastMessageAt, &c.IsHumanActive, &c.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("conversation: upsert conversation: %w", err)
	}
	return &c, nil
}

// Get loads a conversation by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx, `
		SELECT id, contact_id, instance_id, temp_buffer, last_message_at, is_human_active, unread_count
		FROM conversations
		WHERE id = $1
	`, id).Scan(&c.ID, &c.ContactID, &c.InstanceID, &c.TempBuffer, &c.LastMessageAt, &c.IsHumanActive, &c.UnreadCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation: unknown conversation %s", id)
		}
		return nil, fmt.Errorf("conversation: load conversation: %w", err)
	}
	return &c, nil
}

// AppendBuffer atomically concatenates a fragment onto temp_buffer and stamps
// last_message_at with this turn's identifier. The concatenation happens in
// SQL so two near-simultaneous fragments never overwrite each other.
func (s *Store) AppendBuffer(ctx context.Context, id uuid.UUID, fragment string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations
		SET temp_buffer = btrim(temp_buffer || ' ' || $2),
		    last_message_at = $3
		WHERE id = $1
	`, id, fragment, at)
	if err != nil {
		return fmt.Errorf("conversation: append buffer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation: unknown conversation %s", id)
	}
	return nil
}

// ClaimBuffer claims the accumulated buffer for processing, guarded on the
// last_message_at value this turn observed. The guard closes the re-read race:
// a stale turn matches zero rows and learns it was superseded. A flipped
// is_human_active also fails the guard.
func (s *Store) ClaimBuffer(ctx context.Context, id uuid.UUID, observed time.Time) (string, bool, error) {
	var claimed string
	err := s.pool.QueryRow(ctx, `
		WITH current AS (
			SELECT temp_buffer FROM conversations
			WHERE id = $1 AND last_message_at = $2 AND NOT is_human_active
			FOR UPDATE
		)
		UPDATE conversations c
		SET temp_buffer = ''
		FROM current
		WHERE c.id = $1
		RETURNING current.temp_buffer
	`, id, observed).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("conversation: claim buffer: %w", err)
	}
	return claimed, true, nil
}

// SetHumanActive flips the operator-takeover flag.
func (s *Store) SetHumanActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations SET is_human_active = $2 WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("conversation: set human active: %w", err)
	}
	return nil
}

// InsertMessage appends a transcript row. Messages are never mutated.
func (s *Store) InsertMessage(ctx context.Context, conversationID uuid.UUID, sender Sender, content string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender, content)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), conversationID, string(sender), content)
	if err != nil {
		return fmt.Errorf("conversation: insert message: %w", err)
	}
	return nil
}

// TouchPreview updates the conversation's inbox preview fields after a new
// message. incrementUnread is set for customer messages only.
func (s *Store) TouchPreview(ctx context.Context, id uuid.UUID, preview string, incrementUnread bool) error {
	if len([]rune(preview)) > previewLength {
		preview = string([]rune(preview)[:previewLength])
	}
	increment := 0
	if incrementUnread {
		increment = 1
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE conversations
		SET last_message = $2,
		    last_timestamp = now(),
		    unread_count = CASE WHEN $3 = 0 THEN 0 ELSE unread_count + $3 END
		WHERE id = $1
	`, id, preview, increment)
	if err != nil {
		return fmt.Errorf("conversation: touch preview: %w", err)
	}
	return nil
}

// RecentMessages returns the newest limit messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, content, timestamp
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		var m Message
		var sender string
		if err := rows.Scan(&m.ID, &m.ConversationID, &sender, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation: scan message: %w", err)
		}
		m.Sender = Sender(sender)
		newestFirst = append(newestFirst, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate history: %w", err)
	}

	// reverse to oldest-first for the model
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// ContactName returns the display name for a contact.
func (s *Store) ContactName(ctx context.Context, contactID uuid.UUID) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM contacts WHERE id = $1`, contactID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("conversation: unknown contact %s", contactID)
		}
		return "", fmt.Errorf("conversation: load contact: %w", err)
	}
	return name, nil
}
