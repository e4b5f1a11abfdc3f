package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestAppendBufferUnknownConversation(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	at := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectExec("UPDATE conversations").
		WithArgs(id, "oi", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.AppendBuffer(context.Background(), id, "oi", at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown conversation")
}

func TestClaimBufferSupersededReturnsNotClaimed(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	observed := time.Now().UTC().Truncate(time.Microsecond)

	// Guard matched zero rows: a newer fragment moved last_message_at.
	mock.ExpectQuery("WITH current AS").
		WithArgs(id, observed).
		WillReturnRows(pgxmock.NewRows([]string{"temp_buffer"}))

	text, claimed, err := store.ClaimBuffer(context.Background(), id, observed)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Empty(t, text)
}

func TestClaimBufferReturnsAccumulatedText(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	observed := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("WITH current AS").
		WithArgs(id, observed).
		WillReturnRows(pgxmock.NewRows([]string{"temp_buffer"}).AddRow("quero marcar um corte"))

	text, claimed, err := store.ClaimBuffer(context.Background(), id, observed)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "quero marcar um corte", text)
}

func TestTouchPreviewTruncatesLongPreviews(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	long := strings.Repeat("ã", 150)

	mock.ExpectExec("UPDATE conversations").
		WithArgs(id, strings.Repeat("ã", previewLength), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.TouchPreview(context.Background(), id, long, true))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentMessagesOldestFirst(t *testing.T) {
	store, mock := newMockStore(t)
	convID := uuid.New()
	base := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

	// The query returns newest first; callers get oldest first.
	mock.ExpectQuery("SELECT id, conversation_id, sender, content, timestamp").
		WithArgs(convID, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "conversation_id", "sender", "content", "timestamp"}).
			AddRow(uuid.New(), convID, "AI", "terceira", base.Add(2*time.Minute)).
			AddRow(uuid.New(), convID, "USER", "segunda", base.Add(time.Minute)).
			AddRow(uuid.New(), convID, "USER", "primeira", base))

	msgs, err := store.RecentMessages(context.Background(), convID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "primeira", msgs[0].Content)
	assert.Equal(t, SenderUser, msgs[0].Sender)
	assert.Equal(t, "terceira", msgs[2].Content)
	assert.Equal(t, SenderAI, msgs[2].Sender)
}

func TestUpsertContactReturnsID(t *testing.T) {
	store, mock := newMockStore(t)
	companyID := uuid.New()
	contactID := uuid.New()

	mock.ExpectQuery("INSERT INTO contacts").
		WithArgs(pgxmock.AnyArg(), "5511999990000", "Maria", companyID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(contactID))

	id, err := store.UpsertContact(context.Background(), "5511999990000", "Maria", companyID)
	require.NoError(t, err)
	assert.Equal(t, contactID, id)
}
