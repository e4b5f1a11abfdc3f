package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zap-ai/zapai/pkg/logging"
)

var debounceTracer = otel.Tracer("zapai.internal.conversation.debounce")

// BufferStore is the slice of Store the debouncer needs. All coordination
// between concurrent turns happens through these three operations on the
// conversation row; the debouncer itself holds no cross-turn state.
type BufferStore interface {
	AppendBuffer(ctx context.Context, id uuid.UUID, fragment string, at time.Time) error
	ClaimBuffer(ctx context.Context, id uuid.UUID, observed time.Time) (string, bool, error)
}

// Debouncer coalesces rapid-fire inbound fragments into a single engine turn.
// Each fragment schedules a turn; after the quiet window only the turn whose
// timestamp is still the newest claims the accumulated buffer, and every
// other turn self-cancels. Fragments are durably appended before the wait, so
// superseded turns lose processing, never text.
type Debouncer struct {
	store  BufferStore
	window time.Duration
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *logging.Logger
}

// DebouncerOption customizes a Debouncer, mainly for tests.
type DebouncerOption func(*Debouncer)

// WithClock overrides the turn-identifier clock.
func WithClock(now func() time.Time) DebouncerOption {
	return func(d *Debouncer) { d.now = now }
}

// WithSleeper overrides the quiet-window wait.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) DebouncerOption {
	return func(d *Debouncer) { d.sleep = sleep }
}

func NewDebouncer(store BufferStore, window time.Duration, logger *logging.Logger, opts ...DebouncerOption) *Debouncer {
	if store == nil {
		panic("conversation: buffer store required")
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Debouncer{
		store:  store,
		window: window,
		now:    time.Now,
		sleep:  sleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Collect runs the debounce protocol for one fragment and returns the full
// accumulated text if this turn won the ballot. ok=false means the turn was
// superseded (or a human operator took over) and the caller must go silent.
func (d *Debouncer) Collect(ctx context.Context, conversationID uuid.UUID, fragment string) (string, bool, error) {
	ctx, span := debounceTracer.Start(ctx, "conversation.debounce")
	defer span.End()
	span.SetAttributes(attribute.String("zapai.conversation_id", conversationID.String()))

	// Microsecond precision matches the timestamp resolution Postgres
	// stores, so the claim guard compares equal values.
	turn := d.now().UTC().Truncate(time.Microsecond)

	if err := d.store.AppendBuffer(ctx, conversationID, fragment, turn); err != nil {
		span.RecordError(err)
		return "", false, err
	}

	if err := d.sleep(ctx, d.window); err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("conversation: quiet window interrupted: %w", err)
	}

	text, claimed, err := d.store.ClaimBuffer(ctx, conversationID, turn)
	if err != nil {
		span.RecordError(err)
		return "", false, err
	}
	if !claimed {
		d.logger.Info("debounce turn superseded", "conversation_id", conversationID)
		span.SetAttributes(attribute.Bool("zapai.debounce.superseded", true))
		return "", false, nil
	}
	if text == "" {
		// Another turn with the same timestamp already drained the buffer.
		d.logger.Info("debounce claimed empty buffer", "conversation_id", conversationID)
		return "", false, nil
	}
	return text, true, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
