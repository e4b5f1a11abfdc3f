package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/zap-ai/zapai/pkg/logging"
)

var tracer = otel.Tracer("zapai.internal.outbound")

const sendRetries = 2

// Sender delivers text messages through the Evolution API. Each instance
// authenticates with its own token.
type Sender struct {
	http    *http.Client
	baseURL string
	logger  *logging.Logger
}

func NewSender(baseURL string, timeout time.Duration, logger *logging.Logger) *Sender {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sender{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Component("sender"),
	}
}

// SendText posts one text message to a phone number via an instance. A failed
// send is retried once; WhatsApp surfaces duplicates to the user, so we keep
// the retry budget small.
func (s *Sender) SendText(ctx context.Context, instanceName, token, phone, text string) error {
	if s.baseURL == "" {
		return fmt.Errorf("outbound: evolution api url not configured")
	}
	ctx, span := tracer.Start(ctx, "outbound.send_text")
	defer span.End()

	payload, err := json.Marshal(map[string]string{"number": phone, "text": text})
	if err != nil {
		return fmt.Errorf("outbound: encode message: %w", err)
	}
	url := s.baseURL + "/message/sendText/" + instanceName

	var lastErr error
	for attempt := 1; attempt <= sendRetries; attempt++ {
		lastErr = s.post(ctx, url, token, payload)
		if lastErr == nil {
			return nil
		}
		s.logger.Warn("send attempt failed", "instance", instanceName, "attempt", attempt, "error", lastErr)
		if ctx.Err() != nil {
			break
		}
	}
	span.RecordError(lastErr)
	return lastErr
}

func (s *Sender) post(ctx context.Context, url, token string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("outbound: build send request: %w", err)
	}
	req.Header.Set("apikey", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("outbound: send message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("outbound: evolution api returned status %d", resp.StatusCode)
	}
	return nil
}
