package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/zap-ai/zapai/pkg/logging"
)

var webhookTracer = otel.Tracer("zapai.internal.billing.webhook")

// responseLimit caps how much of a webhook reply we read. The automation
// replies are small JSON documents.
const responseLimit = 1 << 20

// WebhookClient calls the payment automation's two endpoints: one that issues
// a PIX charge for an appointment and one that reports a charge's status.
type WebhookClient struct {
	http       *http.Client
	invoiceURL string
	statusURL  string
	logger     *logging.Logger
}

func NewWebhookClient(invoiceURL, statusURL string, timeout time.Duration, logger *logging.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookClient{
		http:       &http.Client{Timeout: timeout},
		invoiceURL: invoiceURL,
		statusURL:  statusURL,
		logger:     logger.Component("billing_webhook"),
	}
}

// ChargeRequest is the payload sent to the invoice automation.
type ChargeRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	ContactID     uuid.UUID `json:"contact_id"`
	Amount        float64   `json:"valor"`
	CustomerName  string    `json:"nome_cliente"`
	CustomerCPF   string    `json:"cpf"`
}

// GeneratePix asks the automation to issue a charge and returns the parsed
// payload. The copy-paste code comes back scheme-stripped.
func (c *WebhookClient) GeneratePix(ctx context.Context, req ChargeRequest) (PixPayload, error) {
	if c.invoiceURL == "" {
		return PixPayload{}, fmt.Errorf("billing: invoice webhook url not configured")
	}
	ctx, span := webhookTracer.Start(ctx, "billing.generate_pix")
	defer span.End()

	body, err := c.post(ctx, c.invoiceURL, req)
	if err != nil {
		span.RecordError(err)
		return PixPayload{}, err
	}
	payload, err := ParsePixPayload(body)
	if err != nil {
		span.RecordError(err)
		return PixPayload{}, fmt.Errorf("billing: decode pix payload: %w", err)
	}
	payload.CopyPaste = StripScheme(payload.CopyPaste)
	return payload, nil
}

// CheckStatus asks the automation for a charge's current status and returns
// the raw provider string. Callers normalize it with CleanStatus.
func (c *WebhookClient) CheckStatus(ctx context.Context, appointmentID uuid.UUID, txid string) (string, error) {
	if c.statusURL == "" {
		return "", fmt.Errorf("billing: status webhook url not configured")
	}
	ctx, span := webhookTracer.Start(ctx, "billing.check_status")
	defer span.End()

	payload := struct {
		AppointmentID uuid.UUID `json:"appointment_id"`
		TxID          *string   `json:"txid"`
	}{AppointmentID: appointmentID}
	if txid != "" {
		payload.TxID = &txid
	}

	body, err := c.post(ctx, c.statusURL, payload)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return ParseStatus(body), nil
}

func (c *WebhookClient) post(ctx context.Context, url string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("billing: encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("billing: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: call webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	if err != nil {
		return nil, fmt.Errorf("billing: read webhook reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("payment webhook returned error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("billing: webhook returned status %d", resp.StatusCode)
	}
	return body, nil
}
