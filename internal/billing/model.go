package billing

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses use the provider's Portuguese labels verbatim so the rows
// match what the payment back office displays.
const (
	InvoiceOpen = "Aberta"
	InvoicePaid = "Paga"
)

// PixCharge statuses mirror the PSP's nomenclature.
const (
	ChargePending = "PENDENTE"
	ChargeDone    = "CONCLUIDA"
)

// Invoice is the billable record for one appointment. At most one open
// invoice exists per appointment.
type Invoice struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	ContactID     uuid.UUID
	CompanyID     uuid.UUID
	Amount        float64
	Status        string
}

// PixCharge is one PIX charge issued against an invoice, keyed by the PSP's
// transaction id.
type PixCharge struct {
	InvoiceID  uuid.UUID
	TxID       string
	CopyPaste  string
	Amount     float64
	ExpiresAt  string
	Status     string
	ReceivedAt time.Time
}
