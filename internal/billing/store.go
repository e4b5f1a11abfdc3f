package billing

import (
	"context"
	"errors"
	"fmt"

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

// Store persists invoices and PIX charges.
type Store struct {
	pool Querier
}

func NewStore(pool Querier) *Store {
	if pool == nil {
		panic("billing: querier required")
	}
	return &Store{pool: pool}
}

// EnsureInvoice returns the existing invoice for an appointment or creates an
// open one. Regenerating a PIX never duplicates the invoice.
func (s *Store) EnsureInvoice(ctx context.Context, appointmentID, contactID, companyID uuid.UUID, amount float64) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM invoices WHERE appointment_id = $1
	`, appointmentID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("billing: lookup invoice: %w", err)
	}

	id = uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO invoices (id, appointment_id, contact_id, company_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, appointmentID, contactID, companyID, amount, InvoiceOpen)
	if err != nil {
		return uuid.Nil, fmt.Errorf("billing: insert invoice: %w", err)
	}
	return id, nil
}

// UpsertCharge stores a PIX charge keyed by txid. A regenerated charge with
// the same txid overwrites the old row instead of stacking duplicates.
func (s *Store) UpsertCharge(ctx context.Context, c PixCharge) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pix_charges (invoice_id, txid, copy_paste_code, amount, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (txid)
		DO UPDATE SET copy_paste_code = EXCLUDED.copy_paste_code,
		              amount = EXCLUDED.amount,
		              expires_at = EXCLUDED.expires_at,
		              status = EXCLUDED.status
	`, c.InvoiceID, c.TxID, c.CopyPaste, c.Amount, c.ExpiresAt, c.Status)
	if err != nil {
		return fmt.Errorf("billing: upsert charge: %w", err)
	}
	return nil
}

// LatestTxID returns the newest charge txid for an appointment, or "" when no
// charge exists yet.
func (s *Store) LatestTxID(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	var txid string
	err := s.pool.QueryRow(ctx, `
		SELECT pc.txid
		FROM pix_charges pc
		JOIN invoices i ON i.id = pc.invoice_id
		WHERE i.appointment_id = $1
		ORDER BY pc.created_at DESC
		LIMIT 1
	`, appointmentID).Scan(&txid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("billing: latest txid: %w", err)
	}
	return txid, nil
}

// MarkInvoicesPaid flips every invoice of an appointment to paid and returns
// the affected ids so the caller can settle their charges.
func (s *Store) MarkInvoicesPaid(ctx context.Context, appointmentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE invoices SET status = $2 WHERE appointment_id = $1 RETURNING id
	`, appointmentID, InvoicePaid)
	if err != nil {
		return nil, fmt.Errorf("billing: mark invoices paid: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("billing: scan invoice id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate invoice ids: %w", err)
	}
	return ids, nil
}

// MarkChargesDone settles every charge belonging to the given invoices.
func (s *Store) MarkChargesDone(ctx context.Context, invoiceIDs []uuid.UUID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE pix_charges SET status = $2 WHERE invoice_id = ANY($1)
	`, invoiceIDs, ChargeDone)
	if err != nil {
		return fmt.Errorf("billing: mark charges done: %w", err)
	}
	return nil
}

// ContactBilling returns the payer data the PIX automation needs.
func (s *Store) ContactBilling(ctx context.Context, contactID uuid.UUID) (name, cpf string, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT name, COALESCE(cpf, '') FROM contacts WHERE id = $1
	`, contactID).Scan(&name, &cpf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", fmt.Errorf("billing: unknown contact %s", contactID)
		}
		return "", "", fmt.Errorf("billing: load contact: %w", err)
	}
	return name, cpf, nil
}

// MarkChargeDoneByTxID settles the single charge the PSP reported on.
func (s *Store) MarkChargeDoneByTxID(ctx context.Context, txid string) error {
	if txid == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE pix_charges SET status = $2 WHERE txid = $1
	`, txid, ChargeDone)
	if err != nil {
		return fmt.Errorf("billing: mark charge done: %w", err)
	}
	return nil
}
