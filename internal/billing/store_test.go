package billing

import (
	"context"
	"testing"

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

func TestEnsureInvoiceReturnsExisting(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()
	invoiceID := uuid.New()

	mock.ExpectQuery("SELECT id FROM invoices").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(invoiceID))

	id, err := store.EnsureInvoice(context.Background(), apptID, uuid.New(), uuid.New(), 50)
	require.NoError(t, err)
	assert.Equal(t, invoiceID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureInvoiceCreatesOpenInvoice(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()
	contactID := uuid.New()
	companyID := uuid.New()

	mock.ExpectQuery("SELECT id FROM invoices").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO invoices").
		WithArgs(pgxmock.AnyArg(), apptID, contactID, companyID, 80.0, InvoiceOpen).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.EnsureInvoice(context.Background(), apptID, contactID, companyID, 80)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkInvoicesPaidReturnsIDs(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()
	inv1 := uuid.New()
	inv2 := uuid.New()

	mock.ExpectQuery("UPDATE invoices SET status").
		WithArgs(apptID, InvoicePaid).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(inv1).AddRow(inv2))

	ids, err := store.MarkInvoicesPaid(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{inv1, inv2}, ids)
}

func TestMarkChargesDoneNoopOnEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	require.NoError(t, store.MarkChargesDone(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestTxIDEmptyWhenNoCharge(t *testing.T) {
	store, mock := newMockStore(t)
	apptID := uuid.New()

	mock.ExpectQuery("SELECT pc.txid").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{"txid"}))

	txid, err := store.LatestTxID(context.Background(), apptID)
	require.NoError(t, err)
	assert.Empty(t, txid)
}
