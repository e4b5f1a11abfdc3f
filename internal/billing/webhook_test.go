package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePixPostsChargeRequest(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"response":{"txid":"tx9","pixCopiaECola":"https://0002012658","valor_original":"120.00"}}]`))
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, "", 5*time.Second, nil)
	apptID := uuid.New()

	payload, err := client.GeneratePix(context.Background(), ChargeRequest{
		AppointmentID: apptID,
		ContactID:     uuid.New(),
		Amount:        120,
		CustomerName:  "Maria",
		CustomerCPF:   "12345678900",
	})
	require.NoError(t, err)

	assert.Equal(t, apptID.String(), received["appointment_id"])
	assert.Equal(t, 120.0, received["valor"])
	assert.Equal(t, "Maria", received["nome_cliente"])
	assert.Equal(t, "12345678900", received["cpf"])

	assert.Equal(t, "tx9", payload.TxID)
	assert.Equal(t, "0002012658", payload.CopyPaste, "scheme prefix must be stripped")
	assert.Equal(t, FlexAmount(120), payload.Amount)
}

func TestCheckStatusSendsNullTxIDWhenAbsent(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"status":"ATIVA"}`))
	}))
	defer srv.Close()

	client := NewWebhookClient("", srv.URL, 5*time.Second, nil)

	status, err := client.CheckStatus(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "ATIVA", status)
	assert.Equal(t, "null", string(raw["txid"]))
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, srv.URL, 5*time.Second, nil)

	_, err := client.GeneratePix(context.Background(), ChargeRequest{AppointmentID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, err = client.CheckStatus(context.Background(), uuid.New(), "tx1")
	require.Error(t, err)
}

func TestWebhookURLNotConfigured(t *testing.T) {
	client := NewWebhookClient("", "", time.Second, nil)

	_, err := client.GeneratePix(context.Background(), ChargeRequest{})
	require.Error(t, err)

	_, err = client.CheckStatus(context.Background(), uuid.New(), "")
	require.Error(t, err)
}
