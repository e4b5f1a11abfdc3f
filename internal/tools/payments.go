package tools

import (
	"context"
	"fmt"

	"github.com/zap-ai/zapai/internal/billing"
	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/scheduling"
)

func (r *Registry) generatePayment(ctx context.Context, raw []byte, scope conversation.ToolScope) (string, error) {
	var args appointmentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	id, err := parseUUIDArg(args.AppointmentID, "appointment_id")
	if err != nil {
		return "", err
	}

	apt, err := r.scheduling.Get(ctx, id)
	if err != nil {
		return "Agendamento não encontrado.", nil
	}
	service, err := r.scheduling.GetService(ctx, apt.ServiceID)
	if err != nil {
		return "", err
	}
	name, cpf, err := r.billing.ContactBilling(ctx, apt.ContactID)
	if err != nil {
		return "", err
	}

	pix, err := r.payments.GeneratePix(ctx, billing.ChargeRequest{
		AppointmentID: apt.ID,
		ContactID:     apt.ContactID,
		Amount:        service.Price,
		CustomerName:  name,
		CustomerCPF:   cpf,
	})
	if err != nil {
		return "", err
	}
	if !pix.Valid() {
		return "Erro ao gerar PIX.", nil
	}

	amount := float64(pix.Amount)
	if amount == 0 {
		amount = service.Price
	}
	invoiceID, err := r.billing.EnsureInvoice(ctx, apt.ID, apt.ContactID, scope.CompanyID, amount)
	if err != nil {
		return "", err
	}

	txid := pix.TxID
	if txid == "" {
		txid = "temp_" + r.now().UTC().Format("20060102150405")
	}
	if err := r.billing.UpsertCharge(ctx, billing.PixCharge{
		InvoiceID: invoiceID,
		TxID:      txid,
		CopyPaste: pix.CopyPaste,
		Amount:    amount,
		ExpiresAt: pix.ExpiresAt,
		Status:    billing.ChargePending,
	}); err != nil {
		return "", err
	}

	return fmt.Sprintf("PIX Gerado com sucesso!\nID_DO_AGENDAMENTO: %s\nTXID: %s\nCopia e Cola: %s\nValor: R$ %.2f\n\nEnvie o código Copia e Cola ao usuário agora.",
		apt.ID, txid, pix.CopyPaste, amount), nil
}

func (r *Registry) checkPaymentStatus(ctx context.Context, raw []byte) (string, error) {
	var args appointmentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	id, err := parseUUIDArg(args.AppointmentID, "appointment_id")
	if err != nil {
		return "", err
	}

	apt, err := r.scheduling.Get(ctx, id)
	if err != nil {
		return fmt.Sprintf("Erro: Agendamento %s não encontrado.", id), nil
	}

	txid, err := r.billing.LatestTxID(ctx, apt.ID)
	if err != nil {
		return "", err
	}
	status, err := r.payments.CheckStatus(ctx, apt.ID, txid)
	if err != nil {
		return "", err
	}
	clean := billing.CleanStatus(status)

	if !billing.StatusPaid(clean) {
		if status == "" {
			status = "Pendente"
		}
		return fmt.Sprintf("Status do pagamento para o agendamento %s: %s", apt.ID, status), nil
	}

	// A cancelled booking stays cancelled even if the charge settles later;
	// the money is a refund case, not a resurrection.
	if apt.Status == scheduling.StatusCancelled {
		r.logger.Warn("payment settled for cancelled appointment", "appointment_id", apt.ID, "txid", txid)
		return fmt.Sprintf("O pagamento do agendamento %s foi identificado, mas o agendamento está cancelado. Informe o usuário que o valor será tratado como reembolso.", apt.ID), nil
	}

	if err := r.scheduling.SetStatus(ctx, apt.ID, scheduling.StatusConfirmed); err != nil {
		return "", err
	}
	invoiceIDs, err := r.billing.MarkInvoicesPaid(ctx, apt.ID)
	if err != nil {
		return "", err
	}
	if err := r.billing.MarkChargesDone(ctx, invoiceIDs); err != nil {
		return "", err
	}
	if err := r.billing.MarkChargeDoneByTxID(ctx, txid); err != nil {
		return "", err
	}
	if err := r.calendar.Upsert(ctx, apt.ID); err != nil {
		r.logger.Warn("calendar sync enqueue failed", "appointment_id", apt.ID, "error", err)
	}
	return fmt.Sprintf("Status do pagamento para o agendamento %s: CONCLUÍDA. O agendamento foi confirmado.", apt.ID), nil
}
