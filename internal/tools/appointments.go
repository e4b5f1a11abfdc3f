package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/scheduling"
)

func (r *Registry) listServices(ctx context.Context, scope conversation.ToolScope) (string, error) {
	services, err := r.scheduling.ListServices(ctx, scope.CompanyID)
	if err != nil {
		return "", err
	}
	type row struct {
		ID              string  `json:"id"`
		Name            string  `json:"name"`
		Price           float64 `json:"price"`
		DurationMinutes int     `json:"duration_minutes"`
	}
	rows := make([]row, 0, len(services))
	for _, s := range services {
		rows = append(rows, row{ID: s.ID.String(), Name: s.Name, Price: s.Price, DurationMinutes: s.DurationMinutes})
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *Registry) listProfessionals(ctx context.Context, scope conversation.ToolScope) (string, error) {
	pros, err := r.scheduling.ListProfessionals(ctx, scope.CompanyID)
	if err != nil {
		return "", err
	}
	type row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	}
	rows := make([]row, 0, len(pros))
	for _, p := range pros {
		rows = append(rows, row{ID: p.ID.String(), Name: p.Name, Role: p.Role})
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *Registry) getAvailableSlots(ctx context.Context, raw []byte) (string, error) {
	var args struct {
		ProfessionalID string `json:"professional_id"`
		ServiceID      string `json:"service_id"`
		Date           string `json:"date"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	professionalID, err := parseUUIDArg(args.ProfessionalID, "professional_id")
	if err != nil {
		return "", err
	}
	serviceID, err := parseUUIDArg(args.ServiceID, "service_id")
	if err != nil {
		return "", err
	}

	service, err := r.scheduling.GetService(ctx, serviceID)
	if err != nil {
		return "Erro: Profissional ou serviço não encontrado.", nil
	}
	prof, err := r.scheduling.GetProfessional(ctx, professionalID)
	if err != nil {
		return "Erro: Profissional ou serviço não encontrado.", nil
	}
	occupied, err := r.scheduling.OccupiedTimes(ctx, professionalID, args.Date)
	if err != nil {
		return "", err
	}

	now := r.now().In(r.loc)
	sameDay := args.Date == now.Format("2006-01-02")
	slots := scheduling.AvailableSlots(prof.StartTime, prof.EndTime, service.DurationMinutes, occupied, now, sameDay)
	if len(slots) == 0 {
		return "Nenhum horário disponível para esta data.", nil
	}
	out, err := json.Marshal(slots)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *Registry) createAppointment(ctx context.Context, raw []byte, scope conversation.ToolScope) (string, error) {
	var args struct {
		ServiceID      string `json:"service_id"`
		ProfessionalID string `json:"professional_id"`
		Date           string `json:"date"`
		Time           string `json:"time"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	serviceID, err := parseUUIDArg(args.ServiceID, "service_id")
	if err != nil {
		return "", err
	}
	professionalID, err := parseUUIDArg(args.ProfessionalID, "professional_id")
	if err != nil {
		return "", err
	}

	id, err := r.scheduling.Insert(ctx, scheduling.Appointment{
		ContactID:      scope.ContactID,
		ServiceID:      serviceID,
		ProfessionalID: professionalID,
		CompanyID:      scope.CompanyID,
		Date:           args.Date,
		Time:           args.Time,
	})
	if err != nil {
		return "", err
	}
	if err := r.calendar.Upsert(ctx, id); err != nil {
		// The booking exists; the calendar catches up on the next sync.
		r.logger.Warn("calendar sync enqueue failed", "appointment_id", id, "error", err)
	}
	return fmt.Sprintf("Sucesso! Agendamento criado e sincronizado com o calendário Google. ID_DO_AGENDAMENTO: %s. Peça ao usuário se ele deseja gerar o pagamento PIX agora.", id), nil
}

func (r *Registry) listMyAppointments(ctx context.Context, scope conversation.ToolScope) (string, error) {
	today := r.now().In(r.loc).Format("2006-01-02")
	upcoming, err := r.scheduling.ListUpcoming(ctx, scope.ContactID, today, 10)
	if err != nil {
		return "", err
	}
	if len(upcoming) == 0 {
		return "Nenhum agendamento futuro encontrado para este usuário.", nil
	}
	var b strings.Builder
	b.WriteString("Agendamentos encontrados (hoje e futuros):")
	for _, a := range upcoming {
		fmt.Fprintf(&b, "\n- ID: %s | Serviço: %s | Profissional: %s | Data: %s | Hora: %s | Status: %s",
			a.ID, a.ServiceName, a.ProfessionalName, a.Date, a.Time, a.Status)
	}
	return b.String(), nil
}

func (r *Registry) cancelAppointment(ctx context.Context, raw []byte) (string, error) {
	var args appointmentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	id, err := parseUUIDArg(args.AppointmentID, "appointment_id")
	if err != nil {
		return "", err
	}
	if _, err := r.scheduling.Get(ctx, id); err != nil {
		return "Agendamento não encontrado.", nil
	}
	if err := r.scheduling.SetStatus(ctx, id, scheduling.StatusCancelled); err != nil {
		return "", err
	}
	if err := r.calendar.Delete(ctx, id); err != nil {
		r.logger.Warn("calendar delete enqueue failed", "appointment_id", id, "error", err)
	}
	return "Sucesso! O agendamento foi cancelado e removido do calendário Google.", nil
}
