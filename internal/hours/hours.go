// Package hours evaluates a company's business-hours configuration against a
// point in time and renders the context block fed to the conversation engine.
package hours

import (
	"fmt"
	"strings"
	"time"
)

// Settings is the per-company business-hours configuration, read-only input
// loaded from the settings table.
type Settings struct {
	WorkingDays    []string
	OpenTime       string // "HH:MM"
	CloseTime      string // "HH:MM"
	OfflineMessage string
	Info           string
	Address        string
	Website        string
}

const (
	DefaultOpenTime  = "09:00"
	DefaultCloseTime = "18:00"

	defaultOfflineMessage = "No momento nossa equipe humana não está disponível, mas eu (IA) posso te ajudar com agendamentos e informações gerais."
)

// DefaultWorkingDays is used when a company has no settings row.
var DefaultWorkingDays = []string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta"}

// dayMap resolves the Portuguese day labels stored in settings, including the
// composite range labels the admin UI offers.
var dayMap = map[string][]time.Weekday{
	"Domingo":          {time.Sunday},
	"Segunda":          {time.Monday},
	"Terça":            {time.Tuesday},
	"Quarta":           {time.Wednesday},
	"Quinta":           {time.Thursday},
	"Sexta":            {time.Friday},
	"Sábado":           {time.Saturday},
	"Segunda a Sexta":  {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	"Segunda a Sábado": {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	"Todos os dias":    {time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
}

// IsOpen reports whether the company is inside its working window at now.
// now must already be in the company's local timezone.
func IsOpen(s Settings, now time.Time) bool {
	days := s.WorkingDays
	if len(days) == 0 {
		days = DefaultWorkingDays
	}

	workingDay := false
	for _, label := range days {
		for _, wd := range dayMap[strings.TrimSpace(label)] {
			if wd == now.Weekday() {
				workingDay = true
			}
		}
	}
	if !workingDay {
		return false
	}

	openH, openM := parseClock(s.OpenTime, DefaultOpenTime)
	closeH, closeM := parseClock(s.CloseTime, DefaultCloseTime)

	minute := now.Hour()*60 + now.Minute()
	return minute >= openH*60+openM && minute <= closeH*60+closeM
}

// Context renders the [CONFIGURAÇÕES DA EMPRESA] block appended to the
// system prompt. The text mirrors what the agent persona expects.
func Context(s Settings, open bool) string {
	status := "FECHADO(A)"
	if open {
		status = "ABERTO(A)"
	}
	days := s.WorkingDays
	if len(days) == 0 {
		days = DefaultWorkingDays
	}
	openTime := valueOr(s.OpenTime, DefaultOpenTime)
	closeTime := valueOr(s.CloseTime, DefaultCloseTime)
	offline := valueOr(s.OfflineMessage, defaultOfflineMessage)

	var b strings.Builder
	b.WriteString("\n[CONFIGURAÇÕES DA EMPRESA]\n")
	fmt.Fprintf(&b, "- Status Atual: %s\n", status)
	fmt.Fprintf(&b, "- Horário de Funcionamento: %s às %s\n", openTime, closeTime)
	fmt.Fprintf(&b, "- Dias de Trabalho: %s\n", strings.Join(days, ", "))
	fmt.Fprintf(&b, "- Informações Institucionais: %s\n", s.Info)
	fmt.Fprintf(&b, "- Endereço: %s\n", s.Address)
	fmt.Fprintf(&b, "- Website: %s\n", s.Website)
	fmt.Fprintf(&b, "- Mensagem de Ausência: %s\n", offline)
	b.WriteString(`
[REGRAS DE ATENDIMENTO]
1. Se o status da empresa for FECHADO(A), você DEVE informar ao cliente que a equipe humana não está disponível no momento.
2. Seja cortês e informe que o atendimento humano retornará no horário comercial.
3. SEMPRE tente ajudar com informações da base de conhecimento ou realize agendamentos, pois você (IA) funciona 24h.
4. Se estiver fechado, use a "Mensagem de Ausência" como base para sua resposta inicial.
`)
	return b.String()
}

func parseClock(value, fallback string) (int, int) {
	if value == "" {
		value = fallback
	}
	parts := strings.SplitN(value, ":", 3)
	h := atoi(parts[0])
	m := 0
	if len(parts) > 1 {
		m = atoi(parts[1])
	}
	return h, m
}

func atoi(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
