package hours

import (
	"strings"
	"testing"
	"time"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestIsOpen(t *testing.T) {
	weekdays := Settings{
		WorkingDays: []string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta"},
		OpenTime:    "09:00",
		CloseTime:   "18:00",
	}

	tests := []struct {
		name     string
		settings Settings
		now      string // 2025-11-01 is a Saturday
		want     bool
	}{
		{"saturday closed", weekdays, "2025-11-01 10:00", false},
		{"tuesday open", weekdays, "2025-11-04 10:00", true},
		{"tuesday after close", weekdays, "2025-11-04 18:01", false},
		{"tuesday at open boundary", weekdays, "2025-11-04 09:00", true},
		{"tuesday at close boundary", weekdays, "2025-11-04 18:00", true},
		{"tuesday before open", weekdays, "2025-11-04 08:59", false},
		{
			"composite range label",
			Settings{WorkingDays: []string{"Segunda a Sábado"}, OpenTime: "08:00", CloseTime: "12:00"},
			"2025-11-01 09:30",
			true,
		},
		{
			"all days label",
			Settings{WorkingDays: []string{"Todos os dias"}},
			"2025-11-02 10:00",
			true,
		},
		{
			"empty settings fall back to weekdays",
			Settings{},
			"2025-11-02 10:00", // Sunday
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOpen(tt.settings, date(t, tt.now)); got != tt.want {
				t.Fatalf("IsOpen(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestContext(t *testing.T) {
	s := Settings{
		WorkingDays: []string{"Segunda", "Terça"},
		OpenTime:    "08:00",
		CloseTime:   "17:00",
		Address:     "Rua das Flores, 100",
		Website:     "https://example.com.br",
	}

	closed := Context(s, false)
	if !strings.Contains(closed, "Status Atual: FECHADO(A)") {
		t.Fatalf("expected closed status in context:\n%s", closed)
	}
	if !strings.Contains(closed, "08:00 às 17:00") {
		t.Fatalf("expected working window in context:\n%s", closed)
	}
	if !strings.Contains(closed, "Rua das Flores, 100") {
		t.Fatalf("expected address in context:\n%s", closed)
	}
	if !strings.Contains(closed, "Mensagem de Ausência:") {
		t.Fatalf("expected offline message in context:\n%s", closed)
	}

	open := Context(s, true)
	if !strings.Contains(open, "Status Atual: ABERTO(A)") {
		t.Fatalf("expected open status in context:\n%s", open)
	}
}
