package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("DEBOUNCE_WINDOW", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.DebounceWindow != 10*time.Second {
		t.Fatalf("expected default debounce window, got %s", cfg.DebounceWindow)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("expected default history limit, got %d", cfg.HistoryLimit)
	}
	if cfg.CompanyTimezone != "America/Sao_Paulo" {
		t.Fatalf("expected default timezone, got %s", cfg.CompanyTimezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("DEBOUNCE_WINDOW", "3s")
	t.Setenv("HISTORY_LIMIT", "20")
	t.Setenv("EVO_API_URL", "https://evo.example.com")
	t.Setenv("WEBHOOK_URL_GERAR_FATURA", "https://hooks.example.com/fatura")
	t.Setenv("CALENDAR_RETRY_ATTEMPTS", "5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.DebounceWindow != 3*time.Second {
		t.Fatalf("expected debounce override, got %s", cfg.DebounceWindow)
	}
	if cfg.HistoryLimit != 20 {
		t.Fatalf("expected history limit override, got %d", cfg.HistoryLimit)
	}
	if cfg.EvolutionAPIURL != "https://evo.example.com" {
		t.Fatalf("expected evolution url override, got %s", cfg.EvolutionAPIURL)
	}
	if cfg.InvoiceWebhookURL != "https://hooks.example.com/fatura" {
		t.Fatalf("expected invoice webhook override, got %s", cfg.InvoiceWebhookURL)
	}
	if cfg.CalendarRetryAttempts != 5 {
		t.Fatalf("expected calendar retry override, got %d", cfg.CalendarRetryAttempts)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("DEBOUNCE_WINDOW", "not-a-duration")
	cfg := Load()
	if cfg.DebounceWindow != 10*time.Second {
		t.Fatalf("expected fallback debounce window, got %s", cfg.DebounceWindow)
	}
}
