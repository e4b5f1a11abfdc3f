package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/zap-ai/zapai/internal/api/router"
	"github.com/zap-ai/zapai/internal/billing"
	"github.com/zap-ai/zapai/internal/calendar"
	"github.com/zap-ai/zapai/internal/company"
	appconfig "github.com/zap-ai/zapai/internal/config"
	"github.com/zap-ai/zapai/internal/conversation"
	"github.com/zap-ai/zapai/internal/gateway"
	"github.com/zap-ai/zapai/internal/media"
	"github.com/zap-ai/zapai/internal/observability/metrics"
	"github.com/zap-ai/zapai/internal/outbound"
	"github.com/zap-ai/zapai/internal/scheduling"
	"github.com/zap-ai/zapai/internal/tools"
	"github.com/zap-ai/zapai/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting zapai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = rdb.Close() }()

	loc := loadLocation(cfg.CompanyTimezone, logger)
	metricsHandler, pipelineMetrics := setupMetrics()

	openaiClient := openai.NewClient(cfg.OpenAIKey)

	companyStore := company.NewStore(pool)
	convStore := conversation.NewStore(pool)
	schedStore := scheduling.NewStore(pool)
	billingStore := billing.NewStore(pool)
	calendarStore := calendar.NewStore(pool)

	// Calendar sync pipeline: enqueue from tools/handler, drain in a worker.
	googleClient := calendar.NewGoogleClient(cfg.GoogleClientID, cfg.GoogleClientSecret)
	syncQueue := calendar.NewQueue(rdb, logger)
	syncWorker := calendar.NewWorker(rdb, calendarStore, googleClient,
		cfg.CalendarRetryAttempts, cfg.CalendarRetryDelay, pipelineMetrics, logger)
	go func() {
		if err := syncWorker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("calendar worker stopped", "error", err)
		}
	}()

	pixClient := billing.NewWebhookClient(cfg.InvoiceWebhookURL, cfg.PaymentStatusWebhookURL,
		cfg.WebhookTimeout, logger)

	toolRegistry := tools.NewRegistry(tools.RegistryConfig{
		Scheduling: schedStore,
		Billing:    billingStore,
		Payments:   pixClient,
		Calendar:   syncQueue,
		Metrics:    pipelineMetrics,
		Logger:     logger,
		Location:   loc,
	})

	sender := outbound.NewSender(cfg.EvolutionAPIURL, cfg.WebhookTimeout, logger)
	dispatcher := outbound.NewDispatcher(sender, convStore, pipelineMetrics, logger)

	debouncer := conversation.NewDebouncer(convStore, cfg.DebounceWindow, logger)
	engine := conversation.NewEngine(conversation.EngineConfig{
		Debouncer:    debouncer,
		Store:        convStore,
		Companies:    companyStore,
		Chat:         openaiClient,
		Tools:        toolRegistry,
		Dispatcher:   dispatcher,
		Metrics:      pipelineMetrics,
		Logger:       logger,
		Model:        cfg.OpenAIModel,
		HistoryLimit: cfg.HistoryLimit,
		ModelTimeout: cfg.ModelTimeout,
		Location:     loc,
	})

	gatewayHandler := gateway.NewHandler(gateway.HandlerConfig{
		Companies: companyStore,
		Convs:     convStore,
		Fetcher:   media.NewEvolutionFetcher(cfg.EvolutionAPIURL, cfg.WebhookTimeout, logger),
		Enricher:  media.NewEnricher(openaiClient, cfg.OpenAIModel, logger),
		Engine:    engine,
		Metrics:   pipelineMetrics,
		Logger:    logger,
	})
	instagramHandler := gateway.NewInstagramHandler(companyStore,
		gateway.NewGraphClient(cfg.WebhookTimeout, logger),
		cfg.MetaVerifyToken, pipelineMetrics, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		WhatsAppWebhook:     gatewayHandler,
		InstagramWebhook:    instagramHandler,
		ConversationHandler: conversation.NewHandler(engine, logger),
		CalendarHandler:     calendar.NewHandler(syncQueue, logger),
		MetricsHandler:      metricsHandler,
		InternalJWTSecret:   cfg.InternalJWTSecret,
		WebhookRateLimit:    cfg.WebhookRateLimit,
		WebhookBurst:        cfg.WebhookBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// loadLocation resolves the company-local timezone, falling back to UTC on a
// bad or missing tz database entry.
func loadLocation(tz string, logger *logging.Logger) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("invalid company timezone, falling back to UTC", "tz", tz)
		return time.UTC
	}
	return loc
}

// setupMetrics builds an isolated Prometheus registry with the pipeline
// collectors and the handler that exports it.
func setupMetrics() (http.Handler, *metrics.PipelineMetrics) {
	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return handler, pipelineMetrics
}
