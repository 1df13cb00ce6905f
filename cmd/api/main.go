package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mmmarc2025/sparkling-service/internal/api/router"
	"github.com/mmmarc2025/sparkling-service/internal/auth"
	"github.com/mmmarc2025/sparkling-service/internal/bookings"
	"github.com/mmmarc2025/sparkling-service/internal/catalog"
	appconfig "github.com/mmmarc2025/sparkling-service/internal/config"
	"github.com/mmmarc2025/sparkling-service/internal/conversation"
	"github.com/mmmarc2025/sparkling-service/internal/http/handlers"
	"github.com/mmmarc2025/sparkling-service/internal/linechannel"
	"github.com/mmmarc2025/sparkling-service/internal/notify"
	"github.com/mmmarc2025/sparkling-service/internal/observability/metrics"
	"github.com/mmmarc2025/sparkling-service/internal/settings"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sparkling-service API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Redis (prompt cache)
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, settings reads fall back to postgres", "error", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	// Domain services
	catalogRepo := catalog.NewRepository(pool)
	bookingSvc := bookings.NewService(bookings.NewRepository(pool), logger)
	settingsStore := settings.NewStore(pool, redisClient, cfg.PromptCacheTTL, logger)
	historyStore := conversation.NewHistoryStore(pool)
	promptBuilder := conversation.NewPromptBuilder(settingsStore, catalogRepo, cfg.BookingTimezone, logger)

	llmClient, cleanup, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	bookingLocation := promptBuilder.Location()
	var notifier *notify.Service
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		notifier = notify.NewService(sender, cfg.OperatorAlertEmail, bookingLocation, logger)
	} else {
		notifier = notify.NewService(notify.NewStubEmailSender(logger), "", bookingLocation, logger)
	}

	replyClient := linechannel.NewClient(cfg.LineAPIBaseURL, cfg.LineChannelAccessToken, logger)
	processor := conversation.NewProcessor(
		promptBuilder, historyStore, llmClient, catalogRepo, bookingSvc, replyClient, notifier,
		webhookMetrics, logger,
		conversation.ProcessorConfig{
			HistoryWindow:     cfg.HistoryWindow,
			MaxTokens:         cfg.LLMMaxTokens,
			Temperature:       float32(cfg.LLMTemperature),
			CompletionTimeout: cfg.CompletionTimeout,
		},
	)
	webhookHandler := linechannel.NewWebhookHandler(cfg.LineChannelSecret, processor, cfg.ProcessTimeout, webhookMetrics, logger)

	// LINE Login (enabled when the login channel is configured)
	var authHandler *auth.Handler
	var authService *auth.Service
	var myBookings *handlers.MyBookingsHandler
	if cfg.LineLoginChannelID != "" {
		loginClient := auth.NewLineLoginClient(auth.LineLoginConfig{
			ChannelID:     cfg.LineLoginChannelID,
			ChannelSecret: cfg.LineLoginChannelSecret,
		})
		authService = auth.NewService(
			loginClient,
			auth.NewUserRepository(pool),
			auth.NewSessionRepository(pool),
			cfg.PublicBaseURL+"/auth/line/callback",
			cfg.SessionDuration,
			logger,
		)
		authHandler = auth.NewHandler(authService, cfg.FrontendURL, logger)
		myBookings = handlers.NewMyBookingsHandler(bookingSvc, logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		WebhookHandler:     webhookHandler,
		AuthHandler:        authHandler,
		AuthService:        authService,
		MyBookings:         myBookings,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		AdminCatalog:       handlers.NewAdminCatalogHandler(catalogRepo, logger),
		AdminBookings:      handlers.NewAdminBookingsHandler(bookingSvc, logger),
		AdminSettings:      handlers.NewAdminSettingsHandler(settingsStore, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{cfg.FrontendURL},
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
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildLLMClient selects the completion provider. "auto" prefers the
// OpenAI-compatible endpoint and falls back to Gemini when both keys are
// configured.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	noop := func() {}

	newOpenAI := func() (conversation.LLMClient, error) {
		return conversation.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	newGemini := func() (*conversation.GeminiClient, error) {
		return conversation.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	switch cfg.LLMProvider {
	case "openai":
		client, err := newOpenAI()
		return client, noop, err
	case "gemini":
		client, err := newGemini()
		if err != nil {
			return nil, noop, err
		}
		return client, func() { _ = client.Close() }, nil
	default: // "auto"
		if cfg.LLMAPIKey == "" && cfg.GeminiAPIKey != "" {
			client, err := newGemini()
			if err != nil {
				return nil, noop, err
			}
			return client, func() { _ = client.Close() }, nil
		}
		primary, err := newOpenAI()
		if err != nil {
			return nil, noop, err
		}
		if cfg.GeminiAPIKey == "" {
			return primary, noop, nil
		}
		fallback, err := newGemini()
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
			return primary, noop, nil
		}
		return conversation.NewFallbackLLMClient(primary, fallback, logger), func() { _ = fallback.Close() }, nil
	}
}
