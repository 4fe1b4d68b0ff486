// Package main runs the payments bridge HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vestige-studio/payments-bridge/config"
	"github.com/vestige-studio/payments-bridge/internal/checkout"
	"github.com/vestige-studio/payments-bridge/internal/middleware"
	"github.com/vestige-studio/payments-bridge/internal/registrations"
	"github.com/vestige-studio/payments-bridge/internal/sheets"
	"github.com/vestige-studio/payments-bridge/internal/webhook"
	"github.com/vestige-studio/payments-bridge/pkg/metrics"
	"github.com/vestige-studio/payments-bridge/pkg/redis"
	"github.com/vestige-studio/payments-bridge/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Failure sink (optional). Must stay a nil interface when disabled.
	var sink webhook.FailureSink
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewFromConfig(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("failure sink disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			sink = rdb.FailureQueue()
		}
	}

	// Spreadsheet
	sheetsClient := sheets.NewClient(sheets.Options{
		URL:     cfg.Sheets.URL,
		Format:  cfg.Sheets.Format,
		Timeout: cfg.Sheets.Timeout(),
	}, logger.Named("sheets"))

	// Payment sessions
	gateway := checkout.NewStripeGateway(cfg.Stripe, logger)
	checkoutHandler := checkout.NewHandler(checkout.NewService(gateway, cfg.Checkout), m, logger)

	// Webhook
	webhookHandler := webhook.NewHandler(webhook.NewVerifier(cfg.Stripe.WebhookSecret), sheetsClient, sink, m, logger)

	// Free registrations
	registrationHandler := registrations.NewHandler(sheetsClient, m, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, m))

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Payment sessions
	router.POST("/create-checkout-session", checkoutHandler.CreateCheckoutSession)
	router.POST("/start-checkout", checkoutHandler.StartCheckout)
	router.POST("/create-donation-intent", checkoutHandler.CreateDonationIntent)

	// Webhooks (signature checked in handler over the raw body)
	router.POST("/webhook", webhookHandler.Handle)
	router.POST("/webhook-stripe", webhookHandler.Handle)

	router.POST("/register-free", registrationHandler.RegisterFree)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("sheets_format", cfg.Sheets.Format),
			zap.Bool("failure_sink", sink != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
