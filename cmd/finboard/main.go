package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/auth"
	"finboard/internal/backend"
	"finboard/internal/cache"
	"finboard/internal/cli"
	"finboard/internal/core"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
	"finboard/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg, auth.LocalScope)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase, "backend", backendCfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close record store", log.FieldError, err)
		}
	}()

	// Publishing is optional; without AMQP the mirror only catches up on its periodic pass.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP not configured, ledger changes will not be published")
	}

	ledger := services.NewLedgerService(result.Store, publisher, logger.WithComponent(log.ComponentLedger))

	tokenCache := cache.NewLRUCache[core.UserScope](1000, 5*time.Minute)
	var verifier *auth.Verifier
	if cfg.AuthDisabled {
		logger.Warn("Authentication disabled, every request runs as the local scope", log.FieldUserScope, auth.LocalScope)
	} else {
		verifier = auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTAudience, tokenCache)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, verifier, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TokenCache:         tokenCache,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			log.NewStructuredLogger(logger).LogError(ctx, "Server shutdown error", err, log.ComponentHTTP, log.OpShutdown, nil)
		}
	})

	logger.Info("Starting finboard server", "port", cfg.Port, "backend", backendCfg.Type, "auth_enabled", verifier != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fields := log.NewFields().WithErrorType(log.ErrorTypeNetwork)
		fields["port"] = cfg.Port
		log.NewStructuredLogger(logger).LogError(ctx, "Server error", err, log.ComponentHTTP, log.OpStartup, fields)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
