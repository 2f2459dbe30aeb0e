package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dompet/internal/auth"
	"dompet/internal/backend"
	"dompet/internal/cli"
	httpserver "dompet/internal/http"
	"dompet/internal/log"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := log.New(log.DefaultConfig())
	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(bootLogger, "Configuration validation failed", err)
	}

	logger, err := cli.SetupLogger(cfg, log.ComponentApp)
	if err != nil {
		cli.Fatal(bootLogger, "Invalid log configuration", err)
	}
	logger.Info("Starting dompet", "backend", cfg.DataBackend, "auth_mode", cfg.AuthMode)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	authn, err := auth.New(cfg.AuthMode, cfg.AuthJWTSecret, cfg.AuthUserHeader)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize authentication", err)
	}

	srv := httpserver.NewServer(httpserver.Config{
		Addr:               ":" + cfg.Port,
		APIPrefix:          cfg.APIPrefix,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, result.Ledger, authn, logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "api_prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "HTTP server failed", err)
		}
	}()

	<-ctx.Done()
	<-done
}
