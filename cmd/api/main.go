package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/northpeak-analytics/site-backend/internal/config"
	"github.com/northpeak-analytics/site-backend/internal/handler"
	"github.com/northpeak-analytics/site-backend/internal/logger"
	intakeservice "github.com/northpeak-analytics/site-backend/internal/service/intake"
	"github.com/northpeak-analytics/site-backend/internal/service/notify"
	paymentservice "github.com/northpeak-analytics/site-backend/internal/service/payment"
	"github.com/northpeak-analytics/site-backend/internal/service/resolver"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.L.Warn("no .env file loaded, continuing with system environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Server.LogLevel)

	// Remote generation is optional: without credentials the intake flow
	// answers with scripted copy only.
	var remote resolver.Resolver
	if cfg.AI.Enabled() {
		remote = resolver.NewRemote(cfg.AI)
		logger.L.Info("remote generation enabled", "model", cfg.AI.Model)
	} else {
		logger.L.Info("remote generation credentials absent, using scripted replies only")
	}
	intakeSvc := intakeservice.NewService(remote)

	var paymentSvc *paymentservice.Service
	if cfg.Payment.Enabled() {
		sender := notify.NewSender(cfg.Email)
		if !cfg.Email.Enabled() {
			logger.L.Warn("no email provider configured, purchase notifications will be dropped")
		}
		paymentSvc = paymentservice.NewService(cfg.Payment, sender)
		if !cfg.Payment.WebhooksEnabled() {
			logger.L.Warn("webhook secret absent, inbound events will be rejected")
		}
		logger.L.Info("payment service initialized")
	} else {
		logger.L.Info("payment processor credentials absent, checkout disabled")
	}

	router := handler.NewRouter(intakeSvc, paymentSvc, cfg.Server.AllowedOrigins)
	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.L.Info("site backend listening", "addr", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		logger.L.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
