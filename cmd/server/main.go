package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository"
	"github.com/mamadbah2/barberdash/internal/scheduler"
	"github.com/mamadbah2/barberdash/internal/server/handlers"
	"github.com/mamadbah2/barberdash/internal/server/router"
	"github.com/mamadbah2/barberdash/internal/service/chat"
	reportingsvc "github.com/mamadbah2/barberdash/internal/service/reporting"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
	"github.com/mamadbah2/barberdash/pkg/clients/whatsapp"
	"github.com/mamadbah2/barberdash/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	st, closeStore, err := repository.Open(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to open record store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			baseLogger.Error("failed to close record store", zap.Error(err))
		}
	}()

	engine := syncengine.NewEngine(st, syncengine.Options{
		SurchargeAmount: cfg.Shop.SurchargeAmount,
		Location:        cfg.Location(),
		WriteTimeout:    cfg.Store.Timeout,
	}, baseLogger.Named("svc.sync"))

	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.Store.Timeout)
	if err := engine.Refresh(initCtx); err != nil {
		baseLogger.Warn("initial refresh failed, starting with an empty mirror", zap.Error(err))
	}
	cancelInit()

	sinks, err := reportingsvc.SinksFromConfig(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init report sinks", zap.Error(err))
	}

	var (
		publisher handlers.ReportPublisher
		closing   scheduler.ReportPublisher
	)
	if len(sinks) > 0 {
		reportingSvc := reportingsvc.NewService(engine, baseLogger.Named("svc.reporting"), sinks...)
		publisher = reportingSvc
		closing = reportingSvc
	} else {
		baseLogger.Warn("no report sink configured, closing reports disabled")
	}

	dashboardHandler := handlers.NewDashboardHandler(engine, publisher, baseLogger.Named("handlers.dashboard"))

	var webhookHandler *handlers.WebhookHandler
	if cfg.WhatsApp.ChatEnabled() {
		chatSvc := chat.NewService(cfg.WhatsApp, whatsapp.NewClient(cfg.WhatsApp), engine, baseLogger.Named("svc.chat"))
		webhookHandler = handlers.NewWebhookHandler(chatSvc, baseLogger.Named("handlers.webhook"))
	}

	ginEngine := router.New(dashboardHandler, webhookHandler, cfg.Operator, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, engine, closing, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	sched.Stop()
	if err := engine.Close(shutdownCtx); err != nil {
		baseLogger.Error("pending writes did not finish", zap.Error(err))
	}
}
