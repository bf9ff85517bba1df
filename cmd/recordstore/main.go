// Command recordstore serves the dashboard collections over the json-server
// HTTP dialect, backed by any configured store.
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
	"github.com/mamadbah2/barberdash/internal/server/handlers"
	"github.com/mamadbah2/barberdash/internal/server/router"
	"github.com/mamadbah2/barberdash/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	if cfg.Store.Backend == config.BackendREST {
		baseLogger.Fatal("the record store cannot proxy another record store; pick memory, mongodb or postgres")
	}

	st, closeStore, err := repository.Open(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to open record store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			baseLogger.Error("failed to close record store", zap.Error(err))
		}
	}()

	handler := handlers.NewRecordHandler(st, baseLogger.Named("handlers.records"))
	srv := &http.Server{
		Addr:         ":" + cfg.Server.RecordStorePort,
		Handler:      router.NewRecordStore(handler, baseLogger.Named("router")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("record store starting", zap.String("port", cfg.Server.RecordStorePort), zap.String("backend", cfg.Store.Backend))
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
}
