// Package cli implements barberctl, the operator command line for the
// barbershop record store.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
	"github.com/mamadbah2/barberdash/pkg/logger"
)

const dayLayout = "2006-01-02"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "barberctl",
	Short: "Operate the barbershop dashboard store",
	Long: `barberctl works directly against the configured record store: seed an
empty shop, print or publish closing reports and export a barber's day.
Configuration comes from the environment or an .env file, like the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to an .env file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// session is an engine loaded from the configured store.
type session struct {
	cfg    *config.Config
	engine *syncengine.Engine
	logger *zap.Logger
	close  func()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	base, err := logger.NewConsole(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	st, closeStore, err := repository.Open(ctx, cfg, base)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	engine := syncengine.NewEngine(st, syncengine.Options{
		SurchargeAmount: cfg.Shop.SurchargeAmount,
		Location:        cfg.Location(),
		WriteTimeout:    cfg.Store.Timeout,
	}, logger.Named(base, "svc.sync"))
	if err := engine.Refresh(ctx); err != nil {
		_ = closeStore(ctx)
		return nil, fmt.Errorf("load store: %w", err)
	}

	return &session{
		cfg:    cfg,
		engine: engine,
		logger: base,
		close: func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
			defer cancel()
			if err := engine.Close(closeCtx); err != nil {
				base.Warn("pending writes did not finish", zap.Error(err))
			}
			if err := closeStore(closeCtx); err != nil {
				base.Warn("close store", zap.Error(err))
			}
			_ = base.Sync()
		},
	}, nil
}

// day resolves a --day flag in the shop time zone, today when empty.
func (s *session) day(raw string) (time.Time, error) {
	if raw == "" {
		return s.engine.SelectedDay(), nil
	}
	day, err := time.ParseInLocation(dayLayout, raw, s.engine.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--day must be YYYY-MM-DD: %w", err)
	}
	return day, nil
}
