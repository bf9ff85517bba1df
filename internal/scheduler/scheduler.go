package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
)

// Refresher reloads the dashboard mirror from the record store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ReportPublisher sends the closing report of the current day.
type ReportPublisher interface {
	PublishToday(ctx context.Context) error
}

// Scheduler runs the polling task and the daily closing report.
type Scheduler struct {
	cron     *cron.Cron
	engine   Refresher
	reports  ReportPublisher
	cfg      config.Config
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	pollWait time.Duration
}

// NewScheduler creates a new scheduler instance. reports may be nil when no
// report sink is configured.
func NewScheduler(cfg config.Config, engine Refresher, reports ReportPublisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Overlapping polls are skipped; the closing report follows the shop's
	// time zone rather than the host's.
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	pollWait := cfg.Store.Timeout
	if pollWait <= 0 {
		pollWait = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     c,
		engine:   engine,
		reports:  reports,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		pollWait: pollWait,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.Duration("sync_interval", s.cfg.Sync.Interval))

	if _, err := s.cron.AddFunc("@every "+s.cfg.Sync.Interval.String(), s.poll); err != nil {
		return fmt.Errorf("schedule polling: %w", err)
	}

	if s.reports != nil {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.sendClosingReport); err != nil {
			return fmt.Errorf("schedule closing report %q: %w", s.cfg.Reporting.CronSchedule, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) poll() {
	ctx, cancel := context.WithTimeout(s.ctx, s.pollWait)
	defer cancel()

	err := s.engine.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, syncengine.ErrEngineClosed), errors.Is(err, context.Canceled):
		s.logger.Debug("poll skipped", zap.Error(err))
	default:
		s.logger.Warn("poll refresh failed", zap.Error(err))
	}
}

func (s *Scheduler) sendClosingReport() {
	s.logger.Info("publishing closing report")
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Minute)
	defer cancel()

	if err := s.reports.PublishToday(ctx); err != nil {
		s.logger.Error("failed to publish closing report", zap.Error(err))
		return
	}
	s.logger.Info("closing report published successfully")
}
