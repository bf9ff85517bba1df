// Package reporting aggregates sales and appointments into the figures the
// dashboard shows, and publishes the daily closing report.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/domain/models"
	"github.com/mamadbah2/barberdash/internal/metrics"
	"github.com/mamadbah2/barberdash/internal/service/syncengine"
)

// Source provides the mirror the reports are computed from.
type Source interface {
	Snapshot() syncengine.State
	Location() *time.Location
}

// Sink receives closing reports.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report ClosingReport) error
}

// ClosingReport is the end of day summary of every barber.
type ClosingReport struct {
	Day       time.Time          `json:"day"`
	Summaries []BarberDaySummary `json:"summaries"`
	Totals    Split              `json:"totals"`
	Scheduled int                `json:"scheduled"`
}

// Service builds closing reports and hands them to the configured sinks.
type Service struct {
	source Source
	sinks  []Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(source Source, logger *zap.Logger, sinks ...Sink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, sinks: sinks, logger: logger, now: time.Now}
}

// Build computes the closing report of the local day containing day.
func (s *Service) Build(day time.Time) ClosingReport {
	snap := s.source.Snapshot()
	loc := s.source.Location()

	report := ClosingReport{
		Day:       models.DayStart(day, loc),
		Scheduled: ScheduledCount(snap.Appointments, day, loc),
		Totals:    Split{Total: decimal.Zero, Barber: decimal.Zero, Shop: decimal.Zero},
	}
	for _, b := range snap.Barbers {
		sum := Summarize(b, snap.History, day, loc)
		report.Summaries = append(report.Summaries, sum)
		report.Totals.Total = report.Totals.Total.Add(sum.Split.Total)
		report.Totals.Barber = report.Totals.Barber.Add(sum.Split.Barber)
		report.Totals.Shop = report.Totals.Shop.Add(sum.Split.Shop)
	}
	return report
}

// PublishDay builds the report of day and sends it to every sink. A failing
// sink does not stop the others; their errors are joined.
func (s *Service) PublishDay(ctx context.Context, day time.Time) (ClosingReport, error) {
	report := s.Build(day)

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			metrics.ReportsPublished.WithLabelValues(sink.Name(), "failed").Inc()
			s.logger.Error("publish closing report", zap.String("sink", sink.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		metrics.ReportsPublished.WithLabelValues(sink.Name(), "ok").Inc()
	}

	s.logger.Info("closing report published",
		zap.Time("day", report.Day),
		zap.String("total", report.Totals.Total.StringFixed(2)),
		zap.Int("sinks", len(s.sinks)))

	return report, errors.Join(errs...)
}

// PublishToday publishes the report of the current day. It is the entry
// point of the scheduled closing job.
func (s *Service) PublishToday(ctx context.Context) error {
	_, err := s.PublishDay(ctx, s.now())
	return err
}
