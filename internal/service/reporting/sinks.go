package reporting

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/sheets"
	"github.com/mamadbah2/barberdash/pkg/clients/whatsapp"
)

const ledgerRange = "Fechamento!A:H"

// SinksFromConfig builds a sink for every report destination enabled in cfg.
func SinksFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var sinks []Sink
	if cfg.Sheets.Enabled() {
		ledger, err := sheets.NewGoogleSheetLedger(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewSheetsSink(ledger, logger.Named("sink.sheets")))
	}
	if cfg.WhatsApp.Enabled() {
		sinks = append(sinks, NewWhatsAppSink(whatsapp.NewClient(cfg.WhatsApp), cfg.WhatsApp.Recipients(), logger.Named("sink.whatsapp")))
	}
	return sinks, nil
}

// SheetsSink appends one ledger row per barber and day. Days already in the
// ledger are skipped so a rerun of the closing job does not duplicate rows.
type SheetsSink struct {
	ledger sheets.Ledger
	logger *zap.Logger
}

// NewSheetsSink wraps a ledger.
func NewSheetsSink(ledger sheets.Ledger, logger *zap.Logger) *SheetsSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetsSink{ledger: ledger, logger: logger}
}

func (s *SheetsSink) Name() string { return "sheets" }

// Publish implements Sink.
func (s *SheetsSink) Publish(ctx context.Context, report ClosingReport) error {
	existing, err := s.ledger.ReadRange(ctx, ledgerRange)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	day := report.Day.Format("2006-01-02")
	done := map[string]bool{}
	for _, row := range existing {
		if len(row) < 2 || fmt.Sprint(row[0]) != day {
			continue
		}
		done[fmt.Sprint(row[1])] = true
	}

	var rows [][]any
	for _, sum := range report.Summaries {
		if done[sum.Barber.ID] {
			s.logger.Debug("ledger already has barber day", zap.String("barber_id", sum.Barber.ID), zap.String("day", day))
			continue
		}
		rows = append(rows, []any{
			day,
			sum.Barber.ID,
			sum.Barber.Name,
			len(sum.Items),
			sum.Split.Total.StringFixed(2),
			sum.Barber.CommissionRate,
			sum.Split.Barber.StringFixed(2),
			sum.Split.Shop.StringFixed(2),
		})
	}

	return s.ledger.AppendRows(ctx, ledgerRange, rows)
}

// WhatsAppSink sends the rendered report to a fixed list of numbers.
type WhatsAppSink struct {
	client     whatsapp.Client
	recipients []string
	logger     *zap.Logger
}

// NewWhatsAppSink sends every report to each of recipients.
func NewWhatsAppSink(client whatsapp.Client, recipients []string, logger *zap.Logger) *WhatsAppSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppSink{client: client, recipients: recipients, logger: logger}
}

func (s *WhatsAppSink) Name() string { return "whatsapp" }

// Publish implements Sink.
func (s *WhatsAppSink) Publish(ctx context.Context, report ClosingReport) error {
	body := RenderClosing(report)
	for _, to := range s.recipients {
		id, err := s.client.SendText(ctx, to, body)
		if err != nil {
			return fmt.Errorf("send report to %s: %w", to, err)
		}
		s.logger.Debug("closing report sent", zap.String("to", to), zap.String("message_id", id))
	}
	return nil
}

// RenderClosing joins the text of every barber with the shop totals.
func RenderClosing(report ClosingReport) string {
	parts := make([]string, 0, len(report.Summaries)+1)
	for _, sum := range report.Summaries {
		parts = append(parts, RenderText(sum))
	}
	parts = append(parts, fmt.Sprintf("🧾 *Total da casa:* R$ %s (comissões R$ %s, líquido R$ %s)\n📆 Agendados hoje: %d",
		report.Totals.Total.StringFixed(2),
		report.Totals.Barber.StringFixed(2),
		report.Totals.Shop.StringFixed(2),
		report.Scheduled))
	return strings.Join(parts, "\n\n")
}
