package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/barberdash/internal/config"
)

// Ledger is an append-only tabular log of closing reports.
type Ledger interface {
	AppendRows(ctx context.Context, sheetRange string, rows [][]any) error
	ReadRange(ctx context.Context, sheetRange string) ([][]any, error)
}

var errEmptyRange = errors.New("sheet range must not be empty")

// GoogleSheetLedger keeps the ledger in a Google spreadsheet.
type GoogleSheetLedger struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

var _ Ledger = (*GoogleSheetLedger)(nil)

// NewGoogleSheetLedger authenticates with the service account credentials
// file from cfg.
func NewGoogleSheetLedger(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetLedger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetLedger{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRows adds rows below the last filled row of sheetRange.
func (l *GoogleSheetLedger) AppendRows(ctx context.Context, sheetRange string, rows [][]any) error {
	if sheetRange == "" {
		return errEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	call := l.service.Spreadsheets.Values.Append(l.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	l.logger.Debug("rows appended to ledger", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadRange returns the filled cells of sheetRange.
func (l *GoogleSheetLedger) ReadRange(ctx context.Context, sheetRange string) ([][]any, error) {
	if sheetRange == "" {
		return nil, errEmptyRange
	}

	resp, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}
