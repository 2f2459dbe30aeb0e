package backend

import (
	"context"
	"fmt"
	"log/slog"

	"dompet/internal/config"
	"dompet/internal/sheets"
	gsheet "dompet/internal/sheets/google"
)

// NewActivityWriter returns the Google Sheets writer when a spreadsheet is
// configured and a structured-log writer otherwise.
func NewActivityWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.ActivityWriter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("No spreadsheet configured, writing activity to the log")
		return sheets.LogWriter{Logger: logger}, nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleActivitySheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	logger.Info("Writing activity to Google Sheets",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleActivitySheetName)
	return client, nil
}
