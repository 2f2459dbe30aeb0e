// Package google appends ledger activity to a Google Sheets spreadsheet
// using service account credentials.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	ports "dompet/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	now           func() time.Time
}

var _ ports.ActivityWriter = (*Client)(nil)

// New creates a Sheets client. The sheet name is prefixed with the year of
// each row batch, so a spreadsheet holds one tab per year.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Activity"
	}

	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets activity writer ready", "sheet", base)
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetBase: base, now: time.Now}, nil
}

// loadCredentials prefers inline JSON, then a file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		if !json.Valid([]byte(inline)) {
			return nil, errors.New("service account json is not valid JSON")
		}
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		if !json.Valid(b) {
			return nil, fmt.Errorf("service account file %s is not valid JSON", file)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendActivity appends rows below the last used row of the year's tab.
func (c *Client) AppendActivity(ctx context.Context, rows ...ports.ActivityRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}

	year := rows[0].At.Year()
	if rows[0].At.IsZero() {
		year = c.now().Year()
	}
	sheet := yearPrefixedName(c.sheetBase, year)

	rng := fmt.Sprintf("%s!A:H", sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: toValues(rows)}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func toValues(rows []ports.ActivityRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a four digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 && base[4] == ' ' {
		if y, err := strconv.Atoi(base[:4]); err == nil && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
