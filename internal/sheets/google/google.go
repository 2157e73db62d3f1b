package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"nozze/internal/core"
	ports "nozze/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultBudgetSheet  = "Budget"
	DefaultSeatingSheet = "Seating"
)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID   string
	BudgetSheet     string
	SeatingSheet    string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	budgetSheet   string
	seatingSheet  string
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets client authenticated with service account credentials.
// When neither credential field is set it falls back to
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	budget := strings.TrimSpace(cfg.BudgetSheet)
	if budget == "" {
		budget = DefaultBudgetSheet
	}
	seating := strings.TrimSpace(cfg.SeatingSheet)
	if seating == "" {
		seating = DefaultSeatingSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		budgetSheet:   budget,
		seatingSheet:  seating,
	}
}

func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling keeps connections to the Sheets API alive between
// the worker's many small writes.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// UpsertBudgetItem rewrites the row whose first column is the item id, or
// appends a new row when there is none.
func (c *Client) UpsertBudgetItem(ctx context.Context, item core.BudgetItem) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.read(ctx, c.budgetSheet+"!A:A")
	if err != nil {
		return err
	}
	row := ports.BudgetRow(item)

	if len(values) == 0 {
		return c.write(ctx, c.budgetSheet+"!A1", [][]any{headerRow(ports.BudgetHeader), row})
	}
	if i := ports.FindRow(values, item.ID); i >= 0 {
		rng := fmt.Sprintf("%s!A%d", c.budgetSheet, i+1)
		return c.write(ctx, rng, [][]any{row})
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.budgetSheet+"!A:A", &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.budgetSheet, err)
	}
	return nil
}

// DeleteBudgetItem clears the item's row. Rows are not removed so that
// manual formulas referencing later rows keep pointing at the same cells.
func (c *Client) DeleteBudgetItem(ctx context.Context, itemID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.read(ctx, c.budgetSheet+"!A:A")
	if err != nil {
		return err
	}
	i := ports.FindRow(values, itemID)
	if i < 0 {
		slog.DebugContext(ctx, "Budget item not found in sheet", "budget_item_id", itemID)
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.budgetSheet, i+1, lastColumn(len(ports.BudgetHeader)), i+1)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ReplaceSeating rewrites the seating sheet, keeping the rows of other weddings.
func (c *Client) ReplaceSeating(ctx context.Context, weddingID int64, tables []core.Table, guests []core.Guest) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	full := fmt.Sprintf("%s!A:%s", c.seatingSheet, lastColumn(len(ports.SeatingHeader)))
	existing, err := c.read(ctx, full)
	if err != nil {
		return err
	}
	merged := ports.MergeSeating(existing, weddingID, ports.SeatingRows(weddingID, tables, guests))

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, full, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", full, err)
	}
	return c.write(ctx, c.seatingSheet+"!A1", merged)
}

func (c *Client) read(ctx context.Context, rng string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, values [][]any) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func headerRow(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// lastColumn returns the A1 letter of the n-th column (n <= 26).
func lastColumn(n int) string {
	return string(rune('A' + n - 1))
}
