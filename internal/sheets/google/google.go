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

	"litfunds/internal/core"
	ports "litfunds/internal/sheets"

	"golang.org/x/oauth2"
	gcreds "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.Mirror = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME (default
// "Transactions") and the service account from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:          strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// New creates a Sheets client authenticated with a service account. Extra
// options are appended after the credentials, which lets tests point the
// client at a local endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Transactions"
	}

	hc := newHTTPClientWithPooling()
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if hc, err = authorizedClient(ctx, creds, hc); err != nil {
			return nil, err
		}
	}

	base := []goption.ClientOption{goption.WithHTTPClient(hc)}
	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets client ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName)

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: cfg.SheetName}, nil
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", cfg.ServiceAccountFile, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// authorizedClient signs requests with the service account while reusing
// base's pooled transport. Token refreshes outlive ctx cancellation.
func authorizedClient(ctx context.Context, creds []byte, base *http.Client) (*http.Client, error) {
	conf, err := gcreds.JWTConfigFromJSON(creds, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	client := conf.Client(context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base))
	client.Timeout = base.Timeout
	return client, nil
}

// newHTTPClientWithPooling keeps connections to the Sheets API alive between
// batches.
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

func (c *Client) rangeOf(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cells)
}

// findRow returns the 1-based row number holding txID, or 0.
func (c *Client) findRow(ctx context.Context, txID string) (int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ids of %s: %w", c.sheetName, err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == txID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Upsert implements sheets.TransactionMirror
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	row, err := c.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]any{formatRow(tx)}}
	if row == 0 {
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rangeOf("A:H"), vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append to %s: %w", c.sheetName, err)
		}
		slog.DebugContext(ctx, "Appended transaction row", "id", tx.ID, "sheet", c.sheetName)
		return nil
	}

	rng := c.rangeOf(fmt.Sprintf("A%d:H%d", row, row))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Updated transaction row", "id", tx.ID, "range", rng)
	return nil
}

// Remove implements sheets.TransactionMirror. The row is cleared rather than
// deleted so row numbers of other transactions stay stable.
func (c *Client) Remove(ctx context.Context, _ string, txID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, err := c.findRow(ctx, txID)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}
	rng := c.rangeOf(fmt.Sprintf("A%d:H%d", row, row))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.DebugContext(ctx, "Cleared transaction row", "id", txID, "range", rng)
	return nil
}

// ListRecords implements sheets.RecordLister
func (c *Client) ListRecords(ctx context.Context, userID string) ([]core.RawRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.rangeOf("A:H")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []core.RawRecord
	for _, row := range resp.Values {
		rec, ok := parseRow(row)
		if !ok || rec.UserID != userID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf("A1:H1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeOf("A1:H1"),
		&gsheet.ValueRange{Values: [][]any{headerRow}}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	return nil
}
