package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"litfunds/internal/core"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
)

// fakeSheets serves the handful of Values endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	appends int
	updates []string
	clears  []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!A:A"):
		ids := make([][]any, 0, len(f.rows))
		for _, row := range f.rows {
			if len(row) == 0 {
				ids = append(ids, []any{})
				continue
			}
			ids = append(ids, []any{row[0]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": ids})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.rows})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		f.rows = append(f.rows, body.Values...)
		f.appends++
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.clears = append(f.clears, path[strings.LastIndex(path, "/")+1:])
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		f.updates = append(f.updates, path[strings.LastIndex(path, "/")+1:])
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected request", http.StatusNotImplemented)
	}
}

func (f *fakeSheets) counts() (appends int, rows int, updates, clears []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends, len(f.rows), append([]string(nil), f.updates...), append([]string(nil), f.clears...)
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func testTx(id string) core.Transaction {
	tx := core.NewTransaction(core.Income, 100000, "Salary", "Work", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	tx.ID, tx.UserID, tx.CreatedAt = id, "u1", time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	return tx
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestAuthorizedClientKeepsPooledTransport(t *testing.T) {
	base := newHTTPClientWithPooling()
	creds := `{"type":"service_account","client_email":"sync@example.iam.gserviceaccount.com","private_key":"unused","token_uri":"http://127.0.0.1/token"}`

	client, err := authorizedClient(context.Background(), []byte(creds), base)
	if err != nil {
		t.Fatalf("authorizedClient: %v", err)
	}
	tr, ok := client.Transport.(*oauth2.Transport)
	if !ok {
		t.Fatalf("transport = %T, want *oauth2.Transport", client.Transport)
	}
	if tr.Base != base.Transport {
		t.Fatal("oauth2 transport does not wrap the pooled transport")
	}
	if client.Timeout != base.Timeout {
		t.Fatalf("timeout = %v, want %v", client.Timeout, base.Timeout)
	}

	if _, err := authorizedClient(context.Background(), []byte(`{"type":"authorized_user"}`), base); err == nil {
		t.Fatal("expected error for non service account credentials")
	}
}

func TestConfigFromEnvFallsBackToADCPath(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", " sid ")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/sa.json")

	cfg := ConfigFromEnv()
	if cfg.SpreadsheetID != "sid" || cfg.ServiceAccountFile != "/etc/sa.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestUpsertAppendsThenUpdates(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{headerRow}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.Upsert(ctx, testTx("t1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if appends, rows, _, _ := fake.counts(); appends != 1 || rows != 2 {
		t.Fatalf("expected one appended row, got appends=%d rows=%d", appends, rows)
	}

	if err := c.Upsert(ctx, testTx("t1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	appends, _, updates, _ := fake.counts()
	if appends != 1 {
		t.Fatalf("second upsert should update, got %d appends", appends)
	}
	if len(updates) != 1 || updates[0] != "Transactions!A2:H2" {
		t.Fatalf("unexpected updates: %v", updates)
	}
}

func TestRemoveClearsMatchingRow(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{headerRow, formatRow(testTx("t1")), formatRow(testTx("t2"))}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.Remove(ctx, "u1", "t2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, _, clears := fake.counts(); len(clears) != 1 || !strings.HasPrefix(clears[0], "Transactions!A3:H3") {
		t.Fatalf("unexpected clears: %v", clears)
	}

	if err := c.Remove(ctx, "u1", "nope"); err != nil {
		t.Fatalf("Remove of missing row: %v", err)
	}
	if _, _, _, clears := fake.counts(); len(clears) != 1 {
		t.Fatalf("missing row should not be cleared, got %v", clears)
	}
}

func TestListRecordsFiltersByUser(t *testing.T) {
	other := testTx("t3")
	other.UserID = "u2"
	fake := &fakeSheets{rows: [][]any{
		headerRow,
		formatRow(testTx("t1")),
		{},
		{"t2", "u1", "2025-05-02"},
		formatRow(other),
	}}
	c := newTestClient(t, fake)

	recs, err := c.ListRecords(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	txs, skipped := core.Normalize(recs)
	if len(txs) != 1 || skipped != 1 || txs[0].Amount.Cents != 100000 {
		t.Fatalf("normalize: %+v skipped=%d", txs, skipped)
	}
}
