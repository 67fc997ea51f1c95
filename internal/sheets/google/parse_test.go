package google

import (
	"testing"
	"time"

	"litfunds/internal/core"
)

func TestFormatRowRoundTrip(t *testing.T) {
	tx := core.NewTransaction(core.Expense, 12345, "Rent", "Housing", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	tx.ID, tx.UserID = "t1", "u1"
	tx.CreatedAt = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

	row := formatRow(tx)
	if len(row) != numCols {
		t.Fatalf("row has %d cells, want %d", len(row), numCols)
	}
	if row[colAmount] != "-123.45" {
		t.Fatalf("amount cell = %v", row[colAmount])
	}

	rec, ok := parseRow(row)
	if !ok {
		t.Fatal("expected row to parse")
	}
	got, ok := core.NormalizeRecord(rec)
	if !ok {
		t.Fatalf("expected usable record, got %+v", rec)
	}
	if got.Amount != tx.Amount || got.Category != "Housing" || !got.Date.Equal(tx.Date) || !got.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name       string
		row        []any
		wantOK     bool
		wantAmount *int64
		wantDate   bool
		wantType   bool
	}{
		{name: "header", row: []any{"ID", "User", "Date"}},
		{name: "blank", row: []any{}},
		{name: "numeric amount", row: []any{"x", "u", "2025-01-02", "income", "", "pay", 250.5}, wantOK: true, wantAmount: ptr(25050), wantDate: true, wantType: true},
		{name: "comma decimal", row: []any{"x", "u", "2025-01-02", "expense", "food", "", "-7,25"}, wantOK: true, wantAmount: ptr(-725), wantDate: true, wantType: true},
		{name: "missing cells", row: []any{"x", "u"}, wantOK: true},
		{name: "bad date and amount", row: []any{"x", "u", "02/01/2025", "expense", "food", "", "abc"}, wantOK: true, wantType: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := parseRow(tt.row)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			switch {
			case tt.wantAmount == nil && rec.AmountCents != nil:
				t.Errorf("expected no amount, got %d", *rec.AmountCents)
			case tt.wantAmount != nil && (rec.AmountCents == nil || *rec.AmountCents != *tt.wantAmount):
				t.Errorf("amount = %v, want %d", rec.AmountCents, *tt.wantAmount)
			}
			if (rec.Date != nil) != tt.wantDate {
				t.Errorf("date present = %v, want %v", rec.Date != nil, tt.wantDate)
			}
			if (rec.Type != nil) != tt.wantType {
				t.Errorf("type present = %v, want %v", rec.Type != nil, tt.wantType)
			}
		})
	}
}

func TestParseUnitsToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"-12.34", -1234, true},
		{"12,345", 1235, true},
		{"1.5E3", 150000, true},
		{"", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseUnitsToCents(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseUnitsToCents(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func ptr(v int64) *int64 { return &v }
