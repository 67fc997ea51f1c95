package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"litfunds/internal/core"
)

func TestParseTransactionForm(t *testing.T) {
	today := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		form       url.Values
		wantErrs   []string
		wantCents  int64
		wantType   core.TransactionType
		wantDate   string
		wantCatStr string
	}{
		{
			name:       "valid expense",
			form:       url.Values{"type": {"expense"}, "amount": {"12.50"}, "description": {" Lunch "}, "category": {"Food"}, "date": {"2025-06-01"}},
			wantCents:  -1250,
			wantType:   core.Expense,
			wantDate:   "2025-06-01",
			wantCatStr: "Food",
		},
		{
			name:       "income with comma decimal and default date",
			form:       url.Values{"type": {"Income"}, "amount": {"100,5"}, "description": {"Salary"}, "category": {"Work"}},
			wantCents:  10050,
			wantType:   core.Income,
			wantDate:   "2025-06-15",
			wantCatStr: "Work",
		},
		{
			name:     "everything missing",
			form:     url.Values{},
			wantErrs: []string{"type", "amount", "description", "category"},
		},
		{
			name:     "negative amount",
			form:     url.Values{"type": {"expense"}, "amount": {"-5"}, "description": {"x"}, "category": {"y"}},
			wantErrs: []string{"amount"},
		},
		{
			name:     "zero amount",
			form:     url.Values{"type": {"expense"}, "amount": {"0.00"}, "description": {"x"}, "category": {"y"}},
			wantErrs: []string{"amount"},
		},
		{
			name:     "bad date",
			form:     url.Values{"type": {"income"}, "amount": {"5"}, "description": {"x"}, "category": {"y"}, "date": {"15/06/2025"}},
			wantErrs: []string{"date"},
		},
		{
			name:     "long description",
			form:     url.Values{"type": {"income"}, "amount": {"5"}, "description": {strings.Repeat("a", 201)}, "category": {"y"}},
			wantErrs: []string{"description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, form, errs := ParseTransactionForm(tt.form, today)
			if len(tt.wantErrs) > 0 {
				for _, field := range tt.wantErrs {
					if _, ok := errs[field]; !ok {
						t.Errorf("expected error for %q, got %v", field, errs)
					}
				}
				if len(errs) != len(tt.wantErrs) {
					t.Errorf("errors = %v, want fields %v", errs, tt.wantErrs)
				}
				return
			}
			if errs.Any() {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if tx.Amount.Cents != tt.wantCents || tx.Type != tt.wantType {
				t.Errorf("got amount %d type %s", tx.Amount.Cents, tx.Type)
			}
			if form.Date != tt.wantDate || tx.Date.Format(dateLayout) != tt.wantDate {
				t.Errorf("date = %s / %s, want %s", form.Date, tx.Date.Format(dateLayout), tt.wantDate)
			}
			if tx.Category != tt.wantCatStr {
				t.Errorf("category = %q", tx.Category)
			}
			if err := tx.Validate(); err != nil {
				t.Errorf("parsed transaction does not validate: %v", err)
			}
		})
	}
}

func TestTransactionFormFrom(t *testing.T) {
	tx := core.NewTransaction(core.Expense, 1999, "Taxi", "Transportation", time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC))
	f := TransactionFormFrom(tx)
	if f.Amount != "19.99" || f.Type != "expense" || f.Date != "2025-02-03" {
		t.Fatalf("unexpected form: %+v", f)
	}
}

func TestParseBudgetForm(t *testing.T) {
	cat, cents, errs := ParseBudgetForm(url.Values{"category": {" Food "}, "limit": {"450"}})
	if errs.Any() || cat != "food" || cents != 45000 {
		t.Fatalf("got %q %d %v", cat, cents, errs)
	}

	_, _, errs = ParseBudgetForm(url.Values{"limit": {"abc"}})
	if _, ok := errs["category"]; !ok {
		t.Errorf("expected category error: %v", errs)
	}
	if _, ok := errs["limit"]; !ok {
		t.Errorf("expected limit error: %v", errs)
	}
}

func TestParseFormOrFail(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=%zz"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(r); resp == nil {
		t.Fatal("expected error response for malformed body")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(r); resp != nil {
		t.Fatal("unexpected error response")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":        "hello",
		"a\x00b\x07c":      "abc",
		"line\nbreak\tok":  "line\nbreak\tok",
		"":                 "",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTemplateHelpers(t *testing.T) {
	if got := barWidth(50, 200); got != 25 {
		t.Errorf("barWidth(50, 200) = %d", got)
	}
	if got := barWidth(1, 1000); got != 2 {
		t.Errorf("small values should stay visible, got %d", got)
	}
	if got := barWidth(5, 0); got != 0 {
		t.Errorf("zero scale must give 0, got %d", got)
	}
	if got := formatPercent(100); got != "100%" {
		t.Errorf("formatPercent(100) = %q", got)
	}
	if got := formatPercent(33.333); got != "33.3%" {
		t.Errorf("formatPercent(33.333) = %q", got)
	}
	if got := titleCase("food"); got != "Food" {
		t.Errorf("titleCase = %q", got)
	}
}
