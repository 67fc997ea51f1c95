package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"litfunds/internal/core"
)

// Row layout of the transactions sheet. Row 1 holds headers.
const (
	colID = iota
	colUser
	colDate
	colType
	colCategory
	colDescription
	colAmount
	colCreatedAt
	numCols
)

const dateLayout = "2006-01-02"

var headerRow = []any{"ID", "User", "Date", "Type", "Category", "Description", "Amount", "Created"}

// formatRow renders tx in sheet order. Amounts are written signed in units.
func formatRow(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.UserID,
		tx.Date.Format(dateLayout),
		string(tx.Type),
		tx.Category,
		tx.Description,
		formatUnits(tx.Amount.Cents),
		tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatUnits(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseRow turns a sheet row into a raw record. Empty or unparseable cells
// leave the matching field nil. The second result is false for rows without
// an ID, such as the header or blank rows.
func parseRow(row []any) (core.RawRecord, bool) {
	cols := toStrings(row)
	id := safeGet(cols, colID)
	if id == "" || strings.EqualFold(id, "id") {
		return core.RawRecord{}, false
	}

	rec := core.RawRecord{
		ID:          id,
		UserID:      safeGet(cols, colUser),
		Description: safeGet(cols, colDescription),
	}
	if s := safeGet(cols, colDate); s != "" {
		if d, err := time.Parse(dateLayout, s); err == nil {
			rec.Date = &d
		}
	}
	if s := safeGet(cols, colType); s != "" {
		rec.Type = &s
	}
	if s := safeGet(cols, colCategory); s != "" {
		rec.Category = &s
	}
	if cents, ok := parseUnitsToCents(safeGet(cols, colAmount)); ok {
		rec.AmountCents = &cents
	}
	if s := safeGet(cols, colCreatedAt); s != "" {
		if c, err := time.Parse(time.RFC3339, s); err == nil {
			rec.CreatedAt = &c
		}
	}
	return rec, true
}

// parseUnitsToCents accepts signed values with either decimal separator,
// as typed by hand or rendered by the sheet.
func parseUnitsToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	}
	s = strings.ReplaceAll(s, " ", "")
	if cents, err := core.ParseDecimalToCents(s); err == nil {
		if neg {
			cents = -cents
		}
		return cents, true
	}
	// Cells formatted in scientific notation, e.g. 1.5E3.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f == 0 {
		return 0, false
	}
	cents := int64(f*100.0 + 0.5)
	if neg {
		cents = -cents
	}
	return cents, true
}
