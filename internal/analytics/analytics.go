// Package analytics derives view models from a snapshot of one user's
// transactions: category totals, daily spending series, income/expense
// totals, budget usage and a balance health tier.
//
// Every function is pure. Inputs are never modified and outputs are freshly
// allocated, so the same snapshot can be shared by concurrent requests.
// Records that lack a usable type, date or (for expenses) category are
// skipped rather than reported as errors.
package analytics

import (
	"sort"
	"time"

	"litfunds/internal/core"
)

// Order selects how CategoryTotals sorts its result.
type Order int

const (
	// InsertionOrder keeps categories in order of first occurrence.
	InsertionOrder Order = iota
	// DescendingAmount sorts by amount, largest first; ties keep first occurrence.
	DescendingAmount
)

// CategoryAmount is the expense total of one normalized category, in cents.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount_cents"`
}

// DayAmount is the expense total of one calendar day, in cents.
type DayAmount struct {
	Date   time.Time `json:"date"`
	Amount int64     `json:"amount_cents"`
}

// Totals holds income, expense magnitude and their difference, in cents.
type Totals struct {
	Income  int64 `json:"income_cents"`
	Expense int64 `json:"expense_cents"`
	Balance int64 `json:"balance_cents"`
}

func usable(t core.Transaction) bool {
	if !t.Type.Valid() || t.Date.IsZero() {
		return false
	}
	if t.Type == core.Expense && t.CategoryKey() == "" {
		return false
	}
	return true
}

// FilterByRange keeps transactions whose calendar date lies within the
// dates of [start, end] inclusive. An inverted range yields an empty result.
func FilterByRange(txs []core.Transaction, start, end time.Time) []core.Transaction {
	out := []core.Transaction{}
	if start.After(end) {
		return out
	}
	first, last := core.CalendarDay(start), core.CalendarDay(end)
	for _, t := range txs {
		if !usable(t) {
			continue
		}
		if day := core.CalendarDay(t.Date); day.Before(first) || day.After(last) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CategoryTotals sums expense magnitudes grouped by case-normalized category.
func CategoryTotals(txs []core.Transaction, order Order) []CategoryAmount {
	out := []CategoryAmount{}
	index := map[string]int{}
	for _, t := range txs {
		if !usable(t) || !t.IsExpense() {
			continue
		}
		key := t.CategoryKey()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, CategoryAmount{Category: key})
		}
		out[i].Amount += t.Amount.Magnitude()
	}
	if order == DescendingAmount {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	}
	return out
}

// DailySeries returns one entry per calendar day in [start, end], ascending,
// with the expense total of that day. Transactions are matched by calendar
// date, ignoring time of day and location.
func DailySeries(txs []core.Transaction, start, end time.Time) []DayAmount {
	if start.After(end) {
		return []DayAmount{}
	}
	first := core.CalendarDay(start)
	last := core.CalendarDay(end)

	byDay := map[time.Time]int64{}
	for _, t := range txs {
		if !usable(t) || !t.IsExpense() {
			continue
		}
		byDay[core.CalendarDay(t.Date)] += t.Amount.Magnitude()
	}

	n := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		n++
	}
	out := make([]DayAmount, 0, n)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, DayAmount{Date: d, Amount: byDay[d]})
	}
	return out
}

// SeriesMax returns the largest amount in a series, or 0 for an empty series.
func SeriesMax(series []DayAmount) int64 {
	var max int64
	for _, d := range series {
		if d.Amount > max {
			max = d.Amount
		}
	}
	return max
}

// ComputeTotals sums income and expense magnitudes.
func ComputeTotals(txs []core.Transaction) Totals {
	var tot Totals
	for _, t := range txs {
		if !usable(t) {
			continue
		}
		switch t.Type {
		case core.Income:
			tot.Income += t.Amount.Magnitude()
		case core.Expense:
			tot.Expense += t.Amount.Magnitude()
		}
	}
	tot.Balance = tot.Income - tot.Expense
	return tot
}

// BiggestCategory returns the category with the largest expense total.
// Ties go to the category seen first. ok is false when there are no expenses.
func BiggestCategory(txs []core.Transaction) (best CategoryAmount, ok bool) {
	for _, c := range CategoryTotals(txs, InsertionOrder) {
		if !ok || c.Amount > best.Amount {
			best, ok = c, true
		}
	}
	return best, ok
}

// Recent returns up to n transactions, newest date first, then newest creation.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if usable(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
