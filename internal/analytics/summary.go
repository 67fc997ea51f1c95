package analytics

import (
	"strings"
	"time"

	"litfunds/internal/core"
)

// Period is a preset reporting window.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// ParsePeriod maps a query value to a Period, defaulting to Month.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case Week:
		return Week
	case Year:
		return Year
	default:
		return Month
	}
}

// PeriodRange returns the inclusive calendar range of the period containing
// the date of now, in UTC like stored transaction dates. Weeks start on
// Sunday. End is the last nanosecond of the final day.
func PeriodRange(p Period, now time.Time) (start, end time.Time) {
	today := core.CalendarDay(now)
	switch p {
	case Week:
		start = today.AddDate(0, 0, -int(today.Weekday()))
		end = start.AddDate(0, 0, 7)
	case Year:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	default:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}
	return start, end.Add(-time.Nanosecond)
}

// Summary is the complete view model shared by every page.
type Summary struct {
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	Count      int              `json:"count"`
	Totals     Totals           `json:"totals"`
	Categories []CategoryAmount `json:"categories"`
	Ranked     []CategoryAmount `json:"ranked"`
	Biggest    *CategoryAmount  `json:"biggest,omitempty"`
	Daily      []DayAmount      `json:"daily"`
	DailyMax   int64            `json:"daily_max_cents"`
	Status     Status           `json:"status"`
	Budgets    []BudgetUsage    `json:"budgets"`
}

// Summarize filters the snapshot to [start, end] and derives every aggregate.
// Budgets are evaluated in the given order.
func Summarize(txs []core.Transaction, start, end time.Time, budgets []core.Budget) Summary {
	scoped := FilterByRange(txs, start, end)
	totals := ComputeTotals(scoped)
	s := Summary{
		Start:      start,
		End:        end,
		Count:      len(scoped),
		Totals:     totals,
		Categories: CategoryTotals(scoped, InsertionOrder),
		Ranked:     CategoryTotals(scoped, DescendingAmount),
		Daily:      DailySeries(scoped, start, end),
		Status:     BalanceStatus(totals.Balance, totals.Expense),
		Budgets:    make([]BudgetUsage, 0, len(budgets)),
	}
	if b, ok := BiggestCategory(scoped); ok {
		s.Biggest = &b
	}
	s.DailyMax = SeriesMax(s.Daily)
	for _, b := range budgets {
		s.Budgets = append(s.Budgets, CategoryBudgetUsage(scoped, b.Category, b.Limit.Cents))
	}
	return s
}

// Share returns the percentage (0-100) that part is of whole, or 0 if whole is 0.
func Share(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
