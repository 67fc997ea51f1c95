package analytics

import "litfunds/internal/core"

// Tier is a qualitative classification of financial health.
type Tier string

const (
	TierCritical  Tier = "critical"
	TierWarning   Tier = "warning"
	TierNormal    Tier = "normal"
	TierGood      Tier = "good"
	TierExcellent Tier = "excellent"
)

// Status is a tier with its fixed message and a CSS class hint.
type Status struct {
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
	Class   string `json:"class"`
}

var statuses = map[Tier]Status{
	TierCritical:  {Tier: TierCritical, Message: "Spending is far above income. Cut back now.", Class: "status--critical"},
	TierWarning:   {Tier: TierWarning, Message: "You are spending more than you earn.", Class: "status--warning"},
	TierNormal:    {Tier: TierNormal, Message: "Income covers your spending.", Class: "status--normal"},
	TierGood:      {Tier: TierGood, Message: "Your balance exceeds your spending.", Class: "status--good"},
	TierExcellent: {Tier: TierExcellent, Message: "Excellent! Your balance is well above your spending.", Class: "status--excellent"},
}

// BalanceStatus classifies a balance against total expenses, both in cents.
//
//	balance < 0, |balance| > expenses/2  -> critical
//	balance < 0                          -> warning
//	balance > 3*expenses                 -> excellent
//	balance > expenses                   -> good
//	otherwise                            -> normal
//
// Comparisons are done in integers, so zero expenses never divide: a zero
// balance is normal and any positive balance is excellent.
func BalanceStatus(balance, totalExpenses int64) Status {
	if totalExpenses < 0 {
		totalExpenses = -totalExpenses
	}
	if balance < 0 {
		if -balance*2 > totalExpenses {
			return statuses[TierCritical]
		}
		return statuses[TierWarning]
	}
	switch {
	case balance > 3*totalExpenses:
		return statuses[TierExcellent]
	case balance > totalExpenses:
		return statuses[TierGood]
	default:
		return statuses[TierNormal]
	}
}

// BudgetUsage reports spending of one category against its limit.
// Percent is clamped to 100 for progress bars; Ratio is not.
type BudgetUsage struct {
	Category   string  `json:"category"`
	Spent      int64   `json:"spent_cents"`
	Limit      int64   `json:"limit_cents"`
	Percent    float64 `json:"percent"`
	Ratio      float64 `json:"ratio"`
	OverBudget bool    `json:"over_budget"`
}

// CategoryBudgetUsage sums expenses of the normalized category and compares
// them to limit (cents). A non-positive limit gives a zero ratio.
func CategoryBudgetUsage(txs []core.Transaction, category string, limit int64) BudgetUsage {
	key := core.NormalizeCategory(category)
	u := BudgetUsage{Category: key, Limit: limit}
	for _, t := range txs {
		if !usable(t) || !t.IsExpense() || t.CategoryKey() != key {
			continue
		}
		u.Spent += t.Amount.Magnitude()
	}
	if limit > 0 {
		u.Ratio = float64(u.Spent) / float64(limit)
	}
	u.Percent = u.Ratio * 100
	if u.Percent > 100 {
		u.Percent = 100
	}
	u.OverBudget = u.Spent > limit
	return u
}
