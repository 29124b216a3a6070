package services

import (
	"github.com/shopspring/decimal"

	"tally/internal/models"
)

// Summary aggregates a set of expenses.
type Summary struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalCount    int             `json:"total_count"`
	AverageAmount decimal.Decimal `json:"average_amount"`
}

// Summarize computes total, count and average of expenses. The average of an
// empty set is zero.
func Summarize(expenses []models.Expense) Summary {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	summary := Summary{
		TotalAmount:   total,
		TotalCount:    len(expenses),
		AverageAmount: decimal.Zero,
	}
	if len(expenses) > 0 {
		summary.AverageAmount = total.Div(decimal.NewFromInt(int64(len(expenses))))
	}
	return summary
}
