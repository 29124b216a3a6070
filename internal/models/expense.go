package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory is one of the fixed expense categories.
type ExpenseCategory string

const (
	CategoryFood          ExpenseCategory = "Food"
	CategoryTravel        ExpenseCategory = "Travel"
	CategoryOffice        ExpenseCategory = "Office"
	CategoryUtilities     ExpenseCategory = "Utilities"
	CategoryEntertainment ExpenseCategory = "Entertainment"
	CategoryHealth        ExpenseCategory = "Health"
	CategoryOthers        ExpenseCategory = "Others"
)

// ExpenseCategories lists every valid category in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryFood,
	CategoryTravel,
	CategoryOffice,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryHealth,
	CategoryOthers,
}

// IsValid reports whether c is one of the fixed categories.
func (c ExpenseCategory) IsValid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseExpenseCategory matches s case-insensitively against the known
// categories and returns the canonical spelling.
func ParseExpenseCategory(s string) (ExpenseCategory, bool) {
	s = strings.TrimSpace(s)
	for _, known := range ExpenseCategories {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return "", false
}

// Expense is a single expense record owned by one user. The pair
// (user_id, name) is unique.
type Expense struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;uniqueIndex:idx_expenses_user_name,priority:1" json:"user_id"`
	Name        string          `gorm:"not null;uniqueIndex:idx_expenses_user_name,priority:2" json:"name"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Description string          `gorm:"not null" json:"description"`
	Category    ExpenseCategory `gorm:"not null;default:Others" json:"category"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Vendor      string          `gorm:"not null" json:"vendor"`
}
