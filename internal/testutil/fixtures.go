package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"tally/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:         "Test User",
		Email:        email,
		Password:     string(hash),
		Organization: "Test Org",
		Phone:        "555-0100",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// ExpenseOption customizes a fixture expense before it is stored.
type ExpenseOption func(*models.Expense)

// WithName sets the expense name.
func WithName(name string) ExpenseOption {
	return func(e *models.Expense) { e.Name = name }
}

// WithAmount sets the expense amount from a decimal string such as "42.50".
func WithAmount(amount string) ExpenseOption {
	return func(e *models.Expense) { e.Amount = decimal.RequireFromString(amount) }
}

// WithCategory sets the expense category.
func WithCategory(c models.ExpenseCategory) ExpenseOption {
	return func(e *models.Expense) { e.Category = c }
}

// WithDate sets the expense date.
func WithDate(d time.Time) ExpenseOption {
	return func(e *models.Expense) { e.Date = d }
}

// WithVendor sets the expense vendor.
func WithVendor(v string) ExpenseOption {
	return func(e *models.Expense) { e.Vendor = v }
}

// CreateTestExpense creates an expense owned by userID. Defaults: unique
// name, amount 10.00, category Food, date 2024-01-15 UTC.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID string, opts ...ExpenseOption) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      userID,
		Name:        fmt.Sprintf("Test Expense %d", nextID()),
		Amount:      decimal.RequireFromString("10.00"),
		Description: "test expense",
		Category:    models.CategoryFood,
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Vendor:      "Test Vendor",
	}
	for _, opt := range opts {
		opt(expense)
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
