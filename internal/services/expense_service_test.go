package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/models"
	"tally/internal/pagination"
	"tally/internal/testutil"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func categoryPtr(c models.ExpenseCategory) *models.ExpenseCategory { return &c }

func timePtr(t time.Time) *time.Time { return &t }

func taxiInput() ExpenseInput {
	return ExpenseInput{
		Name:        "Taxi",
		Amount:      decimal.RequireFromString("42.50"),
		Description: "airport",
		Category:    models.CategoryTravel,
		Vendor:      "Uber",
	}
}

func TestCreateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		expense, err := svc.CreateExpense(ctx, user.ID, taxiInput())
		testutil.AssertNoError(t, err)

		if expense.ID == "" {
			t.Fatal("expected non-empty ID")
		}
		if expense.UserID != user.ID {
			t.Errorf("expected owner %s, got %s", user.ID, expense.UserID)
		}
		if expense.Amount.StringFixed(2) != "42.50" {
			t.Errorf("expected amount 42.50, got %s", expense.Amount)
		}
		if expense.Date.IsZero() {
			t.Error("expected date to default to now")
		}

		got, err := svc.GetExpenseByID(ctx, user.ID, expense.ID)
		testutil.AssertNoError(t, err)
		if got.Name != "Taxi" || got.Category != models.CategoryTravel {
			t.Errorf("unexpected stored expense %+v", got)
		}
	})

	t.Run("trims_and_defaults_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		input := taxiInput()
		input.Name = "  Lunch  "
		input.Category = ""
		expense, err := svc.CreateExpense(ctx, user.ID, input)
		testutil.AssertNoError(t, err)

		if expense.Name != "Lunch" {
			t.Errorf("expected trimmed name, got %q", expense.Name)
		}
		if expense.Category != models.CategoryOthers {
			t.Errorf("expected default category Others, got %s", expense.Category)
		}
	})

	t.Run("duplicate_name_same_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateExpense(ctx, user.ID, taxiInput())
		testutil.AssertNoError(t, err)

		_, err = svc.CreateExpense(ctx, user.ID, taxiInput())
		testutil.AssertAppError(t, err, "DUPLICATE_EXPENSE")

		var count int64
		db.Model(&models.Expense{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 stored expense, got %d", count)
		}
	})

	t.Run("same_name_different_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)

		_, err := svc.CreateExpense(ctx, alice.ID, taxiInput())
		testutil.AssertNoError(t, err)
		_, err = svc.CreateExpense(ctx, bob.ID, taxiInput())
		testutil.AssertNoError(t, err)
	})

	t.Run("unique_index_enforced_by_store", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithName("Taxi"))

		err := db.Create(&models.Expense{
			UserID: user.ID, Name: "Taxi", Amount: decimal.NewFromInt(1),
			Description: "d", Vendor: "v", Category: models.CategoryFood, Date: time.Now(),
		}).Error
		if err == nil {
			t.Fatal("expected unique index violation")
		}
	})

	t.Run("negative_amount_is_a_refund", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		input := taxiInput()
		input.Name = "Taxi refund"
		input.Amount = decimal.NewFromInt(-15)
		expense, err := svc.CreateExpense(ctx, user.ID, input)
		testutil.AssertNoError(t, err)

		got, err := svc.GetExpenseByID(ctx, user.ID, expense.ID)
		testutil.AssertNoError(t, err)
		if !got.Amount.Equal(decimal.NewFromInt(-15)) {
			t.Errorf("expected amount -15, got %s", got.Amount)
		}
	})

	t.Run("invalid_input", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		for name, mutate := range map[string]func(*ExpenseInput){
			"blank_name":       func(in *ExpenseInput) { in.Name = "  " },
			"zero_amount":      func(in *ExpenseInput) { in.Amount = decimal.Zero },
			"blank_vendor":     func(in *ExpenseInput) { in.Vendor = "" },
			"blank_desc":       func(in *ExpenseInput) { in.Description = "" },
			"unknown_category": func(in *ExpenseInput) { in.Category = "Gadgets" },
		} {
			t.Run(name, func(t *testing.T) {
				input := taxiInput()
				mutate(&input)
				_, err := svc.CreateExpense(ctx, user.ID, input)
				testutil.AssertAppError(t, err, "INVALID_INPUT")
			})
		}
	})
}

func TestGetExpenseByID_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestExpense(t, db, alice.ID)

	_, err := svc.GetExpenseByID(ctx, bob.ID, expense.ID)
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	_, err = svc.GetExpenseByID(ctx, alice.ID, "not-a-valid-id")
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	_, err = svc.UpdateExpense(ctx, bob.ID, expense.ID, ExpenseUpdate{Name: strPtr("Stolen")})
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	page := pagination.PageRequest{}
	page.Normalize(0)
	result, err := svc.ListExpenses(ctx, bob.ID, page, ExpenseFilter{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 0 || len(result.Data) != 0 {
		t.Errorf("expected bob to see no expenses, got %d", result.TotalItems)
	}
}

func TestUpdateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("partial_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, testutil.WithName("Coffee"), testutil.WithAmount("3.50"))

		updated, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseUpdate{
			Amount:   decPtr("4.25"),
			Category: categoryPtr(models.CategoryOffice),
			Vendor:   strPtr("  Cafe  "),
		})
		testutil.AssertNoError(t, err)

		if updated.Name != "Coffee" {
			t.Errorf("expected name unchanged, got %q", updated.Name)
		}
		if updated.Amount.StringFixed(2) != "4.25" {
			t.Errorf("expected amount 4.25, got %s", updated.Amount)
		}
		if updated.Category != models.CategoryOffice {
			t.Errorf("expected category Office, got %s", updated.Category)
		}
		if updated.Vendor != "Cafe" {
			t.Errorf("expected trimmed vendor, got %q", updated.Vendor)
		}
	})

	t.Run("no_changes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID)

		_, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseUpdate{})
		testutil.AssertAppError(t, err, "NO_CHANGES")

		got, err := svc.GetExpenseByID(ctx, user.ID, expense.ID)
		testutil.AssertNoError(t, err)
		if !got.UpdatedAt.Equal(expense.UpdatedAt) || got.Name != expense.Name {
			t.Error("expected record to be untouched")
		}
	})

	t.Run("name_conflict", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithName("Rent"))
		other := testutil.CreateTestExpense(t, db, user.ID, testutil.WithName("Power"))

		_, err := svc.UpdateExpense(ctx, user.ID, other.ID, ExpenseUpdate{Name: strPtr("Rent")})
		testutil.AssertAppError(t, err, "EXPENSE_NAME_CONFLICT")
	})

	t.Run("rename_to_own_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID, testutil.WithName("Rent"))

		_, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseUpdate{Name: strPtr("Rent")})
		testutil.AssertNoError(t, err)
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateExpense(ctx, user.ID, "0190a0a0-0000-7000-8000-000000000000", ExpenseUpdate{Name: strPtr("x")})
		testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
	})

	t.Run("invalid_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		expense := testutil.CreateTestExpense(t, db, user.ID)

		_, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseUpdate{Amount: decPtr("0")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		updated, err := svc.UpdateExpense(ctx, user.ID, expense.ID, ExpenseUpdate{Amount: decPtr("-2.50")})
		testutil.AssertNoError(t, err)
		if updated.Amount.StringFixed(2) != "-2.50" {
			t.Errorf("expected amount -2.50, got %s", updated.Amount)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestExpense(t, db, alice.ID)

	assertDeleted := func(userID, id string, want bool) {
		t.Helper()
		deleted, err := svc.DeleteExpense(ctx, userID, id)
		testutil.AssertNoError(t, err)
		if deleted != want {
			t.Errorf("DeleteExpense(%s) deleted=%v, want %v", id, deleted, want)
		}
	}

	// Foreign owner: success, no effect.
	assertDeleted(bob.ID, expense.ID, false)
	_, err := svc.GetExpenseByID(ctx, alice.ID, expense.ID)
	testutil.AssertNoError(t, err)

	// Malformed id: success, no effect.
	assertDeleted(alice.ID, "garbage", false)

	// Owner: deleted, and repeating is still a success.
	assertDeleted(alice.ID, expense.ID, true)
	assertDeleted(alice.ID, expense.ID, false)

	_, err = svc.GetExpenseByID(ctx, alice.ID, expense.ID)
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")

	// The name is free again once the record is gone.
	_, err = svc.CreateExpense(ctx, alice.ID, ExpenseInput{
		Name: expense.Name, Amount: decimal.NewFromInt(1), Description: "again", Vendor: "v",
	})
	testutil.AssertNoError(t, err)
}

func TestListExpenses(t *testing.T) {
	ctx := context.Background()

	t.Run("pagination", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		for i := 0; i < 25; i++ {
			testutil.CreateTestExpense(t, db, user.ID)
		}

		page := pagination.PageRequest{Page: 3}
		page.Normalize(0)
		result, err := svc.ListExpenses(ctx, user.ID, page, ExpenseFilter{})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 25 {
			t.Errorf("expected 25 total, got %d", result.TotalItems)
		}
		if len(result.Data) != 5 {
			t.Errorf("expected 5 items on page 3, got %d", len(result.Data))
		}
		if result.TotalPages != 3 {
			t.Errorf("expected 3 pages, got %d", result.TotalPages)
		}
	})

	t.Run("pages_do_not_overlap", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		for i := 0; i < 6; i++ {
			testutil.CreateTestExpense(t, db, user.ID)
		}

		seen := map[string]bool{}
		for p := 1; p <= 3; p++ {
			page := pagination.PageRequest{Page: p, Limit: 2}
			page.Normalize(0)
			result, err := svc.ListExpenses(ctx, user.ID, page, ExpenseFilter{})
			testutil.AssertNoError(t, err)
			for _, e := range result.Data {
				if seen[e.ID] {
					t.Errorf("expense %s appeared on more than one page", e.ID)
				}
				seen[e.ID] = true
			}
		}
		if len(seen) != 6 {
			t.Errorf("expected 6 distinct expenses, got %d", len(seen))
		}
	})

	t.Run("category_and_date_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithCategory(models.CategoryFood), testutil.WithDate(testutil.Date(2024, 1, 1)))
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithCategory(models.CategoryFood), testutil.WithDate(testutil.Date(2024, 1, 31)))
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithCategory(models.CategoryFood), testutil.WithDate(testutil.Date(2024, 2, 1)))
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithCategory(models.CategoryTravel), testutil.WithDate(testutil.Date(2024, 1, 10)))

		page := pagination.PageRequest{}
		page.Normalize(0)
		result, err := svc.ListExpenses(ctx, user.ID, page, ExpenseFilter{
			Category:  categoryPtr(models.CategoryFood),
			StartDate: timePtr(testutil.Date(2024, 1, 1)),
			EndDate:   timePtr(testutil.Date(2024, 1, 31)),
		})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 Food expenses in January (inclusive bounds), got %d", result.TotalItems)
		}
	})

	t.Run("sort_by_amount_desc", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithAmount("5"))
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithAmount("50"))
		testutil.CreateTestExpense(t, db, user.ID, testutil.WithAmount("15"))

		page := pagination.PageRequest{}
		page.Normalize(0)
		result, err := svc.ListExpenses(ctx, user.ID, page, ExpenseFilter{Sort: SortAmountDesc})
		testutil.AssertNoError(t, err)

		want := []string{"50.00", "15.00", "5.00"}
		for i, e := range result.Data {
			if e.Amount.StringFixed(2) != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], e.Amount.StringFixed(2))
			}
		}
	})

	t.Run("empty_result_is_success", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewExpenseService(db)
		user := testutil.CreateTestUser(t, db)

		page := pagination.PageRequest{}
		page.Normalize(0)
		result, err := svc.ListExpenses(ctx, user.ID, page, ExpenseFilter{})
		testutil.AssertNoError(t, err)
		if result.Data == nil || len(result.Data) != 0 {
			t.Errorf("expected empty non-nil data, got %v", result.Data)
		}
	})
}

func TestFindExpenses_OrderedByDate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewExpenseService(db)
	user := testutil.CreateTestUser(t, db)
	late := testutil.CreateTestExpense(t, db, user.ID, testutil.WithDate(testutil.Date(2024, 3, 1)))
	early := testutil.CreateTestExpense(t, db, user.ID, testutil.WithDate(testutil.Date(2024, 1, 1)))

	expenses, err := svc.FindExpenses(ctx, user.ID, ExpenseFilter{})
	testutil.AssertNoError(t, err)
	if len(expenses) != 2 || expenses[0].ID != early.ID || expenses[1].ID != late.ID {
		t.Errorf("expected date ascending order, got %v", expenses)
	}
}

func TestParseExpenseSort(t *testing.T) {
	for _, s := range []string{"", "created_at", "date", "-date", "amount", "-amount", "name"} {
		if _, ok := ParseExpenseSort(s); !ok {
			t.Errorf("expected %q to be accepted", s)
		}
	}
	for _, s := range []string{"password", "-name", "date; DROP TABLE expenses"} {
		if _, ok := ParseExpenseSort(s); ok {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
