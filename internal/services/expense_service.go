package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "tally/internal/errors"
	"tally/internal/models"
	"tally/internal/pagination"
	"tally/internal/uuid"
)

// ExpenseSort names an allowed ordering of expense listings.
type ExpenseSort string

const (
	SortCreatedAt  ExpenseSort = "created_at"
	SortDate       ExpenseSort = "date"
	SortDateDesc   ExpenseSort = "-date"
	SortAmount     ExpenseSort = "amount"
	SortAmountDesc ExpenseSort = "-amount"
	SortName       ExpenseSort = "name"
)

// expenseOrder maps each sort to its ORDER BY clause. Every clause ends with
// a unique column so pagination is deterministic.
var expenseOrder = map[ExpenseSort]string{
	SortCreatedAt:  "created_at ASC, id ASC",
	SortDate:       "date ASC, created_at ASC, id ASC",
	SortDateDesc:   "date DESC, created_at DESC, id DESC",
	SortAmount:     "amount ASC, created_at ASC, id ASC",
	SortAmountDesc: "amount DESC, created_at DESC, id DESC",
	SortName:       "name ASC, id ASC",
}

// ParseExpenseSort validates a sort key. Empty means creation order.
func ParseExpenseSort(s string) (ExpenseSort, bool) {
	if s == "" {
		return SortCreatedAt, true
	}
	sort := ExpenseSort(s)
	_, ok := expenseOrder[sort]
	return sort, ok
}

func (s ExpenseSort) orderClause() string {
	if clause, ok := expenseOrder[s]; ok {
		return clause
	}
	return expenseOrder[SortCreatedAt]
}

// expenseService handles expense-related business logic.
type expenseService struct {
	db *gorm.DB
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db}
}

// CreateExpense stores a new expense for userID. The (owner, name) pair must
// be unique; a concurrent insert that loses the race on the unique index is
// reported the same way as the pre-check.
func (s *expenseService) CreateExpense(ctx context.Context, userID string, input ExpenseInput) (*models.Expense, error) {
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	vendor := strings.TrimSpace(input.Vendor)

	if name == "" || description == "" || vendor == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name, description and vendor are required")
	}
	if input.Amount.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be zero")
	}

	category := input.Category
	if category == "" {
		category = models.CategoryOthers
	}
	if !category.IsValid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category")
	}

	date := time.Now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	db := s.db.WithContext(ctx)

	exists, err := s.nameTaken(db, userID, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrDuplicateExpense
	}

	expense := &models.Expense{
		UserID:      userID,
		Name:        name,
		Amount:      input.Amount,
		Description: description,
		Category:    category,
		Date:        date,
		Vendor:      vendor,
	}
	if err := db.Create(expense).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateExpense
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return expense, nil
}

// GetExpenseByID returns the expense if it exists and belongs to userID.
// Malformed ids are reported as not found.
func (s *expenseService) GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	return s.findOwned(s.db.WithContext(ctx), userID, expenseID)
}

// UpdateExpense applies the non-nil fields of update and returns the stored record.
func (s *expenseService) UpdateExpense(ctx context.Context, userID, expenseID string, update ExpenseUpdate) (*models.Expense, error) {
	db := s.db.WithContext(ctx)

	expense, err := s.findOwned(db, userID, expenseID)
	if err != nil {
		return nil, err
	}

	if update.IsEmpty() {
		return nil, apperrors.ErrNoChanges
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be blank")
		}
		taken, err := s.nameTaken(db, userID, name, expense.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.WithMessage(apperrors.ErrExpenseNameConflict, "There is already an expense with name "+name)
		}
		updates["name"] = name
	}
	if update.Amount != nil {
		if update.Amount.IsZero() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must not be zero")
		}
		updates["amount"] = *update.Amount
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description cannot be blank")
		}
		updates["description"] = description
	}
	if update.Category != nil {
		if !update.Category.IsValid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category")
		}
		updates["category"] = *update.Category
	}
	if update.Vendor != nil {
		vendor := strings.TrimSpace(*update.Vendor)
		if vendor == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "vendor cannot be blank")
		}
		updates["vendor"] = vendor
	}
	if update.Date != nil {
		updates["date"] = update.Date.UTC()
	}

	if err := db.Model(expense).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrExpenseNameConflict
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.findOwned(db, userID, expense.ID)
}

// DeleteExpense removes the expense if it exists and belongs to userID.
// A missing, foreign or malformed id is not an error; the returned flag
// reports whether a row was actually removed.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, expenseID string) (bool, error) {
	if !uuid.IsValid(expenseID) {
		return false, nil
	}
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", expenseID, userID).
		Delete(&models.Expense{})
	if result.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListExpenses returns one page of the user's expenses matching filter.
func (s *expenseService) ListExpenses(ctx context.Context, userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error) {
	base := applyExpenseFilters(
		s.db.WithContext(ctx).Model(&models.Expense{}).Where("user_id = ?", userID),
		filter,
	).Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	if err := base.Scopes(pagination.Paginate(page)).
		Order(filter.Sort.orderClause()).
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.Limit, totalItems)
	return &result, nil
}

// FindExpenses returns every expense of userID matching filter, oldest date first.
func (s *expenseService) FindExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]models.Expense, error) {
	return findExpenses(s.db.WithContext(ctx), userID, filter)
}

func findExpenses(db *gorm.DB, userID string, filter ExpenseFilter) ([]models.Expense, error) {
	if filter.Sort == "" {
		filter.Sort = SortDate
	}
	var expenses []models.Expense
	if err := applyExpenseFilters(db.Where("user_id = ?", userID), filter).
		Order(filter.Sort.orderClause()).
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

func applyExpenseFilters(q *gorm.DB, f ExpenseFilter) *gorm.DB {
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.StartDate != nil {
		q = q.Where("date >= ?", f.StartDate.UTC())
	}
	if f.EndDate != nil {
		q = q.Where("date <= ?", f.EndDate.UTC())
	}
	if f.Vendor != nil {
		q = q.Where("vendor = ?", *f.Vendor)
	}
	return q
}

func (s *expenseService) findOwned(db *gorm.DB, userID, expenseID string) (*models.Expense, error) {
	if !uuid.IsValid(expenseID) {
		return nil, apperrors.ErrExpenseNotFound
	}
	var expense models.Expense
	if err := db.Where("id = ? AND user_id = ?", expenseID, userID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// nameTaken reports whether userID already has an expense called name,
// ignoring excludeID.
func (s *expenseService) nameTaken(db *gorm.DB, userID, name, excludeID string) (bool, error) {
	q := db.Model(&models.Expense{}).Where("user_id = ? AND name = ?", userID, name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}
