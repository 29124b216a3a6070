package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/models"
	"tally/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, input UserInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// UserInput holds the fields required to register a user.
type UserInput struct {
	Name         string
	Email        string
	Password     string
	Organization string
	Phone        string
}

// ExpenseInput holds the fields of a new expense. Category and Date are optional.
type ExpenseInput struct {
	Name        string
	Amount      decimal.Decimal
	Description string
	Category    models.ExpenseCategory
	Date        *time.Time
	Vendor      string
}

// ExpenseUpdate holds the fields to change on an expense. Nil fields are left as is.
type ExpenseUpdate struct {
	Name        *string
	Amount      *decimal.Decimal
	Description *string
	Category    *models.ExpenseCategory
	Date        *time.Time
	Vendor      *string
}

// IsEmpty reports whether no field is set.
func (u ExpenseUpdate) IsEmpty() bool {
	return u.Name == nil && u.Amount == nil && u.Description == nil &&
		u.Category == nil && u.Date == nil && u.Vendor == nil
}

// ExpenseFilter holds optional filter parameters for selecting expenses.
// StartDate and EndDate are both inclusive.
type ExpenseFilter struct {
	Category  *models.ExpenseCategory
	StartDate *time.Time
	EndDate   *time.Time
	Vendor    *string
	Sort      ExpenseSort
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, userID string, input ExpenseInput) (*models.Expense, error)
	GetExpenseByID(ctx context.Context, userID, expenseID string) (*models.Expense, error)
	UpdateExpense(ctx context.Context, userID, expenseID string, update ExpenseUpdate) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) (bool, error)
	ListExpenses(ctx context.Context, userID string, page pagination.PageRequest, filter ExpenseFilter) (*pagination.PageResponse[models.Expense], error)
	FindExpenses(ctx context.Context, userID string, filter ExpenseFilter) ([]models.Expense, error)
}

// ReportCriteria selects the expenses of a report. ReportType is "all" or a category.
type ReportCriteria struct {
	ReportType string
	StartDate  *time.Time
	EndDate    *time.Time
}

// ReportFilters echoes the normalized criteria back to the client.
type ReportFilters struct {
	ReportType string    `json:"report_type"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// ReportPreview is the result of creating a snapshot: its id plus the live data.
type ReportPreview struct {
	ReportID string           `json:"id"`
	Filters  ReportFilters    `json:"filters"`
	Expenses []models.Expense `json:"expenses"`
	Summary  Summary          `json:"summary"`
}

// RenderedReport is a generated document ready to be sent to the client.
type RenderedReport struct {
	ReportID    string
	Filename    string
	ContentType string
	Content     []byte
}

// ReportServicer defines the contract for report snapshots and their rendering.
type ReportServicer interface {
	PreviewReport(ctx context.Context, userID string, criteria ReportCriteria) (*ReportPreview, error)
	GenerateReport(ctx context.Context, userID string, criteria ReportCriteria) (*RenderedReport, error)
	ListReports(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Report], error)
	MaterializeReport(ctx context.Context, userID, reportID string) (*RenderedReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
