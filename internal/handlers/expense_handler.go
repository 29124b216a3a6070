package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tally/internal/errors"
	"tally/internal/models"
	"tally/internal/pagination"
	"tally/internal/services"
)

// expenseListParams is the allow-list of query parameters accepted by ListExpenses.
var expenseListParams = map[string]bool{
	"page":       true,
	"limit":      true,
	"category":   true,
	"start_date": true,
	"end_date":   true,
	"vendor":     true,
	"sort":       true,
}

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
	maxPageSize    int
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer, maxPageSize int) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService, maxPageSize: maxPageSize}
}

// CreateExpenseRequest represents the request payload for creating an expense
type CreateExpenseRequest struct {
	Name        string           `json:"name" binding:"required,notblank,max=200"`
	Amount      *decimal.Decimal `json:"amount" binding:"required" swaggertype:"number"`
	Description string           `json:"description" binding:"required,notblank,max=1000"`
	Category    string           `json:"category" binding:"omitempty,expense_category"`
	Vendor      string           `json:"vendor" binding:"required,notblank,max=200"`
	Date        *string          `json:"date"`
}

// UpdateExpenseRequest represents the request payload for updating an expense.
// Omitted fields are left unchanged.
type UpdateExpenseRequest struct {
	Name        *string          `json:"name" binding:"omitempty,notblank,max=200"`
	Amount      *decimal.Decimal `json:"amount" swaggertype:"number"`
	Description *string          `json:"description" binding:"omitempty,notblank,max=1000"`
	Category    *string          `json:"category" binding:"omitempty,expense_category"`
	Vendor      *string          `json:"vendor" binding:"omitempty,notblank,max=200"`
	Date        *string          `json:"date"`
}

// ExpenseResponse is the success envelope of a single expense.
type ExpenseResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    models.Expense `json:"data"`
}

// CreateExpense handles the creation of a new expense
// @Summary     Create an expense
// @Description Create a new expense; names are unique per user
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} ExpenseResponse "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate expense name"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.ExpenseInput{
		Name:        req.Name,
		Amount:      *req.Amount,
		Description: req.Description,
		Vendor:      req.Vendor,
	}
	if req.Category != "" {
		input.Category, _ = models.ParseExpenseCategory(req.Category)
	}
	if req.Date != nil && *req.Date != "" {
		date, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		input.Date = &date
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionCreateExpense, "expense", expense.ID, c.ClientIP(),
		map[string]interface{}{"name": expense.Name, "amount": expense.Amount.String(), "category": expense.Category})

	respondSuccess(c, http.StatusCreated, "Expense created successfully", expense)
}

// ListExpenses returns the user's expenses
// @Summary     List expenses
// @Description List the user's expenses with pagination and optional filters. Unknown query parameters are rejected.
// @Tags        expenses
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       page       query int    false "Page number (default 1)"
// @Param       limit      query int    false "Page size (default 10, capped)"
// @Param       category   query string false "Category"
// @Param       start_date query string false "Inclusive lower bound (RFC3339 or YYYY-MM-DD)"
// @Param       end_date   query string false "Inclusive upper bound (RFC3339 or YYYY-MM-DD)"
// @Param       vendor     query string false "Vendor"
// @Param       sort       query string false "created_at, date, -date, amount, -amount or name"
// @Success     200 {object} pagination.PageResponse[models.Expense] "Expenses"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, filter, err := h.parseExpenseQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.expenseService.ListExpenses(c.Request.Context(), userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondPage(c, http.StatusOK, "Expenses fetched successfully", result)
}

// GetExpense returns one expense
// @Summary     Get an expense
// @Tags        expenses
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} ExpenseResponse "Expense"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Expense fetched successfully", expense)
}

// UpdateExpense applies a partial update
// @Summary     Update an expense
// @Description Change any subset of name, amount, description, category, vendor and date
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       id      path string               true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Fields to change"
// @Success     200 {object} ExpenseResponse "Updated expense"
// @Failure     400 {object} ErrorResponse "Invalid input or no changes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Failure     409 {object} ErrorResponse "Name already used"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.ExpenseUpdate{
		Name:        req.Name,
		Amount:      req.Amount,
		Description: req.Description,
		Vendor:      req.Vendor,
	}
	if req.Category != nil {
		category, _ := models.ParseExpenseCategory(*req.Category)
		update.Category = &category
	}
	if req.Date != nil {
		date, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		update.Date = &date
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), userID, c.Param("id"), update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, services.AuditActionUpdateExpense, "expense", expense.ID, c.ClientIP(), changedFields(update))

	respondSuccess(c, http.StatusOK, "Expense updated successfully", expense)
}

// DeleteExpense removes an expense
// @Summary     Delete an expense
// @Description Idempotent: succeeds whether or not the expense exists
// @Tags        expenses
// @Produce     json
// @Security    CookieAuth
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {object} MessageResponse "Expense deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID := c.Param("id")
	deleted, err := h.expenseService.DeleteExpense(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if deleted {
		h.auditService.Log(c.Request.Context(), userID, services.AuditActionDeleteExpense, "expense", expenseID, c.ClientIP(), nil)
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Expense deleted successfully"})
}

// parseExpenseQuery validates the list query against the allow-list and
// converts it into a page request and a typed filter.
func (h *ExpenseHandler) parseExpenseQuery(c *gin.Context) (pagination.PageRequest, services.ExpenseFilter, error) {
	var (
		page   pagination.PageRequest
		filter services.ExpenseFilter
	)

	query := c.Request.URL.Query()
	for key := range query {
		if !expenseListParams[key] {
			return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported query parameter: "+key)
		}
	}

	if err := c.ShouldBindQuery(&page); err != nil {
		return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	page.Normalize(h.maxPageSize)

	if v := strings.TrimSpace(query.Get("category")); v != "" {
		category, ok := models.ParseExpenseCategory(v)
		if !ok {
			return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid category: "+v)
		}
		filter.Category = &category
	}
	if v := query.Get("start_date"); v != "" {
		start, err := parseFlexibleTime(v)
		if err != nil {
			return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		filter.StartDate = &start
	}
	if v := query.Get("end_date"); v != "" {
		end, err := parseRangeEnd(v)
		if err != nil {
			return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.StartDate.After(*filter.EndDate) {
		return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_date must not be after end_date")
	}
	if v := strings.TrimSpace(query.Get("vendor")); v != "" {
		filter.Vendor = &v
	}
	sort, ok := services.ParseExpenseSort(query.Get("sort"))
	if !ok {
		return page, filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid sort: "+query.Get("sort"))
	}
	filter.Sort = sort

	return page, filter, nil
}

func changedFields(u services.ExpenseUpdate) map[string]interface{} {
	changes := map[string]interface{}{}
	if u.Name != nil {
		changes["name"] = *u.Name
	}
	if u.Amount != nil {
		changes["amount"] = u.Amount.String()
	}
	if u.Description != nil {
		changes["description"] = *u.Description
	}
	if u.Category != nil {
		changes["category"] = *u.Category
	}
	if u.Vendor != nil {
		changes["vendor"] = *u.Vendor
	}
	if u.Date != nil {
		changes["date"] = u.Date.Format(time.RFC3339)
	}
	return changes
}
