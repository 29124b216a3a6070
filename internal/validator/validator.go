// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tally/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("expense_category", validateExpenseCategory)
		_ = v.RegisterValidation("report_type", validateReportType)
		_ = v.RegisterValidation("notblank", validateNotBlank)
	}
}

func validateExpenseCategory(fl validator.FieldLevel) bool {
	_, ok := models.ParseExpenseCategory(fl.Field().String())
	return ok
}

func validateReportType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if strings.EqualFold(strings.TrimSpace(value), models.ReportTypeAll) {
		return true
	}
	_, ok := models.ParseExpenseCategory(value)
	return ok
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
