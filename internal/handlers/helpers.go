package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tally/internal/errors"
	"tally/internal/logger"
	"tally/internal/pagination"
)

const dateOnlyLayout = "2006-01-02"

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString("userID")
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parseFlexibleTime accepts RFC3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
func parseFlexibleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", s)
}

// parseRangeEnd parses the upper bound of an inclusive date range. A plain
// date covers that whole day.
func parseRangeEnd(s string) (time.Time, error) {
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	return parseFlexibleTime(s)
}

// respondSuccess writes the standard success envelope.
func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// respondPage writes the success envelope with pagination metadata.
func respondPage[T any](c *gin.Context, status int, message string, page *pagination.PageResponse[T]) {
	c.JSON(status, gin.H{
		"success":     true,
		"message":     message,
		"data":        page.Data,
		"page":        page.Page,
		"limit":       page.Limit,
		"total_items": page.TotalItems,
		"total_pages": page.TotalPages,
	})
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		c.JSON(appErr.StatusCode, errorEnvelope(appErr))
		return
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(apperrors.ErrInternalServer.StatusCode, errorEnvelope(apperrors.ErrInternalServer))
}

func errorEnvelope(appErr *apperrors.AppError) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Error:   ErrorDetail{Code: appErr.Code, Message: appErr.Message},
	}
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   ErrorDetail `json:"error"`
}

// MessageResponse is a success response without data.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
