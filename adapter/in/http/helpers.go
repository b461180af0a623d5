// Package http is the inbound HTTP surface: health, sync status, and read
// access to the mirrored store.
package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DaveBieleveld/TrackTime365/pkg/apperr"
	"github.com/DaveBieleveld/TrackTime365/pkg/logger"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// APIError represents a standard API error
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SuccessResponse sends a standardized JSON success response
func SuccessResponse(c *fiber.Ctx, data any) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorResponse sends a standardized JSON error response
func ErrorResponse(c *fiber.Ctx, status int, code, message string) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(status).JSON(APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// AppErrorResponse maps an application error onto the response format.
func AppErrorResponse(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*apperr.AppError); ok {
		status := fiber.StatusInternalServerError
		switch appErr.Code {
		case apperr.CodeInvalidRange:
			status = fiber.StatusBadRequest
		case apperr.CodeEventRejected:
			status = fiber.StatusUnprocessableEntity
		}
		requestID, _ := c.Locals("request_id").(string)
		return c.Status(status).JSON(APIResponse{
			Success:   false,
			Error:     &APIError{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details},
			RequestID: requestID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
	return InternalErrorResponse(c, err, "request")
}

// InternalErrorResponse returns a safe 500 without exposing internal details.
// The error is logged with context; only a generic message reaches the client.
func InternalErrorResponse(c *fiber.Ctx, err error, operation string) error {
	logger.WithField("operation", operation).WithError(err).Error("internal error")
	return ErrorResponse(c, fiber.StatusInternalServerError, apperr.CodeInternalError, operation+" failed")
}
