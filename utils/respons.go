package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes surfaced in the response envelope.
const (
	CodeTokenExpired            = "TOKEN_EXPIRED"
	CodeTokenInvalid            = "TOKEN_INVALID"
	CodeTokenRevoked            = "TOKEN_REVOKED"
	CodePropertyAccessDenied    = "PROPERTY_ACCESS_DENIED"
	CodeDuplicatePending        = "DUPLICATE_PENDING_APPLICATION"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeIncompleteSteps         = "INCOMPLETE_STEPS"
	CodeInvalidDocuments        = "INVALID_DOCUMENT_COMBINATION"
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeInternal                = "INTERNAL_ERROR"
)

type JSONResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Success:   code >= 200 && code < 300,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func RespondError(c *gin.Context, code int, errorCode string, err error) {
	msg := "internal server error"
	// Never leak internals on 5xx; everything else carries its message.
	if code < 500 && err != nil {
		msg = err.Error()
	}
	if err != nil && code >= 500 {
		ErrorLogger.Printf("%s %s -> %d: %v", c.Request.Method, c.Request.URL.Path, code, err)
	}
	c.JSON(code, JSONResponse{
		Success:   false,
		Message:   msg,
		ErrorCode: errorCode,
		Timestamp: time.Now().UTC(),
	})
}
