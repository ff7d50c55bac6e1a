package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status    string      `json:"status"`
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, errorCode, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message, nil)
}

// RespondWithTooLarge sends a 413 Request Entity Too Large error
func RespondWithTooLarge(c *gin.Context, maxSize int64) {
	RespondWithError(c, http.StatusRequestEntityTooLarge, "request_too_large",
		"Request body exceeds maximum size",
		gin.H{"max_size": maxSize, "max_size_mb": maxSize / (1024 * 1024)})
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, errorCode, message string) {
	RespondWithError(c, http.StatusInternalServerError, errorCode, message, nil)
}
