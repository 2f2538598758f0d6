package ui

import (
	"log"
	"net/http"

	"xceldash/internal/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps application error codes to HTTP statuses. Every error
// response also carries success=false so clients can branch on either signal.
func statusFor(code string) int {
	switch code {
	case errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case errors.CodeLimitExceeded:
		return http.StatusConflict
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAIUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the uniform error envelope
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)

	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	body := gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	}
	if details := errors.GetDetails(err); details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}
