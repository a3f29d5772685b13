// Package response is the standard JSON envelope every handler returns.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is the error half of a Response.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Success sends a 200 response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Accepted sends a 202 response with data. The run handlers send it
// after the run has completed synchronously.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{Success: true, Data: data})
}

// BadRequest sends a 400 response.
func BadRequest(c *gin.Context, message string, details map[string]string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: &Error{Code: "BAD_REQUEST", Message: message, Details: details}})
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{Success: false, Error: &Error{Code: "NOT_FOUND", Message: message}})
}

// Conflict sends a 409 response.
func Conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, Response{Success: false, Error: &Error{Code: "CONFLICT", Message: message}})
}

// ValidationError sends a 422 response.
func ValidationError(c *gin.Context, message string, details map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: &Error{Code: "VALIDATION_ERROR", Message: message, Details: details}})
}

// InternalError sends a 500 response.
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: &Error{Code: "INTERNAL_ERROR", Message: message}})
}

// ServiceUnavailable sends a 503 response, for recoverable-kind errors
// a client should retry.
func ServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: &Error{Code: "SERVICE_UNAVAILABLE", Message: message}})
}
