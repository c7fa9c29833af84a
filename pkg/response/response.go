package response

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kidpech/users_api/pkg/apperror"
	"github.com/kidpech/users_api/pkg/validation"
)

// Context keys shared by middleware and handlers.
const (
	UserIDKey    = "user_id"
	SessionIDKey = "session_id"
	RequestIDKey = "request_id"
)

// SuccessResponse is the envelope for every 2xx body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse standardizes API errors.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
	Path    string `json:"path,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// OKMessage writes a 200 success envelope with a human readable message.
func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: message, Data: data})
}

// ValidationError writes 400 payloads itemizing every violation.
func ValidationError(c *gin.Context, violations validation.Violations) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Details: violations,
	})
}

// Error maps err onto its status and writes the failure envelope. Internal
// errors get a generic message unless verbose is set, in which case the
// message, stack and path are included.
func Error(c *gin.Context, err error, verbose bool) {
	appErr := apperror.From(err)
	body := ErrorResponse{Error: appErr.Message}
	if verbose {
		if !appErr.Operational && appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
		body.Stack = appErr.Stack
		body.Path = c.Request.URL.Path
	}
	c.AbortWithStatusJSON(appErr.StatusCode(), body)
}

// Unauthorized helper.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}

// RouteNotFound writes the JSON 404 for unmatched routes.
func RouteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: "Route not found", Path: c.Request.URL.Path})
}

// TooManyRequests helper.
func TooManyRequests(c *gin.Context, reset time.Time) {
	retryAfter := int(time.Until(reset).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	c.Writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, please try again later"})
}

// UserIDFromContext extracts the session user id, empty when unauthenticated.
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
