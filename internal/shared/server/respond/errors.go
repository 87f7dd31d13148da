package respond

import (
	"github.com/gin-gonic/gin"

	"resume-typeset/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	// Retryable tells the client whether issuing the same request again can
	// succeed (transient toolchain failures, in-flight conflicts).
	Retryable bool `json:"retryable,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	errorWith(c, status, code, message, details, false)
}

// RetryableError sends a standardized error response flagged as retry-eligible.
func RetryableError(c *gin.Context, status int, code, message string, details interface{}) {
	errorWith(c, status, code, message, details, true)
}

func errorWith(c *gin.Context, status int, code, message string, details interface{}, retryable bool) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: retryable,
		},
	})
}
