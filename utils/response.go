package utils

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodePlanRequired    = "PLAN_REQUIRED"
	CodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeSentNotRecorded = "SENT_NOT_RECORDED"
	CodeInternalError   = "INTERNAL_ERROR"
)

func RespondWithError(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
