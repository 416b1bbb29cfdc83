// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the
// ErrorResponse envelope, fail/Fail for errors (5xx are logged with the
// request-scoped logger), failService for mapping service errors, and ok for
// success bodies.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "Content not found"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudvi9160/smart-ai-content-creator/internal/http/middleware"
	"github.com/prudvi9160/smart-ai-content-creator/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
// Messages are safe to show to users; provider payloads never appear here.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message
	Message string `json:"message" example:"Content not found"`
	// Optional hint on how to succeed next time
	Suggestion string `json:"suggestion,omitempty" example:"Try rephrasing your message or breaking it into smaller parts."`
	// Seconds the client should wait before retrying, when known
	RetryAfter int `json:"retryAfter,omitempty" example:"20"`
	// Human-readable wait estimate for queue rejections
	EstimatedWaitTime string `json:"estimatedWaitTime,omitempty" example:"20 seconds"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg})
}

// failWith aborts with a prepared envelope; the request id is filled in.
func failWith(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		ev := lg.Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("message", resp.Message)
		if err := c.Errors.Last(); err != nil {
			ev = ev.Err(err.Err)
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService maps a service error onto an HTTP response. Validation errors
// carry their own user-facing text; anything else uses fallback so internal
// and provider details stay in the logs.
func failService(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, ve.Msg)
	case errors.Is(err, services.ErrContentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Content not found")
	case errors.Is(err, services.ErrTicketNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Ticket not found or expired")
	case errors.Is(err, services.ErrChatUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "The chat service is shutting down. Please try again shortly.")
	case errors.Is(err, services.ErrUpstreamFormat):
		fail(c, http.StatusInternalServerError, ErrCodeUpstreamFormat, fallback)
	case errors.Is(err, services.ErrUpstream):
		fail(c, http.StatusInternalServerError, ErrCodeUpstream, fallback)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, fallback)
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
