// Package services defines the business logic for generated content and chat.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
// Validation errors carry the user-facing message as their text.
package services

import "errors"

// ErrValidation matches every input validation failure via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError is a rejected input. Its message is safe to show to users.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation failures.
var (
	ErrTopicTypeRequired = &ValidationError{Msg: "Topic and type or file are required"}
	ErrPromptRequired    = &ValidationError{Msg: "Image prompt is required"}
	ErrCategoryRequired  = &ValidationError{Msg: "Category is required"}
	ErrEmptyMessage      = &ValidationError{Msg: "Message is required"}
	ErrMessageTooLong    = &ValidationError{Msg: "Message is too long. Please keep your messages under 500 characters."}
)

var (
	// ErrContentNotFound indicates that no record exists for the given id.
	ErrContentNotFound = errors.New("content not found")

	// ErrStorage wraps persistence failures.
	ErrStorage = errors.New("storage failure")

	// ErrUpstream wraps provider failures (non-2xx, transport, credentials).
	ErrUpstream = errors.New("upstream failure")

	// ErrUpstreamFormat wraps provider responses with an unexpected shape.
	ErrUpstreamFormat = errors.New("unexpected upstream response")

	// ErrTicketNotFound is returned when polling an unknown or expired ticket.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrChatUnavailable is returned once the chat queue has shut down.
	ErrChatUnavailable = errors.New("chat service unavailable")
)
