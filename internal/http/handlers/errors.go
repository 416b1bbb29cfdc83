// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and give clients a stable, machine-readable
// taxonomy next to the human-readable message. Generic codes mirror HTTP
// status semantics; the upstream codes distinguish provider failures from
// local ones.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "queue_full",
//	  "message": "The chat service is currently at capacity. Please try again in a few moments.",
//	  "estimatedWaitTime": "20 seconds"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "service_unavailable"

	// Domain-specific:
	ErrCodeQueueFull       = "queue_full"
	ErrCodeUpstream        = "upstream_error"
	ErrCodeUpstreamFormat  = "upstream_format"
	ErrCodeGenerateFailed  = "generate_failed"
	ErrCodeListFailed      = "list_failed"
	ErrCodeChatFailed      = "chat_failed"
	ErrCodePayloadTooLarge = "payload_too_large"
)
