// Chat HTTP handlers.
//
// This file exposes the chat endpoints:
//   - POST /chat           (reply inline, or queue and return a ticket)
//   - GET  /chat/{ticket}  (poll a queued reply)
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prudvi9160/smart-ai-content-creator/internal/queue"
	"github.com/prudvi9160/smart-ai-content-creator/internal/services"
	"github.com/prudvi9160/smart-ai-content-creator/internal/utils"
)

// ChatRequest is the JSON payload for POST /chat.
type ChatRequest struct {
	Message string `json:"message" example:"Give me three blog post ideas about remote work"`
}

// QueuedResponse is returned with 202 when a message waits in the queue.
type QueuedResponse struct {
	Message           string `json:"message" example:"Your message has been queued and will be processed shortly."`
	Ticket            string `json:"ticket" example:"0b8f3a52-3c1e-4d0e-9a55-7d1c2b0c9e11"`
	QueuePosition     int    `json:"queuePosition" example:"1"`
	EstimatedWaitTime string `json:"estimatedWaitTime" example:"5 seconds"`
}

// PendingResponse is returned with 202 while a ticket is still queued.
type PendingResponse struct {
	Ticket string `json:"ticket"`
	Status string `json:"status" example:"pending"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%d seconds", utils.SecondsCeil(d))
}

// PostChat godoc
// @ID          postChat
// @Summary     Send a chat message
// @Description Replies inline when the assistant is idle. Otherwise the message is queued and a ticket is returned
// @Description for polling; when the queue is full the request is rejected with 429.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ChatRequest  true  "Chat message"
// @Success     200  {object}  domain.ChatMessage        "Assistant reply"
// @Success     202  {object}  handlers.QueuedResponse   "Queued"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse    "Queue full"
// @Header      429  {string}  Retry-After               "Seconds until a retry is likely to succeed"
// @Failure     500  {object}  handlers.ErrorResponse    "Internal error"
// @Failure     503  {object}  handlers.ErrorResponse    "Shutting down"
// @Router      /content/chat [post]
func (h *Handlers) PostChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	reply, err := h.chat.Send(c.Request.Context(), req.Message)
	if err != nil {
		var ce *queue.CapacityError
		var ve *services.ValidationError
		switch {
		case errors.As(err, &ce):
			secs := utils.SecondsCeil(ce.EstimatedWait)
			c.Header("Retry-After", strconv.Itoa(secs))
			failWith(c, http.StatusTooManyRequests, ErrorResponse{
				Code:              ErrCodeQueueFull,
				Message:           "The chat service is currently at capacity. Please try again in a few moments.",
				RetryAfter:        secs,
				EstimatedWaitTime: seconds(ce.EstimatedWait),
			})
		case errors.As(err, &ve), errors.Is(err, services.ErrChatUnavailable):
			failService(c, err, "")
		default:
			_ = c.Error(err)
			failWith(c, http.StatusInternalServerError, ErrorResponse{
				Code:       ErrCodeChatFailed,
				Message:    "An error occurred while processing your message. Please try again.",
				Suggestion: "Try rephrasing your message or breaking it into smaller parts.",
				RetryAfter: 5,
			})
		}
		return
	}

	if reply.Queued {
		c.Header("Location", c.Request.URL.Path+"/"+reply.Ticket)
		ok(c, http.StatusAccepted, QueuedResponse{
			Message:           "Your message has been queued and will be processed shortly.",
			Ticket:            reply.Ticket,
			QueuePosition:     reply.Position,
			EstimatedWaitTime: seconds(reply.EstimatedWait),
		})
		return
	}
	ok(c, http.StatusOK, reply.Message)
}

// GetChatResult godoc
// @ID          getChatResult
// @Summary     Poll a queued chat reply
// @Tags        Chat
// @Produce     json
// @Param       ticket  path  string  true  "Ticket returned by POST /chat"
// @Success     200  {object}  domain.ChatMessage        "Assistant reply"
// @Success     202  {object}  handlers.PendingResponse  "Still queued"
// @Failure     404  {object}  handlers.ErrorResponse    "Unknown or expired ticket"
// @Failure     503  {object}  handlers.ErrorResponse    "Shutting down"
// @Router      /content/chat/{ticket} [get]
func (h *Handlers) GetChatResult(c *gin.Context) {
	ticket := c.Param("ticket")

	msg, err := h.chat.Result(c.Request.Context(), ticket)
	if err != nil {
		failService(c, err, "Failed to fetch chat reply")
		return
	}
	if msg == nil {
		ok(c, http.StatusAccepted, PendingResponse{Ticket: ticket, Status: "pending"})
		return
	}
	ok(c, http.StatusOK, msg)
}
