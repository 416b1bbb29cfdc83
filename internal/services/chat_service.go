// Package services – ChatService
//
// This file implements ChatService, the entry point for chat messages. It
// validates the message, hands it to the request queue, and produces the
// assistant reply through the rate-limited retrier. Replies are fail-soft:
// when the model stays rate limited or fails, the caller still receives an
// assistant message carrying a fixed explanatory text.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
	"github.com/prudvi9160/smart-ai-content-creator/internal/queue"
	"github.com/prudvi9160/smart-ai-content-creator/internal/ratelimit"
	"github.com/prudvi9160/smart-ai-content-creator/internal/upstream"
)

// Fixed assistant replies for failed model calls.
const (
	HighDemandReply = "I'm currently experiencing high demand. Please wait a few moments and try again. " +
		"In the meantime, you can still use other features like content generation or image search."
	RephraseReply = "I encountered an issue processing your message. Please try rephrasing your question or using simpler language."
)

// ChatModel answers a single chat message.
type ChatModel interface {
	Chat(ctx context.Context, message string) (string, error)
}

// ChatOptions tunes ChatService.
type ChatOptions struct {
	MaxMessageRunes int
	QueueSize       int
	ProcessInterval time.Duration
	ResultTTL       time.Duration
	// InlineBudget bounds a reply produced inside the request, retries
	// included, so it is written before the server's write deadline. Zero
	// leaves it unbounded.
	InlineBudget time.Duration
	Clock        clockwork.Clock
	Logger       zerolog.Logger
}

// ChatReply is the outcome of Send: either an immediate assistant message or
// a ticket for a queued request.
type ChatReply struct {
	Message       *domain.ChatMessage
	Queued        bool
	Ticket        string
	Position      int
	EstimatedWait time.Duration
}

// ChatStatus is a point-in-time view used by health checks.
type ChatStatus struct {
	QueueLength  int                 `json:"queueLength"`
	Processing   bool                `json:"processing"`
	WindowCount  int                 `json:"windowCount"`
	RetrierState string              `json:"retrierState"`
	Decisions    *ratelimit.Counters `json:"decisions,omitempty"`
}

// ChatService validates chat messages and serializes them through the queue.
type ChatService struct {
	Model   ChatModel
	Retrier *ratelimit.Retrier

	maxRunes     int
	inlineBudget time.Duration
	clock        clockwork.Clock
	log          zerolog.Logger
	queue        *queue.Queue
	results      *queue.ResultStore
}

// NewChatService builds the service and its queue. Queued requests are
// processed with base, so cancelling base stops in-flight retries.
func NewChatService(base context.Context, model ChatModel, retrier *ratelimit.Retrier, opts ChatOptions) *ChatService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MaxMessageRunes <= 0 {
		opts.MaxMessageRunes = 500
	}
	s := &ChatService{
		Model:    model,
		Retrier:  retrier,
		maxRunes:     opts.MaxMessageRunes,
		inlineBudget: opts.InlineBudget,
		clock:        opts.Clock,
		log:          opts.Logger,
		results:      queue.NewResultStore(opts.ResultTTL, opts.Clock),
	}
	s.queue = queue.New(base, s.Process, queue.Options{
		MaxSize:  opts.QueueSize,
		Interval: opts.ProcessInterval,
		Clock:    opts.Clock,
		Logger:   opts.Logger,
		Results:  s.results,
	})
	return s
}

func chatTracer() trace.Tracer { return otel.Tracer("services/ChatService") }

// Send validates message and submits it. Oversized or empty messages are
// rejected before any queue, limiter or model work. A full queue yields a
// *queue.CapacityError.
func (s *ChatService) Send(ctx context.Context, message string) (ChatReply, error) {
	ctx, span := chatTracer().Start(ctx, "Send")
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return ChatReply{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > s.maxRunes {
		return ChatReply{}, ErrMessageTooLong
	}

	// Only the inline path runs on ctx; drained items use the queue's base.
	tk, err := s.queue.Submit(ratelimit.WithBudget(ctx, s.inlineBudget), message)
	if errors.Is(err, queue.ErrQueueClosed) {
		return ChatReply{}, ErrChatUnavailable
	}
	if err != nil {
		span.RecordError(err)
		return ChatReply{}, err
	}
	span.SetAttributes(attribute.Bool("chat.queued", tk.Queued), attribute.Int("chat.position", tk.Position))

	if tk.Queued {
		return ChatReply{Queued: true, Ticket: tk.ID, Position: tk.Position, EstimatedWait: tk.EstimatedWait}, nil
	}

	res := <-tk.Done
	if res.Err != nil {
		return ChatReply{}, fail(span, res.Err)
	}
	msg := res.Message
	return ChatReply{Message: &msg}, nil
}

// Process produces the assistant reply for message. It never fails: rate
// limiting that outlasts the retries yields HighDemandReply and any other
// failure yields RephraseReply.
func (s *ChatService) Process(ctx context.Context, message string) queue.Result {
	ctx, span := chatTracer().Start(ctx, "Process")
	defer span.End()

	content, err := s.Retrier.Do(ctx, func(ctx context.Context) (string, error) {
		return s.Model.Chat(ctx, message)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ratelimit.ErrRetriesExhausted) || upstream.IsRateLimited(err) {
			s.log.Warn().Err(err).Msg("chat model rate limited, returning high-demand reply")
			content = HighDemandReply
		} else {
			s.log.Error().Err(err).Msg("chat model call failed")
			content = RephraseReply
		}
	}

	return queue.Result{Message: domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: s.clock.Now().UTC(),
	}}
}

// Result returns the reply for a queued ticket. A nil message with a nil
// error means the request is still pending.
func (s *ChatService) Result(ctx context.Context, ticket string) (*domain.ChatMessage, error) {
	_, span := chatTracer().Start(ctx, "Result", trace.WithAttributes(attribute.String("chat.ticket", ticket)))
	defer span.End()

	res, st := s.results.Get(ticket)
	switch st {
	case queue.StatusPending:
		return nil, nil
	case queue.StatusDone:
		if errors.Is(res.Err, queue.ErrQueueClosed) {
			return nil, ErrChatUnavailable
		}
		if res.Err != nil {
			return nil, res.Err
		}
		msg := res.Message
		return &msg, nil
	default:
		return nil, ErrTicketNotFound
	}
}

// Status reports queue and limiter state.
func (s *ChatService) Status() ChatStatus {
	st := ChatStatus{
		QueueLength: s.queue.Len(),
		Processing:  s.queue.Processing(),
	}
	if s.Retrier != nil {
		st.RetrierState = s.Retrier.State().String()
		if s.Retrier.Limiter != nil {
			st.WindowCount = s.Retrier.Limiter.Snapshot().RequestCount
			if c, ok := s.Retrier.Limiter.Decisions(); ok {
				st.Decisions = &c
			}
		}
	}
	return st
}

// Close shuts the queue down; pending requests resolve as unavailable.
func (s *ChatService) Close() { s.queue.Close() }
