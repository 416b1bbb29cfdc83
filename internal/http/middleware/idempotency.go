// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for POST requests. It validates the
// Idempotency-Key header, optionally asks a lookup whether the key already
// produced a stored record for this client, and annotates the request so that
// handlers can serve the replay and the rate limiter can let it through.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a stored record exists for the key
	ctxKeyRateBypass = "rate.bypass" // bool: skip edge rate limiting
)

// ClientScope returns the namespace idempotency keys are stored under. There
// are no user accounts, so keys are scoped to the client address.
func ClientScope(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a stored result for this key.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions configures header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// ReplayRoutes lists the registered POST routes that serve stored
	// results. Only they consult the lookup and skip edge rate limiting.
	// Empty means every POST route.
	ReplayRoutes []string
}

// IdempotencyLookup reports whether a still-valid record exists for
// (scope, key) at now. Errors never block the request.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates and stashes the Idempotency-Key header. An
// absent header is a no-op; an invalid one is rejected with 400. Only POST
// requests to a replay route consult the lookup.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen, pat := opts.MaxLen, opts.Pattern
	if maxLen <= 0 {
		maxLen = 200
	}
	if pat == nil {
		pat = defaultKeyPattern
	}
	replayable := func(string) bool { return true }
	if len(opts.ReplayRoutes) > 0 {
		routes := make(map[string]struct{}, len(opts.ReplayRoutes))
		for _, p := range opts.ReplayRoutes {
			routes[p] = struct{}{}
		}
		replayable = func(path string) bool {
			_, ok := routes[path]
			return ok
		}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup == nil || c.Request.Method != http.MethodPost || !replayable(c.FullPath()) {
			c.Next()
			return
		}
		exists, err := lookup(c.Request.Context(), ClientScope(c), key, time.Now().UTC())
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
		}
		if exists {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}

		c.Next()
	}
}
