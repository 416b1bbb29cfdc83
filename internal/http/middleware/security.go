// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, a conservative header set for a JSON API
// behind a reverse proxy. No CSP is sent; the API serves no HTML except the
// optional Swagger UI, which needs inline scripts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // default 180 days
	NoStore      bool          // Cache-Control: no-store on non-GET responses
	EnablePolicy bool          // Permissions-Policy and friends
}

// SecurityHeaders adds the baseline headers (nosniff, DENY framing,
// no-referrer) to every response, plus the optional ones from opt. GET
// responses are never marked no-store so the content list can be revalidated
// with its ETag. The headers browser clients need for polling and retries
// (X-Request-ID, Retry-After, Location, Idempotency-Replayed) are listed in
// Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore && c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		exposeHeaders(h, requestIDHeader, "Retry-After", "Location", "Idempotency-Replayed")

		c.Next()
	}
}

// exposeHeaders appends names missing from Access-Control-Expose-Headers,
// keeping any value set earlier in the chain.
func exposeHeaders(h http.Header, names ...string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	have := strings.ToLower(cur)
	for _, n := range names {
		if strings.Contains(have, strings.ToLower(n)) {
			continue
		}
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(hdr, cur)
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or via a
// proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
