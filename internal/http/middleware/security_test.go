package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securityEngine(opt SecurityOptions, pre gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/api/content", func(c *gin.Context) { c.String(http.StatusOK, "[]") })
	r.POST("/api/content/generate", func(c *gin.Context) { c.String(http.StatusCreated, "{}") })
	return r
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	r := securityEngine(SecurityOptions{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/content/generate", nil))

	h := w.Header()
	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if h.Get(k) != v {
			t.Fatalf("%s = %q; want %q", k, h.Get(k), v)
		}
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security"} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s=%q with options off", k, h.Get(k))
		}
	}
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-Request-ID, Retry-After, Location, Idempotency-Replayed" {
		t.Fatalf("expose headers = %q", got)
	}
}

func TestSecurityHeaders_NoStoreOnlyForWrites(t *testing.T) {
	r := securityEngine(SecurityOptions{NoStore: true, EnablePolicy: true}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	if got := w.Header().Get("Cache-Control"); got != "" {
		t.Fatalf("list must stay revalidatable, got Cache-Control %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/content/generate", nil))
	h := w.Header()
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("write response should be no-store: %#v", h)
	}
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	cases := []struct {
		name   string
		maxAge time.Duration
		setup  func(*http.Request)
		want   string
	}{
		{"plain http", time.Hour, func(*http.Request) {}, ""},
		{"tls", 24 * time.Hour, func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, "max-age=86400; includeSubDomains; preload"},
		{"proxy header", time.Hour, func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") }, "max-age=3600; includeSubDomains; preload"},
		{"default max age", 0, func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, "max-age=15552000; includeSubDomains; preload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := securityEngine(SecurityOptions{EnableHSTS: true, HSTSMaxAge: tc.maxAge}, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/content", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if got := w.Header().Get("Strict-Transport-Security"); got != tc.want {
				t.Fatalf("HSTS = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_MergesExistingExposeHeaders(t *testing.T) {
	r := securityEngine(SecurityOptions{}, func(c *gin.Context) {
		c.Header("Access-Control-Expose-Headers", "ETag, x-request-id")
		c.Next()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/content", nil))

	want := "ETag, x-request-id, Retry-After, Location, Idempotency-Replayed"
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != want {
		t.Fatalf("expose headers = %q; want %q", got, want)
	}
}
