package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// hostVars are unset once so a developer's shell cannot leak into Load.
var hostVars = []string{
	"PORT", "API_BASE_PATH", "LOG_LEVEL", "GIN_MODE", "DB_PATH",
	"GEMINI_API_KEY", "PEXELS_API_KEY", "REDIS_ADDR", "REDIS_PASSWORD", "OTEL_ENABLED",
}

func TestMain(m *testing.M) {
	for _, k := range hostVars {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, 90*time.Second, cfg.WriteTimeout)
	require.Equal(t, "release", cfg.GinMode)
	require.Equal(t, "/api", cfg.APIBasePath)
	require.Equal(t, "content.db", cfg.DBPath)
	require.EqualValues(t, 5<<20, cfg.MaxUploadBytes)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)

	require.Empty(t, cfg.Upstream.GeminiAPIKey)
	require.Empty(t, cfg.Upstream.PexelsAPIKey)
	require.Equal(t, "gemini-1.5-pro", cfg.Upstream.GeminiVisionModel)

	require.Equal(t, ChatConfig{
		MinRequestInterval:   5 * time.Second,
		MaxRequestsPerMinute: 10,
		QuotaResetInterval:   time.Minute,
		MaxRetries:           2,
		QueueSize:            3,
		ProcessInterval:      5 * time.Second,
		MaxMessageRunes:      500,
		ResultTTL:            10 * time.Minute,
		InlineBudget:         81 * time.Second,
	}, cfg.Chat)

	require.Empty(t, cfg.Redis.Addr)
	require.Nil(t, cfg.CORS.AllowedOrigins)
	require.False(t, cfg.OTEL.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	env := map[string]string{
		"PORT":                         "8088",
		"READ_TIMEOUT":                 "2s",
		"WRITE_TIMEOUT":                "3s",
		"MAX_HEADER_BYTES":             "8192",
		"GIN_MODE":                     "DEBUG",
		"LOG_LEVEL":                    "Warning",
		"LOG_PRETTY":                   "yes",
		"SWAGGER_ENABLED":              "on",
		"API_BASE_PATH":                "api/v1/",
		"MAX_UPLOAD_BYTES":             "1024",
		"RATE_RPS":                     "x",
		"RATE_BURST":                   "nope",
		"CORS_ALLOWED_ORIGINS":         " https://a.com , , http://b ",
		"ENABLE_HSTS":                  "TRUE",
		"HSTS_MAX_AGE":                 "24h",
		"IDEMPOTENCY_TTL":              "48h",
		"GEMINI_API_KEY":               "g-key",
		"GEMINI_BASE_URL":              "http://gemini.local/v1beta",
		"GEMINI_CHAT_MODEL":            "chat-model",
		"PEXELS_API_KEY":               "p-key",
		"UPSTREAM_TIMEOUT":             "7s",
		"CHAT_MIN_REQUEST_INTERVAL":    "2s",
		"CHAT_MAX_REQUESTS_PER_MINUTE": "4",
		"CHAT_QUEUE_SIZE":              "6",
		"CHAT_RESULT_TTL":              "1m",
		"REDIS_ADDR":                   "localhost:6379",
		"REDIS_DB":                     "2",
		"OTEL_ENABLED":                 "1",
		"OTEL_EXPORTER_OTLP_INSECURE":  "0",
		"OTEL_SERVICE_NAME":            "svc",
		"OTEL_TRACES_SAMPLER_ARG":      "0.75",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8088", cfg.Port)
	require.Equal(t, 2*time.Second, cfg.ReadTimeout)
	require.Equal(t, 3*time.Second, cfg.WriteTimeout)
	require.Equal(t, 8192, cfg.MaxHeaderBytes)
	require.Equal(t, "debug", cfg.GinMode)
	require.Equal(t, "warn", cfg.LogLevel)
	require.True(t, cfg.LogPretty)
	require.True(t, cfg.SwaggerEnabled)
	require.Equal(t, "/api/v1", cfg.APIBasePath)
	require.EqualValues(t, 1024, cfg.MaxUploadBytes)

	// unparsable values keep the defaults
	require.Equal(t, 5.0, cfg.RateRPS)
	require.Equal(t, 10, cfg.RateBurst)

	require.Equal(t, []string{"https://a.com", "http://b"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, SecurityConfig{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour}, cfg.Security)
	require.Equal(t, 48*time.Hour, cfg.IdempotencyTTL)

	require.Equal(t, "g-key", cfg.Upstream.GeminiAPIKey)
	require.Equal(t, "http://gemini.local/v1beta", cfg.Upstream.GeminiBaseURL)
	require.Equal(t, "chat-model", cfg.Upstream.GeminiChatModel)
	require.Equal(t, "gemini-1.5-flash", cfg.Upstream.GeminiModel)
	require.Equal(t, "p-key", cfg.Upstream.PexelsAPIKey)
	require.Equal(t, 7*time.Second, cfg.Upstream.Timeout)

	require.Equal(t, 2*time.Second, cfg.Chat.MinRequestInterval)
	require.Equal(t, 4, cfg.Chat.MaxRequestsPerMinute)
	require.Equal(t, 6, cfg.Chat.QueueSize)
	require.Equal(t, time.Minute, cfg.Chat.ResultTTL)
	require.Equal(t, 2700*time.Millisecond, cfg.Chat.InlineBudget)

	require.Equal(t, RedisConfig{Addr: "localhost:6379", DB: 2}, cfg.Redis)

	require.True(t, cfg.OTEL.Enabled)
	require.False(t, cfg.OTEL.Insecure)
	require.Equal(t, "svc", cfg.OTEL.ServiceName)
	require.Equal(t, 0.75, cfg.OTEL.SampleRatio)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, val, msg string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"PORT", "   ", "PORT must not be empty"},
		{"IDLE_TIMEOUT", "0s", "timeouts must be positive"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"DB_PATH", " ", "DB_PATH"},
		{"MAX_UPLOAD_BYTES", "-1", "MAX_UPLOAD_BYTES"},
		{"RATE_RPS", "-1", "RATE_RPS"},
		{"RATE_BURST", "0", "RATE_BURST"},
		{"HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"UPSTREAM_TIMEOUT", "0s", "UPSTREAM_TIMEOUT"},
		{"PEXELS_BASE_URL", " ", "PEXELS_BASE_URL"},
		{"CHAT_PROCESS_INTERVAL", "-1s", "chat intervals"},
		{"CHAT_QUOTA_RESET_INTERVAL", "0s", "CHAT_QUOTA_RESET_INTERVAL"},
		{"CHAT_MAX_REQUESTS_PER_MINUTE", "0", "CHAT_MAX_REQUESTS_PER_MINUTE"},
		{"CHAT_MAX_RETRIES", "-1", "CHAT_MAX_RETRIES"},
		{"CHAT_QUEUE_SIZE", "0", "CHAT_QUEUE_SIZE"},
		{"CHAT_MAX_MESSAGE_RUNES", "0", "CHAT_MAX_MESSAGE_RUNES"},
		{"CHAT_RESULT_TTL", "0s", "CHAT_RESULT_TTL"},
		{"CHAT_INLINE_BUDGET", "90s", "CHAT_INLINE_BUDGET"},
		{"REDIS_DB", "-3", "REDIS_DB"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoad_InlineBudget(t *testing.T) {
	t.Setenv("WRITE_TIMEOUT", "2m")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 110*time.Second, cfg.Chat.InlineBudget)

	t.Setenv("CHAT_INLINE_BUDGET", "45s")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.Chat.InlineBudget)
}

func TestMustLoad(t *testing.T) {
	require.NotPanics(t, func() { _ = MustLoad() })

	t.Setenv("CHAT_QUEUE_SIZE", "0")
	require.Panics(t, func() { _ = MustLoad() })
}

func TestGetbool(t *testing.T) {
	for v, want := range map[string]bool{
		"1": true, "TRUE": true, " yes ": true, "Y": true, "On": true,
		"0": false, "False": false, " no ": false, "n": false, "OFF": false,
	} {
		t.Setenv("B_VAL", v)
		require.Equal(t, want, getbool("B_VAL", !want), "getbool(%q)", v)
	}

	t.Setenv("B_VAL", "maybe")
	require.True(t, getbool("B_VAL", true))
	t.Setenv("B_VAL", "")
	require.False(t, getbool("B_VAL", false))
}

func TestNumericAndDurationFallbacks(t *testing.T) {
	t.Setenv("N_OK", "42")
	t.Setenv("N_BAD", "4x2")
	t.Setenv("D_OK", "150ms")

	require.Equal(t, 42, getint("N_OK", 0))
	require.Equal(t, 7, getint("N_BAD", 7))
	require.Equal(t, 42.0, getfloat("N_OK", 0))
	require.Equal(t, 1.5, getfloat("N_BAD", 1.5))
	require.Equal(t, 150*time.Millisecond, getdur("D_OK", time.Second))
	require.Equal(t, time.Second, getdur("N_OK", time.Second))
}

func TestSplitCSV(t *testing.T) {
	require.Nil(t, splitCSV(""))
	require.Equal(t, []string{"a", "b", "c"}, splitCSV(" a, ,b ,  c  ,"))
	require.Empty(t, splitCSV(" , ,"))
}

func TestNormalizeBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":        "/",
		" / ":     "/",
		"v1":      "/v1",
		"/v1/":    "/v1",
		"api//":   "/api",
		"/a/b":    "/a/b",
		" /api/ ": "/api",
	} {
		require.Equal(t, want, normalizeBasePath(in), "normalizeBasePath(%q)", in)
	}
}
