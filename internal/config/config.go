// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, upstream API access, chat throttling, and observability.
//
// Upstream API keys are deliberately not validated here: a missing key only
// surfaces when the first call to that provider is made.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// UpstreamConfig holds credentials and endpoints for the generative-language
// and image-search providers.
type UpstreamConfig struct {
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiModel       string // text generation
	GeminiChatModel   string // chat replies
	GeminiVisionModel string // image description
	PexelsAPIKey      string
	PexelsBaseURL     string
	Timeout           time.Duration // per upstream HTTP call
}

// ChatConfig tunes the chat throttling layer: the upstream quota tracker,
// the retry policy and the request queue in front of it.
type ChatConfig struct {
	MinRequestInterval   time.Duration // spacing between upstream chat calls
	MaxRequestsPerMinute int           // per quota window
	QuotaResetInterval   time.Duration // window length
	MaxRetries           int           // retries on provider rate limiting
	QueueSize            int           // pending items before rejecting
	ProcessInterval      time.Duration // spacing between queue drains
	MaxMessageRunes      int
	ResultTTL            time.Duration // how long queued replies stay pollable
	InlineBudget         time.Duration // cap on an in-request reply, retries included; < WriteTimeout
}

// RedisConfig points at an optional Redis used for limiter statistics.
// An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must cover chat backoff waits
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath         string
	MaxUploadBytes int64 // cap for multipart uploads on /generate

	// Edge rate limiting (per client IP)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	Upstream UpstreamConfig
	Chat     ChatConfig
	Redis    RedisConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Storage
		DBPath:         getenv("DB_PATH", "content.db"),
		MaxUploadBytes: int64(getint("MAX_UPLOAD_BYTES", 5<<20)),

		// Edge rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Upstream: UpstreamConfig{
			GeminiAPIKey:      getenv("GEMINI_API_KEY", ""),
			GeminiBaseURL:     getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			GeminiModel:       getenv("GEMINI_MODEL", "gemini-1.5-flash"),
			GeminiChatModel:   getenv("GEMINI_CHAT_MODEL", "gemini-1.5-flash"),
			GeminiVisionModel: getenv("GEMINI_VISION_MODEL", "gemini-1.5-pro"),
			PexelsAPIKey:      getenv("PEXELS_API_KEY", ""),
			PexelsBaseURL:     getenv("PEXELS_BASE_URL", "https://api.pexels.com/v1"),
			Timeout:           getdur("UPSTREAM_TIMEOUT", 30*time.Second),
		},

		Chat: ChatConfig{
			MinRequestInterval:   getdur("CHAT_MIN_REQUEST_INTERVAL", 5*time.Second),
			MaxRequestsPerMinute: getint("CHAT_MAX_REQUESTS_PER_MINUTE", 10),
			QuotaResetInterval:   getdur("CHAT_QUOTA_RESET_INTERVAL", time.Minute),
			MaxRetries:           getint("CHAT_MAX_RETRIES", 2),
			QueueSize:            getint("CHAT_QUEUE_SIZE", 3),
			ProcessInterval:      getdur("CHAT_PROCESS_INTERVAL", 5*time.Second),
			MaxMessageRunes:      getint("CHAT_MAX_MESSAGE_RUNES", 500),
			ResultTTL:            getdur("CHAT_RESULT_TTL", 10*time.Minute),
			InlineBudget:         getdur("CHAT_INLINE_BUDGET", 0),
		},

		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "smart-ai-content-creator"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.Chat.InlineBudget <= 0 {
		cfg.Chat.InlineBudget = cfg.WriteTimeout - min(10*time.Second, cfg.WriteTimeout/10)
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true}

// validate reports the first rule cfg breaks.
func (cfg Config) validate() error {
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }
	rules := []struct {
		broken bool
		msg    string
	}{
		{!logLevels[cfg.LogLevel], "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{blank(cfg.Port), "PORT must not be empty"},
		{cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0, "timeouts must be positive durations"},
		{cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{blank(cfg.DBPath), "DB_PATH must not be empty"},
		{cfg.MaxUploadBytes <= 0, "MAX_UPLOAD_BYTES must be > 0"},
		{cfg.RateRPS < 0, "RATE_RPS must be >= 0"},
		{cfg.RateBurst < 1, "RATE_BURST must be >= 1"},
		{cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{cfg.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		{cfg.Upstream.Timeout <= 0, "UPSTREAM_TIMEOUT must be > 0"},
		{blank(cfg.Upstream.GeminiBaseURL) || blank(cfg.Upstream.PexelsBaseURL), "GEMINI_BASE_URL and PEXELS_BASE_URL must not be empty"},
		{cfg.Chat.MinRequestInterval < 0 || cfg.Chat.ProcessInterval < 0, "chat intervals must be >= 0"},
		{cfg.Chat.QuotaResetInterval <= 0, "CHAT_QUOTA_RESET_INTERVAL must be > 0"},
		{cfg.Chat.MaxRequestsPerMinute < 1, "CHAT_MAX_REQUESTS_PER_MINUTE must be >= 1"},
		{cfg.Chat.MaxRetries < 0, "CHAT_MAX_RETRIES must be >= 0"},
		{cfg.Chat.QueueSize < 1, "CHAT_QUEUE_SIZE must be >= 1"},
		{cfg.Chat.MaxMessageRunes < 1, "CHAT_MAX_MESSAGE_RUNES must be >= 1"},
		{cfg.Chat.ResultTTL <= 0, "CHAT_RESULT_TTL must be > 0"},
		{cfg.Chat.InlineBudget >= cfg.WriteTimeout, "CHAT_INLINE_BUDGET must be shorter than WRITE_TIMEOUT"},
		{cfg.Redis.DB < 0, "REDIS_DB must be >= 0"},
		{cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	for _, r := range rules {
		if r.broken {
			return errors.New(r.msg)
		}
	}
	return nil
}

// lookup returns the value of k and whether it is set and non-empty.
func lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func getenv(k, def string) string {
	if v, ok := lookup(k); ok {
		return v
	}
	return def
}

// parsed reads k with parse, falling back to def when unset or malformed.
func parsed[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := lookup(k)
	if !ok {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func getfloat(k string, def float64) float64 {
	return parsed(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getint(k string, def int) int { return parsed(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return parsed(k, def, time.ParseDuration) }

func getbool(k string, def bool) bool {
	return parsed(k, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return def, errors.New("not a boolean")
	})
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
