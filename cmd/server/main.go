// Command server runs the content creator HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/prudvi9160/smart-ai-content-creator/internal/config"
	httpapi "github.com/prudvi9160/smart-ai-content-creator/internal/http"
	"github.com/prudvi9160/smart-ai-content-creator/internal/observability"
	"github.com/prudvi9160/smart-ai-content-creator/internal/ratelimit"
	"github.com/prudvi9160/smart-ai-content-creator/internal/repo"
	"github.com/prudvi9160/smart-ai-content-creator/internal/services"
	"github.com/prudvi9160/smart-ai-content-creator/internal/sysutil"
	"github.com/prudvi9160/smart-ai-content-creator/internal/upstream"
)

var version = "1.0.0"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := sysutil.ConfigureLogging(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			logger.Warn().Err(err).Msg("gorm tracing disabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	go purgeIdempotency(ctx, db, time.Hour, logger)

	gemini := upstream.NewGeminiClient(cfg.Upstream.GeminiBaseURL, cfg.Upstream.GeminiAPIKey)
	gemini.TextModel = cfg.Upstream.GeminiModel
	gemini.ChatModel = cfg.Upstream.GeminiChatModel
	gemini.VisionModel = cfg.Upstream.GeminiVisionModel
	gemini.Timeout = cfg.Upstream.Timeout

	pexels := upstream.NewPexelsClient(cfg.Upstream.PexelsBaseURL, cfg.Upstream.PexelsAPIKey)
	pexels.Timeout = cfg.Upstream.Timeout

	stats, closeStats := newStatsStore(cfg.Redis, logger)
	defer closeStats()

	limiter := ratelimit.NewLimiter(ratelimit.Options{
		MinInterval:  cfg.Chat.MinRequestInterval,
		MaxPerWindow: cfg.Chat.MaxRequestsPerMinute,
		WindowReset:  cfg.Chat.QuotaResetInterval,
		Stats:        stats,
		Logger:       logger.With().Str("component", "limiter").Logger(),
	})
	limiter.Start(ctx)

	retrier := ratelimit.NewRetrier(limiter, cfg.Chat.MaxRetries, logger.With().Str("component", "retrier").Logger())
	retrier.OnStateChange = func(from, to ratelimit.State) {
		logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("chat retrier")
	}
	chat := services.NewChatService(ctx, gemini, retrier, services.ChatOptions{
		MaxMessageRunes: cfg.Chat.MaxMessageRunes,
		QueueSize:       cfg.Chat.QueueSize,
		ProcessInterval: cfg.Chat.ProcessInterval,
		ResultTTL:       cfg.Chat.ResultTTL,
		InlineBudget:    cfg.Chat.InlineBudget,
		Logger:          logger.With().Str("component", "chat").Logger(),
	})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:     db,
		Text:   gemini,
		Vision: gemini,
		Images: pexels,
		Chat:   chat,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		chat.Close()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("version", appVersion).
		Str("base_path", cfg.APIBasePath).
		Dur("chat_min_interval", cfg.Chat.MinRequestInterval).
		Int("chat_max_per_window", cfg.Chat.MaxRequestsPerMinute).
		Int("chat_queue_size", cfg.Chat.QueueSize).
		Msg("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
	<-idle
}

// newStatsStore returns the Redis-backed limiter statistics when REDIS_ADDR
// is set and reachable, and the in-memory store otherwise.
func newStatsStore(cfg config.RedisConfig, logger zerolog.Logger) (ratelimit.StatsStore, func()) {
	if cfg.Addr == "" {
		return ratelimit.NewMemoryStatsStore(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	err := rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, keeping limiter stats in memory")
		_ = rdb.Close()
		return ratelimit.NewMemoryStatsStore(), func() {}
	}
	return ratelimit.NewRedisStatsStore(rdb), func() { _ = rdb.Close() }
}

// purgeIdempotency deletes expired idempotency records every interval until
// ctx is cancelled.
func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration, logger zerolog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				logger.Warn().Err(err).Msg("idempotency purge")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
