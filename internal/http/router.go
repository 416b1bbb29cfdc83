// Package httpapi wires the HTTP transport (Gin) to the content and chat
// services, the middleware chain and the route handlers.
//
// Middleware runs in a fixed order so that every request is traced, carries a
// correlation id in its logs, and is recovered from panics before any
// business logic runs.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/prudvi9160/smart-ai-content-creator/docs"
	"github.com/prudvi9160/smart-ai-content-creator/internal/config"
	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
	"github.com/prudvi9160/smart-ai-content-creator/internal/http/handlers"
	"github.com/prudvi9160/smart-ai-content-creator/internal/http/middleware"
	"github.com/prudvi9160/smart-ai-content-creator/internal/repo"
	"github.com/prudvi9160/smart-ai-content-creator/internal/services"
)

// contentRepoShim adapts the repository free functions to services.ContentRepo.
type contentRepoShim struct{}

func (contentRepoShim) CreateContent(ctx context.Context, db *gorm.DB, topic, typ, content string, imageURL *string) (*domain.GeneratedContent, error) {
	return repo.CreateContent(ctx, db, topic, typ, content, imageURL)
}

func (contentRepoShim) ListContents(ctx context.Context, db *gorm.DB) ([]domain.GeneratedContent, error) {
	return repo.ListContents(ctx, db)
}

func (contentRepoShim) GetContent(ctx context.Context, db *gorm.DB, id string) (*domain.GeneratedContent, error) {
	return repo.GetContent(ctx, db, id)
}

func (contentRepoShim) ContentStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.ContentStats(ctx, db)
}

func (contentRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, scope, key, now)
}

func (contentRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, contentID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, scope, key, contentID, status, ttl)
}

// Deps are the collaborators RegisterRoutes wires into the handlers.
type Deps struct {
	DB     *gorm.DB
	Text   services.TextGenerator
	Vision services.ImageDescriber
	Images services.ImageSearcher
	Chat   *services.ChatService
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. Body size limit (upload cap plus room for multipart framing)
//  6. Metrics
//  7. Idempotency validator (before the rate limiter so replays bypass it)
//  8. Per-IP rate limiter
//  9. CORS, security headers, gzip
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxUploadBytes + 1<<20))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	db := deps.DB
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen:       200,
			ReplayRoutes: []string{joinRoute(cfg.APIBasePath, "/content/generate")},
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return rec != nil && !rec.Expired(now), nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP(), "/health", "/metrics")
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Retry-After", "Location", "ETag", "Content-Length"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// gin-contrib/cors skips requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if deps.Chat != nil {
			body["chat"] = deps.Chat.Status()
		}
		c.JSON(http.StatusOK, body)
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	contentSvc := services.NewContentService(db, contentRepoShim{}, deps.Text, deps.Vision, deps.Images)
	if cfg.IdempotencyTTL > 0 {
		contentSvc.IdempotencyTTL = cfg.IdempotencyTTL
	}

	var chat handlers.ChatService
	if deps.Chat != nil {
		chat = deps.Chat
	}
	h := handlers.New(contentSvc, chat, cfg.MaxUploadBytes)

	api := groupWithPrefix(r, cfg.APIBasePath)
	content := api.Group("/content")
	{
		content.POST("/generate", h.Generate)
		content.POST("/generate-image", h.GenerateImage)
		content.GET("/pexels-images", h.PexelsImages)

		content.POST("/chat", h.PostChat)
		content.GET("/chat/:ticket", h.GetChatResult)

		content.GET("", h.ListContents)
		content.GET("/", h.ListContents)
		content.GET("/:id", h.GetContent)
	}
}

// limitBody caps the request body at maxBytes; reads past the cap fail with
// *http.MaxBytesError.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// joinRoute returns the full registered path of route under prefix.
func joinRoute(prefix, route string) string {
	if prefix == "" || prefix == "/" {
		return route
	}
	return prefix + route
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
