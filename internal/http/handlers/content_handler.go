// Content HTTP handlers.
//
// This file exposes the content endpoints:
//   - POST /generate        (JSON or multipart with a "file" field)
//   - POST /generate-image  (describe an image or a prompt)
//   - GET  /pexels-images   (stock photo search)
//   - GET  /                (list, weak ETag support)
//   - GET  /{id}            (single record)
//
// Handlers are transport-thin: they parse input, call the services and map
// results and errors to HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
	"github.com/prudvi9160/smart-ai-content-creator/internal/http/middleware"
	"github.com/prudvi9160/smart-ai-content-creator/internal/services"
	"github.com/prudvi9160/smart-ai-content-creator/internal/upstream"
	"github.com/prudvi9160/smart-ai-content-creator/internal/utils"
)

//
// Service contracts (context-aware)
//

// ContentService generates, stores and lists content records.
type ContentService interface {
	Generate(ctx context.Context, in services.GenerateInput) (*domain.GeneratedContent, error)
	GenerateImage(ctx context.Context, prompt, imageBase64 string) (*domain.GeneratedContent, error)
	SearchImages(ctx context.Context, category string, perPage int) ([]upstream.Image, error)
	List(ctx context.Context) ([]domain.GeneratedContent, error)
	Get(ctx context.Context, id string) (*domain.GeneratedContent, error)
	Stats(ctx context.Context) (int64, *time.Time, error)
	FindReplay(ctx context.Context, scope, key string) (*domain.GeneratedContent, error)
	RememberReplay(ctx context.Context, scope, key string, rec *domain.GeneratedContent, status int)
}

// ChatService accepts chat messages and serves queued replies.
type ChatService interface {
	Send(ctx context.Context, message string) (services.ChatReply, error)
	Result(ctx context.Context, ticket string) (*domain.ChatMessage, error)
}

//
// Handler wiring
//

// Handlers groups the content and chat endpoints.
type Handlers struct {
	content ContentService
	chat    ChatService

	maxUpload int64
}

// New constructs Handlers. maxUpload caps multipart file sizes (<= 0 means 5 MiB).
func New(content ContentService, chat ChatService, maxUpload int64) *Handlers {
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &Handlers{content: content, chat: chat, maxUpload: maxUpload}
}

//
// DTOs
//

// GenerateRequest is the JSON payload for POST /generate. Multipart requests
// carry the same fields as form values plus a "file" part.
type GenerateRequest struct {
	Topic    string  `json:"topic" example:"Remote work"`
	Type     string  `json:"type" example:"blog post"`
	Content  string  `json:"content,omitempty" example:""`
	ImageURL *string `json:"imageUrl,omitempty" example:"https://images.pexels.com/photos/1/pexels-photo-1.jpeg"`
}

// GenerateImageRequest is the JSON payload for POST /generate-image.
type GenerateImageRequest struct {
	Prompt string `json:"prompt" example:"A lighthouse at dusk"`
	// Image is an optional base64 payload or data URL.
	Image string `json:"image,omitempty"`
}

//
// Handlers
//

// Generate godoc
// @ID          generateContent
// @Summary     Generate and store content
// @Description Stores literal content, or generates it from topic and type, or from an uploaded text file.
// @Description Supports idempotency via the Idempotency-Key header (same key and client → same record).
// @Tags        Content
// @Accept      json,mpfd
// @Produce     json
//
// @Param       Idempotency-Key  header    string  false "Idempotency key for safe retries"
// @Param       body             body      handlers.GenerateRequest  false "JSON payload"
// @Param       file             formData  file    false "Text file to generate from"
//
// @Success     201  {object}  domain.GeneratedContent
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /content/generate [post]
func (h *Handlers) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	in, err := h.bindGenerate(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig), errors.Is(err, errFileTooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("File is too large. Maximum size is %d bytes.", h.maxUpload))
		default:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		}
		return
	}

	// Idempotency (replay path). The validator already looked the key up.
	scope := middleware.ClientScope(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && middleware.IsReplay(c) {
		if prev, err := h.content.FindReplay(ctx, scope, idemKey); err == nil && prev != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusCreated, prev)
			return
		}
	}

	rec, err := h.content.Generate(ctx, in)
	if err != nil {
		failService(c, err, "Failed to generate content")
		return
	}

	h.content.RememberReplay(ctx, scope, idemKey, rec, http.StatusCreated)
	ok(c, http.StatusCreated, rec)
}

var errFileTooLarge = errors.New("uploaded file too large")

// bindGenerate reads a GenerateInput from JSON or multipart form data. An
// empty JSON body is not an error; validation happens in the service.
func (h *Handlers) bindGenerate(c *gin.Context) (services.GenerateInput, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in := services.GenerateInput{
			Topic:   c.PostForm("topic"),
			Type:    c.PostForm("type"),
			Content: c.PostForm("content"),
		}
		if u := c.PostForm("imageUrl"); u != "" {
			in.ImageURL = &u
		}
		fh, err := c.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return in, nil
		case err != nil:
			return in, err
		}
		f, err := h.readUpload(fh)
		if err != nil {
			return in, err
		}
		in.File = f
		return in, nil
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return services.GenerateInput{}, err
	}
	return services.GenerateInput{Topic: req.Topic, Type: req.Type, Content: req.Content, ImageURL: req.ImageURL}, nil
}

func (h *Handlers) readUpload(fh *multipart.FileHeader) (*services.UploadedFile, error) {
	if fh.Size > h.maxUpload {
		return nil, errFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > h.maxUpload {
		return nil, errFileTooLarge
	}
	return &services.UploadedFile{Name: fh.Filename, Content: b}, nil
}

// GenerateImage godoc
// @ID          generateImage
// @Summary     Describe an image and store the description
// @Description Sends the prompt (and optional base64 image) to the vision model and stores the description.
// @Tags        Content
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.GenerateImageRequest  true  "Prompt and optional image"
// @Success     201  {object}  domain.GeneratedContent
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /content/generate-image [post]
func (h *Handlers) GenerateImage(c *gin.Context) {
	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	rec, err := h.content.GenerateImage(c.Request.Context(), req.Prompt, req.Image)
	if err != nil {
		failService(c, err, "Failed to generate image")
		return
	}
	ok(c, http.StatusCreated, rec)
}

// PexelsImages godoc
// @ID          pexelsImages
// @Summary     Search stock images
// @Tags        Content
// @Produce     json
// @Param       category  query  string  true   "Search term"
// @Param       perPage   query  int     false  "Results per page"  minimum(1) maximum(80) default(5)
// @Success     200  {array}   upstream.Image
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Image provider failed"
// @Router      /content/pexels-images [get]
func (h *Handlers) PexelsImages(c *gin.Context) {
	perPage := utils.AtoiDefault(c.Query("perPage"), 0)

	imgs, err := h.content.SearchImages(c.Request.Context(), c.Query("category"), perPage)
	if err != nil {
		if errors.Is(err, services.ErrUpstream) {
			_ = c.Error(err)
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "Failed to fetch images from Pexels")
			return
		}
		failService(c, err, "Failed to fetch images from Pexels")
		return
	}
	ok(c, http.StatusOK, imgs)
}

// ListContents godoc
// @ID          listContents
// @Summary     List generated content
// @Description Returns every record, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Content
// @Produce     json
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {array}   domain.GeneratedContent
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /content [get]
func (h *Handlers) ListContents(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.content.Stats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"contents:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.content.List(ctx)
	if err != nil {
		failService(c, err, "Failed to fetch contents")
		return
	}
	ok(c, http.StatusOK, items)
}

// GetContent godoc
// @ID          getContent
// @Summary     Get one record
// @Tags        Content
// @Produce     json
// @Param       id  path  string  true  "Content ID"
// @Success     200  {object}  domain.GeneratedContent
// @Failure     404  {object}  handlers.ErrorResponse "Content not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /content/{id} [get]
func (h *Handlers) GetContent(c *gin.Context) {
	rec, err := h.content.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, "Failed to fetch content")
		return
	}
	ok(c, http.StatusOK, rec)
}
