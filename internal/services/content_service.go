// Package services – ContentService
//
// This file implements ContentService, which turns generation requests into
// persisted GeneratedContent records. It decides whether text comes from an
// uploaded file, from the caller verbatim, or from the language model, and
// translates provider and storage failures into the service error taxonomy.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
	"github.com/prudvi9160/smart-ai-content-creator/internal/repo"
	"github.com/prudvi9160/smart-ai-content-creator/internal/upstream"
)

const (
	defaultPerPage = 5
	maxPerPage     = 80 // provider cap
)

// ContentRepo defines the repository contract required by ContentService.
type ContentRepo interface {
	CreateContent(ctx context.Context, db *gorm.DB, topic, typ, content string, imageURL *string) (*domain.GeneratedContent, error)
	ListContents(ctx context.Context, db *gorm.DB) ([]domain.GeneratedContent, error)
	GetContent(ctx context.Context, db *gorm.DB, id string) (*domain.GeneratedContent, error)
	ContentStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
	GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, contentID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageDescriber describes an image (or a prompt when no image is given).
type ImageDescriber interface {
	DescribeImage(ctx context.Context, prompt, imageBase64 string) (*upstream.ImageDescription, error)
}

// ImageSearcher searches stock images.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, count int) ([]upstream.Image, error)
}

// UploadedFile is a text file attached to a generate request.
type UploadedFile struct {
	Name    string
	Content []byte
}

// GenerateInput is the payload of a generate request.
type GenerateInput struct {
	Topic    string
	Type     string
	Content  string
	ImageURL *string
	File     *UploadedFile
}

// ContentService generates, stores and retrieves content.
type ContentService struct {
	DB     *gorm.DB
	Repo   ContentRepo
	Text   TextGenerator
	Vision ImageDescriber
	Images ImageSearcher

	// IdempotencyTTL bounds how long a replayed POST returns the stored record.
	IdempotencyTTL time.Duration
	Logger         zerolog.Logger
}

// NewContentService wires a ContentService.
func NewContentService(db *gorm.DB, r ContentRepo, text TextGenerator, vision ImageDescriber, images ImageSearcher) *ContentService {
	return &ContentService{
		DB:             db,
		Repo:           r,
		Text:           text,
		Vision:         vision,
		Images:         images,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         log.With().Str("component", "content").Logger(),
	}
}

func tracer() trace.Tracer { return otel.Tracer("services/ContentService") }

// Generate creates a record. An uploaded file takes precedence (topic falls
// back to the file name, type to "file"); otherwise literal content is stored
// as given; otherwise text is generated from topic and type.
func (s *ContentService) Generate(ctx context.Context, in GenerateInput) (*domain.GeneratedContent, error) {
	ctx, span := tracer().Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("content.type", in.Type),
			attribute.Bool("content.file", in.File != nil),
		),
	)
	defer span.End()

	topic := strings.TrimSpace(in.Topic)
	typ := strings.TrimSpace(in.Type)

	var body string
	switch {
	case in.File != nil && len(in.File.Content) > 0:
		if topic == "" {
			topic = strings.TrimSpace(in.File.Name)
		}
		if typ == "" {
			typ = domain.ContentTypeFile
		}
		if topic == "" {
			topic = domain.ContentTypeFile
		}
		prompt := fmt.Sprintf("Generate %s content based on the following file:\n%s", s.promptType(typ), in.File.Content)
		text, err := s.Text.GenerateText(ctx, prompt)
		if err != nil {
			return nil, fail(span, upstreamErr(err))
		}
		body = text

	case topic == "" || typ == "":
		return nil, ErrTopicTypeRequired

	case strings.TrimSpace(in.Content) != "":
		body = in.Content

	default:
		prompt := fmt.Sprintf("Generate %s content about %s. Make it detailed and well-structured.", s.promptType(typ), topic)
		text, err := s.Text.GenerateText(ctx, prompt)
		if err != nil {
			return nil, fail(span, upstreamErr(err))
		}
		body = text
	}

	var imageURL *string
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) != "" {
		u := strings.TrimSpace(*in.ImageURL)
		imageURL = &u
	}

	rec, err := s.Repo.CreateContent(ctx, s.DB, topic, typ, body, imageURL)
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	span.SetAttributes(attribute.String("content.id", rec.ID))
	return rec, nil
}

// GenerateImage describes an image (or just the prompt) and stores the
// description with type "image".
func (s *ContentService) GenerateImage(ctx context.Context, prompt, imageBase64 string) (*domain.GeneratedContent, error) {
	ctx, span := tracer().Start(ctx, "GenerateImage",
		trace.WithAttributes(attribute.Bool("image.provided", imageBase64 != "")),
	)
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrPromptRequired
	}

	desc, err := s.Vision.DescribeImage(ctx, prompt, imageBase64)
	if err != nil {
		return nil, fail(span, upstreamErr(err))
	}

	img := desc.ImageData
	rec, err := s.Repo.CreateContent(ctx, s.DB, prompt, domain.ContentTypeImage, desc.Description, &img)
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	return rec, nil
}

// SearchImages looks up stock photos for category. perPage defaults to 5 and
// is clamped to the provider's range.
func (s *ContentService) SearchImages(ctx context.Context, category string, perPage int) ([]upstream.Image, error) {
	ctx, span := tracer().Start(ctx, "SearchImages",
		trace.WithAttributes(attribute.String("category", category), attribute.Int("per_page", perPage)),
	)
	defer span.End()

	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrCategoryRequired
	}
	switch {
	case perPage <= 0:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}

	imgs, err := s.Images.SearchImages(ctx, category, perPage)
	if err != nil {
		return nil, fail(span, upstreamErr(err))
	}
	return imgs, nil
}

// List returns every record, newest first.
func (s *ContentService) List(ctx context.Context) ([]domain.GeneratedContent, error) {
	ctx, span := tracer().Start(ctx, "List")
	defer span.End()

	items, err := s.Repo.ListContents(ctx, s.DB)
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	return items, nil
}

// Get returns one record or ErrContentNotFound.
func (s *ContentService) Get(ctx context.Context, id string) (*domain.GeneratedContent, error) {
	ctx, span := tracer().Start(ctx, "Get", trace.WithAttributes(attribute.String("content.id", id)))
	defer span.End()

	rec, err := s.Repo.GetContent(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	return rec, nil
}

// Stats returns the record count and newest CreatedAt, for list ETags.
func (s *ContentService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.ContentStats(ctx, s.DB)
}

// FindReplay returns the record stored for an earlier POST with the same
// idempotency key from the same scope, or nil when there is none.
func (s *ContentService) FindReplay(ctx context.Context, scope, key string) (*domain.GeneratedContent, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}
	rec, err := s.Repo.GetIdempotency(ctx, s.DB, scope, key, time.Now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if rec == nil {
		return nil, nil
	}
	out, err := s.Get(ctx, rec.ContentID)
	if errors.Is(err, ErrContentNotFound) {
		return nil, nil
	}
	return out, err
}

// RememberReplay records that key produced rec. Duplicate keys are ignored;
// other storage failures are logged and do not fail the request.
func (s *ContentService) RememberReplay(ctx context.Context, scope, key string, rec *domain.GeneratedContent, status int) {
	if strings.TrimSpace(key) == "" || rec == nil {
		return
	}
	_, err := s.Repo.CreateIdempotency(ctx, s.DB, scope, key, rec.ID, status, s.IdempotencyTTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		trace.SpanFromContext(ctx).RecordError(err)
		s.Logger.Error().Err(err).Str("content_id", rec.ID).Msg("store idempotency record")
	}
}

// promptType lowercases the content type for the prompt. Casers are not
// safe for concurrent use, so one is built per call.
func (s *ContentService) promptType(typ string) string {
	return cases.Lower(language.English).String(typ)
}

// upstreamErr maps provider failures onto the service taxonomy.
func upstreamErr(err error) error {
	var fe *upstream.FormatError
	if errors.As(err, &fe) {
		return fmt.Errorf("%w: %w", ErrUpstreamFormat, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
