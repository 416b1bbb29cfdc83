package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
	"github.com/prudvi9160/smart-ai-content-creator/internal/http/middleware"
	"github.com/prudvi9160/smart-ai-content-creator/internal/repo"
	"github.com/prudvi9160/smart-ai-content-creator/internal/services"
	"github.com/prudvi9160/smart-ai-content-creator/internal/upstream"
)

// ---------- test DB + repo shim ----------

func newContentDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:content_handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testContentRepo struct{}

func (testContentRepo) CreateContent(ctx context.Context, db *gorm.DB, topic, typ, content string, imageURL *string) (*domain.GeneratedContent, error) {
	return repo.CreateContent(ctx, db, topic, typ, content, imageURL)
}

func (testContentRepo) ListContents(ctx context.Context, db *gorm.DB) ([]domain.GeneratedContent, error) {
	return repo.ListContents(ctx, db)
}

func (testContentRepo) GetContent(ctx context.Context, db *gorm.DB, id string) (*domain.GeneratedContent, error) {
	return repo.GetContent(ctx, db, id)
}

func (testContentRepo) ContentStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.ContentStats(ctx, db)
}

func (testContentRepo) GetIdempotency(ctx context.Context, db *gorm.DB, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, scope, key, now)
}

func (testContentRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, scope, key, contentID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, scope, key, contentID, status, ttl)
}

// ---------- upstream stubs ----------

type stubText struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubText) GenerateText(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "generated: " + prompt, nil
}

type stubVision struct{}

func (stubVision) DescribeImage(_ context.Context, prompt, _ string) (*upstream.ImageDescription, error) {
	return &upstream.ImageDescription{Description: "described " + prompt, ImageData: upstream.PlaceholderImageData}, nil
}

type stubImages struct {
	err     error
	lastNum int
}

func (s *stubImages) SearchImages(_ context.Context, q string, n int) ([]upstream.Image, error) {
	s.lastNum = n
	if s.err != nil {
		return nil, s.err
	}
	return []upstream.Image{{URL: "https://img/" + q, Photographer: "Ana", Alt: q}}, nil
}

type contentFixture struct {
	r      *gin.Engine
	text   *stubText
	images *stubImages
}

func newContentFixture(t *testing.T, maxUpload int64) contentFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	text := &stubText{}
	images := &stubImages{}
	svc := services.NewContentService(newContentDB(t), testContentRepo{}, text, stubVision{}, images)
	h := New(svc, nil, maxUpload)

	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, scope, key string, _ time.Time) (bool, error) {
			rec, err := svc.FindReplay(ctx, scope, key)
			return rec != nil, err
		}))
	g := r.Group("/api/content")
	g.POST("/generate", h.Generate)
	g.POST("/generate-image", h.GenerateImage)
	g.GET("/pexels-images", h.PexelsImages)
	g.GET("", h.ListContents)
	g.GET("/:id", h.GetContent)
	return contentFixture{r: r, text: text, images: images}
}

func (f contentFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartReq(t *testing.T, fields map[string]string, fileName, fileBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write([]byte(fileBody))
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/content/generate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return m
}

// ---------- POST /generate ----------

func TestGenerate_JSON_Created(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(jsonReq(http.MethodPost, "/api/content/generate", `{"topic":"Go","type":"Blog Post"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	body := decodeMap(t, w)
	if body["_id"] == "" || body["_id"] != body["id"] {
		t.Fatalf("expected id and _id alias, got %v", body)
	}
	if body["topic"] != "Go" || body["type"] != "Blog Post" ||
		body["content"] != "generated: Generate blog post content about Go. Make it detailed and well-structured." {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, present := body["imageUrl"]; present {
		t.Fatalf("imageUrl must be omitted when empty")
	}
}

func TestGenerate_ValidationAndBadJSON(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(jsonReq(http.MethodPost, "/api/content/generate", ""))
	if w.Code != http.StatusBadRequest || decodeMap(t, w)["message"] != "Topic and type or file are required" {
		t.Fatalf("empty body: %d %s", w.Code, w.Body.String())
	}

	w = f.do(jsonReq(http.MethodPost, "/api/content/generate", `{"topic":"only"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing type: %d", w.Code)
	}

	w = f.do(jsonReq(http.MethodPost, "/api/content/generate", `{"topic":`))
	if w.Code != http.StatusBadRequest || decodeMap(t, w)["code"] != ErrCodeBadRequest {
		t.Fatalf("bad JSON: %d %s", w.Code, w.Body.String())
	}
	if f.text.calls != 0 {
		t.Fatalf("model must not be called for invalid input")
	}
}

func TestGenerate_LiteralContentWithImage(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(jsonReq(http.MethodPost, "/api/content/generate",
		`{"topic":"Fox","type":"caption","content":"A quick brown fox","imageUrl":"https://img/fox.jpg"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	body := decodeMap(t, w)
	if body["content"] != "A quick brown fox" || body["imageUrl"] != "https://img/fox.jpg" {
		t.Fatalf("unexpected body: %v", body)
	}
	if f.text.calls != 0 {
		t.Fatalf("literal content must not call the model")
	}
}

func TestGenerate_MultipartFile(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(multipartReq(t, nil, "notes.txt", "first line"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	body := decodeMap(t, w)
	if body["topic"] != "notes.txt" || body["type"] != "file" {
		t.Fatalf("unexpected defaults: %v", body)
	}
	if !strings.Contains(body["content"].(string), "first line") {
		t.Fatalf("file text not used in prompt: %v", body["content"])
	}

	// Form fields without a file behave like JSON.
	w = f.do(multipartReq(t, map[string]string{"topic": "Tea", "type": "poem"}, "", ""))
	if w.Code != http.StatusCreated || decodeMap(t, w)["topic"] != "Tea" {
		t.Fatalf("form fields: %d %s", w.Code, w.Body.String())
	}
}

func TestGenerate_FileTooLarge(t *testing.T) {
	f := newContentFixture(t, 8)

	w := f.do(multipartReq(t, nil, "big.txt", "this is more than eight bytes"))
	if w.Code != http.StatusRequestEntityTooLarge || decodeMap(t, w)["code"] != ErrCodePayloadTooLarge {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGenerate_IdempotentReplay(t *testing.T) {
	f := newContentFixture(t, 0)

	send := func() *httptest.ResponseRecorder {
		req := jsonReq(http.MethodPost, "/api/content/generate", `{"topic":"Go","type":"tweet"}`)
		req.Header.Set(middleware.HeaderIdempotencyKey, "key-1")
		return f.do(req)
	}

	first := send()
	second := send()
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("statuses %d/%d", first.Code, second.Code)
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if decodeMap(t, first)["id"] != decodeMap(t, second)["id"] {
		t.Fatalf("replay must return the same record")
	}
	if f.text.calls != 1 {
		t.Fatalf("model called %d times; want 1", f.text.calls)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	f := newContentFixture(t, 0)
	f.text.err = &upstream.CallError{Provider: upstream.ProviderGemini, StatusCode: 500, Message: "backend exploded"}

	w := f.do(jsonReq(http.MethodPost, "/api/content/generate", `{"topic":"Go","type":"tweet"}`))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	body := decodeMap(t, w)
	if body["code"] != ErrCodeUpstream || body["message"] != "Failed to generate content" {
		t.Fatalf("unexpected body: %v", body)
	}
	if strings.Contains(w.Body.String(), "exploded") {
		t.Fatalf("provider message leaked: %s", w.Body.String())
	}
}

// ---------- POST /generate-image ----------

func TestGenerateImage(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(jsonReq(http.MethodPost, "/api/content/generate-image", `{}`))
	if w.Code != http.StatusBadRequest || decodeMap(t, w)["message"] != "Image prompt is required" {
		t.Fatalf("missing prompt: %d %s", w.Code, w.Body.String())
	}

	w = f.do(jsonReq(http.MethodPost, "/api/content/generate-image", `{"prompt":"lighthouse"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	body := decodeMap(t, w)
	if body["type"] != "image" || body["content"] != "described lighthouse" || body["imageUrl"] != "placeholder_image_data" {
		t.Fatalf("unexpected body: %v", body)
	}
}

// ---------- GET /pexels-images ----------

func TestPexelsImages(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/content/pexels-images", nil))
	if w.Code != http.StatusBadRequest || decodeMap(t, w)["message"] != "Category is required" {
		t.Fatalf("missing category: %d %s", w.Code, w.Body.String())
	}

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/content/pexels-images?category=cats&perPage=abc", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var imgs []upstream.Image
	if err := json.Unmarshal(w.Body.Bytes(), &imgs); err != nil || len(imgs) != 1 || imgs[0].URL != "https://img/cats" {
		t.Fatalf("unexpected images: %v %v", imgs, err)
	}
	if f.images.lastNum != 5 {
		t.Fatalf("perPage default = %d; want 5", f.images.lastNum)
	}

	f.do(httptest.NewRequest(http.MethodGet, "/api/content/pexels-images?category=cats&perPage=12", nil))
	if f.images.lastNum != 12 {
		t.Fatalf("perPage = %d; want 12", f.images.lastNum)
	}

	f.images.err = &upstream.CallError{Provider: upstream.ProviderPexels, StatusCode: 503}
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/content/pexels-images?category=cats", nil))
	if w.Code != http.StatusBadGateway || decodeMap(t, w)["message"] != "Failed to fetch images from Pexels" {
		t.Fatalf("upstream failure: %d %s", w.Code, w.Body.String())
	}
}

// ---------- GET / and GET /:id ----------

func TestListContents_OrderAndETag(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/content", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty list: %d %s", w.Code, w.Body.String())
	}

	for _, topic := range []string{"first", "second"} {
		if w := f.do(jsonReq(http.MethodPost, "/api/content/generate", `{"topic":"`+topic+`","type":"note","content":"x"}`)); w.Code != http.StatusCreated {
			t.Fatalf("seed %s: %d", topic, w.Code)
		}
		time.Sleep(2 * time.Millisecond)
	}

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/content", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(items) != 2 || items[0]["topic"] != "second" || items[1]["topic"] != "first" {
		t.Fatalf("expected newest first, got %v", items)
	}

	etag := w.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"contents:2:`) {
		t.Fatalf("unexpected ETag %q", etag)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/content", nil)
	req.Header.Set("If-None-Match", etag)
	if w := f.do(req); w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("expected 304, got %d", w.Code)
	}
}

func TestGetContent(t *testing.T) {
	f := newContentFixture(t, 0)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/content/does-not-exist", nil))
	if w.Code != http.StatusNotFound || decodeMap(t, w)["message"] != "Content not found" {
		t.Fatalf("missing: %d %s", w.Code, w.Body.String())
	}

	created := decodeMap(t, f.do(jsonReq(http.MethodPost, "/api/content/generate", `{"topic":"a","type":"b","content":"c"}`)))
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/content/"+created["id"].(string), nil))
	if w.Code != http.StatusOK || decodeMap(t, w)["content"] != "c" {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}
}
