package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTextModel     = "gemini-1.5-flash"
	defaultVisionModel   = "gemini-1.5-pro"

	// PlaceholderImageData is stored as the image reference when an image
	// description was requested without image bytes.
	PlaceholderImageData = "placeholder_image_data"
	defaultImagePrompt   = "Describe this image"
)

// Generation parameters.
var (
	textGeneration = generationConfig{Temperature: 0.7, MaxOutputTokens: 1000}
	chatGeneration = generationConfig{Temperature: 0.7, MaxOutputTokens: 500, TopP: 0.8, TopK: 40}
)

// GeminiClient talks to the generateContent endpoint over plain HTTP.
type GeminiClient struct {
	BaseURL     string
	APIKey      string
	TextModel   string
	ChatModel   string
	VisionModel string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// NewGeminiClient returns a client with defaults applied. An empty key is
// accepted; calls fail with a 401 CallError until one is configured.
func NewGeminiClient(baseURL, apiKey string) *GeminiClient {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultGeminiBaseURL
	}
	return &GeminiClient{
		BaseURL:     u,
		APIKey:      strings.TrimSpace(apiKey),
		TextModel:   defaultTextModel,
		ChatModel:   defaultTextModel,
		VisionModel: defaultVisionModel,
	}
}

// ImageDescription is the result of DescribeImage.
type ImageDescription struct {
	Description string
	ImageData   string
}

// GenerateText produces free-form text for prompt.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := generateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &textGeneration,
	}
	return c.generate(ctx, c.TextModel, req)
}

// Chat sends a single-turn conversation (no history) and returns the reply.
func (c *GeminiClient) Chat(ctx context.Context, message string) (string, error) {
	req := generateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: message}}}},
		GenerationConfig: &chatGeneration,
	}
	return c.generate(ctx, c.ChatModel, req)
}

// DescribeImage asks the vision model to describe imageBase64 (raw base64 or
// a data URL). Without an image only the prompt is sent. An empty model
// answer falls back to the prompt.
func (c *GeminiClient) DescribeImage(ctx context.Context, prompt, imageBase64 string) (*ImageDescription, error) {
	text := strings.TrimSpace(prompt)
	if text == "" {
		text = defaultImagePrompt
	}
	parts := []geminiPart{{Text: text}}
	if img := strings.TrimSpace(imageBase64); img != "" {
		mime, data := splitDataURL(img)
		parts = append(parts, geminiPart{InlineData: &inlineData{MimeType: mime, Data: data}})
	}

	desc, err := c.generate(ctx, c.VisionModel, generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	})
	if err != nil {
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Reason != reasonEmptyText {
			return nil, err
		}
		desc = text
	}

	out := &ImageDescription{Description: desc, ImageData: imageBase64}
	if strings.TrimSpace(imageBase64) == "" {
		out.ImageData = PlaceholderImageData
	}
	return out, nil
}

func (c *GeminiClient) generate(ctx context.Context, model string, payload generateContentRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("gemini client not configured")
	}
	if c.APIKey == "" {
		return "", &CallError{Provider: ProviderGemini, StatusCode: http.StatusUnauthorized, Message: "api key is not configured"}
	}
	if strings.TrimSpace(model) == "" {
		model = defaultTextModel
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/models/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, status, err := do(c.HTTPClient, httpReq)
	if err != nil {
		return "", &CallError{Provider: ProviderGemini, Message: "request failed", Err: err}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		msg, retry := parseAPIError(respBody)
		return "", &CallError{Provider: ProviderGemini, StatusCode: status, Message: msg, RetryDelay: retry, RawResponse: respBody}
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &FormatError{Provider: ProviderGemini, Reason: "invalid JSON"}
	}
	return parsed.firstText()
}

// splitDataURL returns the MIME type and payload of a data URL; bare base64
// is assumed to be PNG.
func splitDataURL(s string) (mime, data string) {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		if head, payload, ok := strings.Cut(rest, ","); ok {
			mime = strings.TrimSuffix(head, ";base64")
			if mime == "" {
				mime = "image/png"
			}
			return mime, payload
		}
	}
	return "image/png", s
}

func do(client *http.Client, req *http.Request) ([]byte, int, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return b, resp.StatusCode, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
