package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPexelsBaseURL = "https://api.pexels.com/v1"

// Image is a single search hit.
type Image struct {
	URL          string `json:"url"`
	Photographer string `json:"photographer"`
	Alt          string `json:"alt"`
}

// PexelsClient searches stock photos.
type PexelsClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewPexelsClient returns a client with defaults applied.
func NewPexelsClient(baseURL, apiKey string) *PexelsClient {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultPexelsBaseURL
	}
	return &PexelsClient{BaseURL: u, APIKey: strings.TrimSpace(apiKey)}
}

type pexelsSearchResponse struct {
	Photos *[]struct {
		Photographer string `json:"photographer"`
		Alt          string `json:"alt"`
		Src          struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// SearchImages returns up to count photos matching query.
func (c *PexelsClient) SearchImages(ctx context.Context, query string, count int) ([]Image, error) {
	if c == nil {
		return nil, fmt.Errorf("pexels client not configured")
	}
	if c.APIKey == "" {
		return nil, &CallError{Provider: ProviderPexels, StatusCode: http.StatusUnauthorized, Message: "api key is not configured"}
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(count))
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/search?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.APIKey)

	body, status, err := do(c.HTTPClient, httpReq)
	if err != nil {
		return nil, &CallError{Provider: ProviderPexels, Message: "request failed", Err: err}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &CallError{Provider: ProviderPexels, StatusCode: status, Message: strings.TrimSpace(string(body)), RawResponse: body}
	}

	var parsed pexelsSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FormatError{Provider: ProviderPexels, Reason: "invalid JSON"}
	}
	if parsed.Photos == nil {
		return nil, &FormatError{Provider: ProviderPexels, Reason: "missing photos"}
	}

	out := make([]Image, 0, len(*parsed.Photos))
	for _, p := range *parsed.Photos {
		out = append(out, Image{URL: p.Src.Medium, Photographer: p.Photographer, Alt: p.Alt})
	}
	return out, nil
}
