package upstream

import "strings"

type generateContentRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

const (
	reasonNoCandidates = "no candidates"
	reasonNoParts      = "no content parts"
	reasonEmptyText    = "empty text"
)

// firstText returns the trimmed text of the first part of the first candidate.
func (r *generateContentResponse) firstText() (string, error) {
	if len(r.Candidates) == 0 {
		return "", &FormatError{Provider: ProviderGemini, Reason: reasonNoCandidates}
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", &FormatError{Provider: ProviderGemini, Reason: reasonNoParts}
	}
	text := strings.TrimSpace(parts[0].Text)
	if text == "" {
		return "", &FormatError{Provider: ProviderGemini, Reason: reasonEmptyText}
	}
	return text, nil
}
