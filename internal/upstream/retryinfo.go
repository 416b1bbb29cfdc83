package upstream

import (
	"encoding/json"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/encoding/protojson"
)

// apiErrorEnvelope is the google.rpc.Status-shaped error body returned by the
// generative-language API.
type apiErrorEnvelope struct {
	Error struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Status  string            `json:"status"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

// parseAPIError extracts the human message and the RetryInfo hint (if any)
// from an error body. Unparseable bodies yield the trimmed raw text.
func parseAPIError(body []byte) (msg string, retry time.Duration) {
	var env apiErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		return strings.TrimSpace(string(body)), 0
	}
	return env.Error.Message, retryHint(env.Error.Details)
}

// retryHint scans error details for a google.rpc.RetryInfo entry.
func retryHint(details []json.RawMessage) time.Duration {
	for _, raw := range details {
		var d struct {
			Type       string          `json:"@type"`
			RetryDelay json.RawMessage `json:"retryDelay"`
		}
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		if !strings.Contains(d.Type, "RetryInfo") || len(d.RetryDelay) == 0 {
			continue
		}
		var info errdetails.RetryInfo
		opts := protojson.UnmarshalOptions{DiscardUnknown: true}
		if err := opts.Unmarshal([]byte(`{"retryDelay":`+string(d.RetryDelay)+`}`), &info); err != nil {
			continue
		}
		if dur := info.GetRetryDelay().AsDuration(); dur > 0 {
			return dur
		}
	}
	return 0
}
