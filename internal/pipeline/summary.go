package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LocationSummary is the parsed shape of the first assistant reply.
type LocationSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrMalformedReply means the provider's reply was not the required strict
// JSON summary, directly or inside a fenced code block.
var ErrMalformedReply = errors.New("reply is not a location summary")

// parseLocationSummary tries direct JSON parsing first, then the contents of
// the first fenced code block. No further fallback is attempted.
func parseLocationSummary(reply string) (LocationSummary, error) {
	if s, ok := decodeSummary(strings.TrimSpace(reply)); ok {
		return s, nil
	}
	if block, ok := fencedBlock(reply); ok {
		if s, ok := decodeSummary(block); ok {
			return s, nil
		}
	}
	return LocationSummary{}, fmt.Errorf("%w: %q", ErrMalformedReply, reply)
}

func decodeSummary(s string) (LocationSummary, bool) {
	var out LocationSummary
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return LocationSummary{}, false
	}
	if out.Name == "" || out.Description == "" {
		return LocationSummary{}, false
	}
	return out, true
}

// fencedBlock extracts the contents of the first ``` ... ``` block, dropping
// an optional json language tag.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	body := s[start+3:]
	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}
	body = strings.TrimSpace(body[:end])
	body = strings.TrimSpace(strings.TrimPrefix(body, "json"))
	return body, body != ""
}
