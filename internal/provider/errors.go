package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means no API key was configured. Checked before any
	// network call is attempted.
	ErrMissingCredential = errors.New("provider api key missing")

	// ErrEmptyReply means the provider answered successfully but carried no
	// usable text content.
	ErrEmptyReply = errors.New("provider returned empty reply")

	// ErrMissingFile means the audio file handed to transcription does not exist.
	ErrMissingFile = errors.New("audio file missing")
)

// APIError reports a non-success HTTP status from any of the provider endpoints.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error: status=%d body=%s", e.Status, e.Body)
}
