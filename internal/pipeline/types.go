package pipeline

import (
	"context"

	"github.com/pearltechai/ai-travel-assistant/internal/chat"
)

// Provider is the set of remote calls one assistant turn needs.
type Provider interface {
	ChatReply(ctx context.Context, turns []chat.Turn) (string, error)
	SynthesizeSpeech(ctx context.Context, text, voice string) (string, error)
	Transcribe(ctx context.Context, path string) (string, error)
}

// AudioSession owns the single playback and recording resource for the
// conversation.
type AudioSession interface {
	Play(path string) error
	StartRecording(ctx context.Context) error
	StopRecording() (string, bool)
}

// State names the step a turn is currently in.
type State string

const (
	StateIdle                  State = "idle"
	StateRecording             State = "recording"
	StateAwaitingTranscription State = "awaiting_transcription"
	StateAwaitingChatReply     State = "awaiting_chat_reply"
	StateAwaitingSynthesis     State = "awaiting_synthesis"
	StatePlaying               State = "playing"
)

// Event is one entry on the pipeline's feed: a state change or an error that
// the surface may choose not to display.
type Event struct {
	Type    string `json:"type"` // "state" or "error"
	State   State  `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
}
