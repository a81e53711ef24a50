package chat

import "sync"

// Conversation roles, matching the chat-completions wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message. Immutable once appended.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is the append-only transcript for one location conversation. It
// always starts with a single system turn and is never reordered; the full
// sequence is what gets sent to the chat provider.
type History struct {
	mu    sync.Mutex
	turns []Turn
}

// NewHistory creates a transcript seeded with the system instruction.
func NewHistory(systemPrompt string) *History {
	return &History{turns: []Turn{{Role: RoleSystem, Content: systemPrompt}}}
}

// Append adds one turn at the end of the transcript.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the full transcript, system turn included.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Visible returns the transcript without the system turn, for display.
func (h *History) Visible() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns)-1)
	copy(out, h.turns[1:])
	return out
}

// Len reports the number of turns including the system turn.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
