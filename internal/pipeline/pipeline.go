package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/pearltechai/ai-travel-assistant/internal/chat"
	"github.com/pearltechai/ai-travel-assistant/internal/geo"
)

// systemPrompt is the fixed instruction opening every location conversation.
const systemPrompt = `You are a friendly and knowledgeable travel companion. ` +
	`When the user sends geographic coordinates, respond ONLY with strict JSON of the form ` +
	`{"name":"<place name>","description":"<two or three sentence spoken-style description of the place>"} ` +
	`with no other text. For every later message, answer conversationally in one or two short paragraphs.`

// ErrBusy is returned while another turn is in flight. The caller is expected
// to reject new talk/stop and back-navigation gestures during that window.
var ErrBusy = errors.New("pipeline: turn already in flight")

// Pipeline runs one assistant turn at a time for a single location
// conversation: seed turns from coordinates and follow-up voice turns. A
// single-slot busy guard enforces that no two turns ever overlap; the guard
// lives here so correctness does not depend on the surface disabling controls.
type Pipeline struct {
	provider Provider
	audio    AudioSession
	voice    string
	history  *chat.History

	mu     sync.Mutex
	busy   bool
	state  State
	title  string
	closed bool

	events chan Event
}

// New builds a Pipeline with a fresh transcript holding only the system turn.
func New(p Provider, audio AudioSession, voice string) *Pipeline {
	return &Pipeline{
		provider: p,
		audio:    audio,
		voice:    voice,
		history:  chat.NewHistory(systemPrompt),
		state:    StateIdle,
		events:   make(chan Event, 64),
	}
}

// Events exposes state transitions and swallowed errors. The surface may
// ignore it; tests and live feeds consume it.
func (p *Pipeline) Events() <-chan Event { return p.events }

// CloseEvents ends the event feed. Called on session teardown.
func (p *Pipeline) CloseEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

// Title returns the location name established by a successful seed turn.
func (p *Pipeline) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// Visible returns the transcript without the system turn.
func (p *Pipeline) Visible() []chat.Turn { return p.history.Visible() }

// TranscriptLen reports the full transcript length, system turn included.
func (p *Pipeline) TranscriptLen() int { return p.history.Len() }

// Busy reports whether a turn or recording is in flight.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy || p.state == StateRecording
}

// Seed runs the first assistant turn for a location: coordinates in, a parsed
// name/description out, with the description synthesized and played. Any
// failure aborts the turn and leaves the transcript holding only the system
// turn; the commit happens only after every step succeeded.
func (p *Pipeline) Seed(ctx context.Context, coord geo.Coordinate) (LocationSummary, error) {
	if err := p.acquire(); err != nil {
		return LocationSummary{}, err
	}
	defer p.release()

	userText := coord.String()
	seedTurns := []chat.Turn{
		{Role: chat.RoleSystem, Content: systemPrompt},
		{Role: chat.RoleUser, Content: userText},
	}

	p.setState(StateAwaitingChatReply)
	reply, err := p.provider.ChatReply(ctx, seedTurns)
	if err != nil {
		return LocationSummary{}, p.fail(err)
	}

	summary, err := parseLocationSummary(reply)
	if err != nil {
		return LocationSummary{}, p.fail(err)
	}

	p.setState(StateAwaitingSynthesis)
	path, err := p.provider.SynthesizeSpeech(ctx, summary.Description, p.voice)
	if err != nil {
		return LocationSummary{}, p.fail(err)
	}

	p.setState(StatePlaying)
	if err := p.audio.Play(path); err != nil {
		return LocationSummary{}, p.fail(err)
	}

	// Only the description enters the transcript; the name becomes the title.
	p.history.Append(chat.RoleUser, userText)
	p.history.Append(chat.RoleAssistant, summary.Description)
	p.mu.Lock()
	p.title = summary.Name
	p.mu.Unlock()

	return summary, nil
}

// StartRecording begins capturing the user's next utterance. While recording,
// new turns and session closure are rejected via Busy.
func (p *Pipeline) StartRecording(ctx context.Context) error {
	p.mu.Lock()
	if p.busy || p.state == StateRecording {
		p.mu.Unlock()
		return ErrBusy
	}
	p.mu.Unlock()

	if err := p.audio.StartRecording(ctx); err != nil {
		// Capture failure leaves the not-recording state unchanged.
		p.emit(Event{Type: "error", Message: err.Error()})
		return err
	}
	p.setState(StateRecording)
	return nil
}

// StopAndRespond ends the capture and runs one follow-up turn: transcribe,
// chat, synthesize, play. Failures are returned for the surface to swallow,
// and partial transcript appends are deliberately kept: the user turn stays
// even when the chat call after it fails. The recording file is deleted no
// matter which step failed.
func (p *Pipeline) StopAndRespond(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateRecording {
		p.mu.Unlock()
		return nil
	}
	if p.busy {
		p.mu.Unlock()
		return ErrBusy
	}
	p.busy = true
	p.mu.Unlock()
	defer p.release()

	recording, ok := p.audio.StopRecording()
	if !ok {
		// Nothing captured; the cycle aborts with no transcript change.
		p.setState(StateIdle)
		return nil
	}
	defer func() {
		if err := os.Remove(recording); err != nil && !os.IsNotExist(err) {
			log.Printf("pipeline: removing recording: %v", err)
		}
	}()

	p.setState(StateAwaitingTranscription)
	text, err := p.provider.Transcribe(ctx, recording)
	if err != nil {
		return p.fail(err)
	}

	// Append before the chat call so the provider sees the new user turn.
	p.history.Append(chat.RoleUser, text)

	p.setState(StateAwaitingChatReply)
	reply, err := p.provider.ChatReply(ctx, p.history.Turns())
	if err != nil {
		return p.fail(err)
	}
	p.history.Append(chat.RoleAssistant, reply)

	p.setState(StateAwaitingSynthesis)
	path, err := p.provider.SynthesizeSpeech(ctx, reply, p.voice)
	if err != nil {
		return p.fail(err)
	}

	p.setState(StatePlaying)
	if err := p.audio.Play(path); err != nil {
		return p.fail(err)
	}
	return nil
}

func (p *Pipeline) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busy || p.state == StateRecording {
		return ErrBusy
	}
	p.busy = true
	return nil
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.busy = false
	p.state = StateIdle
	p.mu.Unlock()
	p.emit(Event{Type: "state", State: StateIdle})
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.emit(Event{Type: "state", State: s})
}

func (p *Pipeline) fail(err error) error {
	p.emit(Event{Type: "error", Message: err.Error()})
	return err
}

// emit never blocks; slow or absent consumers just miss events.
func (p *Pipeline) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}
