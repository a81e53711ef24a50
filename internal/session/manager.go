package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pearltechai/ai-travel-assistant/internal/audio"
	"github.com/pearltechai/ai-travel-assistant/internal/geo"
	"github.com/pearltechai/ai-travel-assistant/internal/pipeline"
)

// Session binds one location conversation to its pipeline and audio resources.
// It lives from the moment coordinates are submitted until the client leaves.
type Session struct {
	ID        string
	Coord     geo.Coordinate
	CreatedAt time.Time
	Pipeline  *pipeline.Pipeline
	Audio     *audio.Controller
	Recorder  *audio.FileRecorder
}

// Manager owns all live sessions.
type Manager struct {
	provider pipeline.Provider
	voice    string
	cacheDir string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager creating sessions against the given provider.
func NewManager(p pipeline.Provider, voice, cacheDir string) *Manager {
	return &Manager{
		provider: p,
		voice:    voice,
		cacheDir: cacheDir,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session for the given coordinates. The seed turn is the
// caller's next step; an Open session with a failed seed holds just the
// system turn.
func (m *Manager) Open(coord geo.Coordinate) *Session {
	rec := audio.NewFileRecorder(m.cacheDir)
	ctrl := audio.NewController(nil, rec)
	s := &Session{
		ID:        uuid.NewString(),
		Coord:     coord,
		CreatedAt: time.Now(),
		Pipeline:  pipeline.New(m.provider, ctrl, m.voice),
		Audio:     ctrl,
		Recorder:  rec,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears down a session's audio resources and removes it. In-flight
// provider calls are not aborted; their results are discarded with the
// session.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Audio.Teardown()
	s.Pipeline.CloseEvents()
	return true
}

// CloseAll tears down every live session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Audio.Teardown()
		s.Pipeline.CloseEvents()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
