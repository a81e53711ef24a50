package audio

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
)

// Playback is a handle to one playing sound.
type Playback interface {
	Stop() error
	Release() error
}

// Player begins playback of an audio file and returns without waiting for it
// to finish.
type Player interface {
	Play(path string) (Playback, error)
}

// Recorder captures one utterance into a file.
type Recorder interface {
	Start(ctx context.Context) error
	// Stop finalizes the capture and returns the file path. An empty path
	// means the capture produced nothing.
	Stop() (string, error)
}

// ErrRecorderBusy is returned when a capture is already in progress.
var ErrRecorderBusy = errors.New("audio: recording already active")

// Controller serializes access to the playback and recording resources: at
// most one active sound and one active capture at a time, with guaranteed
// teardown. It exclusively owns both handles.
type Controller struct {
	player   Player
	recorder Recorder

	mu         sync.Mutex
	playing    Playback
	nowPlaying string
	recording  bool
}

// NewController builds a Controller around the given device implementations.
func NewController(p Player, r Recorder) *Controller {
	if p == nil {
		p = nopPlayer{}
	}
	return &Controller{player: p, recorder: r}
}

// Play stops and releases any currently playing sound, then begins playback of
// the new file. It does not block until playback completes.
func (c *Controller) Play(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPlaybackLocked()
	pb, err := c.player.Play(path)
	if err != nil {
		return err
	}
	c.playing = pb
	c.nowPlaying = path
	return nil
}

// NowPlaying returns the path of the sound currently held by the playback slot.
func (c *Controller) NowPlaying() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowPlaying, c.playing != nil
}

// StartRecording begins audio capture. On failure the controller stays in the
// not-recording state.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return ErrRecorderBusy
	}
	if err := c.recorder.Start(ctx); err != nil {
		return err
	}
	c.recording = true
	return nil
}

// StopRecording finalizes the active capture and returns its file location. It
// reports false when no recording is active or finalization produced nothing.
func (c *Controller) StopRecording() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return "", false
	}
	c.recording = false
	path, err := c.recorder.Stop()
	if err != nil || path == "" {
		return "", false
	}
	return path, true
}

// Recording reports whether a capture is currently active.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Teardown unconditionally releases any active sound and capture. Every step
// is best-effort; one failure never prevents the next release from running.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPlaybackLocked()
	if c.recording {
		c.recording = false
		if path, err := c.recorder.Stop(); err == nil && path != "" {
			_ = os.Remove(path)
		}
	}
}

func (c *Controller) stopPlaybackLocked() {
	if c.playing == nil {
		return
	}
	if err := c.playing.Stop(); err != nil {
		log.Printf("audio: stop playback: %v", err)
	}
	if err := c.playing.Release(); err != nil {
		log.Printf("audio: release playback: %v", err)
	}
	c.playing = nil
	c.nowPlaying = ""
}

// nopPlayer tracks the playback slot without driving a device. The HTTP layer
// serves the current file to the client instead.
type nopPlayer struct{}

func (nopPlayer) Play(path string) (Playback, error) { return nopPlayback{}, nil }

type nopPlayback struct{}

func (nopPlayback) Stop() error    { return nil }
func (nopPlayback) Release() error { return nil }
