package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pearltechai/ai-travel-assistant/internal/geo"
	"github.com/pearltechai/ai-travel-assistant/internal/pipeline"
	"github.com/pearltechai/ai-travel-assistant/internal/session"
)

// maxRecordingBytes caps one uploaded utterance.
const maxRecordingBytes = 25 << 20

// Server exposes the conversation pipeline over HTTP. It plays the role the
// screen layer plays on a device: it decides which pipeline operation runs for
// each client gesture and refuses gestures while a turn is busy.
type Server struct {
	manager *session.Manager
	router  *echo.Echo
}

// New constructs the HTTP server with routes.
func New(manager *session.Manager) *Server {
	s := &Server{manager: manager, router: newRouter()}

	e := s.router
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/sessions", s.openSession)
	e.GET("/sessions/:id/transcript", s.transcript)
	e.POST("/sessions/:id/voice", s.voiceTurn)
	e.GET("/sessions/:id/audio", s.replyAudio)
	e.GET("/sessions/:id/events", s.events)
	e.DELETE("/sessions/:id", s.closeSession)

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

type openSessionRequest struct {
	Coordinates string `json:"coordinates"`
}

type openSessionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// openSession validates the coordinate text, opens a session and runs the
// seed turn. Invalid coordinates never reach the provider.
func (s *Server) openSession(c echo.Context) error {
	var req openSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	coord, ok := geo.Parse(req.Coordinates)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid coordinates"})
	}

	sess := s.manager.Open(coord)
	summary, err := sess.Pipeline.Seed(c.Request().Context(), coord)
	if err != nil {
		c.Echo().Logger.Errorf("seed turn failed for %s: %v", sess.ID, err)
		s.manager.Close(sess.ID)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "could not load this location"})
	}

	return c.JSON(http.StatusCreated, openSessionResponse{
		ID:          sess.ID,
		Name:        summary.Name,
		Description: summary.Description,
	})
}

type transcriptResponse struct {
	Title string      `json:"title"`
	Turns interface{} `json:"turns"`
}

func (s *Server) transcript(c echo.Context) error {
	sess, ok := s.manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown session"})
	}
	return c.JSON(http.StatusOK, transcriptResponse{
		Title: sess.Pipeline.Title(),
		Turns: sess.Pipeline.Visible(),
	})
}

// voiceTurn runs one talk/stop cycle: the request body is the captured
// utterance. Failures after capture are swallowed here the way the voice loop
// swallows them on a device; the client just sees the unchanged transcript.
func (s *Server) voiceTurn(c echo.Context) error {
	sess, ok := s.manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown session"})
	}

	pipe := sess.Pipeline
	if err := pipe.StartRecording(c.Request().Context()); err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			return c.JSON(http.StatusConflict, errorResponse{Error: "a turn is already in flight"})
		}
		// Capture failure reverts silently to the not-recording state.
		return c.NoContent(http.StatusNoContent)
	}

	if _, err := io.Copy(sess.Recorder, io.LimitReader(c.Request().Body, maxRecordingBytes)); err != nil {
		c.Echo().Logger.Errorf("ingesting recording for %s: %v", sess.ID, err)
	}

	if err := pipe.StopAndRespond(c.Request().Context()); err != nil {
		// Swallowed: the voice loop surfaces no error, only the event feed
		// carries it.
		c.Echo().Logger.Warnf("voice turn failed for %s: %v", sess.ID, err)
	}

	return c.JSON(http.StatusOK, transcriptResponse{
		Title: pipe.Title(),
		Turns: pipe.Visible(),
	})
}

// replyAudio serves the synthesized speech currently occupying the playback
// slot.
func (s *Server) replyAudio(c echo.Context) error {
	sess, ok := s.manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown session"})
	}
	path, ok := sess.Audio.NowPlaying()
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "nothing playing"})
	}
	return c.File(path)
}

// closeSession tears the session down. Closure is refused while a turn or
// recording is in flight, mirroring blocked back-navigation.
func (s *Server) closeSession(c echo.Context) error {
	sess, ok := s.manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown session"})
	}
	if sess.Pipeline.Busy() {
		return c.JSON(http.StatusConflict, errorResponse{Error: "a turn is in flight"})
	}
	s.manager.Close(sess.ID)
	return c.NoContent(http.StatusNoContent)
}
