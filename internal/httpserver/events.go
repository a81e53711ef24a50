package httpserver

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Mobile clients connect from app webviews; origin checks stay open.
		return true
	},
}

// events streams pipeline state transitions and swallowed errors for one
// session over a WebSocket. The feed ends when the session closes.
func (s *Server) events(c echo.Context) error {
	sess, ok := s.manager.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown session"})
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		c.Echo().Logger.Errorf("ws upgrade: %v", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case ev, ok := <-sess.Pipeline.Events():
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
		}
	}
}
