package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/game/session"
	"github.com/cory-johannsen/questweaver/internal/game/state"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Clients only send control frames.
	maxMessageSize = 4 * 1024
)

// stream upgrades to a WebSocket and pushes a sessionView after every
// mutation of the session. The feed ends when the client disconnects or the
// session closes.
func (r *Router) stream(c *gin.Context) {
	s, err := r.sessions.Get(c.Param("id"))
	if err != nil {
		r.fail(c, err)
		return
	}
	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", zap.String("session", s.ID()), zap.Error(err))
		return
	}

	snapshots, cancel := s.Subscribe()
	defer cancel()

	logger := r.logger.With(zap.String("session", s.ID()), zap.String("remote", c.ClientIP()))
	logger.Info("stream connected")

	done := make(chan struct{})
	go readPump(conn, done, logger)
	writePump(conn, s, snapshots, done, logger)
	logger.Info("stream disconnected")
}

// readPump consumes control frames so pongs extend the read deadline.
//
// Postcondition: done is closed when the connection stops being readable.
func readPump(conn *websocket.Conn, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("stream read error", zap.Error(err))
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, s *session.Session, snapshots <-chan state.GameState, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case gs, ok := <-snapshots:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(newSessionView(s, gs)); err != nil {
				logger.Debug("stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
