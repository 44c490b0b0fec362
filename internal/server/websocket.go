package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/imamik/rosahcp/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleJobEvents streams the job's transitions over a websocket, starting
// with a snapshot so the client does not miss transitions that happened
// before it connected.
func (s *Server) handleJobEvents(c *gin.Context) {
	id := c.Param("id")

	// Subscribe before snapshotting so no transition falls in the gap.
	sub := s.manager.Subscribe(id)
	defer s.manager.Unsubscribe(sub)

	snap, err := s.manager.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error(err, "failed to upgrade websocket", "job", id)
		return
	}
	defer func() { _ = ws.Close() }()
	s.log.V(1).Info("event stream connected", "job", id)

	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(gin.H{"type": "snapshot", "job": snap}); err != nil {
		return
	}

	// Drain the read side so close frames are processed.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(gin.H{"type": "event", "event": ev}); err != nil {
				s.log.V(1).Info("event stream disconnected", "job", id, "reason", err.Error())
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-disconnected:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
