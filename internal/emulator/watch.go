package emulator

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local dev harness, all origins accepted
	},
}

// handleWatch upgrades to WebSocket and streams full subtree snapshots: the
// current value immediately, then one message per change beneath the path.
func (s *Server) handleWatch(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sub, err := s.store.Subscribe(c.Request.Context(), c.Param("path"))
	if err != nil {
		conn.Close()
		return
	}

	// Read pump: only used to notice the peer going away.
	go func() {
		defer sub.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logWatchError(err)
				return
			}
		}
	}()

	defer conn.Close()
	for raw := range sub.Snapshots() {
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			sub.Close()
			return
		}
	}
}
