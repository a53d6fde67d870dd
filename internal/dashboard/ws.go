package dashboard

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // OK for demo; restrict in production
	},
}

// WSHandler attaches a browser viewer to the session event feed.
// Viewers are read-only: state changes go through the module
// endpoints, which broadcast the change back through the hub.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.AddWS(ws)
		log.Printf("[dashboard] viewer connected: %s", c.ClientIP())

		_ = ws.WriteJSON(welcomeMessage{Type: "welcome", Transport: "websocket", Viewers: hub.Stats()})

		// drain until the viewer goes away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Printf("[dashboard] viewer disconnected: %s", c.ClientIP())
	}
}
