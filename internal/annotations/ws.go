package annotations

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type incomingNote struct {
	Text string `json:"text"`
	User string `json:"user"`
}

func HistoryHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		module := strings.TrimSpace(c.Query("module"))
		if module == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "module is required"})
			return
		}

		c.JSON(http.StatusOK, hub.History(module))
	}
}

func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		module := strings.TrimSpace(c.Query("module"))
		if module == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "module is required"})
			return
		}

		user := strings.TrimSpace(c.Query("user"))
		if user == "" {
			user = "anon"
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		history := hub.Join(module, ws, user)
		for _, note := range history {
			_ = ws.WriteJSON(note)
		}

		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				break
			}

			var incoming incomingNote
			if err := json.Unmarshal(payload, &incoming); err != nil {
				text := strings.TrimSpace(string(payload))
				if text == "" {
					continue
				}
				hub.Broadcast(Note{
					Type:   "note",
					Module: module,
					User:   hub.User(module, ws),
					Text:   text,
					At:     time.Now().UTC(),
				})
				continue
			}

			text := strings.TrimSpace(incoming.Text)
			if text == "" {
				continue
			}

			noteUser := strings.TrimSpace(incoming.User)
			if noteUser == "" {
				noteUser = hub.User(module, ws)
			}

			hub.Broadcast(Note{
				Type:   "note",
				Module: module,
				User:   noteUser,
				Text:   text,
				At:     time.Now().UTC(),
			})
		}

		hub.Leave(module, ws)
	}
}
