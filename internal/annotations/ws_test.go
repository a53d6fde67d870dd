package annotations

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annotationServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/annotations/ws", WSHandler(hub))
	router.GET("/annotations/history", HistoryHandler(hub))
	return httptest.NewServer(router)
}

func dialWS(t *testing.T, srv *httptest.Server, module, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/annotations/ws?module=" + module + "&user=" + user
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func readNote(t *testing.T, ws *websocket.Conn) Note {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var note Note
	require.NoError(t, ws.ReadJSON(&note))
	return note
}

func TestAnnotationBroadcastAndHistory(t *testing.T) {
	hub := NewHub(0)
	srv := annotationServer(t, hub)
	defer srv.Close()

	ws := dialWS(t, srv, "time", "ana")
	defer ws.Close()

	// the joining connection sees its own join event
	join := readNote(t, ws)
	assert.Equal(t, "user_join", join.Type)
	assert.Equal(t, "ana", join.User)

	require.NoError(t, ws.WriteJSON(map[string]string{"text": "peak looks early", "user": "ana"}))

	note := readNote(t, ws)
	assert.Equal(t, "note", note.Type)
	assert.Equal(t, "time", note.Module)
	assert.Equal(t, "peak looks early", note.Text)

	// only notes enter history, join events do not
	history := hub.History("time")
	require.Len(t, history, 1)
	assert.Equal(t, "peak looks early", history[0].Text)

	assert.Nil(t, hub.History("place"))
}

func TestAnnotationModulesAreIsolated(t *testing.T) {
	hub := NewHub(0)
	srv := annotationServer(t, hub)
	defer srv.Close()

	timeWS := dialWS(t, srv, "time", "ana")
	defer timeWS.Close()
	placeWS := dialWS(t, srv, "place", "ben")
	defer placeWS.Close()

	readNote(t, timeWS)  // own join
	readNote(t, placeWS) // own join

	require.NoError(t, timeWS.WriteJSON(map[string]string{"text": "note for time"}))
	readNote(t, timeWS)

	// the place viewer never sees it
	require.NoError(t, placeWS.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray Note
	err := placeWS.ReadJSON(&stray)
	assert.Error(t, err, "no cross-module traffic expected")

	assert.Len(t, hub.History("time"), 1)
	assert.Empty(t, hub.History("place"))
}

func TestHistoryHandlerRequiresModule(t *testing.T) {
	hub := NewHub(0)
	srv := annotationServer(t, hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/annotations/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubTrimsHistory(t *testing.T) {
	hub := NewHub(2)
	hub.boardLocked("time") // create the board directly

	for _, text := range []string{"one", "two", "three"} {
		hub.Broadcast(Note{Type: "note", Module: "time", User: "ana", Text: text})
	}

	history := hub.History("time")
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Text)
	assert.Equal(t, "three", history[1].Text)
}
