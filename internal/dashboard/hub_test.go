package dashboard

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsNewlineDelimitedJSON(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server)
	require.Equal(t, 1, hub.Count())

	go hub.Broadcast(SessionEvent{Type: EventLayerSwitched, Layer: "Province"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(client).ReadBytes('\n')
	require.NoError(t, err)

	var ev SessionEvent
	require.NoError(t, json.Unmarshal(line, &ev))
	assert.Equal(t, EventLayerSwitched, ev.Type)
	assert.Equal(t, "Province", ev.Layer)
	assert.False(t, ev.At.IsZero(), "events are timestamped on the way out")
}

func TestHubEvictsDeadConnections(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	hub.Add(server)
	require.NoError(t, client.Close())

	// write fails against the closed pipe, the conn gets dropped
	hub.Broadcast(SessionEvent{Type: EventSessionStarted})
	assert.Equal(t, 0, hub.Count())
}

func TestHubWelcomeReportsViewerCounts(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	hub.Add(server)

	go hub.Welcome(server)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(client).ReadBytes('\n')
	require.NoError(t, err)

	var msg struct {
		Type      string `json:"type"`
		Transport string `json:"transport"`
		Viewers   Stats  `json:"viewers"`
	}
	require.NoError(t, json.Unmarshal(line, &msg))
	assert.Equal(t, "welcome", msg.Type)
	assert.Equal(t, "tcp", msg.Transport)
	assert.Equal(t, 1, msg.Viewers.TCPClients)
}

func TestHubStats(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	hub.Add(server)
	stats := hub.Stats()
	assert.Equal(t, 1, stats.TCPClients)
	assert.Equal(t, 0, stats.WSClients)

	hub.Remove(server)
	assert.Equal(t, 0, hub.Count())
}
