package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connPair returns the two ends of a live websocket connection.
func connPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSide.Close() })

	serverSide = <-accepted
	t.Cleanup(func() { _ = serverSide.Close() })
	return serverSide, clientSide
}

func newHubClient(t *testing.T, id string) (*Client, *websocket.Conn) {
	t.Helper()

	serverSide, clientSide := connPair(t)
	return newClient(id, serverSide), clientSide
}

func TestHubAddRemoveCount(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	a, _ := newHubClient(t, "a")
	b, _ := newHubClient(t, "b")

	hub.Add(a)
	hub.Add(b)
	assert.Equal(t, 2, hub.Count())

	hub.Remove(a)
	assert.Equal(t, 1, hub.Count())

	// Removing twice is harmless.
	hub.Remove(a)
	assert.Equal(t, 1, hub.Count())
}

func TestHubJoinTracksRoomMembership(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	a, _ := newHubClient(t, "a")
	b, _ := newHubClient(t, "b")
	c, _ := newHubClient(t, "c")
	for _, client := range []*Client{a, b, c} {
		hub.Add(client)
	}

	hub.Join(a, "team1")
	a.room = "team1"
	hub.Join(b, "team1")
	b.room = "team1"
	hub.Join(c, "team2")
	c.room = "team2"

	assert.Len(t, hub.Members("team1"), 2)
	assert.Len(t, hub.Members("team2"), 1)
	assert.Empty(t, hub.Members("team3"))

	hub.Remove(b)
	assert.Len(t, hub.Members("team1"), 1)
	assert.Equal(t, "a", hub.Members("team1")[0].ID)
}

func TestHubBroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	a, aPeer := newHubClient(t, "a")
	b, bPeer := newHubClient(t, "b")
	c, cPeer := newHubClient(t, "c")
	for _, client := range []*Client{a, b, c} {
		hub.Add(client)
		go client.writePump()
	}

	hub.Join(a, "team1")
	hub.Join(b, "team1")
	hub.Join(c, "team2")

	hub.Broadcast("team1", []byte("hello"))

	for _, peer := range []*websocket.Conn{aPeer, bPeer} {
		require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := peer.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	}

	require.NoError(t, cPeer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := cPeer.ReadMessage()
	require.Error(t, err, "other room must not receive the frame")
}

func TestHubBroadcastDropsClientWithFullBuffer(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	// No writePump: the buffer fills and stays full.
	stuck, _ := newHubClient(t, "stuck")
	hub.Add(stuck)
	hub.Join(stuck, "team1")

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, stuck.enqueue([]byte("fill")))
	}

	hub.Broadcast("team1", []byte("overflow"))

	stuck.mu.Lock()
	closed := stuck.closed
	stuck.mu.Unlock()
	assert.True(t, closed, "client with a full buffer is dropped")
}

func TestClientEnqueueAfterClose(t *testing.T) {
	client, _ := newHubClient(t, "a")
	client.close()

	// A second close is a no-op, and a late enqueue is refused rather than
	// reported as delivered.
	client.close()
	assert.False(t, client.enqueue([]byte("late")))
	assert.True(t, client.isClosed())
}

func TestHubBroadcastDoesNotCountClosedClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	live, livePeer := newHubClient(t, "live")
	gone, _ := newHubClient(t, "gone")
	hub.Add(live)
	hub.Add(gone)
	go live.writePump()

	hub.Join(live, "team1")
	hub.Join(gone, "team1")
	gone.close()

	delivered := hub.Broadcast("team1", []byte("hello"))
	assert.Equal(t, 1, delivered, "closed members are not deliveries")

	require.NoError(t, livePeer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := livePeer.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
