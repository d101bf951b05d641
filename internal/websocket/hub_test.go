package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startHub spins up a hub behind a test HTTP server
func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	go hub.Run()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("deviceId"))
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(server.Close)

	return hub, server
}

// dial connects a websocket client to the test server
func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// readEvent reads frames until one matches the wanted event. The
// write pump may batch several messages into one frame, so each frame
// is decoded as a stream.
func readEvent(t *testing.T, conn *websocket.Conn, event string) Message {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	conn.SetReadDeadline(deadline)

	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		dec := json.NewDecoder(bytes.NewReader(data))
		for dec.More() {
			var msg Message
			require.NoError(t, dec.Decode(&msg))
			if msg.Event == event {
				return msg
			}
		}
		// skip connected greetings and heartbeats
		require.True(t, time.Now().Before(deadline), "timed out waiting for %s", event)
	}
}

func TestHubGreetsOnConnect(t *testing.T) {
	_, server := startHub(t)
	conn := dial(t, server)

	msg := readEvent(t, conn, MessageTypeConnected)
	assert.Equal(t, MessageTypeConnected, msg.Event)
}

func TestBroadcastAllReachesEveryClient(t *testing.T) {
	hub, server := startHub(t)

	first := dial(t, server)
	second := dial(t, server)
	readEvent(t, first, MessageTypeConnected)
	readEvent(t, second, MessageTypeConnected)

	hub.BroadcastAll("series-created", map[string]string{"seriesId": "1234567890"})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readEvent(t, conn, "series-created")

		var payload map[string]string
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		assert.Equal(t, "1234567890", payload["seriesId"])
	}
}

func TestSeriesRoomScoping(t *testing.T) {
	hub, server := startHub(t)

	member := dial(t, server)
	outsider := dial(t, server)
	readEvent(t, member, MessageTypeConnected)
	readEvent(t, outsider, MessageTypeConnected)

	// member joins the room over the wire protocol
	require.NoError(t, member.WriteJSON(Message{
		Event:    MessageTypeJoinSeries,
		SeriesID: "1234567890",
	}))

	require.Eventually(t, func() bool {
		return hub.RoomSize("1234567890") == 1
	}, 3*time.Second, 10*time.Millisecond)

	hub.BroadcastSeries("1234567890", "session-updated", map[string]string{"sessionId": "1111111111"})

	msg := readEvent(t, member, "session-updated")
	assert.Equal(t, "1234567890", msg.SeriesID)

	// the outsider only ever sees its greeting and pings
	outsider.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		_, data, err := outsider.ReadMessage()
		if err != nil {
			break
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		for dec.More() {
			var stray Message
			require.NoError(t, dec.Decode(&stray))
			assert.NotEqual(t, "session-updated", stray.Event)
		}
	}
}

func TestLeaveSeriesStopsDelivery(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server)
	readEvent(t, conn, MessageTypeConnected)

	require.NoError(t, conn.WriteJSON(Message{Event: MessageTypeJoinSeries, SeriesID: "1234567890"}))
	require.Eventually(t, func() bool {
		return hub.RoomSize("1234567890") == 1
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Message{Event: MessageTypeLeaveSeries, SeriesID: "1234567890"}))
	require.Eventually(t, func() bool {
		return hub.RoomSize("1234567890") == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestDisconnectCleansRooms(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server)
	readEvent(t, conn, MessageTypeConnected)

	require.NoError(t, conn.WriteJSON(Message{Event: MessageTypeJoinSeries, SeriesID: "1234567890"}))
	require.Eventually(t, func() bool {
		return hub.RoomSize("1234567890") == 1
	}, 3*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.RoomSize("1234567890") == 0 && hub.GetOnlineCount() == 0
	}, 3*time.Second, 10*time.Millisecond)
}
