package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishOnlyToOwner(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := uuid.New()
	bob := uuid.New()
	upgrader := NewUpgrader(nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := uuid.MustParse(r.URL.Query().Get("user"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, userID)
		hub.Register <- client
		go client.ReadPump()
		go client.WritePump()
	}))
	defer srv.Close()

	dial := func(userID uuid.UUID) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + userID.String()
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	aliceConn := dial(alice)
	defer aliceConn.Close()
	bobConn := dial(bob)
	defer bobConn.Close()

	require.Eventually(t, func() bool {
		return hub.ConnectedClients(alice) == 1 && hub.ConnectedClients(bob) == 1
	}, time.Second, 10*time.Millisecond)

	hub.PublishEvent(alice, []byte(`{"event_type":"card_saved"}`))

	aliceConn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := aliceConn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"event_type":"card_saved"}`, string(msg))

	bobConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = bobConn.ReadMessage()
	require.Error(t, err, "bob must not receive alice's events")
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, userID)
		hub.Register <- client
		go client.ReadPump()
		go client.WritePump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	upgrader := NewUpgrader([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	require.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.test")
	require.False(t, upgrader.CheckOrigin(req))
}
