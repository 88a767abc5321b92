// Package wstest provides real WebSocket connection pairs for component
// tests: a server-side Connection wrapper plus the raw client socket whose
// frames the test asserts on.
package wstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	hubws "campushub/internal/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Pair dials an in-process WebSocket and returns the server-side Connection
// wrapper together with the client socket. Both ends are closed on cleanup.
func Pair(t *testing.T) (*hubws.Connection, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *hubws.Connection, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connCh <- hubws.NewConnection(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case serverConn := <-connCh:
		t.Cleanup(func() { _ = serverConn.Close() })
		return serverConn, client
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server connection")
		return nil, nil
	}
}

// ReadFrame reads one JSON frame from the client side into a generic map,
// failing the test after a short deadline.
func ReadFrame(t *testing.T, client *websocket.Conn) map[string]interface{} {
	t.Helper()

	if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}

	var frame map[string]interface{}
	if err := client.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// ExpectSilence asserts that no frame arrives on the client side within the
// window. Used for best-effort paths where an offline or excluded participant
// must receive nothing.
func ExpectSilence(t *testing.T, client *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := client.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}

	var frame json.RawMessage
	if err := client.ReadJSON(&frame); err == nil {
		t.Fatalf("expected no frame, got %s", frame)
	}
}
