package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newTestConnection dials an in-process WebSocket and returns the server-side
// wrapper plus the raw client socket for assertions.
func newTestConnection(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *Connection, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		connCh <- NewConnection(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case conn := <-connCh:
		t.Cleanup(func() { _ = conn.Close() })
		return conn, client
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server connection")
		return nil, nil
	}
}

func TestConnection_WriteJSONDelivers(t *testing.T) {
	conn, client := newTestConnection(t)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]string
	if err := client.ReadJSON(&frame); err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	if frame["type"] != "ping" {
		t.Errorf("got frame %v", frame)
	}
}

func TestConnection_WritesPreserveOrder(t *testing.T) {
	conn, client := newTestConnection(t)

	for i := 0; i < 50; i++ {
		if err := conn.WriteJSON(map[string]int{"seq": i}); err != nil {
			t.Fatalf("WriteJSON %d failed: %v", i, err)
		}
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 50; i++ {
		var frame map[string]int
		if err := client.ReadJSON(&frame); err != nil {
			t.Fatalf("client read %d failed: %v", i, err)
		}
		if frame["seq"] != i {
			t.Fatalf("frame %d out of order: got seq %d", i, frame["seq"])
		}
	}
}

func TestConnection_WriteAfterCloseFails(t *testing.T) {
	conn, _ := newTestConnection(t)

	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != ErrConnectionClosed {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	conn, _ := newTestConnection(t)

	if err := conn.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestConnection_Identity(t *testing.T) {
	conn, _ := newTestConnection(t)

	if conn.IsRegistered() {
		t.Error("new connection must not be registered")
	}
	if conn.UserID() != "" || conn.CourseID() != "" {
		t.Error("identity must be empty before registration")
	}

	conn.SetIdentity("alice", "course-1")

	if !conn.IsRegistered() {
		t.Error("connection must be registered after SetIdentity")
	}
	if conn.UserID() != "alice" || conn.CourseID() != "course-1" {
		t.Errorf("identity = %q/%q", conn.UserID(), conn.CourseID())
	}
}
