package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/notify"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *notify.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients: got %d, want %d", hub.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_DeliversByTopic(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	clubs := dial(t, srv, "topic=club-updates")
	all := dial(t, srv, "")
	waitForClients(t, hub, 2)

	ctx := context.Background()
	hub.Send(ctx, notify.TopicEvents, []byte(`{"type":"event-created"}`))
	hub.Send(ctx, notify.TopicClubs, []byte(`{"type":"club-created"}`))

	// The club-only subscriber never sees the event message.
	clubs.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := clubs.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(msg) != `{"type":"club-created"}` {
		t.Errorf("club subscriber got %s", msg)
	}

	all.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got []string
	for i := 0; i < 2; i++ {
		_, msg, err := all.ReadMessage()
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		got = append(got, string(msg))
	}
	if got[0] != `{"type":"event-created"}` || got[1] != `{"type":"club-created"}` {
		t.Errorf("all-topics subscriber got %v", got)
	}
}

func TestHub_UnknownTopic(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?topic=secrets", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestHub_UnsubscribesOnClose(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "topic=event-updates")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestBus_WithHub(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "topic=event-updates")
	waitForClients(t, hub, 1)

	bus := notify.NewBus(zap.NewNop(), hub)
	bus.Publish(context.Background(), notify.TopicEvents, notify.Message{Type: notify.EventApproved, Title: "Hackathon"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(msg), `"type":"event-approved"`) || !strings.Contains(string(msg), "Hackathon") {
		t.Errorf("unexpected payload %s", msg)
	}
}
