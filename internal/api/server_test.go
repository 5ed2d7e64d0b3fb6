package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(sessions []uint32, focus uint32) (*Server, *Hub) {
	hub := NewHub()
	srv := NewServer(hub,
		func() []uint32 { return sessions },
		func() uint32 { return focus },
	)
	return srv, hub
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(nil, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", body["status"])
	}
}

func TestHandleSessionsAndFocus(t *testing.T) {
	srv, _ := newTestServer([]uint32{10, 11}, 11)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/sessions", nil))

	var sessions struct {
		Count   int      `json:"count"`
		Windows []uint32 `json:"windows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sessions.Count != 2 || len(sessions.Windows) != 2 {
		t.Fatalf("unexpected sessions payload: %+v", sessions)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/focus", nil))

	var focus struct {
		Window uint32 `json:"window"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &focus); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if focus.Window != 11 {
		t.Fatalf("focus window = %d, want 11", focus.Window)
	}
}

func TestHandleEvents_StreamsHubEvents(t *testing.T) {
	srv, hub := newTestServer(nil, 7)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Initial focus snapshot.
	var ev Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ev.Kind != EventFocusChanged || ev.Window != 7 {
		t.Fatalf("unexpected initial event: %+v", ev)
	}

	// A published event reaches the subscriber. The hub subscription is
	// registered inside the handler goroutine; give it a moment.
	deadline := time.Now().Add(time.Second)
	for {
		hub.Publish(Event{Kind: EventSessionOpened, Window: 42})
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.ReadJSON(&ev); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("published event never arrived")
		}
	}
	if ev.Kind != EventSessionOpened || ev.Window != 42 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	hub.Publish(Event{Kind: EventFocusChanged, Window: 1})
	select {
	case ev := <-ch:
		if ev.Window != 1 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("event not delivered")
	}

	hub.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic or deliver.
	hub.Publish(Event{Kind: EventFocusChanged, Window: 2})

	// Double unsubscribe is a no-op.
	hub.Unsubscribe(ch)
}
