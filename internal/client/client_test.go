package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeRelay accepts one WebSocket connection at a time, records every
// frame the client sends, and answers the auth frame with a welcome.
type fakeRelay struct {
	frames chan map[string]any
	dials  atomic.Int32
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{frames: make(chan map[string]any, 16)}
}

func (f *fakeRelay) handler(w http.ResponseWriter, r *http.Request) {
	f.dials.Add(1)
	conn, err := testUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		f.frames <- frame
		if frame["type"] == "auth" {
			_ = conn.WriteJSON(map[string]any{
				"type": "welcome", "message": "Welcome to A2A Relay, Alpha.", "online": 1,
			})
		}
	}
}

func (f *fakeRelay) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case frame := <-f.frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a client frame")
		return nil
	}
}

func startClient(t *testing.T, relay *fakeRelay, cfg Config, handler FrameHandler) (*Client, context.CancelFunc) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(relay.handler))
	t.Cleanup(ts.Close)

	cfg.URL = "ws" + strings.TrimPrefix(ts.URL, "http")
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = 50 * time.Millisecond
	}

	c := NewClient(cfg, handler, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Connect(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Connect did not return after cancel")
		}
	})
	return c, cancel
}

func TestConnect_AuthThenAutoJoin(t *testing.T) {
	relay := newFakeRelay()
	received := make(chan map[string]any, 16)

	startClient(t, relay, Config{
		AgentID: "a1", Name: "Alpha", Token: "secret",
		Rooms: []string{"#init"},
	}, func(frame map[string]any) { received <- frame })

	auth := relay.next(t)
	if auth["type"] != "auth" || auth["agentId"] != "a1" || auth["name"] != "Alpha" || auth["token"] != "secret" {
		t.Fatalf("first frame = %v, want auth with identity", auth)
	}

	join := relay.next(t)
	if join["type"] != "join" || join["room"] != "#init" {
		t.Fatalf("second frame = %v, want join #init", join)
	}

	// The welcome answer reaches the handler.
	select {
	case frame := <-received:
		if frame["type"] != "welcome" {
			t.Errorf("handler got %v, want welcome", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the welcome")
	}
}

func TestSendFrames(t *testing.T) {
	relay := newFakeRelay()
	c, _ := startClient(t, relay, Config{AgentID: "a1", Name: "Alpha", Token: "secret"}, nil)

	relay.next(t) // auth

	if err := c.SendChat("#init", "hi"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	chat := relay.next(t)
	if chat["type"] != "chat" || chat["to"] != "#init" || chat["text"] != "hi" {
		t.Errorf("chat frame = %v", chat)
	}

	if err := c.SendChat("", "to everyone"); err != nil {
		t.Fatalf("SendChat broadcast: %v", err)
	}
	bc := relay.next(t)
	if _, hasTo := bc["to"]; hasTo {
		t.Errorf("broadcast carries a to field: %v", bc)
	}

	if err := c.Leave("#init"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if leave := relay.next(t); leave["type"] != "leave" || leave["room"] != "#init" {
		t.Errorf("leave frame = %v", leave)
	}

	if err := c.List(); err != nil {
		t.Fatalf("List: %v", err)
	}
	if list := relay.next(t); list["type"] != "list" {
		t.Errorf("list frame = %v", list)
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	relay := newFakeRelay()
	var drops atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relay.dials.Add(1)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Hang up right away to force a reconnect.
		_ = conn.Close()
		drops.Add(1)
	}))
	defer ts.Close()

	c := NewClient(Config{
		URL:               "ws" + strings.TrimPrefix(ts.URL, "http"),
		AgentID:           "a1",
		Name:              "Alpha",
		Token:             "secret",
		ReconnectInterval: 20 * time.Millisecond,
	}, nil, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Connect(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for relay.dials.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("dials = %d, want at least 2", relay.dials.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestSend_NotConnected(t *testing.T) {
	c := NewClient(Config{AgentID: "a1"}, nil, slog.New(slog.DiscardHandler))
	if err := c.SendChat("", "hello"); err == nil {
		t.Error("expected an error when not connected")
	}
}

func TestRender(t *testing.T) {
	cases := []struct {
		frame map[string]any
		want  string
	}{
		{map[string]any{"type": "welcome", "message": "Welcome to A2A Relay, Alpha.", "online": float64(3)}, "3 online"},
		{map[string]any{"type": "system", "message": "Beta joined."}, "Beta joined."},
		{map[string]any{"type": "ack", "message": "Sent to Beta"}, "Sent to Beta"},
		{map[string]any{"type": "error", "message": "Agent not found"}, "error: Agent not found"},
		{map[string]any{"type": "chat", "fromName": "Beta", "text": "hi", "scope": "public"}, "hi"},
		{map[string]any{"type": "chat", "fromName": "Beta", "text": "hi", "scope": "room", "to": "#init"}, "#init"},
	}
	for _, tc := range cases {
		got := Render(tc.frame)
		if !strings.Contains(got, tc.want) {
			t.Errorf("Render(%v) = %q, want it to contain %q", tc.frame, got, tc.want)
		}
	}
}

func TestRender_Roster(t *testing.T) {
	got := Render(map[string]any{
		"type": "list",
		"agents": []any{
			map[string]any{"id": "a1", "name": "Alpha"},
			map[string]any{"id": "a2", "name": "Beta"},
		},
		"rooms": []any{"#init"},
	})
	for _, want := range []string{"Alpha", "Beta", "#init"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render roster = %q, missing %q", got, want)
		}
	}
}
