package cdp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeTarget is a minimal CDP debugging target: it answers every
// *.enable command with an empty result and can be told to emit
// additional frames (events, crash notifications) on demand.
type fakeTarget struct {
	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{connCh: make(chan *websocket.Conn, 1)}
}

func (f *fakeTarget) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.connCh <- conn

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		reply, _ := json.Marshal(responseFrame{ID: req.ID, Result: json.RawMessage(`{}`)})
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

func dialFakeTarget(t *testing.T, target *fakeTarget) *Channel {
	t.Helper()
	srv := httptest.NewServer(target)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch
}

func TestDialEnablesRequiredDomains(t *testing.T) {
	target := newFakeTarget()
	ch := dialFakeTarget(t, target)
	if ch.Crashed() {
		t.Error("freshly dialed channel reports crashed")
	}
}

func TestSendTimesOutWithoutResponse(t *testing.T) {
	target := newFakeTarget()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := target.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Answer domain-enable calls during Dial but then go silent.
		for i := 0; i < len(requiredDomains); i++ {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req struct {
				ID int64 `json:"id"`
			}
			json.Unmarshal(data, &req)
			reply, _ := json.Marshal(responseFrame{ID: req.ID, Result: json.RawMessage(`{}`)})
			conn.WriteMessage(websocket.TextMessage, reply)
		}
		// Drain but never answer further requests.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, err := Dial(dialCtx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.Close()

	ctx, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	err = ch.Send(ctx, "Page.navigate", nil, nil)
	if err == nil {
		t.Fatal("expected error from unanswered command, got nil")
	}
}

func TestCloseRejectsPendingAndIsIdempotent(t *testing.T) {
	target := newFakeTarget()
	ch := dialFakeTarget(t, target)

	if err := ch.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got: %v", err)
	}

	err := ch.Send(context.Background(), "Page.navigate", nil, nil)
	if err == nil {
		t.Fatal("expected send on closed channel to fail")
	}
}

func TestOnDeliversDecodedEvent(t *testing.T) {
	target := newFakeTarget()
	srv := httptest.NewServer(target)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.Close()

	received := make(chan json.RawMessage, 1)
	sub := On(ch, "DOM.childNodeInserted", func(_ context.Context, raw json.RawMessage) error {
		received <- raw
		return nil
	})
	defer sub.Unsubscribe()

	conn := <-target.connCh
	evt, _ := json.Marshal(eventFrame{Method: "DOM.childNodeInserted", Params: json.RawMessage(`{"parentNodeId":1}`)})
	if err := conn.WriteMessage(websocket.TextMessage, evt); err != nil {
		t.Fatalf("write event: %v", err)
	}

	select {
	case raw := <-received:
		if !strings.Contains(string(raw), "parentNodeId") {
			t.Errorf("unexpected event payload: %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestTargetCrashedSetsCrashedFlag(t *testing.T) {
	target := newFakeTarget()
	srv := httptest.NewServer(target)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ch, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.Close()

	conn := <-target.connCh
	evt, _ := json.Marshal(eventFrame{Method: "Inspector.targetCrashed"})
	if err := conn.WriteMessage(websocket.TextMessage, evt); err != nil {
		t.Fatalf("write event: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ch.Crashed() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("channel never observed crash")
}
