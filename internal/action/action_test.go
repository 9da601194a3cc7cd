package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/gorilla/websocket"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/cdp"
)

// fakeTarget mirrors internal/cdp and internal/stability's own test
// helper, extended to answer Runtime.evaluate differently depending on
// which script is being run, since the Snapshot Builder issues several
// distinct evaluate calls (body-children probe, page-info) that each
// need a differently shaped result.
type fakeTarget struct {
	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn

	mu    sync.Mutex
	calls []string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{connCh: make(chan *websocket.Conn, 1)}
}

func (f *fakeTarget) recordedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
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
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}

		f.mu.Lock()
		f.calls = append(f.calls, req.Method)
		f.mu.Unlock()

		result := f.resultFor(req.Method, req.Params)

		reply, _ := json.Marshal(struct {
			ID     int64           `json:"id"`
			Result json.RawMessage `json:"result"`
		}{ID: req.ID, Result: result})
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

// resultFor returns the canned result for one request, keyed on method
// name and (for Runtime.evaluate/callFunctionOn) the script contents,
// so the Snapshot Builder's several distinct evaluate calls each see a
// response shaped the way their own decode step expects.
func (f *fakeTarget) resultFor(method string, params json.RawMessage) json.RawMessage {
	switch method {
	case "Accessibility.getFullAXTree":
		return json.RawMessage(`{"nodes":[]}`)
	case "Runtime.evaluate":
		var p struct {
			Expression string `json:"expression"`
		}
		_ = json.Unmarshal(params, &p)
		switch {
		case strings.Contains(p.Expression, "document.body"):
			return json.RawMessage(`{"result":{"type":"number","value":0}}`)
		case strings.Contains(p.Expression, "location.href"):
			return json.RawMessage(`{"result":{"type":"object","value":{"url":"https://example.test/","title":"Example","width":1280,"height":720}}}`)
		default:
			return json.RawMessage(`{"result":{"type":"object"}}`)
		}
	case "Runtime.callFunctionOn":
		return json.RawMessage(`{"result":{"type":"undefined"}}`)
	default:
		return json.RawMessage(`{}`)
	}
}

func dialFakeTarget(t *testing.T) (*cdp.Channel, *fakeTarget, *websocket.Conn) {
	t.Helper()
	target := newFakeTarget()
	srv := httptest.NewServer(target)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := cdp.Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { ch.Close() })

	conn := <-target.connCh
	return ch, target, conn
}

func TestPressKeyDispatchesKeyEventsAndReturnsOK(t *testing.T) {
	ch, target, _ := dialFakeTarget(t)

	s := NewSession(ch)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result := PressKey(ctx, s, "Enter")
	if !result.OK {
		t.Fatalf("expected OK, got %+v", result)
	}
	if result.Action != "press_key" {
		t.Errorf("unexpected action name: %q", result.Action)
	}

	count := 0
	for _, call := range target.recordedCalls() {
		if call == "Input.dispatchKeyEvent" {
			count++
		}
	}
	if count < 2 {
		t.Errorf("expected at least a keyDown and keyUp dispatch, calls: %v", target.recordedCalls())
	}
}

func TestPressKeyDoesNotDispatchCharForModifiedCombo(t *testing.T) {
	ch, target, _ := dialFakeTarget(t)

	s := NewSession(ch)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result := PressKey(ctx, s, "Control+A")
	if !result.OK {
		t.Fatalf("expected OK, got %+v", result)
	}

	count := 0
	for _, call := range target.recordedCalls() {
		if call == "Input.dispatchKeyEvent" {
			count++
		}
	}
	// keyDown + keyUp only, no char event with a ctrl modifier held.
	if count != 2 {
		t.Errorf("expected exactly 2 dispatchKeyEvent calls for a ctrl combo, got %d", count)
	}
}

func TestPressKeyRejectsEmptyCombo(t *testing.T) {
	ch, _, _ := dialFakeTarget(t)

	s := NewSession(ch)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result := PressKey(ctx, s, "")
	if result.OK {
		t.Fatal("expected an error for an empty key combo")
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != string(bserr.ActionFailed) {
		t.Errorf("expected ACTION_FAILED, got %+v", result.Errors)
	}
}

func TestRunReportsPageCrashed(t *testing.T) {
	ch, _, conn := dialFakeTarget(t)

	s := NewSession(ch)

	evt, _ := json.Marshal(struct {
		Method string `json:"method"`
	}{Method: "Inspector.targetCrashed"})
	if err := conn.WriteMessage(websocket.TextMessage, evt); err != nil {
		t.Fatalf("write crash event: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !ch.Crashed() {
		time.Sleep(10 * time.Millisecond)
	}
	if !ch.Crashed() {
		t.Fatal("channel never observed crash")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := PressKey(ctx, s, "Enter")
	if result.OK {
		t.Fatal("expected a crashed channel to fail the action")
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != string(bserr.PageCrashed) {
		t.Errorf("expected PAGE_CRASHED, got %+v", result.Errors)
	}
}

func TestParseKeyComboResolvesModifiersAndPrimaryKey(t *testing.T) {
	tests := []struct {
		combo        string
		wantKey      string
		wantCode     string
		wantErr      bool
		wantModifier input.Modifier
	}{
		{combo: "Enter", wantKey: "Enter", wantCode: "Enter"},
		{combo: "a", wantKey: "a", wantCode: "KeyA"},
		{combo: "1", wantKey: "1", wantCode: "Digit1"},
		{combo: "Control+Shift+A", wantKey: "A", wantCode: "KeyA", wantModifier: input.ModifierCtrl | input.ModifierShift},
		{combo: "", wantErr: true},
		{combo: "ctrl+shift", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.combo, func(t *testing.T) {
			spec, modifiers, err := parseKeyCombo(tt.combo)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for combo %q", tt.combo)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for combo %q: %v", tt.combo, err)
			}
			if spec.key != tt.wantKey {
				t.Errorf("key = %q, want %q", spec.key, tt.wantKey)
			}
			if spec.code != tt.wantCode {
				t.Errorf("code = %q, want %q", spec.code, tt.wantCode)
			}
			if modifiers != tt.wantModifier {
				t.Errorf("modifiers = %v, want %v", modifiers, tt.wantModifier)
			}
		})
	}
}

func TestResolveKeySpecNamedAndSingleChar(t *testing.T) {
	if spec := resolveKeySpec("escape"); spec.key != "Escape" || spec.keyCode != 27 {
		t.Errorf("escape resolved to %+v", spec)
	}
	if spec := resolveKeySpec("z"); spec.code != "KeyZ" {
		t.Errorf("single char 'z' resolved to %+v", spec)
	}
	if spec := resolveKeySpec("9"); spec.code != "Digit9" {
		t.Errorf("single digit '9' resolved to %+v", spec)
	}
	if spec := resolveKeySpec("F5"); spec.key != "F5" || spec.code != "F5" {
		t.Errorf("unrecognized multi-char token resolved to %+v, want passthrough", spec)
	}
}

func TestIsSinglePrintableChar(t *testing.T) {
	cases := map[string]bool{
		"a":     true,
		" ":     true,
		"Enter": false,
		"":      false,
	}
	for key, want := range cases {
		if got := isSinglePrintableChar(key); got != want {
			t.Errorf("isSinglePrintableChar(%q) = %v, want %v", key, got, want)
		}
	}
}
