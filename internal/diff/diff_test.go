package diff

import (
	"testing"

	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

func el(ref, axID, domPath, role, name string, props map[string]string) snapshot.Element {
	return snapshot.Element{Ref: ref, AXNodeID: axID, DOMPath: domPath, Role: role, Name: name, Properties: props}
}

func TestDiffAppearedAndDisappeared(t *testing.T) {
	pre := []snapshot.Element{
		el("@e1", "ax1", "body > button:nth-of-type(1)", "button", "Submit", nil),
	}
	post := []snapshot.Element{
		el("@e2", "ax2", "body > div:nth-of-type(1)", "link", "Learn more", nil),
	}

	cs := Diff(pre, post, nil)
	if len(cs) != 2 {
		t.Fatalf("expected 2 consequences, got %d: %+v", len(cs), cs)
	}
	if cs[0].Kind != KindAppeared || cs[0].Ref != "@e2" {
		t.Errorf("expected appeared first, got %+v", cs[0])
	}
	if cs[1].Kind != KindDisappeared || cs[1].Ref != "@e1" {
		t.Errorf("expected disappeared second, got %+v", cs[1])
	}
}

func TestDiffMatchesByAXNodeID(t *testing.T) {
	pre := []snapshot.Element{el("@e1", "ax1", "body > input:nth-of-type(1)", "textbox", "Name", nil)}
	post := []snapshot.Element{el("@e1", "ax1", "body > input:nth-of-type(1)", "textbox", "Name", map[string]string{"value": "Alice"})}

	cs := Diff(pre, post, nil)
	if len(cs) != 1 || cs[0].Kind != KindChanged {
		t.Fatalf("expected one changed consequence, got %+v", cs)
	}
	if cs[0].Desc != `value: "" -> "Alice"` {
		t.Errorf("unexpected change description: %q", cs[0].Desc)
	}
}

func TestDiffFallsBackToDOMPathWhenAXNodeIDChanges(t *testing.T) {
	pre := []snapshot.Element{el("@e1", "ax1", "body > input:nth-of-type(1)", "textbox", "Name", nil)}
	post := []snapshot.Element{el("@e1", "ax9", "body > input:nth-of-type(1)", "textbox", "Name", nil)}

	cs := Diff(pre, post, nil)
	if len(cs) != 0 {
		t.Fatalf("expected domPath fallback to match with no changes, got %+v", cs)
	}
}

func TestDiffNoChangeProducesNoConsequence(t *testing.T) {
	pre := []snapshot.Element{el("@e1", "ax1", "body > button:nth-of-type(1)", "button", "Submit", nil)}
	post := []snapshot.Element{el("@e1", "ax1", "body > button:nth-of-type(1)", "button", "Submit", nil)}

	if cs := Diff(pre, post, nil); len(cs) != 0 {
		t.Errorf("expected no consequences for identical snapshots, got %+v", cs)
	}
}

func TestDiffNetworkEventsAppendLast(t *testing.T) {
	pre := []snapshot.Element{el("@e1", "ax1", "body > button:nth-of-type(1)", "button", "Submit", nil)}
	events := []NetworkEvent{
		{Method: "POST", URL: "https://example.com/api/submit?x=1", Pending: false, Status: 200, DurationMs: 42},
	}

	cs := Diff(pre, nil, events)
	if len(cs) != 2 {
		t.Fatalf("expected disappeared + network, got %+v", cs)
	}
	if cs[1].Kind != KindNetwork {
		t.Fatalf("expected network consequence last, got %+v", cs[1])
	}
	want := "POST /api/submit -> 200 (42ms)"
	if cs[1].Desc != want {
		t.Errorf("expected %q, got %q", want, cs[1].Desc)
	}
}

func TestDiffPendingNetworkEvent(t *testing.T) {
	events := []NetworkEvent{{Method: "GET", URL: "https://example.com/slow", Pending: true}}
	cs := Diff(nil, nil, events)
	if len(cs) != 1 || cs[0].Desc != "GET /slow -> pending (0ms)" {
		t.Errorf("unexpected pending network consequence: %+v", cs)
	}
}
