package refs

import (
	"context"
	"errors"
	"testing"

	"github.com/mailru/easyjson"

	"github.com/sgreen7979/browser-stream/internal/bserr"
)

var errNodeGone = errors.New("no node with given id found")

// fakeExecutor answers CDP commands from a per-method canned response
// table, without any real transport. Good enough to exercise the
// resolver's three-tier branching without depending on exact websocket
// wire framing.
type fakeExecutor struct {
	responses map[string]string
	errors    map[string]error
	calls     []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: map[string]string{}, errors: map[string]error{}}
}

func (f *fakeExecutor) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	f.calls = append(f.calls, method)
	if err, ok := f.errors[method]; ok {
		return err
	}
	if res == nil {
		return nil
	}
	raw, ok := f.responses[method]
	if !ok {
		return nil
	}
	return easyjson.Unmarshal([]byte(raw), res)
}

func TestResolveUnknownRef(t *testing.T) {
	reg := NewRegistry()
	resolver := NewResolver(reg, newFakeExecutor())

	_, err := resolver.Resolve(context.Background(), "@e1")
	assertCode(t, err, bserr.NoSuchRef)
}

func TestResolveByBackendNodeIDSucceeds(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Assign(Identity{BackendNodeID: 42, DOMPath: "body > button:nth-of-type(1)"})

	exec := newFakeExecutor()
	exec.responses["DOM.resolveNode"] = `{"object":{"type":"object","objectId":"1"}}`

	resolver := NewResolver(reg, exec)
	res, err := resolver.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.ResolvedBy != ResolvedByBackendNodeID {
		t.Errorf("expected resolvedBy=backendNodeId, got %s", res.ResolvedBy)
	}
	if res.BackendNodeID != 42 {
		t.Errorf("expected backendNodeId 42, got %d", res.BackendNodeID)
	}
}

func TestResolveFallsBackToDOMPath(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Assign(Identity{BackendNodeID: 42, DOMPath: "body > button:nth-of-type(1)"})

	exec := newFakeExecutor()
	exec.errors["DOM.resolveNode"] = errNodeGone
	exec.responses["DOM.getDocument"] = `{"root":{"nodeId":1,"backendNodeId":1,"nodeName":"HTML"}}`
	exec.responses["DOM.querySelector"] = `{"nodeId":99}`
	exec.responses["DOM.describeNode"] = `{"node":{"nodeId":99,"backendNodeId":142,"nodeName":"BUTTON"}}`
	exec.responses["Accessibility.getPartialAXTree"] = `{"nodes":[{"nodeId":"ax-7"}]}`

	resolver := NewResolver(reg, exec)
	res, err := resolver.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.ResolvedBy != ResolvedByDOMPath {
		t.Errorf("expected resolvedBy=domPath, got %s", res.ResolvedBy)
	}
	if res.BackendNodeID != 142 {
		t.Errorf("expected refreshed backendNodeId 142, got %d", res.BackendNodeID)
	}

	updated, ok := reg.Get(ref)
	if !ok {
		t.Fatal("ref vanished from registry")
	}
	if updated.BackendNodeID != 142 || updated.Stale {
		t.Errorf("registry entry not refreshed: %+v", updated)
	}
	if updated.AXNodeID != "ax-7" {
		t.Errorf("expected refreshed axNodeId, got %q", updated.AXNodeID)
	}
}

func TestResolveStaleWhenSelectorMisses(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Assign(Identity{BackendNodeID: 42, DOMPath: "body > button:nth-of-type(9)"})

	exec := newFakeExecutor()
	exec.errors["DOM.resolveNode"] = errNodeGone
	exec.responses["DOM.getDocument"] = `{"root":{"nodeId":1,"backendNodeId":1,"nodeName":"HTML"}}`
	exec.responses["DOM.querySelector"] = `{"nodeId":0}`

	resolver := NewResolver(reg, exec)
	_, err := resolver.Resolve(context.Background(), ref)
	assertCode(t, err, bserr.RefStale)
}

func TestResolveStaleWhenNoDOMPath(t *testing.T) {
	reg := NewRegistry()
	ref := reg.Assign(Identity{BackendNodeID: 42})

	exec := newFakeExecutor()
	exec.errors["DOM.resolveNode"] = errNodeGone

	resolver := NewResolver(reg, exec)
	_, err := resolver.Resolve(context.Background(), ref)
	assertCode(t, err, bserr.RefStale)
}

func assertCode(t *testing.T, err error, want bserr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	detail := bserr.ToDetail(err)
	if detail.Code != string(want) {
		t.Errorf("expected code %s, got %s (%s)", want, detail.Code, detail.Message)
	}
}
