package interact

import (
	"context"
	"testing"

	"github.com/mailru/easyjson"

	cdpcore "github.com/chromedp/cdproto/cdp"

	"github.com/sgreen7979/browser-stream/internal/bserr"
)

type fakeExecutor struct {
	responses map[string]string
	errors    map[string]error
	calls     []string
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

func TestCheckReturnsCentroidWithinViewport(t *testing.T) {
	exec := &fakeExecutor{responses: map[string]string{
		"DOM.resolveNode": `{"object":{"type":"object","objectId":"obj-1"}}`,
		"DOM.getBoxModel": `{"model":{"content":[10,10,110,10,110,60,10,60],"padding":[],"border":[],"margin":[],"width":100,"height":50}}`,
		"Runtime.evaluate": `{"result":{"type":"object","value":{"width":1280,"height":720}}}`,
	}}

	ctx := cdpcore.WithExecutor(context.Background(), exec)
	result, err := Check(ctx, cdpcore.BackendNodeID(501), "backendNodeId")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.X != 60 || result.Y != 35 {
		t.Errorf("unexpected centroid: (%v, %v)", result.X, result.Y)
	}
	if result.ObjectID != "obj-1" {
		t.Errorf("unexpected objectId: %q", result.ObjectID)
	}
	for _, method := range exec.calls {
		if method == "DOM.scrollIntoViewIfNeeded" {
			t.Error("did not expect a scroll when centroid is already in view")
		}
	}
}

func TestCheckScrollsWhenCentroidOutsideViewport(t *testing.T) {
	calls := 0
	exec := &fakeExecutor{responses: map[string]string{
		"DOM.resolveNode":  `{"object":{"type":"object","objectId":"obj-1"}}`,
		"Runtime.evaluate": `{"result":{"type":"object","value":{"width":1280,"height":720}}}`,
	}}
	exec.responses["DOM.getBoxModel"] = `{"model":{"content":[10,900,110,900,110,950,10,950],"padding":[],"border":[],"margin":[],"width":100,"height":50}}`

	wrapped := &countingExecutor{fakeExecutor: exec, onBoxModel: func() { calls++ }}
	ctx := cdpcore.WithExecutor(context.Background(), wrapped)

	result, err := Check(ctx, cdpcore.BackendNodeID(501), "domPath")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.ResolvedBy != "domPath" {
		t.Errorf("expected resolvedBy to pass through, got %q", result.ResolvedBy)
	}
	if calls < 2 {
		t.Errorf("expected a second box-model fetch after scrollIntoViewIfNeeded, got %d calls", calls)
	}
}

type countingExecutor struct {
	*fakeExecutor
	onBoxModel func()
}

func (c *countingExecutor) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	if method == "DOM.getBoxModel" {
		c.onBoxModel()
	}
	return c.fakeExecutor.Execute(ctx, method, params, res)
}

func TestCheckReportsNotInteractableWithoutBoxModel(t *testing.T) {
	exec := &fakeExecutor{
		responses: map[string]string{"DOM.resolveNode": `{"object":{"type":"object","objectId":"obj-1"}}`},
	}
	ctx := cdpcore.WithExecutor(context.Background(), exec)

	_, err := Check(ctx, cdpcore.BackendNodeID(501), "backendNodeId")
	if err == nil {
		t.Fatal("expected an error when the box model is missing")
	}
	if bserr.ToDetail(err).Code != string(bserr.NotInteractable) {
		t.Errorf("expected NOT_INTERACTABLE, got %+v", bserr.ToDetail(err))
	}
}
