// Package interact implements the Interactable Check (spec §4.4):
// resolving a ref to a clickable viewport coordinate. It is a standalone
// check reusable by click and scroll, generalized from the teacher's
// clickRef box-model-centroid computation
// (dom.GetBoxModel().WithNodeID(...), averaging the four Content quad
// x/y pairs) rather than inlined into one action.
package interact

import (
	"context"
	"encoding/json"

	cdpcore "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/refs"
)

// ResolvedBy reuses the ref resolver's resolution-path tag so callers can
// tell which tier located the underlying node.
type ResolvedBy = refs.ResolvedBy

// Result is the page-object handle and clickable centroid spec §4.4
// returns.
type Result struct {
	ObjectID   runtime.RemoteObjectID
	X, Y       float64
	ResolvedBy ResolvedBy
}

const viewportScript = `({width: window.innerWidth, height: window.innerHeight})`

type viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Check resolves backendNodeID to a remote object and clickable centroid.
// A missing or zero-size box model means the element is hidden ->
// NOT_INTERACTABLE. If the centroid falls outside the viewport, it calls
// scrollIntoViewIfNeeded and re-fetches the box model once; a second
// failure is NOT_INTERACTABLE too.
func Check(ctx context.Context, backendNodeID cdpcore.BackendNodeID, resolvedBy ResolvedBy) (Result, error) {
	obj, _, err := dom.ResolveNode().WithBackendNodeID(backendNodeID).Do(ctx)
	if err != nil || obj == nil {
		return Result{}, bserr.Wrap(bserr.NotInteractable, "resolve node to remote object", err)
	}

	box, err := fetchBox(ctx, backendNodeID)
	if err != nil {
		return Result{}, err
	}

	vp, err := readViewport(ctx)
	if err != nil {
		return Result{}, err
	}

	x, y := centroid(box)
	if x < 0 || y < 0 || x > vp.Width || y > vp.Height {
		if err := dom.ScrollIntoViewIfNeeded().WithBackendNodeID(backendNodeID).Do(ctx); err != nil {
			return Result{}, bserr.Wrap(bserr.NotInteractable, "scrollIntoViewIfNeeded", err)
		}
		box, err = fetchBox(ctx, backendNodeID)
		if err != nil {
			return Result{}, err
		}
		x, y = centroid(box)
	}

	return Result{ObjectID: obj.ObjectID, X: x, Y: y, ResolvedBy: resolvedBy}, nil
}

func fetchBox(ctx context.Context, backendNodeID cdpcore.BackendNodeID) (*dom.BoxModel, error) {
	box, err := dom.GetBoxModel().WithBackendNodeID(backendNodeID).Do(ctx)
	if err != nil || box == nil || len(box.Content) < 8 {
		return nil, bserr.Wrap(bserr.NotInteractable, "element has no box model", err)
	}
	return box, nil
}

func centroid(box *dom.BoxModel) (x, y float64) {
	x = (box.Content[0] + box.Content[2] + box.Content[4] + box.Content[6]) / 4
	y = (box.Content[1] + box.Content[3] + box.Content[5] + box.Content[7]) / 4
	return x, y
}

func readViewport(ctx context.Context) (viewport, error) {
	result, exceptionDetails, err := runtime.Evaluate(viewportScript).WithReturnByValue(true).Do(ctx)
	if err != nil || result == nil {
		return viewport{}, bserr.Wrap(bserr.ActionFailed, "read viewport size", err)
	}
	if exceptionDetails != nil {
		return viewport{}, bserr.New(bserr.ActionFailed, "viewport script threw: "+exceptionDetails.Text)
	}
	var vp viewport
	if err := json.Unmarshal(result.Value, &vp); err != nil {
		return viewport{}, bserr.Wrap(bserr.ActionFailed, "decode viewport size", err)
	}
	return vp, nil
}
