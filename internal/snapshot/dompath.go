package snapshot

import (
	"context"
	"encoding/json"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"

	"github.com/sgreen7979/browser-stream/internal/bserr"
)

// domPathScript walks up from `this` to body, prepending an #id anchor
// and stopping as soon as one is found, otherwise prepending
// tag:nth-of-type(k) among same-tag siblings.
const domPathScript = `function() {
	var segments = [];
	var node = this;
	while (node && node !== document.body && node.nodeType === 1) {
		if (node.id) {
			segments.unshift('#' + node.id);
			return segments.join(' > ');
		}
		var tag = node.tagName.toLowerCase();
		var index = 1;
		var sibling = node.previousElementSibling;
		while (sibling) {
			if (sibling.tagName === node.tagName) index++;
			sibling = sibling.previousElementSibling;
		}
		segments.unshift(tag + ':nth-of-type(' + index + ')');
		node = node.parentElement;
	}
	segments.unshift('body');
	return segments.join(' > ');
}`

// computeDOMPath resolves backendNodeID to a remote object and evaluates
// domPathScript against it, releasing the object afterward.
func computeDOMPath(ctx context.Context, backendNodeID cdp.BackendNodeID) (string, error) {
	obj, _, err := dom.ResolveNode().WithBackendNodeID(backendNodeID).Do(ctx)
	if err != nil {
		return "", bserr.Wrap(bserr.ActionFailed, "resolve node for domPath", err)
	}
	defer func() {
		if obj.ObjectID != "" {
			_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		}
	}()

	result, exceptionDetails, err := runtime.CallFunctionOn(domPathScript).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return "", bserr.Wrap(bserr.ActionFailed, "compute domPath", err)
	}
	if exceptionDetails != nil {
		return "", bserr.New(bserr.ActionFailed, "domPath script threw: "+exceptionDetails.Text)
	}

	var path string
	if err := json.Unmarshal(result.Value, &path); err != nil {
		return "", bserr.Wrap(bserr.ActionFailed, "decode domPath result", err)
	}
	return path, nil
}
