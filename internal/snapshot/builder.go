package snapshot

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/refs"
)

// domFallbackSelector is the fixed selector union used when the
// accessibility tree yields zero interactive elements but the page has
// visible content.
const domFallbackSelector = `a[href], button, input, select, textarea, ` +
	`[role=button], [role=link], [role=textbox], [role=checkbox], ` +
	`[role=radio], [role=combobox], [role=menuitem], [role=tab], ` +
	`[role=switch], [tabindex]:not([tabindex="-1"])`

// Builder is the Snapshot Builder from spec §4.3.
type Builder struct {
	registry *refs.Registry
}

// NewBuilder returns a Builder bound to a Registry.
func NewBuilder(registry *refs.Registry) *Builder {
	return &Builder{registry: registry}
}

// TakeSnapshot walks the accessibility tree (falling back to the fixed
// DOM selector union when nothing interactive is found) and returns the
// ordered SnapshotData, assigning a fresh ref to every element.
func (b *Builder) TakeSnapshot(ctx context.Context, opts Options) (Data, error) {
	if !opts.KeepExistingRefs {
		b.registry.Clear()
	}

	elements, err := b.walkAXTree(ctx)
	if err != nil {
		return Data{}, err
	}

	if len(elements) == 0 {
		hasBody, err := b.bodyHasChildren(ctx)
		if err != nil {
			return Data{}, err
		}
		if hasBody {
			elements, err = b.walkDOMFallback(ctx)
			if err != nil {
				return Data{}, err
			}
		}
	}

	info, err := b.pageInfo(ctx)
	if err != nil {
		return Data{}, err
	}

	return Data{Elements: elements, Page: info}, nil
}

func (b *Builder) walkAXTree(ctx context.Context) ([]Element, error) {
	nodes, err := accessibility.GetFullAXTree().Do(ctx)
	if err != nil {
		return nil, bserr.Wrap(bserr.ActionFailed, "get accessibility tree", err)
	}

	var elements []Element
	for _, node := range nodes {
		if node.Ignored {
			continue
		}
		role := axValueString(node.Role)
		if !IsInteractive(role) {
			continue
		}
		if node.BackendDOMNodeID == 0 {
			continue
		}

		name := axValueString(node.Name)
		properties := axProperties(node.Properties)

		domPath, err := computeDOMPath(ctx, node.BackendDOMNodeID)
		if err != nil {
			// A node the AX tree still reports but the DOM has already
			// dropped is not fatal to the whole snapshot; skip it.
			continue
		}

		ref := b.registry.Assign(refs.Identity{
			AXNodeID:      string(node.NodeID),
			BackendNodeID: node.BackendDOMNodeID,
			DOMPath:       domPath,
		})

		elements = append(elements, Element{
			Ref:         ref,
			AXNodeID:    string(node.NodeID),
			DOMPath:     domPath,
			Role:        role,
			Name:        name,
			CompactLine: compactLine(ref, role, name, properties),
			Properties:  properties,
		})
	}
	return elements, nil
}

func (b *Builder) bodyHasChildren(ctx context.Context) (bool, error) {
	result, exceptionDetails, err := runtime.Evaluate(`document.body ? document.body.children.length : 0`).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return false, bserr.Wrap(bserr.ActionFailed, "check body children", err)
	}
	if exceptionDetails != nil {
		return false, bserr.New(bserr.ActionFailed, "body-children script threw: "+exceptionDetails.Text)
	}
	var count int
	if err := json.Unmarshal(result.Value, &count); err != nil {
		return false, bserr.Wrap(bserr.ActionFailed, "decode body children count", err)
	}
	return count > 0, nil
}

type fallbackCandidate struct {
	Role       string            `json:"role"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// fallbackRoleNameScript runs per-candidate, bound to `this`, once the
// candidate already has a resolved remote object: a NodeIdentity needs
// a real backendNodeId or domPath, and only DOM.querySelectorAll plus
// DOM.describeNode carry node handles back, not a bare document-wide
// Runtime.evaluate.
const fallbackRoleNameScript = `function() {
	function roleFor(el) {
		var explicit = el.getAttribute('role');
		if (explicit) return explicit;
		var tag = el.tagName.toLowerCase();
		if (tag === 'a') return 'link';
		if (tag === 'select') return 'combobox';
		if (tag === 'input') {
			var type = (el.getAttribute('type') || 'text').toLowerCase();
			if (type === 'checkbox') return 'checkbox';
			if (type === 'radio') return 'radio';
			return 'textbox';
		}
		if (tag === 'textarea') return 'textbox';
		return 'button';
	}
	function nameFor(el) {
		return el.getAttribute('aria-label') ||
			el.getAttribute('placeholder') ||
			el.getAttribute('title') ||
			(el.innerText || '').slice(0, 50);
	}
	return { role: roleFor(this), name: nameFor(this), properties: {} };
}`

// walkDOMFallback queries the fixed selector union via DOM.querySelectorAll
// so each candidate keeps a real NodeID, describes each one to obtain
// its backendNodeId, computes its domPath the same way walkAXTree does,
// and only then evaluates role/name heuristics against the resolved
// remote object — giving every fallback-assigned ref the same
// resolvable identity an AX-tree ref gets, per spec §4.3.
func (b *Builder) walkDOMFallback(ctx context.Context) ([]Element, error) {
	root, err := dom.GetDocument().Do(ctx)
	if err != nil {
		return nil, bserr.Wrap(bserr.ActionFailed, "get document for DOM fallback", err)
	}

	nodeIDs, err := dom.QuerySelectorAll(root.NodeID, domFallbackSelector).Do(ctx)
	if err != nil {
		return nil, bserr.Wrap(bserr.ActionFailed, "query DOM fallback selector", err)
	}

	elements := make([]Element, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		node, err := dom.DescribeNode().WithNodeID(nodeID).Do(ctx)
		if err != nil {
			// Node already detached between querySelectorAll and describeNode;
			// skip it rather than fail the whole snapshot.
			continue
		}

		domPath, err := computeDOMPath(ctx, node.BackendNodeID)
		if err != nil {
			continue
		}

		candidate, err := b.describeFallbackCandidate(ctx, node.BackendNodeID)
		if err != nil {
			continue
		}

		ref := b.registry.Assign(refs.Identity{
			BackendNodeID: node.BackendNodeID,
			DOMPath:       domPath,
		})

		elements = append(elements, Element{
			Ref:         ref,
			DOMPath:     domPath,
			Role:        candidate.Role,
			Name:        candidate.Name,
			CompactLine: compactLine(ref, candidate.Role, candidate.Name, candidate.Properties),
			Properties:  candidate.Properties,
		})
	}
	return elements, nil
}

func (b *Builder) describeFallbackCandidate(ctx context.Context, backendNodeID cdp.BackendNodeID) (fallbackCandidate, error) {
	obj, _, err := dom.ResolveNode().WithBackendNodeID(backendNodeID).Do(ctx)
	if err != nil {
		return fallbackCandidate{}, bserr.Wrap(bserr.ActionFailed, "resolve DOM fallback node", err)
	}
	defer func() {
		if obj.ObjectID != "" {
			_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		}
	}()

	result, exceptionDetails, err := runtime.CallFunctionOn(fallbackRoleNameScript).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return fallbackCandidate{}, bserr.Wrap(bserr.ActionFailed, "evaluate DOM fallback role/name", err)
	}
	if exceptionDetails != nil {
		return fallbackCandidate{}, bserr.New(bserr.ActionFailed, "DOM fallback role/name script threw: "+exceptionDetails.Text)
	}

	var candidate fallbackCandidate
	if err := json.Unmarshal(result.Value, &candidate); err != nil {
		return fallbackCandidate{}, bserr.Wrap(bserr.ActionFailed, "decode DOM fallback candidate", err)
	}
	return candidate, nil
}

const pageInfoScript = `({
	url: location.href,
	title: document.title,
	width: window.innerWidth,
	height: window.innerHeight
})`

// pageInfo is gathered via a single Runtime.evaluate rather than
// Page.getFrameTree/Page.getLayoutMetrics, matching the teacher's own
// preference (internal/browser/snapshot.go, storage.go) for small JS
// evaluate snippets over chasing multi-field CDP result structs for
// facts the page itself can report directly.
func (b *Builder) pageInfo(ctx context.Context) (PageInfo, error) {
	result, exceptionDetails, err := runtime.Evaluate(pageInfoScript).WithReturnByValue(true).Do(ctx)
	if err != nil {
		return PageInfo{}, bserr.Wrap(bserr.ActionFailed, "evaluate page info", err)
	}
	if exceptionDetails != nil {
		return PageInfo{}, bserr.New(bserr.ActionFailed, "page-info script threw: "+exceptionDetails.Text)
	}

	var info struct {
		URL    string `json:"url"`
		Title  string `json:"title"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	if err := json.Unmarshal(result.Value, &info); err != nil {
		return PageInfo{}, bserr.Wrap(bserr.ActionFailed, "decode page info", err)
	}

	return PageInfo{
		URL:      info.URL,
		Title:    info.Title,
		Viewport: Viewport{Width: info.Width, Height: info.Height},
	}, nil
}

func axValueString(v *accessibility.Value) string {
	if v == nil || len(v.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return strings.Trim(string(v.Value), `"`)
}

func axProperties(props []*accessibility.Property) map[string]string {
	out := make(map[string]string, len(props))
	for _, p := range props {
		if p == nil || p.Value == nil {
			continue
		}
		out[string(p.Name)] = axValueString(p.Value)
	}
	return out
}
