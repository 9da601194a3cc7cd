package refs

import (
	"context"

	"github.com/chromedp/cdproto/accessibility"
	cdpcore "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"

	"github.com/sgreen7979/browser-stream/internal/bserr"
)

// ResolvedBy names which tier of the three-tier ladder produced a
// resolution, surfaced in action results per spec §4.2.
type ResolvedBy string

const (
	ResolvedByBackendNodeID ResolvedBy = "backendNodeId"
	ResolvedByDOMPath       ResolvedBy = "domPath"
)

// Resolution is the outcome of resolving one ref to a live node.
type Resolution struct {
	BackendNodeID cdpcore.BackendNodeID
	ResolvedBy    ResolvedBy
}

// Executor is the subset of cdp.Executor the resolver needs; satisfied by
// *internal/cdp.Channel. Declared locally so this package doesn't import
// the cdp package just to name its concrete type.
type Executor interface {
	cdpcore.Executor
}

// Resolver implements the three-tier resolution ladder from spec §4.2.
type Resolver struct {
	registry *Registry
	exec     Executor
}

// NewResolver returns a Resolver bound to a Registry and a live CDP
// executor.
func NewResolver(registry *Registry, exec Executor) *Resolver {
	return &Resolver{registry: registry, exec: exec}
}

// Resolve runs the three-tier ladder for ref:
//  1. Unknown ref -> NO_SUCH_REF.
//  2. DOM.resolveNode(backendNodeId) succeeds -> resolvedBy=backendNodeId.
//  3. Otherwise DOM.querySelector(root, domPath); on a hit, describeNode
//     it, write the refreshed backendNodeId back into the registry, best-
//     effort refresh axNodeId, clear stale, resolvedBy=domPath.
//  4. Any other failure -> REF_STALE.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Resolution, error) {
	identity, ok := r.registry.Get(ref)
	if !ok {
		return Resolution{}, bserr.New(bserr.NoSuchRef, ref)
	}

	ctx = cdpcore.WithExecutor(ctx, r.exec)

	if identity.BackendNodeID != 0 {
		if _, err := dom.ResolveNode().WithBackendNodeID(identity.BackendNodeID).Do(ctx); err == nil {
			return Resolution{BackendNodeID: identity.BackendNodeID, ResolvedBy: ResolvedByBackendNodeID}, nil
		}
	}

	if identity.DOMPath == "" {
		return Resolution{}, bserr.New(bserr.RefStale, ref)
	}

	root, err := dom.GetDocument().Do(ctx)
	if err != nil {
		return Resolution{}, bserr.Wrap(bserr.RefStale, ref, err)
	}

	nodeID, err := dom.QuerySelector(root.NodeID, identity.DOMPath).Do(ctx)
	if err != nil || nodeID == 0 {
		return Resolution{}, bserr.New(bserr.RefStale, ref)
	}

	node, err := dom.DescribeNode().WithNodeID(nodeID).Do(ctx)
	if err != nil {
		return Resolution{}, bserr.Wrap(bserr.RefStale, ref, err)
	}

	refreshed := identity
	refreshed.BackendNodeID = node.BackendNodeID
	refreshed.Stale = false

	if axNodes, err := accessibility.GetPartialAXTree().WithBackendNodeID(node.BackendNodeID).Do(ctx); err == nil && len(axNodes) > 0 {
		refreshed.AXNodeID = string(axNodes[0].NodeID)
	}

	r.registry.Update(ref, refreshed)

	return Resolution{BackendNodeID: refreshed.BackendNodeID, ResolvedBy: ResolvedByDOMPath}, nil
}
