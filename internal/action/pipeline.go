package action

import (
	"context"
	"errors"
	"time"

	cdpcore "github.com/chromedp/cdproto/cdp"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/diff"
	"github.com/sgreen7979/browser-stream/internal/interact"
	"github.com/sgreen7979/browser-stream/internal/refs"
	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

// primitiveFunc runs one action's input primitives and its own
// stability wait (actions that need extra setup around the wait, like
// scroll's standalone mutation tracker, own that ordering themselves).
// resolution is non-nil iff the action was given a ref. ir is the
// Interactable Check's result when needsInteractCheck was set on run
// (click, fill); it is nil for scroll, which resolves its own backend
// node id without the full centroid/viewport check. The primitive
// returns any warnings it already knows about (e.g. scroll's
// boundary/fallback warnings), any consequences it computed itself
// (scroll's dom-churn/layout-shift) in addition to whatever the Differ
// finds between the pre- and post-snapshots, and the network events
// observed during the wait so the Differ can fold them in.
type primitiveFunc func(ctx context.Context, resolution *refs.Resolution, ir *interact.Result, actionStart time.Time) (warnings []string, extra []diff.Consequence, events []diff.NetworkEvent, err error)

// run executes spec §4.7's shared pipeline in order: resolve the ref
// (if any), Interactable Check when needsInteractCheck is set, THEN the
// pre-snapshot, then the primitive, post-snapshot, diff, and envelope
// construction. Interactable Check runs ahead of the pre-snapshot
// because its scrollIntoViewIfNeeded fallback can itself mutate scroll
// position or trigger lazy content; doing that settling before the
// pre-snapshot is taken keeps the post-snapshot diff attributable to
// the action itself rather than to the check's own side effect. A
// thrown error becomes ACTION_FAILED unless it already carries a more
// specific bserr.Code.
func (s *Session) run(ctx context.Context, actionName, ref string, needsInteractCheck bool, primitive primitiveFunc) ActionResult {
	start := time.Now()
	ctx = cdpcore.WithExecutor(ctx, s.Channel)

	if s.Channel.Crashed() {
		return errorResult(actionName, bserr.New(bserr.PageCrashed, "CDP target has crashed"), start)
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	var resolvedBy refs.ResolvedBy
	var resolution *refs.Resolution
	if ref != "" {
		resolved, err := s.Resolver.Resolve(ctx, ref)
		if err != nil {
			return errorResult(actionName, err, start)
		}
		resolvedBy = resolved.ResolvedBy
		resolution = &resolved
	}

	var ir *interact.Result
	if needsInteractCheck && resolution != nil {
		checked, err := interact.Check(ctx, resolution.BackendNodeID, resolution.ResolvedBy)
		if err != nil {
			return errorResultWithResolvedBy(actionName, wrapActionFailed(err), start, resolvedBy)
		}
		ir = &checked
	}

	pre, err := s.Builder.TakeSnapshot(ctx, snapshot.Options{KeepExistingRefs: true})
	if err != nil {
		return errorResultWithResolvedBy(actionName, wrapActionFailed(err), start, resolvedBy)
	}

	actionStart := time.Now()
	warnings, extra, events, err := primitive(ctx, resolution, ir, actionStart)
	if err != nil {
		return errorResultWithResolvedBy(actionName, wrapActionFailed(err), start, resolvedBy)
	}

	post, err := s.Builder.TakeSnapshot(ctx, snapshot.Options{})
	if err != nil {
		return errorResultWithResolvedBy(actionName, wrapActionFailed(err), start, resolvedBy)
	}

	consequences := diff.Diff(pre.Elements, post.Elements, events)
	consequences = append(consequences, extra...)

	newInteractive := newInteractiveElements(post.Elements, consequences)

	return ActionResult{
		Version:                1,
		Action:                 actionName,
		OK:                     true,
		Page:                   post.Page,
		Consequences:           consequences,
		NewInteractiveElements: newInteractive,
		Warnings:               warnings,
		ResolvedBy:             resolvedBy,
		TimingMs:               time.Since(start).Milliseconds(),
	}
}

func wrapActionFailed(err error) error {
	var be *bserr.Error
	if errors.As(err, &be) {
		return be
	}
	return bserr.Wrap(bserr.ActionFailed, "action primitive failed", err)
}

func errorResult(actionName string, err error, start time.Time) ActionResult {
	return errorResultWithResolvedBy(actionName, err, start, "")
}

func errorResultWithResolvedBy(actionName string, err error, start time.Time, resolvedBy refs.ResolvedBy) ActionResult {
	detail := bserr.ToDetail(err)
	return ActionResult{
		Version:    1,
		Action:     actionName,
		OK:         false,
		Errors:     []ErrorDetail{{Code: detail.Code, Message: detail.Message}},
		ResolvedBy: resolvedBy,
		TimingMs:   time.Since(start).Milliseconds(),
	}
}

func newInteractiveElements(post []snapshot.Element, consequences []diff.Consequence) []string {
	appeared := make(map[string]bool)
	for _, c := range consequences {
		if c.Kind == diff.KindAppeared && c.Ref != "" {
			appeared[c.Ref] = true
		}
	}
	var lines []string
	for _, e := range post {
		if appeared[e.Ref] {
			lines = append(lines, e.CompactLine)
		}
	}
	return lines
}
