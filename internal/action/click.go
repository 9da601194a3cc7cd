package action

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/input"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/diff"
	"github.com/sgreen7979/browser-stream/internal/interact"
	"github.com/sgreen7979/browser-stream/internal/refs"
	"github.com/sgreen7979/browser-stream/internal/stability"
)

// Click implements spec §4.7.1: mouse moved, mouse pressed, mouse
// released, all at the Interactable Check's centroid, grounded on the
// teacher's clickRef (a full mouse-down/up pair rather than chromedp's
// synthetic MouseClickXY, since the CDP-native action dispatches the
// events itself).
func Click(ctx context.Context, s *Session, ref string) ActionResult {
	return s.run(ctx, "click", ref, true, func(ctx context.Context, resolution *refs.Resolution, ir *interact.Result, actionStart time.Time) ([]string, []diff.Consequence, []diff.NetworkEvent, error) {
		if err := dispatchClick(ctx, ir.X, ir.Y); err != nil {
			return nil, nil, nil, err
		}

		waiter := stability.NewWaiter(s.Channel, false)
		result := waiter.Wait(ctx, actionStart)

		var warnings []string
		if result.TimedOut {
			warnings = append(warnings, "STABILITY_TIMEOUT: page did not settle within the hard cap")
		}
		return warnings, nil, result.NetworkEvents, nil
	})
}

func dispatchClick(ctx context.Context, x, y float64) error {
	if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
		return bserr.Wrap(bserr.ActionFailed, "dispatch mouseMoved", err)
	}
	if err := input.DispatchMouseEvent(input.MousePressed, x, y).
		WithButton(input.Left).
		WithClickCount(1).
		Do(ctx); err != nil {
		return bserr.Wrap(bserr.ActionFailed, "dispatch mousePressed", err)
	}
	if err := input.DispatchMouseEvent(input.MouseReleased, x, y).
		WithButton(input.Left).
		WithClickCount(1).
		Do(ctx); err != nil {
		return bserr.Wrap(bserr.ActionFailed, "dispatch mouseReleased", err)
	}
	return nil
}
