package stability

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/dom"

	"github.com/sgreen7979/browser-stream/internal/cdp"
	"github.com/sgreen7979/browser-stream/internal/events"
)

// MutationTracker is the standalone mutation tracker spec §4.6 calls for
// on scroll: it subscribes before the scroll command is issued, so it
// catches mutations fired synchronously during the scrollTop= assignment,
// and stops once the caller is done with it (after the stability wait,
// per the orchestrator's scroll pipeline in §4.7.4).
type MutationTracker struct {
	mu      sync.Mutex
	inserts map[dom.NodeID]int
	removes map[dom.NodeID]int

	subs []events.Subscription
}

// StartMutationTracker subscribes to DOM.childNodeInserted/Removed
// immediately; callers must call Stop when done to release the
// subscriptions and obtain the final summary.
func StartMutationTracker(channel *cdp.Channel) *MutationTracker {
	t := &MutationTracker{
		inserts: make(map[dom.NodeID]int),
		removes: make(map[dom.NodeID]int),
	}
	t.subs = []events.Subscription{
		cdp.OnTyped(channel, "DOM.childNodeInserted", func(_ context.Context, evt *dom.EventChildNodeInserted) error {
			t.mu.Lock()
			t.inserts[evt.ParentNodeID]++
			t.mu.Unlock()
			return nil
		}),
		cdp.OnTyped(channel, "DOM.childNodeRemoved", func(_ context.Context, evt *dom.EventChildNodeRemoved) error {
			t.mu.Lock()
			t.removes[evt.ParentNodeID]++
			t.mu.Unlock()
			return nil
		}),
	}
	return t
}

// Stop unsubscribes and returns the accumulated mutation summary.
func (t *MutationTracker) Stop() MutationSummary {
	for _, s := range t.subs {
		s.Unsubscribe()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var summary MutationSummary
	for parent, ins := range t.inserts {
		rem := t.removes[parent]
		summary.Insertions += ins
		summary.ChurnCount += min(ins, rem)
	}
	for _, rem := range t.removes {
		summary.Removals += rem
	}
	return summary
}
