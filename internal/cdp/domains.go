package cdp

import (
	"context"
	"encoding/json"

	"github.com/sgreen7979/browser-stream/internal/events"
)

// requiredDomains are enabled on every Channel before it is handed to the
// rest of the core. Accessibility backs the Snapshot Builder's AX-tree
// walk, Network backs the Stability Waiter's in-flight-request tracking,
// and Inspector surfaces the page-crash signal every pipeline stage checks.
var requiredDomains = []string{
	"Page.enable",
	"DOM.enable",
	"Runtime.enable",
	"Accessibility.enable",
	"Network.enable",
	"Inspector.enable",
}

func (c *Channel) enableDomains(ctx context.Context) error {
	for _, method := range requiredDomains {
		if err := c.Send(ctx, method, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// subscribeInternal wires the channel's own crashed-state tracking onto its
// event subject before any caller subscriptions exist, so a crash observed
// mid-action is visible to every stage checking Crashed() rather than only
// to whoever happens to be subscribed to Inspector.targetCrashed directly.
func (c *Channel) subscribeInternal() {
	events.Subscribe(c.events, events.MethodTopic("Inspector.targetCrashed"), func(ctx context.Context, raw json.RawMessage) error {
		c.crashed.Store(true)
		c.log.Warn("target crashed")
		return nil
	})
}
