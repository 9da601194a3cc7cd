// Package stability implements the Stability Waiter (spec §4.6): a
// debounce over DOM mutation and Fetch/XHR network events, bounded by a
// hard cap. Subscriptions reuse internal/events' Subscribe/Unsubscribe
// through internal/cdp.OnTyped. The CDP Channel's event Subject delivers
// asynchronously, so event handlers only ever touch the mutation/network
// counters (guarded by Waiter.mu) and post a non-blocking signal; a single
// goroutine owns the debounce and hard-cap timers exclusively and is the
// only place either timer is read or reset, so the two never race.
package stability

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"

	"github.com/sgreen7979/browser-stream/internal/cdp"
	"github.com/sgreen7979/browser-stream/internal/diff"
	"github.com/sgreen7979/browser-stream/internal/events"
)

const (
	DebounceMs = 200
	HardCapMs  = 3000
)

// Result is what a stability wait resolves to.
type Result struct {
	TimedOut      bool
	NetworkEvents []diff.NetworkEvent
	Mutations     MutationSummary
}

// MutationSummary is the optional mutation-tracking aggregate from
// spec §4.6: per-parent insert/remove counts, reduced to insertions,
// removals, and churnCount = Σ min(ins[p], rem[p]).
type MutationSummary struct {
	Insertions int
	Removals   int
	ChurnCount int
}

type inflightRequest struct {
	method    string
	url       string
	startedAt time.Time
}

// Waiter runs one stability wait at a time; construct a fresh Waiter (or
// reuse one across sequential waits, never concurrent ones) per action.
type Waiter struct {
	channel *cdp.Channel

	mu             sync.Mutex
	pendingNetwork int
	requests       map[network.RequestID]*inflightRequest
	events         []diff.NetworkEvent

	trackMutations bool
	inserts        map[dom.NodeID]int
	removes        map[dom.NodeID]int

	actionStart time.Time
}

// NewWaiter returns a Waiter bound to a channel, tracking mutations only
// if trackMutations is true.
func NewWaiter(channel *cdp.Channel, trackMutations bool) *Waiter {
	return &Waiter{
		channel:        channel,
		requests:       make(map[network.RequestID]*inflightRequest),
		trackMutations: trackMutations,
		inserts:        make(map[dom.NodeID]int),
		removes:        make(map[dom.NodeID]int),
	}
}

// Wait subscribes to the five tracked CDP events, debounces until
// pendingNetwork reaches zero and DEBOUNCE_MS passes with no further
// tracked event, or returns TimedOut=true after HARD_CAP_MS — whichever
// comes first. actionStart bounds which network requests count: only
// ones whose CDP timestamp is at or after it are tracked.
func (w *Waiter) Wait(ctx context.Context, actionStart time.Time) Result {
	w.actionStart = actionStart

	reset := make(chan struct{}, 1)
	signalReset := func() {
		select {
		case reset <- struct{}{}:
		default:
		}
	}

	subs := []events.Subscription{
		cdp.OnTyped(w.channel, "DOM.childNodeInserted", func(_ context.Context, evt *dom.EventChildNodeInserted) error {
			w.onMutation(evt.ParentNodeID, true)
			signalReset()
			return nil
		}),
		cdp.OnTyped(w.channel, "DOM.childNodeRemoved", func(_ context.Context, evt *dom.EventChildNodeRemoved) error {
			w.onMutation(evt.ParentNodeID, false)
			signalReset()
			return nil
		}),
		cdp.OnTyped(w.channel, "Network.requestWillBeSent", func(_ context.Context, evt *network.EventRequestWillBeSent) error {
			w.onRequestWillBeSent(evt)
			signalReset()
			return nil
		}),
		cdp.OnTyped(w.channel, "Network.loadingFinished", func(_ context.Context, evt *network.EventLoadingFinished) error {
			w.onLoadingFinished(evt)
			signalReset()
			return nil
		}),
		cdp.OnTyped(w.channel, "Network.loadingFailed", func(_ context.Context, evt *network.EventLoadingFailed) error {
			w.onLoadingFailed(evt)
			signalReset()
			return nil
		}),
	}
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	timedOut := w.run(ctx, reset)

	w.mu.Lock()
	defer w.mu.Unlock()
	return Result{
		TimedOut:      timedOut,
		NetworkEvents: append([]diff.NetworkEvent(nil), w.events...),
		Mutations:     w.summarizeMutations(),
	}
}

// run owns the debounce and hard-cap timers exclusively: it is the only
// code that ever reads or resets either timer, so concurrent event
// handlers (which only signal over reset) can never race them.
func (w *Waiter) run(ctx context.Context, reset <-chan struct{}) bool {
	debounce := time.NewTimer(DebounceMs * time.Millisecond)
	hardCap := time.NewTimer(HardCapMs * time.Millisecond)
	defer debounce.Stop()
	defer hardCap.Stop()

	for {
		select {
		case <-reset:
			resetTimer(debounce, DebounceMs*time.Millisecond)
		case <-debounce.C:
			w.mu.Lock()
			idle := w.pendingNetwork == 0
			w.mu.Unlock()
			if idle {
				return false
			}
			debounce.Reset(DebounceMs * time.Millisecond)
		case <-hardCap.C:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (w *Waiter) onMutation(parentNodeID dom.NodeID, inserted bool) {
	if !w.trackMutations {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if inserted {
		w.inserts[parentNodeID]++
	} else {
		w.removes[parentNodeID]++
	}
}

func (w *Waiter) onRequestWillBeSent(evt *network.EventRequestWillBeSent) {
	if !isTrackedResourceType(evt.Type) {
		return
	}
	if evt.WallTime.Time().Before(w.actionStart) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests[evt.RequestID] = &inflightRequest{
		method:    evt.Request.Method,
		url:       evt.Request.URL,
		startedAt: evt.WallTime.Time(),
	}
	w.pendingNetwork++
}

func (w *Waiter) onLoadingFinished(evt *network.EventLoadingFinished) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.requests[evt.RequestID]
	if !ok {
		return
	}
	delete(w.requests, evt.RequestID)
	w.pendingNetwork--

	finishedAt := time.Now()
	w.events = append(w.events, diff.NetworkEvent{
		RequestID:  string(evt.RequestID),
		Method:     req.method,
		URL:        req.url,
		StartedAt:  req.startedAt.UnixMilli(),
		FinishedAt: finishedAt.UnixMilli(),
		DurationMs: finishedAt.Sub(req.startedAt).Milliseconds(),
	})
}

func (w *Waiter) onLoadingFailed(evt *network.EventLoadingFailed) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.requests[evt.RequestID]
	if !ok {
		return
	}
	delete(w.requests, evt.RequestID)
	w.pendingNetwork--

	finishedAt := time.Now()
	w.events = append(w.events, diff.NetworkEvent{
		RequestID:  string(evt.RequestID),
		Method:     req.method,
		URL:        req.url,
		StartedAt:  req.startedAt.UnixMilli(),
		FinishedAt: finishedAt.UnixMilli(),
		DurationMs: finishedAt.Sub(req.startedAt).Milliseconds(),
	})
}

func (w *Waiter) summarizeMutations() MutationSummary {
	var summary MutationSummary
	for parent, ins := range w.inserts {
		rem := w.removes[parent]
		summary.Insertions += ins
		summary.ChurnCount += min(ins, rem)
	}
	for _, rem := range w.removes {
		summary.Removals += rem
	}
	return summary
}

func isTrackedResourceType(t network.ResourceType) bool {
	return t == network.ResourceTypeFetch || t == network.ResourceTypeXHR
}
