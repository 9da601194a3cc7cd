// Package diff implements the Differ (spec §4.5): matching a pre- and
// post-action snapshot's elements, then NetworkEvents observed while the
// Stability Waiter ran, into an ordered Consequence list. There is no
// direct teacher analog — the teacher never diffs two snapshots — so
// this package is built directly from the element representation
// internal/snapshot already produces and the spec's own contract.
package diff

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

// Kind is one of the six Consequence tags.
type Kind string

const (
	KindAppeared    Kind = "appeared"
	KindDisappeared Kind = "disappeared"
	KindChanged     Kind = "changed"
	KindNetwork     Kind = "network"
	KindDOMChurn    Kind = "dom-churn"
	KindLayoutShift Kind = "layout-shift"
)

// Consequence is spec §3's tagged Consequence variant.
type Consequence struct {
	Kind       Kind    `json:"kind"`
	Desc       string  `json:"desc"`
	Ref        string  `json:"ref,omitempty"`
	ChurnCount int     `json:"churnCount,omitempty"`
	CLS        float64 `json:"cls,omitempty"`
	ShiftCount int     `json:"shiftCount,omitempty"`
}

// NetworkEvent is spec §3's NetworkEvent, tracked only while a stability
// wait is active.
type NetworkEvent struct {
	RequestID  string
	Method     string
	URL        string
	StartedAt  int64
	FinishedAt int64
	Status     int
	DurationMs int64
	Pending    bool
}

// Diff matches pre and post element sets and folds in network events,
// producing the ordered consequence list: appeared, disappeared,
// changed, then network. DOM-churn and layout-shift consequences are
// appended by the Action Orchestrator for scroll, not by Diff itself.
func Diff(pre, post []snapshot.Element, events []NetworkEvent) []Consequence {
	preByAX := indexByAXNodeID(pre)
	preByDOMPath := indexByDOMPath(pre)

	matchedPre := make(map[string]bool, len(pre))
	matchedPost := make(map[string]bool, len(post))
	pairs := make(map[string]string) // post ref -> pre ref

	for _, p := range post {
		if p.AXNodeID == "" {
			continue
		}
		if preEl, ok := preByAX[p.AXNodeID]; ok && !matchedPre[preEl.Ref] {
			matchedPre[preEl.Ref] = true
			matchedPost[p.Ref] = true
			pairs[p.Ref] = preEl.Ref
		}
	}

	for _, p := range post {
		if matchedPost[p.Ref] || p.DOMPath == "" {
			continue
		}
		if preEl, ok := preByDOMPath[p.DOMPath]; ok && !matchedPre[preEl.Ref] {
			matchedPre[preEl.Ref] = true
			matchedPost[p.Ref] = true
			pairs[p.Ref] = preEl.Ref
		}
	}

	preByRef := indexByRef(pre)
	postByRef := indexByRef(post)

	var appeared, disappeared, changed, network []Consequence

	for _, p := range post {
		if !matchedPost[p.Ref] {
			appeared = append(appeared, Consequence{
				Kind: KindAppeared,
				Ref:  p.Ref,
				Desc: fmt.Sprintf("%s %q appeared", p.Role, p.Name),
			})
		}
	}

	for _, preEl := range pre {
		if !matchedPre[preEl.Ref] {
			disappeared = append(disappeared, Consequence{
				Kind: KindDisappeared,
				Ref:  preEl.Ref,
				Desc: fmt.Sprintf("%s %q disappeared", preEl.Role, preEl.Name),
			})
		}
	}

	for postRef, preRef := range pairs {
		preEl := preByRef[preRef]
		postEl := postByRef[postRef]
		if desc, ok := describeChange(preEl, postEl); ok {
			changed = append(changed, Consequence{Kind: KindChanged, Ref: postRef, Desc: desc})
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Ref < changed[j].Ref })

	for _, evt := range events {
		network = append(network, Consequence{Kind: KindNetwork, Desc: describeNetworkEvent(evt)})
	}

	out := make([]Consequence, 0, len(appeared)+len(disappeared)+len(changed)+len(network))
	out = append(out, appeared...)
	out = append(out, disappeared...)
	out = append(out, changed...)
	out = append(out, network...)
	return out
}

func describeChange(pre, post snapshot.Element) (string, bool) {
	var segments []string

	if pre.Name != post.Name {
		segments = append(segments, fmt.Sprintf(`name: %q -> %q`, pre.Name, post.Name))
	}
	if pre.Role != post.Role {
		segments = append(segments, fmt.Sprintf(`role: %q -> %q`, pre.Role, post.Role))
	}

	for _, key := range symmetricDifferenceKeys(pre.Properties, post.Properties) {
		oldVal, newVal := pre.Properties[key], post.Properties[key]
		if oldVal == newVal {
			continue
		}
		segments = append(segments, fmt.Sprintf(`%s: %q -> %q`, key, oldVal, newVal))
	}

	if len(segments) == 0 {
		return "", false
	}

	desc := segments[0]
	for _, s := range segments[1:] {
		desc += ", " + s
	}
	return desc, true
}

func symmetricDifferenceKeys(a, b map[string]string) []string {
	seen := make(map[string]bool)
	var keys []string
	for k := range a {
		if _, ok := b[k]; !ok || a[k] != b[k] {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok || a[k] != b[k] {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func describeNetworkEvent(evt NetworkEvent) string {
	pathname := evt.URL
	if parsed, err := url.Parse(evt.URL); err == nil && parsed.Path != "" {
		pathname = parsed.Path
	}

	status := "pending"
	if !evt.Pending {
		status = fmt.Sprintf("%d", evt.Status)
	}

	return fmt.Sprintf("%s %s -> %s (%dms)", evt.Method, pathname, status, evt.DurationMs)
}

func indexByAXNodeID(elements []snapshot.Element) map[string]snapshot.Element {
	out := make(map[string]snapshot.Element, len(elements))
	for _, e := range elements {
		if e.AXNodeID != "" {
			out[e.AXNodeID] = e
		}
	}
	return out
}

func indexByDOMPath(elements []snapshot.Element) map[string]snapshot.Element {
	out := make(map[string]snapshot.Element, len(elements))
	for _, e := range elements {
		if e.DOMPath != "" {
			out[e.DOMPath] = e
		}
	}
	return out
}

func indexByRef(elements []snapshot.Element) map[string]snapshot.Element {
	out := make(map[string]snapshot.Element, len(elements))
	for _, e := range elements {
		out[e.Ref] = e
	}
	return out
}
