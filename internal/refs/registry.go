// Package refs implements the Ref Registry and Ref Resolver (spec §4.2):
// the session-unique @e-ref <-> node-identity map and the three-tier
// algorithm that turns a ref back into a live backendNodeId. Grounded on
// the teacher's internal/browser/snapshot.go node-id bookkeeping, adapted
// from the teacher's ephemeral per-snapshot ids to a ref scheme that
// survives across snapshots within one session.
package refs

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
)

// Identity is the NodeIdentity triple from spec §3: at least one of
// BackendNodeID or DOMPath must be non-empty.
type Identity struct {
	AXNodeID      string
	BackendNodeID cdp.BackendNodeID
	DOMPath       string
	Stale         bool
}

// Registry holds the session-scoped @e-ref -> Identity map. Refs are
// assigned from a monotonic counter that is never decremented or reused,
// even across Clear, for the lifetime of the Registry.
type Registry struct {
	mu      sync.RWMutex
	counter int64
	entries map[string]*Identity
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Identity)}
}

// Assign increments the counter, stores identity with Stale cleared, and
// returns the new ref string.
func (r *Registry) Assign(identity Identity) string {
	identity.Stale = false
	id := atomic.AddInt64(&r.counter, 1)
	ref := fmt.Sprintf("@e%d", id)

	r.mu.Lock()
	r.entries[ref] = &identity
	r.mu.Unlock()

	return ref
}

// Get returns the stored identity for ref, and whether it exists.
func (r *Registry) Get(ref string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[ref]
	if !ok {
		return Identity{}, false
	}
	return *entry, true
}

// Update overwrites the stored identity for an existing ref. It is a
// no-op if ref is unknown.
func (r *Registry) Update(ref string, identity Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[ref]; ok {
		r.entries[ref] = &identity
	}
}

// MarkAllStale flags every currently registered ref as stale, without
// removing it. Used before a new snapshot is taken so resolution against
// pre-snapshot refs fails fast instead of silently resolving into the
// wrong generation of the page.
func (r *Registry) MarkAllStale() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.Stale = true
	}
}

// Clear wipes every entry but preserves the counter, so refs minted
// after a Clear can never collide with refs from before it.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*Identity)
}

// Free removes a single ref from the registry.
func (r *Registry) Free(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, ref)
}

// ResetCounter is a test-only hook that resets the monotonic counter to
// zero. Production code never calls this.
func (r *Registry) ResetCounter() {
	atomic.StoreInt64(&r.counter, 0)
}

// Len reports the number of currently registered refs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
