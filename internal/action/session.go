package action

import (
	"sync"

	"github.com/sgreen7979/browser-stream/internal/cdp"
	"github.com/sgreen7979/browser-stream/internal/refs"
	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

// Session owns exactly one CDP Channel, one Ref Registry, and the
// orchestrator's action-exclusivity lock, for the process's lifetime —
// spec §3's Session, collapsed from the teacher's Session/Page split to
// one page since multi-page/frame management is explicitly out of scope.
type Session struct {
	Channel  *cdp.Channel
	Registry *refs.Registry
	Resolver *refs.Resolver
	Builder  *snapshot.Builder

	// actionMu serializes mutating actions as defense in depth, grounded
	// on the teacher's session-level locking idiom even though the MCP
	// stdio transport already delivers one call at a time.
	actionMu sync.Mutex
}

// NewSession wires a Session's components together over one live
// channel.
func NewSession(channel *cdp.Channel) *Session {
	registry := refs.NewRegistry()
	return &Session{
		Channel:  channel,
		Registry: registry,
		Resolver: refs.NewResolver(registry, channel),
		Builder:  snapshot.NewBuilder(registry),
	}
}
