package action

import (
	"context"
	"time"

	cdpcore "github.com/chromedp/cdproto/cdp"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

// Snapshot implements the bare browser_snapshot tool call: take a fresh
// snapshot of the page's current interactive elements without acting
// on or navigating it first. Shares Navigate's post-load snapshot
// shape but assigns refs against whatever the page already holds
// instead of a just-loaded document.
func Snapshot(ctx context.Context, s *Session) SnapshotResult {
	start := time.Now()
	ctx = cdpcore.WithExecutor(ctx, s.Channel)

	if s.Channel.Crashed() {
		return snapshotErrorResult(bserr.New(bserr.PageCrashed, "CDP target has crashed"), start)
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	data, err := s.Builder.TakeSnapshot(ctx, snapshot.Options{})
	if err != nil {
		return snapshotErrorResult(bserr.Wrap(bserr.ActionFailed, "take snapshot", err), start)
	}

	return SnapshotResult{
		Version:  1,
		OK:       true,
		Page:     data.Page,
		Elements: compactLines(data.Elements),
		TimingMs: time.Since(start).Milliseconds(),
	}
}
