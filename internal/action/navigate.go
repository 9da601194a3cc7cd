package action

import (
	"context"
	"time"

	cdpcore "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/cdp"
	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

const navigateTimeout = 30 * time.Second

// Navigate implements spec §4.7.5. Unlike the other five actions it
// runs outside the shared pipeline: there is no pre-snapshot or diff,
// only markAllStale() followed by one fresh snapshot once the page has
// loaded.
func Navigate(ctx context.Context, s *Session, url string) SnapshotResult {
	start := time.Now()
	ctx = cdpcore.WithExecutor(ctx, s.Channel)

	if s.Channel.Crashed() {
		return snapshotErrorResult(bserr.New(bserr.PageCrashed, "CDP target has crashed"), start)
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	loaded := make(chan struct{}, 1)
	sub := cdp.OnTyped(s.Channel, "Page.loadEventFired", func(_ context.Context, _ *page.EventLoadEventFired) error {
		select {
		case loaded <- struct{}{}:
		default:
		}
		return nil
	})
	defer sub.Unsubscribe()

	if err := page.Navigate(url).Do(ctx); err != nil {
		return snapshotErrorResult(bserr.Wrap(bserr.ActionFailed, "navigate", err), start)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()

	select {
	case <-loaded:
	case <-timeoutCtx.Done():
		return snapshotErrorResult(bserr.New(bserr.ActionFailed, "navigation did not complete within 30s"), start)
	}

	s.Registry.MarkAllStale()

	data, err := s.Builder.TakeSnapshot(ctx, snapshot.Options{})
	if err != nil {
		return snapshotErrorResult(bserr.Wrap(bserr.ActionFailed, "snapshot after navigate", err), start)
	}

	return SnapshotResult{
		Version:  1,
		OK:       true,
		Page:     data.Page,
		Elements: compactLines(data.Elements),
		TimingMs: time.Since(start).Milliseconds(),
	}
}

func snapshotErrorResult(err error, start time.Time) SnapshotResult {
	detail := bserr.ToDetail(err)
	return SnapshotResult{
		Version:  1,
		OK:       false,
		Errors:   []ErrorDetail{{Code: detail.Code, Message: detail.Message}},
		TimingMs: time.Since(start).Milliseconds(),
	}
}
