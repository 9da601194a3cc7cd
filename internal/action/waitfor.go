package action

import (
	"context"
	"strings"
	"time"

	cdpcore "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

const waitForPollInterval = 500 * time.Millisecond

var defaultWaitForTimeout = 10 * time.Second

// WaitFor implements spec §4.7.6: poll every 500ms until every
// condition supplied holds, or timeout expires. Like Navigate, it
// returns a SnapshotResult and runs outside the shared mutating-action
// pipeline since it observes rather than acts.
func WaitFor(ctx context.Context, s *Session, text, ref string, timeout time.Duration) SnapshotResult {
	start := time.Now()
	ctx = cdpcore.WithExecutor(ctx, s.Channel)

	if s.Channel.Crashed() {
		return snapshotErrorResult(bserr.New(bserr.PageCrashed, "CDP target has crashed"), start)
	}

	if timeout <= 0 {
		timeout = defaultWaitForTimeout
	}

	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(waitForPollInterval)
	defer ticker.Stop()

	for {
		data, ok, err := s.checkWaitForConditions(deadlineCtx, text, ref)
		if err != nil {
			return snapshotErrorResult(bserr.Wrap(bserr.ActionFailed, "check wait-for conditions", err), start)
		}
		if ok {
			return SnapshotResult{
				Version:  1,
				OK:       true,
				Page:     data.Page,
				Elements: compactLines(data.Elements),
				TimingMs: time.Since(start).Milliseconds(),
			}
		}

		select {
		case <-ticker.C:
		case <-deadlineCtx.Done():
			return snapshotErrorResult(bserr.New(bserr.WaitTimeout, "condition not met within "+timeout.String()), start)
		}
	}
}

// checkWaitForConditions takes a fresh snapshot (to evaluate the text
// condition against the latest title/elements) and, if a ref was
// given, additionally confirms the ref resolves and has a box model —
// without scrolling or otherwise mutating page state.
func (s *Session) checkWaitForConditions(ctx context.Context, text, ref string) (snapshot.Data, bool, error) {
	data, err := s.Builder.TakeSnapshot(ctx, snapshot.Options{KeepExistingRefs: true})
	if err != nil {
		return snapshot.Data{}, false, err
	}

	if text != "" && !textConditionMet(text, data) {
		return data, false, nil
	}

	if ref != "" {
		met, err := refConditionMet(ctx, s, ref)
		if err != nil {
			return data, false, nil
		}
		if !met {
			return data, false, nil
		}
	}

	return data, true, nil
}

func textConditionMet(text string, data snapshot.Data) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(data.Page.Title), needle) {
		return true
	}
	for _, e := range data.Elements {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			return true
		}
		if value, ok := e.Properties["value"]; ok && strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

func refConditionMet(ctx context.Context, s *Session, ref string) (bool, error) {
	resolution, err := s.Resolver.Resolve(ctx, ref)
	if err != nil {
		return false, nil
	}
	box, err := dom.GetBoxModel().WithBackendNodeID(resolution.BackendNodeID).Do(ctx)
	if err != nil || box == nil {
		return false, nil
	}
	return true, nil
}
