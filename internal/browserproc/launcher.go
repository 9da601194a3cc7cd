// Package browserproc launches a local Chromium and hands back the
// CDP websocket URL to dial, for when the process is not given
// --cdp-url and must start its own browser (spec §6). Grounded on the
// teacher's internal/agent/tools/browser.go NewBrowserTool allocator
// construction for the launch flags, and internal/browser/chrome.go's
// IsChromeReachable/GetChromeWebSocketURL for discovering the real
// websocket URL afterward, since this module's internal/cdp.Channel
// dials a raw websocket URL directly rather than going through
// chromedp's own driver.
package browserproc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/sgreen7979/browser-stream/internal/config"
	"github.com/sgreen7979/browser-stream/internal/defaults"
)

const (
	readyPollInterval = 200 * time.Millisecond
	readyTimeout      = 15 * time.Second
)

// Launched is a running browser process: the CDP websocket URL to dial
// and a Close func that terminates it.
type Launched struct {
	WSURL string
	Close func()
}

// Launch starts a local Chromium per cfg's viewport/headless/sandbox
// settings, waits for its CDP endpoint to come up, and returns the
// websocket URL to dial.
func Launch(ctx context.Context, cfg *config.ResolvedConfig) (*Launched, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("find a free CDP port: %w", err)
	}

	windowSize := fmt.Sprintf("%d,%d", cfg.ViewportWidth, cfg.ViewportHeight)

	dataDir, err := defaults.EnsureDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve browser data directory: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("window-size", windowSize),
		chromedp.Flag("remote-debugging-port", strconv.Itoa(port)),
		chromedp.UserDataDir(dataDir),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true), chromedp.Flag("disable-dev-shm-usage", true))
	}
	if cfg.ExecutablePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecutablePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	// NewContext doesn't itself start the browser process; Run with a
	// no-op action does, the same way chromedp's own examples spin up
	// a context before issuing real navigation actions.
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chromium: %w", err)
	}

	cdpURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	wsURL, err := waitForWebSocketURL(ctx, cdpURL, readyTimeout)
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &Launched{
		WSURL: wsURL,
		Close: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForWebSocketURL polls cdpURL's /json/version endpoint until it
// answers with a webSocketDebuggerUrl or timeout elapses.
func waitForWebSocketURL(ctx context.Context, cdpURL string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	versionURL := strings.TrimSuffix(cdpURL, "/") + "/json/version"

	for time.Now().Before(deadline) {
		wsURL, err := fetchWebSocketURL(ctx, versionURL)
		if err == nil {
			return wsURL, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
	return "", fmt.Errorf("chromium CDP endpoint did not come up within %s", timeout)
}

func fetchWebSocketURL(ctx context.Context, versionURL string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, readyPollInterval)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, versionURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return "", err
	}
	if version.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("no webSocketDebuggerUrl in /json/version response")
	}
	return version.WebSocketDebuggerURL, nil
}
