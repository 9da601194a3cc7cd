// Command browser-stream runs the browser automation server (spec §6):
// it dials or launches exactly one Chromium page, registers the seven
// browser_* MCP tools over stdio, and serves until SIGINT/SIGTERM.
//
// Grounded on the teacher's cmd/nebo/root.go signal-handling shape
// (context.WithCancel plus a signal.Notify goroutine), trimmed to this
// server's single flag and two exit codes — no lock file, no single
// instance enforcement, since a stdio MCP server is already scoped to
// one parent process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sgreen7979/browser-stream/internal/action"
	"github.com/sgreen7979/browser-stream/internal/browserproc"
	"github.com/sgreen7979/browser-stream/internal/cdp"
	"github.com/sgreen7979/browser-stream/internal/config"
	"github.com/sgreen7979/browser-stream/internal/mcptools"
)

func main() {
	cmd := rootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config.Config

	cmd := &cobra.Command{
		Use:   "browser-stream",
		Short: "Expose one browser page to an MCP client over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), config.Resolve(cfg))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.CDPURL, "cdp-url", "", "attach to an existing browser's CDP websocket URL instead of launching one")
	flags.IntVar(&cfg.HealthPort, "health-port", 0, "port for an optional liveness endpoint (0 disables it)")
	flags.BoolVar(&cfg.Headless, "headless", false, "run a launched browser headlessly (ignored when --cdp-url is set)")
	flags.BoolVar(&cfg.NoSandbox, "no-sandbox", false, "disable the launched browser's sandbox (ignored when --cdp-url is set)")
	flags.StringVar(&cfg.ExecutablePath, "executable-path", "", "override the browser executable used when launching (ignored when --cdp-url is set)")

	return cmd
}

func run(parent context.Context, resolved *config.ResolvedConfig) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	wsURL := resolved.CDPURL
	var closeBrowser func()
	if wsURL == "" {
		launched, err := browserproc.Launch(ctx, resolved)
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		wsURL = launched.WSURL
		closeBrowser = launched.Close
		defer closeBrowser()
	}

	channel, err := cdp.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("dial CDP target: %w", err)
	}
	defer channel.Close()

	session := action.NewSession(channel)

	browserproc.ServeHealth(ctx, resolved.HealthPort)

	server := mcp.NewServer(&mcp.Implementation{Name: "browser-stream", Version: "1.0.0"}, nil)
	mcptools.Register(server, session)

	return server.Run(ctx, &mcp.StdioTransport{})
}
