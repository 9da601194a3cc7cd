// Package mcptools registers the seven browser_* MCP tools (spec §6)
// against a live action.Session, grounded on the teacher's
// internal/mcp/tools/memory.go registration pattern (mcp.AddTool with a
// typed input struct and a handler that does nothing but unmarshal
// input, call the orchestrator, and hand back the result). Unlike the
// teacher's resource/action-fanout single tool, the spec fixes seven
// distinct tool names up front, so each gets its own input struct and
// its own AddTool call rather than one handler branching on an action
// field.
package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sgreen7979/browser-stream/internal/action"
)

// Register wires all seven browser_* tools onto server, each one
// closing over the same Session so every call runs against the single
// live page the process owns.
func Register(server *mcp.Server, s *action.Session) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_navigate",
		Title:       "Navigate",
		Description: "Navigate the page to a URL and return a fresh snapshot once it has loaded.",
	}, navigateHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_snapshot",
		Title:       "Snapshot",
		Description: "Take a snapshot of the page's current interactive elements and their @e refs.",
	}, snapshotHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_click",
		Title:       "Click",
		Description: "Click the element identified by ref.",
	}, clickHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_fill",
		Title:       "Fill",
		Description: "Set the value of the element identified by ref.",
	}, fillHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_press_key",
		Title:       "Press Key",
		Description: "Dispatch a key combo (e.g. \"Enter\", \"Control+A\") to the page.",
	}, pressKeyHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_scroll",
		Title:       "Scroll",
		Description: "Scroll an element's nearest scrollable ancestor, or the viewport if ref is omitted.",
	}, scrollHandler(s))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "browser_wait_for",
		Title:       "Wait For",
		Description: "Poll until text appears, a ref resolves, or the timeout expires.",
	}, waitForHandler(s))
}

type navigateInput struct {
	URL string `json:"url" jsonschema:"required,URL to navigate to"`
}

func navigateHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, navigateInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input navigateInput) (*mcp.CallToolResult, any, error) {
		return nil, action.Navigate(ctx, s, input.URL), nil
	}
}

type snapshotInput struct{}

func snapshotHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, snapshotInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ snapshotInput) (*mcp.CallToolResult, any, error) {
		return nil, action.Snapshot(ctx, s), nil
	}
}

type clickInput struct {
	Ref string `json:"ref" jsonschema:"required,Element ref such as @e12"`
}

func clickHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, clickInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input clickInput) (*mcp.CallToolResult, any, error) {
		return nil, action.Click(ctx, s, input.Ref), nil
	}
}

type fillInput struct {
	Ref   string `json:"ref" jsonschema:"required,Element ref such as @e12"`
	Value string `json:"value" jsonschema:"required,Text to set on the element"`
}

func fillHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, fillInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input fillInput) (*mcp.CallToolResult, any, error) {
		return nil, action.Fill(ctx, s, input.Ref, input.Value), nil
	}
}

type pressKeyInput struct {
	Key string `json:"key" jsonschema:"required,Key combo such as Enter or Control+A"`
}

func pressKeyHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, pressKeyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input pressKeyInput) (*mcp.CallToolResult, any, error) {
		return nil, action.PressKey(ctx, s, input.Key), nil
	}
}

type scrollInput struct {
	Ref       string `json:"ref,omitempty" jsonschema:"Element ref whose nearest scrollable ancestor is scrolled; omit to scroll the viewport"`
	Direction string `json:"direction" jsonschema:"required,up or down"`
	Amount    any    `json:"amount,omitempty" jsonschema:"\"page\", \"to-top\", \"to-bottom\", or a pixel count"`
}

func scrollHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, scrollInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input scrollInput) (*mcp.CallToolResult, any, error) {
		amount, err := parseScrollAmount(input.Amount)
		if err != nil {
			return nil, nil, err
		}
		return nil, action.Scroll(ctx, s, input.Ref, input.Direction, amount), nil
	}
}

// parseScrollAmount resolves spec §6's amount union (a bare string kind
// or a numeric pixel count) from the JSON value decoded into the `any`
// field, defaulting to a one-viewport-height page scroll when omitted.
func parseScrollAmount(raw any) (action.ScrollAmount, error) {
	switch v := raw.(type) {
	case nil:
		return action.ScrollAmount{Kind: "page"}, nil
	case string:
		switch v {
		case "page", "to-top", "to-bottom":
			return action.ScrollAmount{Kind: v}, nil
		}
		return action.ScrollAmount{}, fmt.Errorf("invalid scroll amount %q", v)
	case float64:
		return action.ScrollAmount{Kind: "number", Value: v}, nil
	default:
		return action.ScrollAmount{}, fmt.Errorf("invalid scroll amount type %T", raw)
	}
}

type waitForInput struct {
	Text    string  `json:"text,omitempty" jsonschema:"Substring that must appear in the page title or an element's name/value"`
	Ref     string  `json:"ref,omitempty" jsonschema:"Ref that must resolve to a live element with a box model"`
	Timeout float64 `json:"timeout,omitempty" jsonschema:"Timeout in milliseconds, default 10000"`
}

func waitForHandler(s *action.Session) func(context.Context, *mcp.CallToolRequest, waitForInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input waitForInput) (*mcp.CallToolResult, any, error) {
		timeout := time.Duration(input.Timeout) * time.Millisecond
		return nil, action.WaitFor(ctx, s, input.Text, input.Ref, timeout), nil
	}
}
