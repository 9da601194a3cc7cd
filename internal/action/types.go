// Package action implements the Action Orchestrator (spec §4.7): the one
// shared pipeline every mutating tool call runs through, plus the six
// action primitives (click, fill, press-key, scroll, navigate, wait-for).
// Grounded on the teacher's per-action-method structure in
// internal/browser/actions.go (one method per action, an ActionResult
// envelope, an Options struct per action with a Timeout field) — kept as
// the shape, generalized into one pipeline function parameterized by an
// action's primitive closure instead of the teacher's per-method
// boilerplate duplication, since the CDP-native actions share the exact
// fixed pre/act/settle/post/diff sequence spec §4.7 names.
package action

import (
	"github.com/sgreen7979/browser-stream/internal/diff"
	"github.com/sgreen7979/browser-stream/internal/refs"
	"github.com/sgreen7979/browser-stream/internal/snapshot"
)

// ActionResult is spec §6's stable (version 1) envelope for every
// mutating tool call.
type ActionResult struct {
	Version                int                `json:"version"`
	Action                 string             `json:"action"`
	OK                     bool               `json:"ok"`
	Page                   snapshot.PageInfo  `json:"page"`
	Consequences           []diff.Consequence `json:"consequences,omitempty"`
	NewInteractiveElements []string           `json:"newInteractiveElements,omitempty"`
	Errors                 []ErrorDetail      `json:"errors,omitempty"`
	Warnings               []string           `json:"warnings,omitempty"`
	ResolvedBy             refs.ResolvedBy    `json:"resolvedBy,omitempty"`
	TimingMs               int64              `json:"timingMs"`
}

// SnapshotResult is spec §6's stable (version 1) envelope for
// observation tool calls (navigate, snapshot, wait-for).
type SnapshotResult struct {
	Version  int               `json:"version"`
	OK       bool              `json:"ok"`
	Page     snapshot.PageInfo `json:"page"`
	Elements []string          `json:"elements,omitempty"`
	Errors   []ErrorDetail     `json:"errors,omitempty"`
	TimingMs int64             `json:"timingMs"`
}

// ErrorDetail is the wire shape of a bserr.Detail inside a result
// envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func compactLines(elements []snapshot.Element) []string {
	lines := make([]string, len(elements))
	for i, e := range elements {
		lines[i] = e.CompactLine
	}
	return lines
}
