package action

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chromedp/cdproto/runtime"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/diff"
	"github.com/sgreen7979/browser-stream/internal/interact"
	"github.com/sgreen7979/browser-stream/internal/refs"
	"github.com/sgreen7979/browser-stream/internal/stability"
)

// Fill implements spec §4.7.2: probe whether the target is
// contentEditable, then set its value either via innerText or the
// platform's native value setter (bypassing any framework wrapper on
// the property), dispatching input/change, grounded on the teacher's
// cmdFill (focus + value assignment + dispatch) generalized to use the
// native setter so a React-controlled input actually observes the
// write instead of reverting it on the next render.
func Fill(ctx context.Context, s *Session, ref, value string) ActionResult {
	return s.run(ctx, "fill", ref, true, func(ctx context.Context, resolution *refs.Resolution, ir *interact.Result, actionStart time.Time) ([]string, []diff.Consequence, []diff.NetworkEvent, error) {
		editable, err := evalBoolOnObject(ctx, ir.ObjectID, isContentEditableScript)
		if err != nil {
			return nil, nil, nil, err
		}

		script := fillScript
		if editable {
			script = fillContentEditableScript
		}

		readBack, err := evalStringOnObjectWithArg(ctx, ir.ObjectID, script, value)
		if err != nil {
			return nil, nil, nil, err
		}
		if readBack != value {
			return nil, nil, nil, bserr.New(bserr.FillFailed, "value did not persist after fill")
		}

		waiter := stability.NewWaiter(s.Channel, false)
		result := waiter.Wait(ctx, actionStart)

		var warnings []string
		if result.TimedOut {
			warnings = append(warnings, "STABILITY_TIMEOUT: page did not settle within the hard cap")
		}
		return warnings, nil, result.NetworkEvents, nil
	})
}

func evalBoolOnObject(ctx context.Context, objID runtime.RemoteObjectID, script string) (bool, error) {
	result, exceptionDetails, err := runtime.CallFunctionOn(script).
		WithObjectID(objID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return false, bserr.Wrap(bserr.ScriptError, "evaluate on object", err)
	}
	if exceptionDetails != nil {
		return false, bserr.New(bserr.ScriptError, "script threw: "+exceptionDetails.Text)
	}
	var b bool
	if err := json.Unmarshal(result.Value, &b); err != nil {
		return false, bserr.Wrap(bserr.ScriptError, "decode boolean result", err)
	}
	return b, nil
}

func evalStringOnObjectWithArg(ctx context.Context, objID runtime.RemoteObjectID, script, arg string) (string, error) {
	raw, err := json.Marshal(arg)
	if err != nil {
		return "", bserr.Wrap(bserr.ActionFailed, "encode fill argument", err)
	}

	result, exceptionDetails, err := runtime.CallFunctionOn(script).
		WithObjectID(objID).
		WithArguments([]*runtime.CallArgument{{Value: raw}}).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return "", bserr.Wrap(bserr.ScriptError, "evaluate on object", err)
	}
	if exceptionDetails != nil {
		return "", bserr.New(bserr.ScriptError, "script threw: "+exceptionDetails.Text)
	}
	var s string
	if err := json.Unmarshal(result.Value, &s); err != nil {
		return "", bserr.Wrap(bserr.ScriptError, "decode string result", err)
	}
	return s, nil
}
