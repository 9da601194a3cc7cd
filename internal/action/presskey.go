package action

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/chromedp/cdproto/input"

	"github.com/sgreen7979/browser-stream/internal/bserr"
	"github.com/sgreen7979/browser-stream/internal/diff"
	"github.com/sgreen7979/browser-stream/internal/interact"
	"github.com/sgreen7979/browser-stream/internal/refs"
	"github.com/sgreen7979/browser-stream/internal/stability"
)

// PressKey implements spec §4.7.3: parse `Key[+Mods]*`, dispatch
// keyDown, an optional char event, then keyUp. There is no target
// element, so the pipeline runs without an Interactable Check.
func PressKey(ctx context.Context, s *Session, key string) ActionResult {
	return s.run(ctx, "press_key", "", false, func(ctx context.Context, _ *refs.Resolution, _ *interact.Result, actionStart time.Time) ([]string, []diff.Consequence, []diff.NetworkEvent, error) {
		spec, modifiers, err := parseKeyCombo(key)
		if err != nil {
			return nil, nil, nil, err
		}

		if err := dispatchKeyPress(ctx, spec, modifiers); err != nil {
			return nil, nil, nil, err
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

// parseKeyCombo splits "Control+Shift+A"-style combos into the primary
// key's spec and a CDP modifier bitmask (alt|ctrl<<1|meta<<2|shift<<3).
func parseKeyCombo(combo string) (keySpec, input.Modifier, error) {
	tokens := strings.Split(combo, "+")
	if len(tokens) == 0 {
		return keySpec{}, 0, bserr.New(bserr.ActionFailed, "empty key combo")
	}

	var modifiers input.Modifier
	var primary string
	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		if modifierTokens[lower] {
			switch lower {
			case "alt":
				modifiers |= input.ModifierAlt
			case "control", "ctrl":
				modifiers |= input.ModifierCtrl
			case "meta", "command", "cmd":
				modifiers |= input.ModifierMeta
			case "shift":
				modifiers |= input.ModifierShift
			}
			continue
		}
		if i != len(tokens)-1 {
			return keySpec{}, 0, bserr.New(bserr.ActionFailed, "unrecognized modifier token: "+tok)
		}
		primary = tok
	}
	if primary == "" {
		return keySpec{}, 0, bserr.New(bserr.ActionFailed, "key combo has no primary key: "+combo)
	}

	return resolveKeySpec(primary), modifiers, nil
}

func resolveKeySpec(primary string) keySpec {
	if spec, ok := namedKeys[strings.ToLower(primary)]; ok {
		return spec
	}

	runes := []rune(primary)
	if len(runes) == 1 {
		c := runes[0]
		switch {
		case unicode.IsDigit(c):
			return keySpec{key: string(c), code: "Digit" + string(c), keyCode: int64(c)}
		default:
			upper := unicode.ToUpper(c)
			return keySpec{key: string(c), code: "Key" + string(upper), keyCode: int64(upper)}
		}
	}

	return keySpec{key: primary, code: primary, keyCode: 0}
}

func dispatchKeyPress(ctx context.Context, spec keySpec, modifiers input.Modifier) error {
	down := input.DispatchKeyEvent(input.KeyDown).
		WithModifiers(modifiers).
		WithKey(spec.key).
		WithCode(spec.code).
		WithWindowsVirtualKeyCode(spec.keyCode).
		WithNativeVirtualKeyCode(spec.keyCode)
	if err := down.Do(ctx); err != nil {
		return bserr.Wrap(bserr.ActionFailed, "dispatch keyDown", err)
	}

	if isSinglePrintableChar(spec.key) && modifiers&(input.ModifierCtrl|input.ModifierAlt|input.ModifierMeta) == 0 {
		char := input.DispatchKeyEvent(input.Char).
			WithModifiers(modifiers).
			WithKey(spec.key).
			WithText(spec.key)
		if err := char.Do(ctx); err != nil {
			return bserr.Wrap(bserr.ActionFailed, "dispatch char", err)
		}
	}

	up := input.DispatchKeyEvent(input.KeyUp).
		WithModifiers(modifiers).
		WithKey(spec.key).
		WithCode(spec.code).
		WithWindowsVirtualKeyCode(spec.keyCode).
		WithNativeVirtualKeyCode(spec.keyCode)
	if err := up.Do(ctx); err != nil {
		return bserr.Wrap(bserr.ActionFailed, "dispatch keyUp", err)
	}

	return nil
}

func isSinglePrintableChar(key string) bool {
	runes := []rune(key)
	return len(runes) == 1 && unicode.IsPrint(runes[0])
}
