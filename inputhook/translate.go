package inputhook

import (
	"time"
	"unicode"

	hook "github.com/robotn/gohook"

	"go.aimuz.me/supermacro/capture"
	"go.aimuz.me/supermacro/macro"
)

// Constants from libuiohook that gohook passes through untyped.
const (
	buttonLeft      = 1
	buttonRight     = 2
	wheelHorizontal = 4
	charUndefined   = 0xFFFF
)

// gohook names its event kinds after libuiohook's ordering: KeyHold is the
// key press, MouseHold the button press and MouseDown the button release.
const (
	kindKeyPress      = hook.KeyHold
	kindKeyRelease    = hook.KeyUp
	kindButtonPress   = hook.MouseHold
	kindButtonRelease = hook.MouseDown
)

// KeyName returns the raw key identifier of e. It prefers gohook's rawcode
// table and falls back to the typed character.
func KeyName(e hook.Event) string {
	if name := hook.RawcodetoKeychar(e.Rawcode); name != "" {
		return name
	}
	if e.Keychar != 0 && e.Keychar != charUndefined && unicode.IsPrint(e.Keychar) {
		return string(e.Keychar)
	}
	return ""
}

func button(b uint16) macro.Button {
	switch b {
	case buttonLeft:
		return macro.ButtonPrimary
	case buttonRight:
		return macro.ButtonSecondary
	}
	return 0
}

// Notification converts a hook event. It reports false for events the
// capture engine does not record.
func Notification(e hook.Event) (capture.Notification, bool) {
	n := capture.Notification{At: e.When, X: int(e.X), Y: int(e.Y)}
	if n.At.IsZero() {
		n.At = time.Now()
	}

	switch e.Kind {
	case hook.MouseMove, hook.MouseDrag:
		n.Kind = macro.KindMove
	case kindButtonPress, kindButtonRelease:
		n.Kind = macro.KindClick
		n.Button = button(e.Button)
		n.Pressed = e.Kind == kindButtonPress
		if n.Button == 0 {
			return n, false
		}
	case hook.MouseWheel:
		n.Kind = macro.KindScroll
		if e.Direction == wheelHorizontal {
			n.DX = int(e.Rotation)
		} else {
			// libuiohook reports positive rotation towards the user.
			n.DY = -int(e.Rotation)
		}
	case kindKeyPress, kindKeyRelease:
		n.Kind = macro.KindKeyPress
		if e.Kind == kindKeyRelease {
			n.Kind = macro.KindKeyRelease
		}
		n.Key = KeyName(e)
		n.X, n.Y = 0, 0
		if n.Key == "" {
			return n, false
		}
	default:
		return n, false
	}
	return n, true
}
