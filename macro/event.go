// Package macro defines recorded input events, the timeline that orders
// them, and the JSON file format macros are stored in.
package macro

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEvent is returned for events that violate the data model.
var ErrInvalidEvent = errors.New("invalid event")

// Kind tags the variant held by an Event.
type Kind uint8

const (
	KindMove Kind = iota + 1
	KindClick
	KindScroll
	KindKeyPress
	KindKeyRelease
)

var kindNames = map[Kind]string{
	KindMove:       "move",
	KindClick:      "click",
	KindScroll:     "scroll",
	KindKeyPress:   "key_press",
	KindKeyRelease: "key_release",
}

// String returns the persisted type name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a persisted type name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, s)
}

// IsKey reports whether k is a key press or release.
func (k Kind) IsKey() bool { return k == KindKeyPress || k == KindKeyRelease }

// Button is a pointer button.
type Button uint8

const (
	ButtonPrimary Button = iota + 1
	ButtonSecondary
)

// String returns the persisted button name.
func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "left"
	case ButtonSecondary:
		return "right"
	}
	return fmt.Sprintf("button(%d)", uint8(b))
}

// ParseButton accepts "left"/"right" and the legacy "Button.left" form.
func ParseButton(s string) (Button, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "button.") {
	case "left", "primary":
		return ButtonPrimary, nil
	case "right", "secondary":
		return ButtonSecondary, nil
	}
	return 0, fmt.Errorf("%w: unknown button %q", ErrInvalidEvent, s)
}

// Event is one captured input event. Kind selects which of the remaining
// fields are meaningful:
//
//	KindMove                   X, Y
//	KindClick                  X, Y, Button, Pressed
//	KindScroll                 X, Y, DX, DY
//	KindKeyPress/KeyRelease    Key
//
// Time is the offset in seconds from the start of the recording.
type Event struct {
	Kind    Kind
	Time    float64
	X, Y    int
	Button  Button
	Pressed bool
	DX, DY  int
	Key     string
}

// Move returns a pointer-move event.
func Move(t float64, x, y int) Event {
	return Event{Kind: KindMove, Time: t, X: x, Y: y}
}

// Click returns a button press or release event.
func Click(t float64, x, y int, b Button, pressed bool) Event {
	return Event{Kind: KindClick, Time: t, X: x, Y: y, Button: b, Pressed: pressed}
}

// Scroll returns a scroll event.
func Scroll(t float64, x, y, dx, dy int) Event {
	return Event{Kind: KindScroll, Time: t, X: x, Y: y, DX: dx, DY: dy}
}

// KeyPress returns a key press event. key is a canonical identifier or a
// literal character.
func KeyPress(t float64, key string) Event {
	return Event{Kind: KindKeyPress, Time: t, Key: key}
}

// KeyRelease returns a key release event.
func KeyRelease(t float64, key string) Event {
	return Event{Kind: KindKeyRelease, Time: t, Key: key}
}

// Validate checks the fields required by e's kind.
func (e Event) Validate() error {
	if e.Time < 0 {
		return fmt.Errorf("%w: negative time %v", ErrInvalidEvent, e.Time)
	}
	switch e.Kind {
	case KindMove, KindScroll:
	case KindClick:
		if e.Button != ButtonPrimary && e.Button != ButtonSecondary {
			return fmt.Errorf("%w: click without button", ErrInvalidEvent)
		}
	case KindKeyPress, KindKeyRelease:
		if e.Key == "" {
			return fmt.Errorf("%w: %s without key", ErrInvalidEvent, e.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// String renders e for logs.
func (e Event) String() string {
	switch e.Kind {
	case KindMove:
		return fmt.Sprintf("move(%d,%d)@%.3f", e.X, e.Y, e.Time)
	case KindClick:
		state := "release"
		if e.Pressed {
			state = "press"
		}
		return fmt.Sprintf("click %s %s(%d,%d)@%.3f", e.Button, state, e.X, e.Y, e.Time)
	case KindScroll:
		return fmt.Sprintf("scroll(%d,%d) at (%d,%d)@%.3f", e.DX, e.DY, e.X, e.Y, e.Time)
	case KindKeyPress, KindKeyRelease:
		return fmt.Sprintf("%s %s@%.3f", e.Kind, e.Key, e.Time)
	}
	return e.Kind.String()
}
