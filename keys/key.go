// Package keys defines canonical key identifiers and key combinations.
//
// Raw identifiers arrive in many spellings: hook libraries report "lctrl"
// or "rshift", older macro files carry "Key.ctrl_l" or "'a'", and users type
// "Control+F1" into settings. Parse folds all of them into a Key, a closed
// set of named keys plus a literal-character fallback.
package keys

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnknownKey is returned when an identifier names no known key.
var ErrUnknownKey = errors.New("unknown key")

// Code identifies a named key. CodeChar marks a literal character key.
type Code uint8

const (
	CodeChar Code = iota
	Ctrl
	Shift
	Alt
	Cmd
	Enter
	Esc
	Tab
	Space
	Backspace
	Delete
	Insert
	Home
	End
	PageUp
	PageDown
	Up
	Down
	Left
	Right
	CapsLock
	NumLock
	ScrollLock
	PrintScreen
	Pause
	Menu
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F20
	F21
	F22
	F23
	F24
)

var codeNames = map[Code]string{
	Ctrl:        "ctrl",
	Shift:       "shift",
	Alt:         "alt",
	Cmd:         "cmd",
	Enter:       "enter",
	Esc:         "esc",
	Tab:         "tab",
	Space:       "space",
	Backspace:   "backspace",
	Delete:      "delete",
	Insert:      "insert",
	Home:        "home",
	End:         "end",
	PageUp:      "page_up",
	PageDown:    "page_down",
	Up:          "up",
	Down:        "down",
	Left:        "left",
	Right:       "right",
	CapsLock:    "caps_lock",
	NumLock:     "num_lock",
	ScrollLock:  "scroll_lock",
	PrintScreen: "print_screen",
	Pause:       "pause",
	Menu:        "menu",
}

// aliases maps every accepted lower-case spelling to its code.
var aliases = map[string]Code{
	"control": Ctrl, "ctrl_l": Ctrl, "ctrl_r": Ctrl, "lctrl": Ctrl, "rctrl": Ctrl,
	"shift_l": Shift, "shift_r": Shift, "lshift": Shift, "rshift": Shift,
	"alt_l": Alt, "alt_r": Alt, "alt_gr": Alt, "lalt": Alt, "ralt": Alt, "option": Alt,
	"cmd_l": Cmd, "cmd_r": Cmd, "lcmd": Cmd, "rcmd": Cmd, "command": Cmd,
	"win": Cmd, "super": Cmd, "meta": Cmd,
	"return": Enter, "escape": Esc, "back": Backspace, "del": Delete, "ins": Insert,
	"pageup": PageUp, "pgup": PageUp, "pagedown": PageDown, "pgdn": PageDown,
	"capslock": CapsLock, "numlock": NumLock, "scrolllock": ScrollLock,
	"printscreen": PrintScreen, "print": PrintScreen,
}

func init() {
	for code, name := range codeNames {
		aliases[name] = code
	}
	for i := 0; i < 24; i++ {
		code := F1 + Code(i)
		name := fmt.Sprintf("f%d", i+1)
		codeNames[code] = name
		aliases[name] = code
	}
}

// Key is a canonical key: a named key, or a literal character when Code is
// CodeChar. The zero value is not a valid key.
type Key struct {
	Code Code
	Char rune
}

// Named returns the key for a named code.
func Named(c Code) Key {
	return Key{Code: c}
}

// Char returns a literal character key. Letters are lower-cased so that
// "A" and "a" are the same key; a space is the named Space key.
func Char(r rune) Key {
	if r == ' ' {
		return Named(Space)
	}
	return Key{Code: CodeChar, Char: unicode.ToLower(r)}
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.Code == CodeChar && k.Char == 0
}

// IsModifier reports whether k is ctrl, shift, alt or cmd.
func (k Key) IsModifier() bool {
	switch k.Code {
	case Ctrl, Shift, Alt, Cmd:
		return true
	}
	return false
}

// String returns the canonical identifier, the form Parse accepts and
// macro files store.
func (k Key) String() string {
	if k.Code == CodeChar {
		if k.Char == 0 {
			return ""
		}
		return string(k.Char)
	}
	return codeNames[k.Code]
}

// Parse resolves a raw identifier to a Key.
//
// Accepted forms include canonical names ("ctrl", "f1", "a"), side-specific
// modifiers ("ctrl_l", "rshift"), pynput-style strings ("Key.alt_r", "'x'")
// and single characters. Matching is case-insensitive.
func Parse(s string) (Key, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		if raw != "" && strings.Trim(raw, " ") == "" {
			return Named(Space), nil
		}
		return Key{}, fmt.Errorf("%w: empty identifier", ErrUnknownKey)
	}

	if utf8.RuneCountInString(s) >= 3 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		s = s[1 : len(s)-1]
		if utf8.RuneCountInString(s) == 1 {
			r, _ := utf8.DecodeRuneInString(s)
			return Char(r), nil
		}
	}

	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		return Char(r), nil
	}

	lower := strings.ToLower(s)
	lower = strings.TrimPrefix(lower, "key.")
	lower = strings.TrimSuffix(strings.TrimPrefix(lower, "<"), ">")

	if code, ok := aliases[lower]; ok {
		return Named(code), nil
	}
	if utf8.RuneCountInString(lower) == 1 {
		r, _ := utf8.DecodeRuneInString(lower)
		return Char(r), nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, raw)
}

// Canonical returns the canonical identifier of s, or s lower-cased and
// trimmed when s names no known key. It never fails, which makes it usable
// as a map key for de-duplication of arbitrary raw identifiers.
func Canonical(s string) string {
	if k, err := Parse(s); err == nil {
		return k.String()
	}
	return strings.ToLower(strings.TrimSpace(s))
}
