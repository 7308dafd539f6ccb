// Package synth injects mouse and keyboard input with robotgo and
// resolves the foreground process for scope checks.
package synth

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"

	"go.aimuz.me/supermacro/keys"
	"go.aimuz.me/supermacro/macro"
	"go.aimuz.me/supermacro/scope"
)

// device is the OS input layer. The robotgo implementation is the only
// production one.
type device interface {
	move(x, y int)
	button(name string, down bool) error
	scroll(dx, dy int)
	key(name string, down bool) error
	activePID() int
	processName(pid int) (string, error)
}

// Synth implements playback.Synthesizer.
type Synth struct {
	mu  sync.Mutex
	dev device
}

// New returns a synthesizer backed by robotgo.
func New() *Synth {
	return &Synth{dev: robotgoDevice{}}
}

func (s *Synth) MovePointer(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dev.move(x, y)
	return nil
}

func (s *Synth) PressButton(b macro.Button) error { return s.toggleButton(b, true) }
func (s *Synth) ReleaseButton(b macro.Button) error { return s.toggleButton(b, false) }

func (s *Synth) toggleButton(b macro.Button, down bool) error {
	name, ok := buttonNames[b]
	if !ok {
		return fmt.Errorf("%w: button %d", macro.ErrInvalidEvent, b)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.button(name, down); err != nil {
		return fmt.Errorf("toggle %s button: %w", name, err)
	}
	return nil
}

func (s *Synth) Scroll(dx, dy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dev.scroll(dx, dy)
	return nil
}

func (s *Synth) PressKey(k keys.Key) error { return s.toggleKey(k, true) }
func (s *Synth) ReleaseKey(k keys.Key) error { return s.toggleKey(k, false) }

func (s *Synth) toggleKey(k keys.Key, down bool) error {
	name, err := KeyName(k)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.key(name, down); err != nil {
		return fmt.Errorf("toggle key %s: %w", name, err)
	}
	return nil
}

// ForegroundProcess implements scope.Resolver.
func (s *Synth) ForegroundProcess() (string, error) {
	pid := s.dev.activePID()
	if pid <= 0 {
		return "", scope.ErrNoForeground
	}
	name, err := s.dev.processName(pid)
	if err != nil {
		return "", fmt.Errorf("find process %d: %w", pid, err)
	}
	return name, nil
}

var buttonNames = map[macro.Button]string{
	macro.ButtonPrimary:   "left",
	macro.ButtonSecondary: "right",
}

// robotgo spells some keys differently; everything else uses the
// canonical name unchanged.
var robotgoNames = map[keys.Code]string{
	keys.PageUp:      "pageup",
	keys.PageDown:    "pagedown",
	keys.CapsLock:    "capslock",
	keys.NumLock:     "num_lock",
	keys.PrintScreen: "printscreen",
}

var unsupported = map[keys.Code]bool{
	keys.ScrollLock: true,
	keys.Pause:      true,
}

// KeyName maps k to robotgo's key name. Keys robotgo cannot type return
// an error wrapping keys.ErrUnknownKey.
func KeyName(k keys.Key) (string, error) {
	if k.IsZero() || unsupported[k.Code] {
		return "", fmt.Errorf("%w: %q not supported by robotgo", keys.ErrUnknownKey, k.String())
	}
	if name, ok := robotgoNames[k.Code]; ok {
		return name, nil
	}
	return k.String(), nil
}

type robotgoDevice struct{}

func (robotgoDevice) move(x, y int) { robotgo.Move(x, y) }

func (robotgoDevice) button(name string, down bool) error {
	if down {
		return robotgo.Toggle(name)
	}
	return robotgo.Toggle(name, "up")
}

func (robotgoDevice) scroll(dx, dy int) { robotgo.Scroll(dx, dy) }

func (robotgoDevice) key(name string, down bool) error {
	if down {
		return robotgo.KeyToggle(name)
	}
	return robotgo.KeyToggle(name, "up")
}

func (robotgoDevice) activePID() int { return robotgo.GetPid() }

func (robotgoDevice) processName(pid int) (string, error) { return robotgo.FindName(pid) }
