// Package capture turns a stream of raw input notifications into a macro
// timeline.
//
// A Session is owned by a single goroutine. Hooks run elsewhere and hand
// their notifications over through a channel; nothing here locks.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.aimuz.me/supermacro/keys"
	"go.aimuz.me/supermacro/macro"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrHookInstall      = errors.New("install input hook")
	ErrNotStopped       = errors.New("recording not stopped")
)

const (
	DefaultMaxDuration  = 300 * time.Second
	DefaultMoveInterval = 50 * time.Millisecond
)

// State is the session lifecycle state.
type State uint8

const (
	Idle State = iota
	Recording
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Progress is the periodic recording status.
type Progress struct {
	Elapsed time.Duration
	Events  int
}

// Options configures a Session. Only Source is required.
type Options struct {
	Source Source
	Gate   Gate

	// Hotkeys returns the combinations that must never be recorded.
	Hotkeys func() []keys.Combo

	// OnTimeout runs on the owning goroutine when the duration cap stops
	// the session.
	OnTimeout func(Progress)

	Now          func() time.Time
	MaxDuration  time.Duration
	MoveInterval time.Duration
}

// Session is the recording state machine.
type Session struct {
	opts Options

	state State
	mode  Mode
	start time.Time
	subs  []Subscription

	b        macro.Builder
	lastMove time.Time
	hasMove  bool

	held       map[string]struct{}
	heldKeys   keys.Set
	suppressed map[string]struct{}
}

// NewSession returns an idle session.
func NewSession(opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.MoveInterval <= 0 {
		opts.MoveInterval = DefaultMoveInterval
	}
	return &Session{opts: opts}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Mode returns the mode of the current or last session.
func (s *Session) Mode() Mode { return s.mode }

// Recording reports whether the session is capturing.
func (s *Session) Recording() bool { return s.state == Recording }

// Len returns the number of events captured so far.
func (s *Session) Len() int { return s.b.Len() }

// Start begins a new recording.
func (s *Session) Start(mode Mode) error {
	if s.state != Idle {
		return ErrAlreadyRecording
	}

	var subs []Subscription
	for _, d := range mode.Devices() {
		sub, err := s.opts.Source.Subscribe(d)
		if err != nil {
			unsubscribeAll(subs)
			return fmt.Errorf("%w: %s: %v", ErrHookInstall, d, err)
		}
		subs = append(subs, sub)
	}

	s.b.Reset()
	s.hasMove = false
	s.held = make(map[string]struct{})
	s.heldKeys = make(keys.Set)
	s.suppressed = make(map[string]struct{})
	s.subs = subs
	s.mode = mode
	s.start = s.opts.Now()
	s.state = Recording
	slog.Info("recording started", "mode", mode)
	return nil
}

// Handle appends n to the timeline if it passes the scope gate and the
// recording rules. It reports whether an event was appended.
func (s *Session) Handle(n Notification) bool {
	if s.state != Recording || !s.mode.records(n.Device()) {
		return false
	}

	at := n.At
	if at.IsZero() {
		at = s.opts.Now()
	}
	elapsed := at.Sub(s.start)
	if elapsed > s.opts.MaxDuration {
		s.expire()
		return false
	}
	if s.opts.Gate != nil && !s.opts.Gate.Allows() {
		return false
	}

	t := max(elapsed, 0).Seconds()
	switch n.Kind {
	case macro.KindMove:
		if s.hasMove && at.Sub(s.lastMove) < s.opts.MoveInterval {
			return false
		}
		s.lastMove, s.hasMove = at, true
		s.b.Append(macro.Move(t, n.X, n.Y))
	case macro.KindClick:
		if n.Button == 0 {
			return false
		}
		s.b.Append(macro.Click(t, n.X, n.Y, n.Button, n.Pressed))
	case macro.KindScroll:
		s.b.Append(macro.Scroll(t, n.X, n.Y, n.DX, n.DY))
	case macro.KindKeyPress:
		return s.press(t, n.Key)
	case macro.KindKeyRelease:
		return s.release(t, n.Key)
	default:
		return false
	}
	return true
}

func (s *Session) press(t float64, raw string) bool {
	name := keys.Canonical(raw)
	if name == "" {
		return false
	}
	if _, ok := s.held[name]; ok {
		return false
	}
	if _, ok := s.suppressed[name]; ok {
		return false
	}

	k, err := keys.Parse(raw)
	known := err == nil
	if known && s.isHotkey(k) {
		s.suppressed[name] = struct{}{}
		return false
	}

	s.held[name] = struct{}{}
	if known {
		s.heldKeys.Add(k)
	}
	s.b.Append(macro.KeyPress(t, storedKey(raw)))
	return true
}

func (s *Session) release(t float64, raw string) bool {
	name := keys.Canonical(raw)
	if name == "" {
		return false
	}
	_, wasHeld := s.held[name]
	delete(s.held, name)
	k, err := keys.Parse(raw)
	if err == nil {
		s.heldKeys.Remove(k)
	}
	if _, ok := s.suppressed[name]; ok {
		delete(s.suppressed, name)
		return false
	}
	// A hotkey pressed before Start, such as the one that started this
	// recording, releases without a recorded press.
	if !wasHeld && err == nil && s.inBinding(k) {
		return false
	}
	s.b.Append(macro.KeyRelease(t, storedKey(raw)))
	return true
}

// isHotkey reports whether pressing k completes one of the configured
// hotkeys given the keys already held.
func (s *Session) isHotkey(k keys.Key) bool {
	if s.opts.Hotkeys == nil {
		return false
	}
	for _, c := range s.opts.Hotkeys() {
		if c.IsZero() || !c.Contains(k) {
			continue
		}
		if c.Len() == 1 {
			return true
		}
		if c.Trigger() != k {
			continue
		}
		all := true
		for _, r := range c.Rest() {
			if !s.heldKeys.Has(r) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// inBinding reports whether k is part of any configured hotkey.
func (s *Session) inBinding(k keys.Key) bool {
	if s.opts.Hotkeys == nil {
		return false
	}
	for _, c := range s.opts.Hotkeys() {
		if c.Contains(k) {
			return true
		}
	}
	return false
}

func storedKey(raw string) string {
	if k, err := keys.Parse(raw); err == nil {
		return k.String()
	}
	return raw
}

// Tick reports progress and enforces the duration cap.
func (s *Session) Tick(now time.Time) Progress {
	p := Progress{Events: s.b.Len()}
	if s.state != Recording {
		return p
	}
	p.Elapsed = now.Sub(s.start)
	if p.Elapsed >= s.opts.MaxDuration {
		s.expire()
	}
	return p
}

func (s *Session) expire() {
	p := Progress{Elapsed: s.opts.MaxDuration, Events: s.b.Len()}
	slog.Warn("recording reached time limit", "limit", s.opts.MaxDuration, "events", p.Events)
	s.Stop()
	if s.opts.OnTimeout != nil {
		s.opts.OnTimeout(p)
	}
}

// Stop releases the input hooks. It is a no-op unless recording.
func (s *Session) Stop() {
	if s.state != Recording {
		return
	}
	unsubscribeAll(s.subs)
	s.subs = nil
	s.state = Stopped
	slog.Info("recording stopped", "events", s.b.Len())
}

// Discard drops the stopped recording.
func (s *Session) Discard() error {
	if s.state != Stopped {
		return ErrNotStopped
	}
	s.b.Reset()
	s.state = Idle
	return nil
}

// Commit hands the stopped recording over as an immutable timeline.
func (s *Session) Commit() (*macro.Timeline, error) {
	if s.state != Stopped {
		return nil, ErrNotStopped
	}
	s.state = Idle
	return s.b.Finish(), nil
}

func unsubscribeAll(subs []Subscription) {
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("unsubscribe input hook", "error", err)
		}
	}
}
