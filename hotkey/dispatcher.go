package hotkey

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Mode is the activation mode of the play hotkey.
type Mode uint8

const (
	// Toggle starts playback on every press; StopPlay stops it.
	Toggle Mode = iota
	// Hold plays while the play combination is held down.
	Hold
)

func (m Mode) String() string {
	if m == Hold {
		return "hold"
	}
	return "toggle"
}

// ModeOf maps the stored hold flag to a Mode.
func ModeOf(hold bool) Mode {
	if hold {
		return Hold
	}
	return Toggle
}

// Recorder is the capture side the dispatcher drives.
type Recorder interface {
	Recording() bool
	StartRecording() error
	StopRecording() error
}

// Player is the playback side the dispatcher drives.
type Player interface {
	Playing() bool
	StartPlayback() error
	StopPlayback() error
}

// Gate is consulted before acting on an activation.
type Gate interface {
	Allows() bool
}

// Registration is an installed global hotkey hook.
type Registration interface {
	Unregister() error
}

// Installer installs a hook that reports activations of b to fn. fn is
// called from the hook's goroutine.
type Installer interface {
	Install(b Bindings, fn func(Activation)) (Registration, error)
}

// Options configures a Dispatcher.
type Options struct {
	Installer Installer
	Gate      Gate
	Recorder  Recorder
	Player    Player

	// Post moves an activation from the hook goroutine onto the goroutine
	// that owns the recorder and player, which then calls Dispatch. When
	// nil, the hook calls Dispatch directly.
	Post func(Activation)
}

// Dispatcher routes activations to the recorder and player.
//
// Bindings and mode may be read from any goroutine. Dispatch, SetMode and
// PlaybackEnded must be called from the owning goroutine.
type Dispatcher struct {
	opts Options

	bindings atomic.Pointer[Bindings]
	mode     atomic.Uint32

	mu  sync.Mutex
	reg Registration

	held bool
}

// New returns a dispatcher with no hook installed.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{opts: opts}
	b := DefaultBindings()
	d.bindings.Store(&b)
	return d
}

// Bindings returns the current binding set.
func (d *Dispatcher) Bindings() Bindings { return *d.bindings.Load() }

// Mode returns the activation mode.
func (d *Dispatcher) Mode() Mode { return Mode(d.mode.Load()) }

// SetMode changes the activation mode. Switching modes forgets a held play
// key.
func (d *Dispatcher) SetMode(m Mode) {
	if Mode(d.mode.Swap(uint32(m))) != m {
		d.held = false
	}
}

// Held reports whether the Hold-mode play key is down.
func (d *Dispatcher) Held() bool { return d.held }

// UpdateBindings validates b, removes the current hook and installs one for
// b. On install failure no hotkey is active.
func (d *Dispatcher) UpdateBindings(b Bindings) error {
	if err := b.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.unregister()
	d.bindings.Store(&b)

	if d.opts.Installer == nil {
		return nil
	}
	fn := d.opts.Post
	if fn == nil {
		fn = d.Dispatch
	}
	reg, err := d.opts.Installer.Install(b, fn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHookInstall, err)
	}
	d.reg = reg
	slog.Info("hotkeys registered", "bindings", b.String())
	return nil
}

// Close removes the installed hook.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unregister()
}

func (d *Dispatcher) unregister() {
	if d.reg == nil {
		return
	}
	if err := d.reg.Unregister(); err != nil {
		slog.Warn("unregister hotkeys", "error", err)
	}
	d.reg = nil
}

// PlaybackEnded clears the Hold-mode flag once a run is over.
func (d *Dispatcher) PlaybackEnded() { d.held = false }

// Dispatch applies a to the recorder or player.
func (d *Dispatcher) Dispatch(a Activation) {
	if d.opts.Gate != nil && !d.opts.Gate.Allows() {
		slog.Debug("hotkey outside target process", "action", a.Action)
		return
	}

	rec, player := d.opts.Recorder, d.opts.Player
	switch a.Action {
	case StartRecord:
		if a.Pressed && !rec.Recording() {
			logErr("start recording", rec.StartRecording())
		}
	case StopRecord:
		if a.Pressed && rec.Recording() {
			logErr("stop recording", rec.StopRecording())
		}
	case PlayMacro:
		if !a.Pressed {
			if d.Mode() == Hold {
				d.stopPlay()
			}
			return
		}
		if rec.Recording() {
			slog.Debug("play hotkey ignored while recording")
			return
		}
		if d.Mode() == Toggle {
			logErr("start playback", player.StartPlayback())
			return
		}
		if d.held {
			return
		}
		if err := player.StartPlayback(); err != nil {
			logErr("start playback", err)
			return
		}
		d.held = true
	case StopPlay:
		if a.Pressed {
			d.stopPlay()
		}
	}
}

func (d *Dispatcher) stopPlay() {
	player := d.opts.Player
	if d.Mode() == Hold {
		if d.held && player.Playing() {
			logErr("stop playback", player.StopPlayback())
			d.held = false
		}
		return
	}
	if player.Playing() {
		logErr("stop playback", player.StopPlayback())
	}
}

func logErr(msg string, err error) {
	if err != nil {
		slog.Warn(msg, "error", err)
	}
}
