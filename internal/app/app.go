package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/supermacro/capture"
	"go.aimuz.me/supermacro/config"
	"go.aimuz.me/supermacro/history"
	"go.aimuz.me/supermacro/hotkey"
	"go.aimuz.me/supermacro/inputhook"
	"go.aimuz.me/supermacro/internal/types"
	"go.aimuz.me/supermacro/keys"
	"go.aimuz.me/supermacro/macro"
	"go.aimuz.me/supermacro/playback"
	"go.aimuz.me/supermacro/scope"
)

var (
	// ErrClosed is returned by calls made after the loop has exited.
	ErrClosed = errors.New("service closed")
	// ErrNoMacro is returned when there is nothing to play or save.
	ErrNoMacro = errors.New("no macro loaded")
	// ErrEventOrder is returned when an edit would make event times
	// decrease.
	ErrEventOrder = errors.New("event time out of order")
)

const (
	pollInterval = 100 * time.Millisecond
	queueSize    = 1024
)

// Options wires the service. Config, Library and Synth are required.
// Source and Installer default to ones built on Hub.
type Options struct {
	Config    *config.Config
	Library   *macro.Library
	History   *history.Store
	Synth     playback.Synthesizer
	Resolver  scope.Resolver
	Hub       *inputhook.Hub
	Source    capture.Source
	Installer hotkey.Installer
	Clock     playback.Clock
}

// Service provides application functionality bound to Wails.
//
// All recording and playback state is owned by the goroutine running Run.
// Hooks, the playback watcher and exported methods reach it through a
// single message queue.
type Service struct {
	cfg     *config.Config
	lib     *macro.Library
	history *history.Store
	hub     *inputhook.Hub

	filter   *scope.Filter
	session  *capture.Session
	player   *playback.Scheduler
	hotkeys  *hotkey.Dispatcher
	hotkeyOK bool

	msgs chan any
	done chan struct{}

	// Loop-owned.
	current     *macro.Timeline
	currentName string
	ticker      *time.Ticker

	// UI references - set via Init
	app      *application.App
	listener func(name string, data any)
}

type call struct {
	fn   func() error
	errc chan error
}

type runFinished struct {
	run *playback.Run
}

// New creates a new Service. Call Run to start the loop.
func New(opts Options) *Service {
	s := &Service{
		cfg:     opts.Config,
		lib:     opts.Library,
		history: opts.History,
		hub:     opts.Hub,
		msgs:    make(chan any, queueSize),
		done:    make(chan struct{}),
	}

	s.filter = scope.NewFilter(opts.Resolver, s.cfg.Target())
	s.player = playback.NewScheduler(playback.Options{Synth: opts.Synth, Clock: opts.Clock})

	source := opts.Source
	if source == nil && opts.Hub != nil {
		source = &inputhook.Source{Hub: opts.Hub, Post: func(n capture.Notification) { s.post(n) }}
	}
	installer := opts.Installer
	if installer == nil && opts.Hub != nil {
		installer = &inputhook.Hotkeys{Hub: opts.Hub}
	}

	s.hotkeys = hotkey.New(hotkey.Options{
		Installer: installer,
		Gate:      s.filter,
		Recorder:  recorder{s},
		Player:    player{s},
		Post:      func(a hotkey.Activation) { s.post(a) },
	})
	s.session = capture.NewSession(capture.Options{
		Source:    source,
		Gate:      s.filter,
		Hotkeys:   func() []keys.Combo { return s.hotkeys.Bindings().Combos() },
		OnTimeout: s.recordingTimedOut,
	})
	return s
}

// Init attaches the Wails application used for event emission.
func (s *Service) Init(app *application.App) {
	s.app = app
}

// emit is a safe wrapper around app.Event.Emit
func (s *Service) emit(name string, data any) {
	if s.listener != nil {
		s.listener(name, data)
	}
	if s.app != nil {
		s.app.Event.Emit(name, data)
	}
}

// post hands a message to the loop without blocking the caller. Input
// hooks must never stall, so a full queue drops the message.
func (s *Service) post(m any) {
	select {
	case s.msgs <- m:
	case <-s.done:
	default:
		slog.Warn("event queue full, dropping message", "type", fmt.Sprintf("%T", m))
	}
}

// do runs fn on the loop and waits for its result.
func (s *Service) do(fn func() error) error {
	c := call{fn: fn, errc: make(chan error, 1)}
	select {
	case s.msgs <- c:
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-c.errc:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Loop
// ─────────────────────────────────────────────────────────────────────────────

// Run owns the engine until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)
	s.setup()
	defer s.teardown()

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}

		select {
		case <-ctx.Done():
			return nil
		case now := <-tick:
			s.poll(now)
		case m := <-s.msgs:
			s.handle(m)
		}
	}
}

func (s *Service) setup() {
	s.hotkeys.SetMode(s.cfg.ActivationMode())
	s.applyBindings()

	if s.cfg.LastMacro != "" {
		if err := s.loadMacro(s.cfg.LastMacro); err != nil {
			slog.Warn("load last macro", "name", s.cfg.LastMacro, "error", err)
		}
	}
}

func (s *Service) teardown() {
	if s.session.Recording() {
		s.session.Stop()
		s.session.Discard()
	}
	s.stopTicker()
	if _, ok := s.player.Stop(); ok {
		slog.Info("playback stopped on shutdown")
	}
	s.hotkeys.Close()
	if s.hub != nil {
		s.hub.Close()
	}
}

func (s *Service) handle(m any) {
	switch m := m.(type) {
	case capture.Notification:
		s.session.Handle(m)
	case hotkey.Activation:
		s.hotkeys.Dispatch(m)
	case runFinished:
		s.playbackFinished(m.run)
	case call:
		m.errc <- m.fn()
	default:
		slog.Warn("unknown loop message", "type", fmt.Sprintf("%T", m))
	}
}

func (s *Service) applyBindings() {
	b, err := s.cfg.Bindings()
	if err != nil {
		slog.Error("parse hotkeys", "error", err)
		b = hotkey.DefaultBindings()
	}
	err = s.hotkeys.UpdateBindings(b)
	s.hotkeyOK = err == nil
	status := types.HotkeyStatus{Active: s.hotkeyOK, Bindings: b.String()}
	if err != nil {
		slog.Error("start hotkey", "error", err)
		status.Error = err.Error()
	}
	s.emit(EventHotkeyStatus, status)
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) startRecording() error {
	mode, err := s.cfg.CaptureMode()
	if err != nil {
		return err
	}
	if err := s.session.Start(mode); err != nil {
		return err
	}
	s.ticker = time.NewTicker(pollInterval)
	s.emit(EventRecordingState, types.RecordingState{State: "recording", Mode: mode.String()})
	return nil
}

// stopRecording ends the session and keeps the result as the current
// unsaved macro.
func (s *Service) stopRecording() error {
	if !s.session.Recording() {
		return nil
	}
	s.session.Stop()
	return s.commitRecording()
}

func (s *Service) commitRecording() error {
	s.stopTicker()
	tl, err := s.session.Commit()
	if err != nil {
		return err
	}
	s.current, s.currentName = tl, ""
	slog.Info("recording committed",
		"moves", tl.Count(macro.KindMove),
		"clicks", tl.Count(macro.KindClick),
		"scrolls", tl.Count(macro.KindScroll),
		"keys", tl.Count(macro.KindKeyPress))
	s.emit(EventRecordingState, types.RecordingState{State: "stopped", Events: tl.Len()})
	s.emit(EventMacroChanged, s.status())
	return nil
}

// cancelRecording throws away the recording in progress, or the stopped
// recording while it is still unsaved.
func (s *Service) cancelRecording() error {
	if !s.session.Recording() {
		if s.current == nil || s.currentName != "" {
			return nil
		}
		n := s.current.Len()
		s.current = nil
		s.emit(EventRecordingState, types.RecordingState{State: "discarded", Events: n})
		s.emit(EventMacroChanged, s.status())
		return nil
	}
	s.session.Stop()
	s.stopTicker()
	n := s.session.Len()
	if err := s.session.Discard(); err != nil {
		return err
	}
	s.emit(EventRecordingState, types.RecordingState{State: "discarded", Events: n})
	return nil
}

func (s *Service) recordingTimedOut(p capture.Progress) {
	s.emit(EventRecordingTimeout, types.RecordingProgress{
		Elapsed: p.Elapsed.Seconds(),
		Limit:   capture.DefaultMaxDuration.Seconds(),
		Events:  p.Events,
	})
	if err := s.commitRecording(); err != nil {
		slog.Error("commit timed out recording", "error", err)
	}
}

func (s *Service) poll(now time.Time) {
	p := s.session.Tick(now)
	if s.session.State() == capture.Recording {
		s.emit(EventRecordingProgress, types.RecordingProgress{
			Elapsed: p.Elapsed.Seconds(),
			Limit:   capture.DefaultMaxDuration.Seconds(),
			Events:  p.Events,
		})
	}
}

func (s *Service) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Playback
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) startPlayback() error {
	if s.session.Recording() {
		return capture.ErrAlreadyRecording
	}
	if s.current == nil {
		return ErrNoMacro
	}
	run, err := s.player.Start(playback.Request{
		Name:          s.currentName,
		Timeline:      s.current,
		Speed:         s.cfg.Speed,
		Repeat:        s.cfg.RepeatCount,
		AntiDetection: s.cfg.PreventBackgroundDetection,
	})
	if err != nil {
		return err
	}

	go func() {
		<-run.Done()
		select {
		case s.msgs <- runFinished{run}:
		case <-s.done:
		}
	}()

	s.emit(EventPlaybackState, types.PlaybackState{
		RunID: run.ID.String(),
		State: "running",
		Macro: s.currentName,
	})
	return nil
}

func (s *Service) stopPlayback() error {
	s.player.Stop()
	return nil
}

func (s *Service) playbackFinished(run *playback.Run) {
	res := run.Result()
	s.hotkeys.PlaybackEnded()

	state := types.PlaybackState{
		RunID:      run.ID.String(),
		State:      res.Outcome.String(),
		Macro:      run.Request.Name,
		Dispatched: res.Dispatched,
		Iterations: res.Iterations,
		Elapsed:    res.Elapsed.Seconds(),
	}
	if res.Err != nil {
		state.Error = res.Err.Error()
	}
	s.emit(EventPlaybackState, state)

	if s.history != nil {
		if err := s.history.Append(history.FromRun(run, res)); err != nil {
			slog.Warn("record run history", "error", err)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Macro Library
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) loadMacro(name string) error {
	tl, err := s.lib.Load(name)
	if err != nil {
		return err
	}
	s.current, s.currentName = tl, name
	s.emit(EventMacroChanged, s.status())
	return nil
}

// replaceMacro swaps in an edited copy of the current macro.
func (s *Service) replaceMacro(tl *macro.Timeline) error {
	if !tl.Monotonic() {
		return ErrEventOrder
	}
	s.current = tl
	s.emit(EventMacroChanged, s.status())
	return nil
}

func (s *Service) rememberMacro(name string) {
	if s.cfg.LastMacro == name {
		return
	}
	s.cfg.LastMacro = name
	if err := s.cfg.Save(); err != nil {
		slog.Warn("save config", "error", err)
	}
}

func (s *Service) status() types.Status {
	st := types.Status{
		Recording:   s.session.Recording(),
		Playing:     s.player.Running(),
		Macro:       s.currentName,
		HotkeysLive: s.hotkeyOK,
	}
	if s.current != nil {
		st.Events = s.current.Len()
		st.Duration = s.current.Duration()
	}
	return st
}

// ─────────────────────────────────────────────────────────────────────────────
// Hotkey adapters (called on the loop by the dispatcher)
// ─────────────────────────────────────────────────────────────────────────────

type recorder struct{ s *Service }

func (r recorder) Recording() bool { return r.s.session.Recording() }
func (r recorder) StartRecording() error { return r.s.startRecording() }
func (r recorder) StopRecording() error { return r.s.stopRecording() }

type player struct{ s *Service }

func (p player) Playing() bool { return p.s.player.Running() }
func (p player) StartPlayback() error { return p.s.startPlayback() }
func (p player) StopPlayback() error { return p.s.stopPlayback() }
