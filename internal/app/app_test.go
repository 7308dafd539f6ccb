package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	hook "github.com/robotn/gohook"

	"go.aimuz.me/supermacro/capture"
	"go.aimuz.me/supermacro/config"
	"go.aimuz.me/supermacro/history"
	"go.aimuz.me/supermacro/hotkey"
	"go.aimuz.me/supermacro/inputhook"
	"go.aimuz.me/supermacro/internal/types"
	"go.aimuz.me/supermacro/keys"
	"go.aimuz.me/supermacro/macro"
	"go.aimuz.me/supermacro/scope"
)

const waitTimeout = 5 * time.Second

type fakeSub struct{}

func (fakeSub) Unsubscribe() error { return nil }

type fakeSource struct {
	mu      sync.Mutex
	devices []capture.Device
}

func (f *fakeSource) Subscribe(d capture.Device) (capture.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, d)
	return fakeSub{}, nil
}

func (f *fakeSource) subscribed() []capture.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capture.Device(nil), f.devices...)
}

type fakeReg struct{}

func (fakeReg) Unregister() error { return nil }

type fakeInstaller struct {
	mu       sync.Mutex
	installs int
	bindings hotkey.Bindings
	fn       func(hotkey.Activation)
}

func (f *fakeInstaller) Install(b hotkey.Bindings, fn func(hotkey.Activation)) (hotkey.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs++
	f.bindings, f.fn = b, fn
	return fakeReg{}, nil
}

func (f *fakeInstaller) fire(a hotkey.Action, pressed bool) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	fn(hotkey.Activation{Action: a, Pressed: pressed})
}

type fakeSynth struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSynth) log(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	return nil
}

func (f *fakeSynth) MovePointer(x, y int) error { return f.log("move") }
func (f *fakeSynth) PressButton(b macro.Button) error { return f.log("down " + b.String()) }
func (f *fakeSynth) ReleaseButton(b macro.Button) error { return f.log("up " + b.String()) }
func (f *fakeSynth) Scroll(dx, dy int) error { return f.log("scroll") }
func (f *fakeSynth) PressKey(k keys.Key) error { return f.log("press " + k.String()) }
func (f *fakeSynth) ReleaseKey(k keys.Key) error { return f.log("release " + k.String()) }

func (f *fakeSynth) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type emitted struct {
	name string
	data any
}

type harness struct {
	svc     *Service
	cfg     *config.Config
	cfgPath string
	lib     *macro.Library
	hist    *history.Store
	src     *fakeSource
	inst    *fakeInstaller
	synth   *fakeSynth
	events  chan emitted
	cancel  context.CancelFunc
	stopped chan error
}

func newHarness(t *testing.T, configure func(*config.Config), resolver scope.Resolver) *harness {
	t.Helper()
	return newHarnessWith(t, configure, func(o *Options) { o.Resolver = resolver })
}

// newHarnessWith lets wire replace the fake collaborators before the loop
// starts.
func newHarnessWith(t *testing.T, configure func(*config.Config), wire func(*Options)) *harness {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.json")
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if configure != nil {
		configure(cfg)
	}
	hist, err := history.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	h := &harness{
		cfg:     cfg,
		cfgPath: cfgPath,
		lib:     macro.NewLibrary(t.TempDir()),
		hist:    hist,
		src:     &fakeSource{},
		inst:    &fakeInstaller{},
		synth:   &fakeSynth{},
		events:  make(chan emitted, 256),
		stopped: make(chan error, 1),
	}
	opts := Options{
		Config:    cfg,
		Library:   h.lib,
		History:   hist,
		Synth:     h.synth,
		Source:    h.src,
		Installer: h.inst,
	}
	if wire != nil {
		wire(&opts)
	}
	h.svc = New(opts)
	h.svc.listener = func(name string, data any) {
		select {
		case h.events <- emitted{name, data}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.stopped <- h.svc.Run(ctx) }()
	t.Cleanup(h.close)

	// The first call returns once setup has run.
	if _, err := h.svc.GetStatus(); err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	return h
}

func (h *harness) close() {
	h.cancel()
	<-h.svc.done
}

// waitFor drains events until one named name satisfies match.
func (h *harness) waitFor(t *testing.T, name string, match func(any) bool) any {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e := <-h.events:
			if e.name == name && (match == nil || match(e.data)) {
				return e.data
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", name)
			return nil
		}
	}
}

func playbackState(state string) func(any) bool {
	return func(d any) bool {
		ps, ok := d.(types.PlaybackState)
		return ok && ps.State == state
	}
}

func (h *harness) status(t *testing.T) types.Status {
	t.Helper()
	st, err := h.svc.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	return st
}

func (h *harness) storeMacro(t *testing.T, name string, events ...macro.Event) {
	t.Helper()
	tl, err := macro.NewTimeline(events...)
	if err != nil {
		t.Fatalf("NewTimeline() error = %v", err)
	}
	if _, err := h.lib.Save(name, tl); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := h.svc.LoadMacro(name); err != nil {
		t.Fatalf("LoadMacro() error = %v", err)
	}
}

func TestSetupInstallsHotkeys(t *testing.T) {
	h := newHarness(t, nil, nil)

	hs := h.waitFor(t, EventHotkeyStatus, nil).(types.HotkeyStatus)
	if !hs.Active {
		t.Fatalf("hotkey status = %+v, want active", hs)
	}
	if h.inst.installs != 1 {
		t.Errorf("installs = %d, want 1", h.inst.installs)
	}
	if !h.status(t).HotkeysLive {
		t.Error("status reports hotkeys down")
	}
}

func TestRecordThenPlay(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if got := h.src.subscribed(); len(got) != 2 {
		t.Fatalf("subscribed devices = %v, want mouse and keyboard", got)
	}
	if err := h.svc.StartRecording(); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Fatalf("second StartRecording() error = %v, want ErrAlreadyRecording", err)
	}

	now := time.Now()
	at := func(ms int) time.Time { return now.Add(time.Duration(ms) * time.Millisecond) }
	for _, n := range []capture.Notification{
		{Kind: macro.KindMove, At: at(0), X: 10, Y: 20},
		{Kind: macro.KindClick, At: at(2), X: 10, Y: 20, Button: macro.ButtonPrimary, Pressed: true},
		{Kind: macro.KindClick, At: at(4), X: 10, Y: 20, Button: macro.ButtonPrimary},
		{Kind: macro.KindKeyPress, At: at(6), Key: "F1"},
		{Kind: macro.KindKeyRelease, At: at(7), Key: "F1"},
		{Kind: macro.KindKeyPress, At: at(8), Key: "a"},
		{Kind: macro.KindKeyRelease, At: at(10), Key: "a"},
	} {
		h.svc.post(n)
	}

	if err := h.svc.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	st := h.status(t)
	if st.Recording || st.Events != 5 {
		t.Fatalf("status = %+v, want 5 events and not recording", st)
	}

	if err := h.svc.StartPlayback(); err != nil {
		t.Fatalf("StartPlayback() error = %v", err)
	}
	done := h.waitFor(t, EventPlaybackState, playbackState("completed")).(types.PlaybackState)
	if done.Dispatched != 5 || done.Iterations != 1 {
		t.Errorf("finished run = %+v, want 5 dispatched in 1 iteration", done)
	}

	want := []string{"move", "move", "down left", "move", "up left", "press a", "release a"}
	got := h.synth.snapshot()
	if len(got) != len(want) {
		t.Fatalf("synth calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("synth call %d = %q, want %q", i, got[i], want[i])
		}
	}

	// Sync with the loop so the history append has happened.
	h.status(t)
	recs, err := h.svc.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Outcome != "completed" || recs[0].Dispatched != 5 {
		t.Fatalf("history = %+v, want one completed run", recs)
	}
}

func TestPlaybackRequiresMacro(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.svc.StartPlayback(); !errors.Is(err, ErrNoMacro) {
		t.Fatalf("StartPlayback() error = %v, want ErrNoMacro", err)
	}
	if err := h.svc.SaveMacro("x"); !errors.Is(err, ErrNoMacro) {
		t.Fatalf("SaveMacro() error = %v, want ErrNoMacro", err)
	}
}

func TestPlaybackRejectedWhileRecording(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.storeMacro(t, "m", macro.KeyPress(0, "a"), macro.KeyRelease(0.01, "a"))

	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if err := h.svc.StartPlayback(); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Fatalf("StartPlayback() error = %v, want ErrAlreadyRecording", err)
	}
}

func TestHotkeysDriveRecording(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.inst.fire(hotkey.StartRecord, true)
	h.inst.fire(hotkey.StartRecord, false)
	if !h.status(t).Recording {
		t.Fatal("start_record did not start a recording")
	}

	h.inst.fire(hotkey.StopRecord, true)
	if h.status(t).Recording {
		t.Fatal("stop_record did not stop the recording")
	}
	rs := h.waitFor(t, EventRecordingState, func(d any) bool {
		return d.(types.RecordingState).State == "stopped"
	}).(types.RecordingState)
	if rs.Events != 0 {
		t.Errorf("events = %d, want 0", rs.Events)
	}
}

func TestHoldModePlayback(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.PlaybackMode = true }, nil)
	h.storeMacro(t, "long", macro.KeyPress(0, "a"), macro.KeyRelease(30, "a"))

	h.inst.fire(hotkey.PlayMacro, true)
	h.waitFor(t, EventPlaybackState, playbackState("running"))
	if !h.status(t).Playing {
		t.Fatal("not playing while the play key is held")
	}

	h.inst.fire(hotkey.PlayMacro, false)
	ps := h.waitFor(t, EventPlaybackState, playbackState("interrupted")).(types.PlaybackState)
	if ps.Macro != "long" {
		t.Errorf("macro = %q, want long", ps.Macro)
	}
	if h.status(t).Playing {
		t.Fatal("still playing after release")
	}
}

func TestToggleModePlayback(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.storeMacro(t, "long", macro.KeyPress(0, "a"), macro.KeyRelease(30, "a"))

	h.inst.fire(hotkey.PlayMacro, true)
	h.inst.fire(hotkey.PlayMacro, false)
	h.waitFor(t, EventPlaybackState, playbackState("running"))

	// Releasing the play key does nothing in toggle mode.
	if !h.status(t).Playing {
		t.Fatal("release stopped playback in toggle mode")
	}

	h.inst.fire(hotkey.StopPlay, true)
	h.waitFor(t, EventPlaybackState, playbackState("interrupted"))
}

func TestStopPlaybackJoins(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.storeMacro(t, "long", macro.KeyPress(0, "a"), macro.KeyRelease(30, "a"))

	if err := h.svc.StartPlayback(); err != nil {
		t.Fatalf("StartPlayback() error = %v", err)
	}
	if err := h.svc.StopPlayback(); err != nil {
		t.Fatalf("StopPlayback() error = %v", err)
	}
	if h.status(t).Playing {
		t.Fatal("playing after StopPlayback returned")
	}
	h.waitFor(t, EventPlaybackState, playbackState("interrupted"))
}

func TestRecordingTimeout(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	now := time.Now()
	h.svc.post(capture.Notification{Kind: macro.KindMove, At: now, X: 1, Y: 1})
	h.svc.post(capture.Notification{Kind: macro.KindMove, At: now.Add(capture.DefaultMaxDuration + time.Second), X: 2, Y: 2})

	p := h.waitFor(t, EventRecordingTimeout, nil).(types.RecordingProgress)
	if p.Events != 1 || p.Limit != capture.DefaultMaxDuration.Seconds() {
		t.Errorf("timeout progress = %+v", p)
	}
	st := h.status(t)
	if st.Recording || st.Events != 1 {
		t.Fatalf("status = %+v, want the capped recording kept", st)
	}
}

func TestCancelRecording(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	h.svc.post(capture.Notification{Kind: macro.KindKeyPress, At: time.Now(), Key: "b"})
	if err := h.svc.CancelRecording(); err != nil {
		t.Fatalf("CancelRecording() error = %v", err)
	}
	st := h.status(t)
	if st.Recording || st.Events != 0 {
		t.Fatalf("status = %+v, want nothing kept", st)
	}
	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() after cancel error = %v", err)
	}
}

func TestCancelStoppedRecording(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	h.svc.post(capture.Notification{Kind: macro.KindKeyPress, At: time.Now(), Key: "b"})
	if err := h.svc.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if err := h.svc.CancelRecording(); err != nil {
		t.Fatalf("CancelRecording() error = %v", err)
	}
	if st := h.status(t); st.Events != 0 {
		t.Fatalf("status = %+v, want the stopped recording gone", st)
	}
	if err := h.svc.StartPlayback(); !errors.Is(err, ErrNoMacro) {
		t.Fatalf("StartPlayback() error = %v, want ErrNoMacro", err)
	}
}

func TestCancelKeepsSavedMacro(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.storeMacro(t, "kept", macro.KeyPress(0, "a"), macro.KeyRelease(0.1, "a"))

	if err := h.svc.CancelRecording(); err != nil {
		t.Fatalf("CancelRecording() error = %v", err)
	}
	if st := h.status(t); st.Macro != "kept" || st.Events != 2 {
		t.Fatalf("status = %+v, want kept still loaded", st)
	}
}

func TestScopeGatesHotkeys(t *testing.T) {
	resolver := scope.ResolverFunc(func() (string, error) { return "other.exe", nil })
	h := newHarness(t, func(c *config.Config) { c.TargetProcess = "game.exe" }, resolver)

	h.inst.fire(hotkey.StartRecord, true)
	if h.status(t).Recording {
		t.Fatal("hotkey acted outside the target process")
	}
	// Explicit calls are not gated.
	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
}

func TestMacroLibrary(t *testing.T) {
	h := newHarness(t, nil, nil)

	if err := h.svc.StartRecording(); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	h.svc.post(capture.Notification{Kind: macro.KindKeyPress, At: time.Now(), Key: "a"})
	if err := h.svc.StopRecording(); err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if err := h.svc.SaveMacro("first"); err != nil {
		t.Fatalf("SaveMacro() error = %v", err)
	}
	if h.cfg.LastMacro != "first" {
		t.Errorf("LastMacro = %q, want first", h.cfg.LastMacro)
	}

	if err := h.svc.RenameMacro("first", "second"); err != nil {
		t.Fatalf("RenameMacro() error = %v", err)
	}
	list, err := h.svc.ListMacros()
	if err != nil {
		t.Fatalf("ListMacros() error = %v", err)
	}
	if len(list) != 1 || list[0].Name != "second" {
		t.Fatalf("ListMacros() = %+v, want [second]", list)
	}
	if st := h.status(t); st.Macro != "second" || h.cfg.LastMacro != "second" {
		t.Errorf("after rename: status macro %q, last macro %q", st.Macro, h.cfg.LastMacro)
	}

	if err := h.svc.DeleteMacro("second"); err != nil {
		t.Fatalf("DeleteMacro() error = %v", err)
	}
	st := h.status(t)
	if st.Macro != "" || st.Events != 1 {
		t.Errorf("after delete: status = %+v, want unnamed macro still loaded", st)
	}
	if err := h.svc.LoadMacro("second"); err == nil {
		t.Error("LoadMacro() of deleted macro succeeded")
	}
}

func TestLastMacroLoadedOnStart(t *testing.T) {
	dir := t.TempDir()
	tl, _ := macro.NewTimeline(macro.Move(0, 1, 1), macro.Move(0.5, 2, 2))
	if _, err := macro.NewLibrary(dir).Save("boot", tl); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg, _ := config.LoadFile(filepath.Join(t.TempDir(), "config.json"))
	cfg.LastMacro = "boot"
	svc := New(Options{
		Config:    cfg,
		Library:   macro.NewLibrary(dir),
		Synth:     &fakeSynth{},
		Source:    &fakeSource{},
		Installer: &fakeInstaller{},
	})
	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	defer func() {
		cancel()
		<-svc.done
	}()

	st, err := svc.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if st.Macro != "boot" || st.Events != 2 || st.Duration != 0.5 {
		t.Fatalf("status = %+v, want boot loaded", st)
	}
}

func TestUpdateSettings(t *testing.T) {
	h := newHarness(t, nil, nil)

	cur, err := h.svc.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if cur.TargetProcess != "global" || cur.Speed != 1 {
		t.Fatalf("GetSettings() = %+v", cur)
	}

	bad := cur
	bad.Speed = 0
	if err := h.svc.UpdateSettings(bad); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("UpdateSettings(speed 0) error = %v, want ErrInvalid", err)
	}
	dup := cur
	dup.StopShortcut = dup.StartShortcut
	if err := h.svc.UpdateSettings(dup); err == nil {
		t.Fatal("UpdateSettings(duplicate shortcut) succeeded")
	}
	if h.cfg.Speed != 1 || h.cfg.StopShortcut != "F2" {
		t.Fatalf("invalid settings were applied: %+v", h.cfg)
	}

	next := cur
	next.Speed = 2
	next.StartShortcut = "ctrl+F9"
	next.TargetProcess = "Game.exe"
	next.HoldMode = true
	if err := h.svc.UpdateSettings(next); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	if h.inst.installs != 2 {
		t.Errorf("installs = %d, want a reinstall for the new shortcut", h.inst.installs)
	}
	if got := h.inst.bindings.StartRecord.String(); got != "ctrl+f9" {
		t.Errorf("start binding = %q, want ctrl+f9", got)
	}
	if h.svc.hotkeys.Mode() != hotkey.Hold {
		t.Error("hold mode not applied")
	}
	if h.svc.filter.Target().Name() != "Game.exe" {
		t.Errorf("filter target = %v", h.svc.filter.Target())
	}

	saved, err := config.LoadFile(h.cfgPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if saved.Speed != 2 || saved.StartShortcut != "ctrl+f9" || !saved.PlaybackMode {
		t.Errorf("saved config = %+v", saved)
	}
	if saved.StopShortcut != "f2" {
		t.Errorf("stop shortcut saved as %q, want normalized f2", saved.StopShortcut)
	}
}

func TestCallsAfterShutdown(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.close()

	if err := h.svc.StartRecording(); !errors.Is(err, ErrClosed) {
		t.Fatalf("StartRecording() error = %v, want ErrClosed", err)
	}
	if err := <-h.stopped; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	h := newHarness(t, nil, nil)

	path := filepath.Join(t.TempDir(), "drill.json")
	tl, _ := macro.NewTimeline(macro.KeyPress(0, "x"), macro.KeyRelease(0.1, "x"))
	if err := macro.SaveFile(path, tl); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	if err := h.svc.OpenFile(path); err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if st := h.status(t); st.Macro != "drill" || st.Events != 2 {
		t.Fatalf("status = %+v, want drill loaded", st)
	}
	if list, _ := h.svc.ListMacros(); len(list) != 0 {
		t.Errorf("ListMacros() = %+v, want the library untouched", list)
	}
}

func TestEditEvents(t *testing.T) {
	h := newHarness(t, nil, nil)

	if _, err := h.svc.GetEvents(); !errors.Is(err, ErrNoMacro) {
		t.Fatalf("GetEvents() error = %v, want ErrNoMacro", err)
	}
	if err := h.svc.DeleteEvent(0); !errors.Is(err, ErrNoMacro) {
		t.Fatalf("DeleteEvent() error = %v, want ErrNoMacro", err)
	}

	// Inserting into nothing starts an unsaved macro.
	if err := h.svc.InsertEvent(0, macro.KeyPress(0, "a")); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := h.svc.InsertEvent(1, macro.KeyRelease(0.2, "a")); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if err := h.svc.InsertEvent(1, macro.Move(0.1, 5, 5)); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	h.waitFor(t, EventMacroChanged, nil)

	tests := []struct {
		name string
		op   func() error
	}{
		{"insert past end", func() error { return h.svc.InsertEvent(9, macro.Move(1, 0, 0)) }},
		{"delete past end", func() error { return h.svc.DeleteEvent(3) }},
		{"negative index", func() error { return h.svc.DeleteEvent(-1) }},
		{"invalid event", func() error { return h.svc.InsertEvent(0, macro.Move(-1, 0, 0)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); err == nil {
				t.Error("error = nil, want failure")
			}
		})
	}
	if err := h.svc.InsertEvent(0, macro.Move(0.5, 0, 0)); !errors.Is(err, ErrEventOrder) {
		t.Fatalf("out of order insert error = %v, want ErrEventOrder", err)
	}

	if err := h.svc.DeleteEvent(1); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	got, err := h.svc.GetEvents()
	if err != nil {
		t.Fatalf("GetEvents() error = %v", err)
	}
	want := []macro.Kind{macro.KindKeyPress, macro.KindKeyRelease}
	if len(got) != len(want) {
		t.Fatalf("GetEvents() = %v, want %d events", got, len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("event %d kind = %v, want %v", i, got[i].Kind, k)
		}
	}

	// Edits stay in memory until saved.
	if err := h.svc.SaveMacro("edited"); err != nil {
		t.Fatalf("SaveMacro() error = %v", err)
	}
	if err := h.svc.DeleteEvent(0); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	saved, err := h.lib.Load("edited")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.Len() != 2 {
		t.Errorf("saved events = %d, want 2", saved.Len())
	}
	if st := h.status(t); st.Macro != "edited" || st.Events != 1 {
		t.Errorf("status = %+v, want edited with 1 event", st)
	}
}

type hookStream struct {
	mu sync.Mutex
	ch chan hook.Event
}

func (s *hookStream) Start() (<-chan hook.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch = make(chan hook.Event)
	return s.ch, nil
}

func (s *hookStream) End() {}

func (s *hookStream) send(e hook.Event) {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	ch <- e
}

func (s *hookStream) tap(kind uint8, c rune) {
	s.send(hook.Event{Kind: kind, When: time.Now(), Keychar: c, Rawcode: 0xFFFF})
}

func TestHotkeyStartedRecordingFromRawEvents(t *testing.T) {
	stream := &hookStream{}
	h := newHarnessWith(t, func(c *config.Config) {
		c.StartShortcut, c.StopShortcut = "q", "w"
		c.PlayShortcut, c.StopPlayShortcut = "e", "r"
		c.RecordMode = "keyboard"
	}, func(o *Options) {
		o.Hub = inputhook.NewHubWithStream(stream)
		o.Source, o.Installer = nil, nil
	})

	stream.tap(hook.KeyHold, 'q')
	h.waitFor(t, EventRecordingState, func(d any) bool {
		return d.(types.RecordingState).State == "recording"
	})
	stream.tap(hook.KeyUp, 'q')
	stream.tap(hook.KeyHold, 'a')
	stream.tap(hook.KeyUp, 'a')
	stream.tap(hook.KeyHold, 'w')

	rs := h.waitFor(t, EventRecordingState, func(d any) bool {
		return d.(types.RecordingState).State == "stopped"
	}).(types.RecordingState)
	if rs.Events != 2 {
		t.Fatalf("recorded %d events, want only the a press and release", rs.Events)
	}
}
