package app

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"go.aimuz.me/supermacro/history"
	"go.aimuz.me/supermacro/internal/types"
	"go.aimuz.me/supermacro/macro"
	"go.aimuz.me/supermacro/scope"
)

// Methods in this file are bound to the frontend and the tray menu. Each
// one runs on the loop and may be called from any goroutine.

// StartRecording begins recording with the configured mode.
func (s *Service) StartRecording() error {
	return s.do(s.startRecording)
}

// StopRecording ends the recording and makes it the current macro.
func (s *Service) StopRecording() error {
	return s.do(s.stopRecording)
}

// CancelRecording throws away the current recording, whether it is still
// running or stopped but unsaved. Saved macros are left alone.
func (s *Service) CancelRecording() error {
	return s.do(s.cancelRecording)
}

// StartPlayback plays the current macro with the configured speed,
// repeat count and jitter setting.
func (s *Service) StartPlayback() error {
	return s.do(s.startPlayback)
}

// StopPlayback interrupts the active run and waits for it to exit.
func (s *Service) StopPlayback() error {
	return s.do(s.stopPlayback)
}

// GetStatus returns the engine state.
func (s *Service) GetStatus() (types.Status, error) {
	var st types.Status
	err := s.do(func() error {
		st = s.status()
		return nil
	})
	return st, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Macro Library
// ─────────────────────────────────────────────────────────────────────────────

// ListMacros returns the saved macros.
func (s *Service) ListMacros() ([]types.MacroInfo, error) {
	infos, err := s.lib.List()
	if err != nil {
		return nil, err
	}
	return lo.Map(infos, func(info macro.Info, _ int) types.MacroInfo {
		return types.MacroInfo{Name: info.Name, Size: info.Size, ModTime: info.ModTime}
	}), nil
}

// SaveMacro writes the current macro under name and makes it current.
func (s *Service) SaveMacro(name string) error {
	return s.do(func() error {
		if s.current == nil {
			return ErrNoMacro
		}
		if _, err := s.lib.Save(name, s.current); err != nil {
			return err
		}
		s.currentName = name
		s.rememberMacro(name)
		s.emit(EventMacroChanged, s.status())
		return nil
	})
}

// LoadMacro replaces the current macro with the saved one.
func (s *Service) LoadMacro(name string) error {
	return s.do(func() error {
		if err := s.loadMacro(name); err != nil {
			return err
		}
		s.rememberMacro(name)
		return nil
	})
}

// OpenFile makes the macro file at path current without adding it to the
// library.
func (s *Service) OpenFile(path string) error {
	tl, err := macro.LoadFile(path)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s.do(func() error {
		s.current, s.currentName = tl, name
		s.emit(EventMacroChanged, s.status())
		return nil
	})
}

// DeleteMacro removes a saved macro. The current macro stays loaded.
func (s *Service) DeleteMacro(name string) error {
	return s.do(func() error {
		if err := s.lib.Delete(name); err != nil {
			return err
		}
		if s.currentName == name {
			s.currentName = ""
		}
		if s.cfg.LastMacro == name {
			s.rememberMacro("")
		}
		return nil
	})
}

// RenameMacro renames a saved macro.
func (s *Service) RenameMacro(oldName, newName string) error {
	return s.do(func() error {
		if err := s.lib.Rename(oldName, newName); err != nil {
			return err
		}
		if s.currentName == oldName {
			s.currentName = newName
		}
		if s.cfg.LastMacro == oldName {
			s.rememberMacro(newName)
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Editing
// ─────────────────────────────────────────────────────────────────────────────

// GetEvents returns the events of the current macro.
func (s *Service) GetEvents() ([]macro.Event, error) {
	var out []macro.Event
	err := s.do(func() error {
		if s.current == nil {
			return ErrNoMacro
		}
		out = s.current.Events()
		return nil
	})
	return out, err
}

// InsertEvent inserts e at index i of the current macro. An empty macro is
// started when none is loaded. Changes are kept in memory until SaveMacro.
func (s *Service) InsertEvent(i int, e macro.Event) error {
	return s.do(func() error {
		base := s.current
		if base == nil {
			base, _ = macro.NewTimeline()
		}
		tl, err := base.Insert(i, e)
		if err != nil {
			return err
		}
		return s.replaceMacro(tl)
	})
}

// DeleteEvent removes the event at index i of the current macro.
func (s *Service) DeleteEvent(i int) error {
	return s.do(func() error {
		if s.current == nil {
			return ErrNoMacro
		}
		tl, err := s.current.Delete(i)
		if err != nil {
			return err
		}
		return s.replaceMacro(tl)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// GetSettings returns the current settings.
func (s *Service) GetSettings() (types.Settings, error) {
	var out types.Settings
	err := s.do(func() error {
		c := s.cfg
		out = types.Settings{
			Speed:            c.Speed,
			StartShortcut:    c.StartShortcut,
			StopShortcut:     c.StopShortcut,
			PlayShortcut:     c.PlayShortcut,
			StopPlayShortcut: c.StopPlayShortcut,
			TargetProcess:    c.Target().String(),
			HoldMode:         c.PlaybackMode,
			AntiDetection:    c.PreventBackgroundDetection,
			RepeatCount:      c.RepeatCount,
			RecordMode:       c.RecordMode,
		}
		return nil
	})
	return out, err
}

// UpdateSettings validates and applies in, then saves the config. Invalid
// settings change nothing.
func (s *Service) UpdateSettings(in types.Settings) error {
	return s.do(func() error {
		next := *s.cfg
		next.Speed = in.Speed
		next.StartShortcut = in.StartShortcut
		next.StopShortcut = in.StopShortcut
		next.PlayShortcut = in.PlayShortcut
		next.StopPlayShortcut = in.StopPlayShortcut
		next.SetTarget(scope.ParseTarget(in.TargetProcess))
		next.PlaybackMode = in.HoldMode
		next.PreventBackgroundDetection = in.AntiDetection
		next.RepeatCount = in.RepeatCount
		next.RecordMode = in.RecordMode
		if err := next.Validate(); err != nil {
			return err
		}
		b, _ := next.Bindings()
		next.SetBindings(b)

		// A record mode change takes effect on the next recording.
		bindingsChanged := next.StartShortcut != s.cfg.StartShortcut ||
			next.StopShortcut != s.cfg.StopShortcut ||
			next.PlayShortcut != s.cfg.PlayShortcut ||
			next.StopPlayShortcut != s.cfg.StopPlayShortcut

		*s.cfg = next
		s.filter.SetTarget(s.cfg.Target())
		s.hotkeys.SetMode(s.cfg.ActivationMode())
		if bindingsChanged || !s.hotkeyOK {
			s.applyBindings()
		}
		return s.cfg.Save()
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// History
// ─────────────────────────────────────────────────────────────────────────────

// RecentRuns returns up to n finished runs, newest first.
func (s *Service) RecentRuns(n int) ([]history.Record, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.Recent(n)
}

// ClearHistory removes every run record.
func (s *Service) ClearHistory() error {
	if s.history == nil {
		return nil
	}
	return s.history.Clear()
}
