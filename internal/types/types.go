// Package types provides shared type definitions for the application.
package types

import "time"

// Settings is the user-editable configuration as the shell sees it.
type Settings struct {
	Speed            float64 `json:"speed"`
	StartShortcut    string  `json:"startShortcut"`
	StopShortcut     string  `json:"stopShortcut"`
	PlayShortcut     string  `json:"playShortcut"`
	StopPlayShortcut string  `json:"stopPlayShortcut"`
	TargetProcess    string  `json:"targetProcess"` // "global" or an executable name
	HoldMode         bool    `json:"holdMode"`
	AntiDetection    bool    `json:"antiDetection"`
	RepeatCount      int     `json:"repeatCount"`
	RecordMode       string  `json:"recordMode"` // "both", "mouse" or "keyboard"
}

// Status is a point-in-time view of the engine.
type Status struct {
	Recording   bool    `json:"recording"`
	Playing     bool    `json:"playing"`
	Macro       string  `json:"macro,omitempty"` // empty for an unsaved recording
	Events      int     `json:"events"`
	Duration    float64 `json:"duration"` // seconds
	HotkeysLive bool    `json:"hotkeysLive"`
}

// RecordingState is emitted when a recording starts or ends.
type RecordingState struct {
	State  string `json:"state"` // "recording", "stopped", "discarded"
	Mode   string `json:"mode,omitempty"`
	Events int    `json:"events"`
}

// RecordingProgress is emitted every poll while recording.
type RecordingProgress struct {
	Elapsed float64 `json:"elapsed"` // seconds
	Limit   float64 `json:"limit"`   // seconds
	Events  int     `json:"events"`
}

// PlaybackState is emitted when a run starts and when it ends.
type PlaybackState struct {
	RunID      string  `json:"runId"`
	State      string  `json:"state"` // "running", "completed", "interrupted", "failed"
	Macro      string  `json:"macro,omitempty"`
	Error      string  `json:"error,omitempty"`
	Dispatched int     `json:"dispatched"`
	Iterations int     `json:"iterations"`
	Elapsed    float64 `json:"elapsed"` // seconds
}

// HotkeyStatus reports whether the global hotkeys are installed.
type HotkeyStatus struct {
	Active   bool   `json:"active"`
	Bindings string `json:"bindings,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MacroInfo describes a saved macro file.
type MacroInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}
