// Package app runs the controlling loop that owns recording and playback
// state and exposes it to the shell.
package app

// Event names for frontend communication.
const (
	EventRecordingState    = "recording-state"
	EventRecordingProgress = "recording-progress"
	EventRecordingTimeout  = "recording-timeout"
	EventPlaybackState     = "playback-state"
	EventHotkeyStatus      = "hotkey-status"
	EventMacroChanged      = "macro-changed"
)
