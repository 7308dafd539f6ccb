// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.aimuz.me/supermacro/capture"
	"go.aimuz.me/supermacro/hotkey"
	"go.aimuz.me/supermacro/scope"
)

const (
	appName        = "supermacro"
	configFileName = "config.json"

	// legacyConfigPath is where the previous desktop release kept its
	// settings, relative to the working directory.
	legacyConfigPath = "config/config.json"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config represents the application configuration. Field names match the
// files written by earlier releases.
type Config struct {
	Theme string `json:"theme,omitempty"`

	Speed                      float64 `json:"speed"`
	StartShortcut              string  `json:"start_shortcut"`
	StopShortcut               string  `json:"stop_shortcut"`
	PlayShortcut               string  `json:"play_shortcut"`
	StopPlayShortcut           string  `json:"stop_play_shortcut"`
	TargetProcess              string  `json:"target_process"`
	PlaybackMode               bool    `json:"playback_mode"` // true is Hold
	PreventBackgroundDetection bool    `json:"prevent_background_detection"`

	RepeatCount int    `json:"repeat_count"`
	RecordMode  string `json:"record_mode"`
	MacroDir    string `json:"macro_dir,omitempty"`
	LastMacro   string `json:"last_macro,omitempty"`

	path string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Speed:                      1.0,
		StartShortcut:              "F1",
		StopShortcut:               "F2",
		PlayShortcut:               "F4",
		StopPlayShortcut:           "F5",
		TargetProcess:              "global",
		PreventBackgroundDetection: true,
		RepeatCount:                1,
		RecordMode:                 capture.ModeBoth.String(),
	}
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	if err := migrateLegacyConfig(path); err != nil {
		return nil, fmt.Errorf("migrate legacy config: %w", err)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. Keys missing from the file keep
// their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration to the file it was loaded from.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
	}
	return c.SaveFile(path)
}

// SaveFile persists the configuration to path.
func (c *Config) SaveFile(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	c.path = path
	return nil
}

// Validate checks every setting the engine consumes.
func (c *Config) Validate() error {
	if c.Speed <= 0 || math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) {
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalid, c.Speed)
	}
	if c.RepeatCount < 1 {
		return fmt.Errorf("%w: repeat_count must be at least 1, got %d", ErrInvalid, c.RepeatCount)
	}
	if _, err := c.Bindings(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := c.CaptureMode(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Bindings parses the four shortcut strings.
func (c *Config) Bindings() (hotkey.Bindings, error) {
	return hotkey.ParseBindings(c.StartShortcut, c.StopShortcut, c.PlayShortcut, c.StopPlayShortcut)
}

// SetBindings stores b in normalized form.
func (c *Config) SetBindings(b hotkey.Bindings) {
	c.StartShortcut = b.StartRecord.String()
	c.StopShortcut = b.StopRecord.String()
	c.PlayShortcut = b.PlayMacro.String()
	c.StopPlayShortcut = b.StopPlay.String()
}

// Target returns the process scope.
func (c *Config) Target() scope.Target {
	return scope.ParseTarget(c.TargetProcess)
}

// SetTarget stores t.
func (c *Config) SetTarget(t scope.Target) {
	c.TargetProcess = t.String()
}

// ActivationMode returns the play hotkey mode.
func (c *Config) ActivationMode() hotkey.Mode {
	return hotkey.ModeOf(c.PlaybackMode)
}

// CaptureMode returns the devices to record.
func (c *Config) CaptureMode() (capture.Mode, error) {
	return capture.ParseMode(c.RecordMode)
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// migrateLegacyConfig copies the settings of the previous release into
// path when path does not exist yet.
func migrateLegacyConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}

	data, err := os.ReadFile(legacyConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read legacy config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		// Not ours; leave it alone.
		return nil
	}
	if cfg.Validate() != nil {
		return nil
	}
	return cfg.SaveFile(path)
}
