// Package config loads the application configuration from
// ~/.config/soupawhisper/config.toml and resolves the XDG data paths every
// component receives explicitly at startup.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const appDir = "soupawhisper"

// Config is the read-only application configuration.
type Config struct {
	Model         string // whisper model name (base, small, medium, large-v3)
	Device        string // cpu or cuda
	ComputeType   string // int8, float16, ...
	Language      string // ISO-639-1 code or "auto"
	Hotkey        string // push-to-talk key name
	AutoPaste     bool
	Notifications bool
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Model:         "base",
		Device:        "cpu",
		ComputeType:   "int8",
		Language:      "auto",
		Hotkey:        "ctrl_r",
		AutoPaste:     true,
		Notifications: true,
	}
}

// fileConfig mirrors the TOML section layout. Fields are pre-filled with
// defaults before decoding, so absent keys keep their default value.
type fileConfig struct {
	Whisper struct {
		Model       string `toml:"model"`
		Device      string `toml:"device"`
		ComputeType string `toml:"compute_type"`
		Language    string `toml:"language"`
	} `toml:"whisper"`
	Hotkey struct {
		Key string `toml:"key"`
	} `toml:"hotkey"`
	Behavior struct {
		AutoPaste     bool `toml:"auto_paste"`
		Notifications bool `toml:"notifications"`
	} `toml:"behavior"`
}

// Load reads the config file, falling back to defaults when it is absent.
// A malformed file is an error; silently ignoring it would mask typos.
func Load() (Config, error) {
	cfg := Default()

	path := Path()
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	var fc fileConfig
	fc.Whisper.Model = cfg.Model
	fc.Whisper.Device = cfg.Device
	fc.Whisper.ComputeType = cfg.ComputeType
	fc.Whisper.Language = cfg.Language
	fc.Hotkey.Key = cfg.Hotkey
	fc.Behavior.AutoPaste = cfg.AutoPaste
	fc.Behavior.Notifications = cfg.Notifications

	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return cfg, err
	}

	cfg.Model = fc.Whisper.Model
	cfg.Device = fc.Whisper.Device
	cfg.ComputeType = fc.Whisper.ComputeType
	cfg.Language = fc.Whisper.Language
	cfg.Hotkey = fc.Hotkey.Key
	cfg.AutoPaste = fc.Behavior.AutoPaste
	cfg.Notifications = fc.Behavior.Notifications
	return cfg, nil
}

// Path is the config file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appDir, "config.toml")
}

// DataDir holds history, diagnostics, and model files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appDir)
}

// reloadXDG re-evaluates the XDG base directories after an environment
// change; only tests need this.
func reloadXDG() { xdg.Reload() }

func HistoryPath() string  { return filepath.Join(DataDir(), "history.jsonl") }
func ErrorLogPath() string { return filepath.Join(DataDir(), "error.log") }
func ModelDir() string     { return filepath.Join(DataDir(), "models") }
