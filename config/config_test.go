package config

import (
	"os"
	"path/filepath"
	"testing"
)

func withConfigFile(t *testing.T, contents string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	// adrg/xdg caches paths at init; reload picks up the env change.
	reloadXDG()
	if contents != "" {
		cfgDir := filepath.Join(dir, appDir)
		if err := os.MkdirAll(cfgDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	withConfigFile(t, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	withConfigFile(t, "[whisper]\nmodel = \"medium\"\n")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "medium" {
		t.Errorf("model = %q, want medium", cfg.Model)
	}
	if cfg.Hotkey != "ctrl_r" || !cfg.AutoPaste || cfg.Device != "cpu" {
		t.Errorf("unset keys lost their defaults: %+v", cfg)
	}
}

func TestLoadFullFile(t *testing.T) {
	withConfigFile(t, `
[whisper]
model = "large-v3"
device = "cuda"
compute_type = "float16"
language = "pt"

[hotkey]
key = "f12"

[behavior]
auto_paste = false
notifications = false
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Model: "large-v3", Device: "cuda", ComputeType: "float16",
		Language: "pt", Hotkey: "f12",
	}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	withConfigFile(t, "not [valid toml")
	if _, err := Load(); err == nil {
		t.Error("malformed config should surface an error")
	}
}
