// Package doctor runs non-interactive environment diagnostics so setup
// problems surface before the daemon starts.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/godbus/dbus/v5"

	"github.com/wastintas/soupawhisper/clipboard"
	"github.com/wastintas/soupawhisper/config"
	"github.com/wastintas/soupawhisper/device"
	"github.com/wastintas/soupawhisper/transcriber"
)

// Run executes every check and returns an exit code (0=all pass, 1=any fail).
func Run(cfg config.Config) int {
	fmt.Println("soupawhisper doctor - environment diagnostics")
	fmt.Println("=============================================")

	checks := []struct {
		name string
		fn   func(config.Config) bool
	}{
		{"External commands", checkCommands},
		{"Whisper CLI", checkWhisper},
		{"Model file", checkModel},
		{"Keyboard devices", checkKeyboards},
		{"Session bus and tray host", checkBus},
		{"Auto-paste", checkPaste},
	}

	allPass := true
	for i, c := range checks {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(checks), c.name)
		if !c.fn(cfg) {
			allPass = false
		}
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkCommands(config.Config) bool {
	if err := clipboard.CheckDependencies(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Println("  PASS: required commands present")
	return true
}

func checkWhisper(config.Config) bool {
	bin, err := transcriber.ResolveCLI()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s\n", bin)
	return true
}

func checkModel(cfg config.Config) bool {
	path := os.Getenv("SOUPAWHISPER_MODEL")
	if path == "" {
		path = filepath.Join(config.ModelDir(), "ggml-"+cfg.Model+".bin")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Printf("  FAIL: model %s not found at %s\n", cfg.Model, path)
		fmt.Println("        download it with whisper.cpp's download-ggml-model.sh")
		return false
	}
	fmt.Printf("  PASS: %s\n", path)
	return true
}

func checkKeyboards(config.Config) bool {
	keyboards, err := device.FindKeyboards()
	if err != nil {
		fmt.Printf("  FAIL: scanning /dev/input: %v\n", err)
		return false
	}
	if len(keyboards) == 0 {
		fmt.Println("  FAIL: no keyboard devices readable")
		fmt.Println("        add yourself to the input group: sudo usermod -aG input $USER (then re-login)")
		return false
	}
	for _, kb := range keyboards {
		fmt.Printf("  PASS: %s (%s)\n", kb.Name(), kb.Path())
		kb.Close()
	}
	return true
}

func checkBus(config.Config) bool {
	conn, err := dbus.SessionBus()
	if err != nil {
		fmt.Printf("  FAIL: session bus: %v\n", err)
		return false
	}
	fmt.Println("  PASS: session bus reachable")

	var hasWatcher bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0,
		"org.kde.StatusNotifierWatcher").Store(&hasWatcher)
	if err != nil || !hasWatcher {
		fmt.Println("  WARN: no StatusNotifierWatcher on the bus (tray icon unavailable, run with -no-tray)")
		return true
	}
	fmt.Println("  PASS: StatusNotifierWatcher present")
	return true
}

func checkPaste(config.Config) bool {
	if !clipboard.HasPasteTool() {
		fmt.Println("  WARN: ydotool not installed, transcriptions will only be copied")
		return true
	}
	if _, err := os.Stat(clipboard.SocketPath()); err != nil {
		if _, err := exec.LookPath("ydotoold"); err != nil {
			fmt.Println("  WARN: ydotoold not installed, auto-paste may not work")
			return true
		}
		fmt.Printf("  PASS: ydotool installed (daemon will be started on demand, socket %s)\n", clipboard.SocketPath())
		return true
	}
	fmt.Printf("  PASS: ydotoold socket at %s\n", clipboard.SocketPath())
	return true
}
