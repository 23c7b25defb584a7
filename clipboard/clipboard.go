// Package clipboard copies text to the desktop clipboard and simulates a
// paste keystroke through the ydotool helper daemon.
package clipboard

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
)

const pasteDelay = 300 * time.Millisecond

// RequiredCommands maps required external tools to the package providing
// them, for actionable startup errors.
var RequiredCommands = map[string]string{
	"arecord":     "alsa-utils",
	"notify-send": "libnotify",
}

// OptionalCommands degrade a feature when missing instead of failing
// startup.
var OptionalCommands = map[string]string{
	"ydotool": "ydotool",
}

var (
	ydotooldMu   sync.Mutex
	ydotooldProc *exec.Cmd
)

// SocketPath is where ydotoold listens for the current user.
func SocketPath() string {
	return fmt.Sprintf("/run/user/%d/.ydotool_socket", os.Getuid())
}

func onWayland() bool {
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// Copy puts text on the clipboard: wl-copy on Wayland sessions, the native
// clipboard (xclip/xsel) elsewhere.
func Copy(text string) error {
	if onWayland() {
		cmd := exec.Command("wl-copy")
		cmd.Stdin = strings.NewReader(text)
		return cmd.Run()
	}
	return cb.WriteAll(text)
}

// Paste simulates Ctrl+V via ydotool. Returns false when the helper daemon
// cannot be reached.
func Paste() bool {
	if !ensureYdotoold() {
		return false
	}
	// Give the focused window time to settle after the hotkey release.
	time.Sleep(pasteDelay)
	return exec.Command("ydotool", "key", "29:1", "47:1", "47:0", "29:0").Run() == nil
}

// HasPasteTool reports whether ydotool is installed at all.
func HasPasteTool() bool {
	_, err := exec.LookPath("ydotool")
	return err == nil
}

// ensureYdotoold starts ydotoold if its socket is absent, polling briefly
// for the socket to appear.
func ensureYdotoold() bool {
	ydotooldMu.Lock()
	defer ydotooldMu.Unlock()

	if _, err := os.Stat(SocketPath()); err == nil {
		return true
	}
	if _, err := exec.LookPath("ydotoold"); err != nil {
		return false
	}

	cmd := exec.Command("ydotoold")
	if err := cmd.Start(); err != nil {
		return false
	}
	ydotooldProc = cmd
	go cmd.Wait()

	for i := 0; i < 10; i++ {
		time.Sleep(100 * time.Millisecond)
		if _, err := os.Stat(SocketPath()); err == nil {
			return true
		}
	}
	return false
}

// CheckDependencies verifies required external tools up front. A non-nil
// error is fatal at startup; optional tools only produce warnings.
func CheckDependencies() error {
	required := RequiredCommands
	if onWayland() {
		required = map[string]string{"wl-copy": "wl-clipboard"}
		for cmd, pkg := range RequiredCommands {
			required[cmd] = pkg
		}
	}

	var missing []string
	for cmd, pkg := range required {
		if _, err := exec.LookPath(cmd); err != nil {
			missing = append(missing, fmt.Sprintf("%s (install: %s)", cmd, pkg))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
	}

	for cmd, pkg := range OptionalCommands {
		if _, err := exec.LookPath(cmd); err != nil {
			fmt.Printf("Warning: %s not found (install: %s)\n", cmd, pkg)
			fmt.Println("  Auto-paste will be disabled.")
		}
	}
	return nil
}
