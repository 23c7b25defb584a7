// Package hotkey turns raw keyboard events into recording commands: a
// configurable push-to-talk key plus hotkey+digit chords for switching
// transcription models.
package hotkey

import (
	"strconv"
)

// Key codes from linux/input-event-codes.h.
const (
	KeyEsc        = 1
	Key1          = 2
	Key2          = 3
	Key3          = 4
	Key4          = 5
	KeyLeftCtrl   = 29
	KeyLeftShift  = 42
	KeyRightShift = 54
	KeyLeftAlt    = 56
	KeyCapsLock   = 58
	KeyF1         = 59
	KeyF10        = 68
	KeyScrollLock = 70
	KeyF11        = 87
	KeyF12        = 88
	KeyRightCtrl  = 97
	KeyRightAlt   = 100
	KeyInsert     = 110
	KeyPause      = 119
	KeyLeftMeta   = 125
	KeyRightMeta  = 126
)

// Key event values. Autorepeat (value 2) is deliberately not named here:
// the state machine matches only the discrete 0/1 transitions.
const (
	valueUp   = 0
	valueDown = 1
)

// ModelSlots maps chord digits to model names: hold the hotkey and press
// 1/2/3/4 to switch.
var ModelSlots = map[uint16]string{
	Key1: "base",
	Key2: "small",
	Key3: "medium",
	Key4: "large-v3",
}

var keyNames = buildKeyNames()

func buildKeyNames() map[string]uint16 {
	m := map[string]uint16{
		"f1": KeyF1, "f2": KeyF1 + 1, "f3": KeyF1 + 2, "f4": KeyF1 + 3,
		"f5": KeyF1 + 4, "f6": KeyF1 + 5, "f7": KeyF1 + 6, "f8": KeyF1 + 7,
		"f9": KeyF1 + 8, "f10": KeyF10, "f11": KeyF11, "f12": KeyF12,
		"alt_r":       KeyRightAlt,
		"alt_l":       KeyLeftAlt,
		"ctrl_r":      KeyRightCtrl,
		"ctrl_l":      KeyLeftCtrl,
		"shift_r":     KeyRightShift,
		"shift_l":     KeyLeftShift,
		"super_r":     KeyRightMeta,
		"super_l":     KeyLeftMeta,
		"scroll_lock": KeyScrollLock,
		"pause":       KeyPause,
		"insert":      KeyInsert,
		"caps_lock":   KeyCapsLock,
	}
	// Generic letter and digit names, row by row of the scancode layout.
	rows := []struct {
		keys string
		base uint16
	}{
		{"1234567890", Key1},
		{"qwertyuiop", 16},
		{"asdfghjkl", 30},
		{"zxcvbnm", 44},
	}
	for _, row := range rows {
		for i, c := range row.keys {
			m[string(c)] = row.base + uint16(i)
		}
	}
	return m
}

var displayNames = func() map[uint16]string {
	m := make(map[uint16]string, len(keyNames))
	for name, code := range keyNames {
		m[code] = name
	}
	return m
}()

// Resolve converts a configured key name to an evdev key code. Unknown
// names fall back to F12 and report the fallback through ok=false.
func Resolve(name string) (code uint16, ok bool) {
	if c, found := keyNames[normalize(name)]; found {
		return c, true
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 && n < 0x2ff {
		return uint16(n), true
	}
	return KeyF12, false
}

// DisplayName returns the configured-name spelling for a key code, or the
// numeric code when it has no name in the table.
func DisplayName(code uint16) string {
	if name, ok := displayNames[code]; ok {
		return name
	}
	return strconv.Itoa(int(code))
}

func normalize(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
