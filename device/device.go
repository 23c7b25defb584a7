// Package device enumerates evdev input devices and filters them down to
// genuine keyboards (reads /dev/input directly, requires the 'input' group).
package device

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Event types and key codes from linux/input-event-codes.h.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02

	KeyA = 30
	KeyZ = 44
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const eventSize = 24

// Device names matching any of these substrings are never keyboards,
// whatever their capability bitmaps claim.
var skipNames = []string{"mouse", "touchpad", "trackpad", "trackpoint", "touchscreen"}

// Event is one decoded kernel input event.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// Device is an open handle to one keyboard-class input device. Handles stay
// open for the lifetime of the monitoring loop; Close is only called for
// rejected devices during the scan or on disconnect.
type Device struct {
	path string
	name string
	fd   int
}

func (d *Device) Path() string { return d.path }
func (d *Device) Name() string { return d.name }
func (d *Device) Fd() int      { return d.fd }

func (d *Device) Close() error { return unix.Close(d.fd) }

// Read drains the events currently queued on the device. It blocks if none
// are pending, so call it only after a readiness notification.
func (d *Device) Read() ([]Event, error) {
	buf := make([]byte, eventSize*64)
	n, err := unix.Read(d.fd, buf)
	if err != nil {
		return nil, err
	}
	return parseEvents(buf[:n]), nil
}

func parseEvents(buf []byte) []Event {
	events := make([]Event, 0, len(buf)/eventSize)
	for i := 0; i+eventSize <= len(buf); i += eventSize {
		events = append(events, Event{
			Type:  binary.LittleEndian.Uint16(buf[i+16:]),
			Code:  binary.LittleEndian.Uint16(buf[i+18:]),
			Value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return events
}

// FindKeyboards opens every /dev/input/event* node and keeps the ones that
// look like real keyboards. Devices that cannot be opened or fail the
// keyboard heuristics are skipped (and closed) without aborting the scan.
func FindKeyboards() ([]*Device, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, fmt.Errorf("scanning /dev/input: %w", err)
	}

	var keyboards []*Device
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		d, err := open(filepath.Join("/dev/input", e.Name()))
		if err != nil {
			continue
		}
		evBits, err := d.eventBits()
		if err != nil {
			d.Close()
			continue
		}
		keyBits, err := d.keyBits()
		if err != nil {
			d.Close()
			continue
		}
		if !isKeyboard(d.name, evBits, keyBits) {
			d.Close()
			continue
		}
		keyboards = append(keyboards, d)
	}
	return keyboards, nil
}

// isKeyboard applies the keyboard heuristics: no denylisted name, no
// relative-motion axes, discrete key events, and a full alphabet (KEY_A
// through KEY_Z present).
func isKeyboard(name string, evBits, keyBits bitmap) bool {
	lower := strings.ToLower(name)
	for _, skip := range skipNames {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	if evBits.has(EvRel) {
		return false
	}
	if !evBits.has(EvKey) {
		return false
	}
	return keyBits.has(KeyA) && keyBits.has(KeyZ)
}

func open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &Device{path: path, fd: fd}
	name, err := d.ioctlName()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	d.name = name
	return d, nil
}

// bitmap is a kernel capability bitmask as returned by EVIOCGBIT.
type bitmap []byte

func (b bitmap) has(bit int) bool {
	idx := bit / 8
	if idx >= len(b) {
		return false
	}
	return b[idx]>>(uint(bit)%8)&1 == 1
}

// ioctl numbers from linux/input.h: _IOC(_IOC_READ, 'E', nr, len).
func eviocgname(length int) uint {
	return uint(2<<30 | length<<16 | 'E'<<8 | 0x06)
}

func eviocgbit(evType, length int) uint {
	return uint(2<<30 | length<<16 | 'E'<<8 | (0x20 + evType))
}

func (d *Device) ioctlName() (string, error) {
	buf := make([]byte, 256)
	if err := ioctlRead(d.fd, eviocgname(len(buf)), buf); err != nil {
		return "", err
	}
	if i := strings.IndexByte(string(buf), 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// eventBits returns the supported event-type bitmap (EVIOCGBIT with type 0).
func (d *Device) eventBits() (bitmap, error) {
	buf := make([]byte, 4)
	if err := ioctlRead(d.fd, eviocgbit(0, len(buf)), buf); err != nil {
		return nil, err
	}
	return bitmap(buf), nil
}

// keyBits returns the supported key-code bitmap (EVIOCGBIT for EV_KEY).
func (d *Device) keyBits() (bitmap, error) {
	buf := make([]byte, 96) // covers KEY_MAX (0x2ff) bits
	if err := ioctlRead(d.fd, eviocgbit(EvKey, len(buf)), buf); err != nil {
		return nil, err
	}
	return bitmap(buf), nil
}

func ioctlRead(fd int, req uint, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}
