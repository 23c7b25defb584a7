package device

import (
	"encoding/binary"
	"testing"
)

func caps(bits ...int) bitmap {
	b := make(bitmap, 96)
	for _, bit := range bits {
		b[bit/8] |= 1 << (uint(bit) % 8)
	}
	return b
}

func alphabetKeys() bitmap {
	b := make(bitmap, 96)
	for code := KeyA; code <= KeyZ; code++ {
		b[code/8] |= 1 << (uint(code) % 8)
	}
	return b
}

func TestIsKeyboardAcceptsRealKeyboard(t *testing.T) {
	if !isKeyboard("AT Translated Set 2 keyboard", caps(EvSyn, EvKey), alphabetKeys()) {
		t.Error("full-alphabet keyboard without relative axes should be accepted")
	}
}

func TestIsKeyboardRejectsMouseByName(t *testing.T) {
	if isKeyboard("Generic Mouse", caps(EvSyn, EvKey), alphabetKeys()) {
		t.Error("denylisted name should be rejected regardless of capabilities")
	}
}

func TestIsKeyboardNameMatchIsCaseInsensitive(t *testing.T) {
	for _, name := range []string{"Logitech TOUCHPAD", "Some TrackPoint Device", "USB Touchscreen"} {
		if isKeyboard(name, caps(EvSyn, EvKey), alphabetKeys()) {
			t.Errorf("%q should be rejected by the name denylist", name)
		}
	}
}

func TestIsKeyboardRejectsRelativeAxes(t *testing.T) {
	if isKeyboard("Generic Device", caps(EvSyn, EvKey, EvRel), alphabetKeys()) {
		t.Error("device advertising EV_REL should be rejected")
	}
}

func TestIsKeyboardRejectsWithoutKeyEvents(t *testing.T) {
	if isKeyboard("Power Button", caps(EvSyn), alphabetKeys()) {
		t.Error("device without EV_KEY should be rejected")
	}
}

func TestIsKeyboardRejectsPartialAlphabet(t *testing.T) {
	// Media keypads expose EV_KEY but not the full alphabet.
	if isKeyboard("Consumer Control", caps(EvSyn, EvKey), caps(KeyA)) {
		t.Error("device missing KEY_Z should be rejected")
	}
	if isKeyboard("Consumer Control", caps(EvSyn, EvKey), caps(KeyZ)) {
		t.Error("device missing KEY_A should be rejected")
	}
}

func putEvent(buf []byte, evType, code uint16, value int32) {
	binary.LittleEndian.PutUint16(buf[16:], evType)
	binary.LittleEndian.PutUint16(buf[18:], code)
	binary.LittleEndian.PutUint32(buf[20:], uint32(value))
}

func TestParseEvents(t *testing.T) {
	buf := make([]byte, eventSize*2)
	putEvent(buf[0:], EvKey, 97, 1)
	putEvent(buf[eventSize:], EvSyn, 0, 0)

	events := parseEvents(buf)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0] != (Event{Type: EvKey, Code: 97, Value: 1}) {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1] != (Event{Type: EvSyn, Code: 0, Value: 0}) {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestParseEventsIgnoresTrailingPartialRecord(t *testing.T) {
	buf := make([]byte, eventSize+10)
	putEvent(buf, EvKey, 30, 0)
	events := parseEvents(buf)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestBitmapOutOfRange(t *testing.T) {
	b := caps(EvKey)
	if b.has(100000) {
		t.Error("bit beyond bitmap length should read as unset")
	}
}
