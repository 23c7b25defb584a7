package hotkey

import (
	"github.com/wastintas/soupawhisper/device"
)

// Callbacks receive the commands the state machine derives from raw key
// events. All three are invoked synchronously from the polling goroutine.
type Callbacks struct {
	OnPress       func()
	OnRelease     func()
	OnModelSwitch func(model string)
}

// Machine tracks the push-to-talk state across key events. It recognizes
// three gestures:
//
//   - hotkey down            -> OnPress (start recording)
//   - hotkey up              -> OnRelease, only if a press was seen
//   - hotkey held + digit    -> OnModelSwitch (cancels the recording,
//     without OnRelease)
type Machine struct {
	hotkey    uint16
	held      bool
	recording bool
	cb        Callbacks
}

func NewMachine(hotkey uint16, cb Callbacks) *Machine {
	return &Machine{hotkey: hotkey, cb: cb}
}

// Handle feeds one event through the state machine. Only discrete 0/1 key
// transitions are matched, so hardware autorepeat (value 2) never
// re-triggers a press.
func (m *Machine) Handle(ev device.Event) {
	if ev.Type != device.EvKey {
		return
	}

	if ev.Code == m.hotkey {
		switch ev.Value {
		case valueDown:
			m.held = true
			m.recording = true
			if m.cb.OnPress != nil {
				m.cb.OnPress()
			}
		case valueUp:
			m.held = false
			// Guards against a spurious key-up without a matching
			// key-down, and against release after a chord cancel.
			if m.recording {
				m.recording = false
				if m.cb.OnRelease != nil {
					m.cb.OnRelease()
				}
			}
		}
		return
	}

	if m.held && ev.Value == valueDown {
		if model, ok := ModelSlots[ev.Code]; ok {
			m.recording = false
			if m.cb.OnModelSwitch != nil {
				m.cb.OnModelSwitch(model)
			}
		}
	}
}
