package hotkey

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wastintas/soupawhisper/device"
	"github.com/wastintas/soupawhisper/log"
)

// selectTimeout bounds each multiplexed wait so the loop notices the
// running flag going false even with no keyboard activity.
const selectTimeout = time.Second

// Loop polls a set of keyboards and feeds their events through the state
// machine. A device whose read fails is treated as disconnected and dropped
// for the remainder of the process; the loop keeps serving the others.
type Loop struct {
	devices []*device.Device
	machine *Machine
}

func NewLoop(devices []*device.Device, machine *Machine) *Loop {
	return &Loop{devices: devices, machine: machine}
}

// Run blocks until the running flag is cleared. Device handles are
// process-lifetime resources and are not closed on return.
func (l *Loop) Run(running *atomic.Bool) {
	for running.Load() {
		ready, err := l.wait()
		if err != nil {
			continue
		}
		for _, d := range ready {
			events, err := d.Read()
			if err != nil {
				log.Warnf("keyboard disconnected: %s", d.Name())
				l.drop(d)
				continue
			}
			for _, ev := range events {
				l.machine.Handle(ev)
			}
		}
	}
}

func (l *Loop) wait() ([]*device.Device, error) {
	var fds unix.FdSet
	nfds := 0
	for _, d := range l.devices {
		fds.Set(d.Fd())
		if d.Fd() >= nfds {
			nfds = d.Fd() + 1
		}
	}

	tv := unix.NsecToTimeval(selectTimeout.Nanoseconds())
	n, err := unix.Select(nfds, &fds, nil, nil, &tv)
	if err != nil || n == 0 {
		// EINTR and timeouts both mean "nothing readable this round".
		return nil, err
	}

	var ready []*device.Device
	for _, d := range l.devices {
		if fds.IsSet(d.Fd()) {
			ready = append(ready, d)
		}
	}
	return ready, nil
}

func (l *Loop) drop(dead *device.Device) {
	dead.Close()
	kept := l.devices[:0]
	for _, d := range l.devices {
		if d != dead {
			kept = append(kept, d)
		}
	}
	l.devices = kept
}
