// Package tray implements a system tray icon as a D-Bus service speaking
// the StatusNotifierItem and com.canonical.dbusmenu protocols directly,
// with no libappindicator. Works on KDE Plasma and on GNOME with the
// AppIndicator extension.
package tray

import (
	"fmt"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/wastintas/soupawhisper/log"
)

// Themed icons available on most desktops.
const (
	IconReady     = "audio-input-microphone-symbolic"
	IconRecording = "media-record-symbolic"
	IconWorking   = "emblem-synchronizing-symbolic"
	IconError     = "dialog-error-symbolic"
)

const (
	sniInterface  = "org.kde.StatusNotifierItem"
	menuInterface = "com.canonical.dbusmenu"
	propInterface = "org.freedesktop.DBus.Properties"

	watcherBus  = "org.kde.StatusNotifierWatcher"
	watcherPath = dbus.ObjectPath("/StatusNotifierWatcher")
	sniPath     = dbus.ObjectPath("/StatusNotifierItem")
	menuPath    = dbus.ObjectPath("/MenuBar")
)

// stateDisplay maps controller state names to the {icon, label} pair shown
// in the tray. Unknown states leave the display untouched.
var stateDisplay = map[string]struct{ icon, label string }{
	"recording":    {IconRecording, "Recording..."},
	"transcribing": {IconWorking, "Transcribing..."},
	"ready":        {IconReady, "Ready"},
	"loading":      {IconWorking, "Loading model..."},
	"error":        {IconError, "Error"},
}

// Handlers receive menu commands. OnModelSwitch and OnHistory run on their
// own goroutines so a slow handler never stalls menu dispatch; OnQuit is
// called inline.
type Handlers struct {
	OnModelSwitch func(model string)
	OnHistory     func()
	OnQuit        func()
}

// Tray owns the bus-visible state. Display fields are mutated only by the
// dispatch goroutine consuming the update queue; protocol handlers read
// them under the mutex. The revision counter increases on every observable
// change and is echoed in LayoutUpdated so clients know to re-fetch.
type Tray struct {
	conn     *dbus.Conn
	busName  string
	handlers Handlers

	mu         sync.Mutex
	icon       string
	statusText string
	modelName  string
	revision   uint32

	updates  chan func()
	quit     chan struct{}
	quitOnce sync.Once
}

// New exports the item and menu objects on conn, claims a pid-qualified
// well-known name, and announces it to the StatusNotifierWatcher. A
// missing or failing watcher leaves the tray running but invisible; that
// is reported once and not retried.
func New(conn *dbus.Conn, modelName string, handlers Handlers) (*Tray, error) {
	t := newTray(modelName, handlers)
	t.conn = conn

	if err := t.export(); err != nil {
		return nil, fmt.Errorf("exporting tray objects: %w", err)
	}

	busName := fmt.Sprintf("org.kde.StatusNotifierItem-%d-1", os.Getpid())
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("requesting bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("bus name %s already owned", busName)
	}
	t.busName = busName

	t.registerWithWatcher()
	return t, nil
}

func newTray(modelName string, handlers Handlers) *Tray {
	return &Tray{
		handlers:   handlers,
		icon:       IconReady,
		statusText: "Loading...",
		modelName:  modelName,
		revision:   1,
		updates:    make(chan func(), 32),
		quit:       make(chan struct{}),
	}
}

func (t *Tray) export() error {
	exports := []struct {
		obj   any
		path  dbus.ObjectPath
		iface string
	}{
		{&sniObject{t}, sniPath, sniInterface},
		{&sniProps{t}, sniPath, propInterface},
		{introspect.Introspectable(sniIntrospectXML), sniPath, "org.freedesktop.DBus.Introspectable"},
		{&menuObject{t}, menuPath, menuInterface},
		{&menuProps{t}, menuPath, propInterface},
		{introspect.Introspectable(menuIntrospectXML), menuPath, "org.freedesktop.DBus.Introspectable"},
	}
	for _, e := range exports {
		if err := t.conn.Export(e.obj, e.path, e.iface); err != nil {
			return err
		}
	}
	return nil
}

// Update is the single entry point the rest of the system uses to drive
// the tray. Safe to call from any goroutine: the change is queued onto the
// dispatch loop, which preserves call order in the revisions and signals
// observed on the bus.
func (t *Tray) Update(state, model string) {
	select {
	case t.updates <- func() { t.apply(state, model) }:
	case <-t.quit:
	}
}

// Run consumes the update queue until Quit. This is the only goroutine
// that mutates display state.
func (t *Tray) Run() {
	for {
		select {
		case fn := <-t.updates:
			fn()
		case <-t.quit:
			return
		}
	}
}

// Quit terminates the dispatch loop. Safe to call from any goroutine,
// repeatedly.
func (t *Tray) Quit() {
	t.quitOnce.Do(func() { close(t.quit) })
}

// Done reports loop termination to whoever blocks on the tray lifecycle.
func (t *Tray) Done() <-chan struct{} { return t.quit }

// Revision returns the current layout revision.
func (t *Tray) Revision() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

func (t *Tray) apply(state, model string) {
	t.mu.Lock()
	if display, ok := stateDisplay[state]; ok {
		t.icon = display.icon
		t.statusText = display.label
	}
	if model != "" {
		t.modelName = model
	}
	t.revision++
	icon := t.icon
	revision := t.revision
	t.mu.Unlock()

	if t.conn == nil {
		return
	}
	t.conn.Emit(sniPath, sniInterface+".NewIcon")
	t.conn.Emit(sniPath, sniInterface+".NewStatus", "Active")
	t.conn.Emit(sniPath, propInterface+".PropertiesChanged",
		sniInterface,
		map[string]dbus.Variant{"IconName": dbus.MakeVariant(icon)},
		[]string{},
	)
	t.conn.Emit(menuPath, menuInterface+".LayoutUpdated", revision, int32(0))
}

func (t *Tray) registerWithWatcher() {
	call := t.conn.Object(watcherBus, watcherPath).Call(
		watcherBus+".RegisterStatusNotifierItem", 0, t.busName)
	if call.Err != nil {
		fmt.Printf("Failed to register tray icon: %v\n", call.Err)
		fmt.Println("Install 'AppIndicator and KStatusNotifierItem Support' GNOME extension.")
		log.Warnf("watcher registration failed: %v", call.Err)
	}
}

// IsAvailable checks whether a StatusNotifierWatcher owns its well-known
// name on the session bus. Any bus error means "unavailable".
func IsAvailable() bool {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false
	}
	var has bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, watcherBus).Store(&has)
	return err == nil && has
}
