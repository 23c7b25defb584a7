package tray

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// itemID enumerates the fixed menu tree. Ids are stable for the process
// lifetime; only property values change between revisions.
type itemID int32

const (
	itemRoot itemID = iota
	itemStatus
	itemModelLabel
	itemSep1
	itemSwitchModel
	itemModelBase
	itemModelSmall
	itemModelMedium
	itemModelLarge
	itemHistory
	itemSep2
	itemQuit
)

// Model leaves in menu order.
var modelLeaves = []struct {
	id    itemID
	model string
}{
	{itemModelBase, "base"},
	{itemModelSmall, "small"},
	{itemModelMedium, "medium"},
	{itemModelLarge, "large-v3"},
}

// layoutNode marshals as the dbusmenu (ia{sv}av) layout struct.
type layoutNode struct {
	ID       int32
	Props    map[string]dbus.Variant
	Children []dbus.Variant
}

// idProps marshals as one (ia{sv}) element of GetGroupProperties.
type idProps struct {
	ID    int32
	Props map[string]dbus.Variant
}

// menuEvent is one (isvu) element of EventGroup.
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// menuObject implements com.canonical.dbusmenu over the Tray state.
type menuObject struct {
	t *Tray
}

// GetLayout returns the whole fixed tree with the current revision. The
// tree is small enough that parentId/recursionDepth pruning buys nothing.
func (m *menuObject) GetLayout(parentID, recursionDepth int32, propertyNames []string) (uint32, layoutNode, *dbus.Error) {
	m.t.mu.Lock()
	defer m.t.mu.Unlock()
	return m.t.revision, m.t.layoutLocked(), nil
}

func (m *menuObject) GetGroupProperties(ids []int32, propertyNames []string) ([]idProps, *dbus.Error) {
	m.t.mu.Lock()
	all := m.t.itemPropsLocked()
	m.t.mu.Unlock()

	result := make([]idProps, 0, len(ids))
	for _, id := range ids {
		props, ok := all[itemID(id)]
		if !ok {
			props = map[string]dbus.Variant{}
		}
		result = append(result, idProps{ID: id, Props: props})
	}
	return result, nil
}

func (m *menuObject) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	m.t.mu.Lock()
	all := m.t.itemPropsLocked()
	m.t.mu.Unlock()

	if props, ok := all[itemID(id)]; ok {
		if v, ok := props[name]; ok {
			return v, nil
		}
	}
	return dbus.MakeVariant(""), nil
}

func (m *menuObject) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if eventID == "clicked" {
		m.t.handleClick(itemID(id))
	}
	return nil
}

func (m *menuObject) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	for _, ev := range events {
		if ev.EventID == "clicked" {
			m.t.handleClick(itemID(ev.ID))
		}
	}
	return []int32{}, nil
}

// AboutToShow always answers "no changes needed": the tree never expands
// lazily.
func (m *menuObject) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

func (m *menuObject) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	return []int32{}, []int32{}, nil
}

func (t *Tray) handleClick(id itemID) {
	switch id {
	case itemModelBase, itemModelSmall, itemModelMedium, itemModelLarge:
		for _, leaf := range modelLeaves {
			if leaf.id == id && t.handlers.OnModelSwitch != nil {
				go t.handlers.OnModelSwitch(leaf.model)
			}
		}
	case itemHistory:
		if t.handlers.OnHistory != nil {
			go t.handlers.OnHistory()
		}
	case itemQuit:
		if t.handlers.OnQuit != nil {
			t.handlers.OnQuit()
		}
	case itemRoot, itemStatus, itemModelLabel, itemSep1, itemSwitchModel, itemSep2:
		// Inert items: labels and separators.
	}
}

// itemPropsLocked returns properties for every menu item. Caller holds mu.
func (t *Tray) itemPropsLocked() map[itemID]map[string]dbus.Variant {
	props := map[itemID]map[string]dbus.Variant{
		itemRoot: {"children-display": dbus.MakeVariant("submenu")},
		itemStatus: {
			"label":   dbus.MakeVariant(t.statusText),
			"enabled": dbus.MakeVariant(false),
		},
		itemModelLabel: {
			"label":   dbus.MakeVariant(fmt.Sprintf("Model: %s", t.modelName)),
			"enabled": dbus.MakeVariant(false),
		},
		itemSep1: {"type": dbus.MakeVariant("separator")},
		itemSwitchModel: {
			"label":            dbus.MakeVariant("Switch model"),
			"children-display": dbus.MakeVariant("submenu"),
		},
		itemHistory: {"label": dbus.MakeVariant("History")},
		itemSep2:    {"type": dbus.MakeVariant("separator")},
		itemQuit:    {"label": dbus.MakeVariant("Quit")},
	}
	for _, leaf := range modelLeaves {
		props[leaf.id] = t.modelLeafPropsLocked(leaf.model)
	}
	return props
}

func (t *Tray) modelLeafPropsLocked(model string) map[string]dbus.Variant {
	toggle := int32(0)
	if model == t.modelName {
		toggle = 1
	}
	return map[string]dbus.Variant{
		"label":        dbus.MakeVariant(model),
		"toggle-type":  dbus.MakeVariant("radio"),
		"toggle-state": dbus.MakeVariant(toggle),
	}
}

// layoutLocked builds the full menu tree. Caller holds mu.
func (t *Tray) layoutLocked() layoutNode {
	modelChildren := make([]dbus.Variant, 0, len(modelLeaves))
	for _, leaf := range modelLeaves {
		modelChildren = append(modelChildren, dbus.MakeVariant(layoutNode{
			ID:       int32(leaf.id),
			Props:    t.modelLeafPropsLocked(leaf.model),
			Children: []dbus.Variant{},
		}))
	}

	all := t.itemPropsLocked()
	node := func(id itemID, children []dbus.Variant) dbus.Variant {
		if children == nil {
			children = []dbus.Variant{}
		}
		return dbus.MakeVariant(layoutNode{ID: int32(id), Props: all[id], Children: children})
	}

	return layoutNode{
		ID:    int32(itemRoot),
		Props: all[itemRoot],
		Children: []dbus.Variant{
			node(itemStatus, nil),
			node(itemModelLabel, nil),
			node(itemSep1, nil),
			node(itemSwitchModel, modelChildren),
			node(itemHistory, nil),
			node(itemSep2, nil),
			node(itemQuit, nil),
		},
	}
}

// menuProps serves org.freedesktop.DBus.Properties for the menu object.
type menuProps struct {
	t *Tray
}

var menuProperties = map[string]dbus.Variant{
	"Version":       dbus.MakeVariant(uint32(3)),
	"Status":        dbus.MakeVariant("normal"),
	"TextDirection": dbus.MakeVariant("ltr"),
}

func (p *menuProps) Get(iface, name string) (dbus.Variant, *dbus.Error) {
	if iface != menuInterface {
		return dbus.Variant{}, errUnknownInterface
	}
	v, ok := menuProperties[name]
	if !ok {
		return dbus.Variant{}, errUnknownProperty
	}
	return v, nil
}

func (p *menuProps) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != menuInterface {
		return nil, errUnknownInterface
	}
	return menuProperties, nil
}

func (p *menuProps) Set(iface, name string, value dbus.Variant) *dbus.Error {
	return errReadOnly
}

const menuIntrospectXML = `<node>
  <interface name="com.canonical.dbusmenu">
    <property name="Version" type="u" access="read"/>
    <property name="Status" type="s" access="read"/>
    <property name="TextDirection" type="s" access="read"/>
    <method name="GetLayout">
      <arg type="i" name="parentId" direction="in"/>
      <arg type="i" name="recursionDepth" direction="in"/>
      <arg type="as" name="propertyNames" direction="in"/>
      <arg type="u" name="revision" direction="out"/>
      <arg type="(ia{sv}av)" name="layout" direction="out"/>
    </method>
    <method name="GetGroupProperties">
      <arg type="ai" name="ids" direction="in"/>
      <arg type="as" name="propertyNames" direction="in"/>
      <arg type="a(ia{sv})" name="properties" direction="out"/>
    </method>
    <method name="GetProperty">
      <arg type="i" direction="in"/><arg type="s" direction="in"/>
      <arg type="v" direction="out"/>
    </method>
    <method name="Event">
      <arg type="i" direction="in"/><arg type="s" direction="in"/>
      <arg type="v" direction="in"/><arg type="u" direction="in"/>
    </method>
    <method name="EventGroup">
      <arg type="a(isvu)" direction="in"/><arg type="ai" direction="out"/>
    </method>
    <method name="AboutToShow">
      <arg type="i" direction="in"/><arg type="b" direction="out"/>
    </method>
    <method name="AboutToShowGroup">
      <arg type="ai" direction="in"/>
      <arg type="ai" direction="out"/><arg type="ai" direction="out"/>
    </method>
    <signal name="LayoutUpdated">
      <arg type="u"/><arg type="i"/>
    </signal>
    <signal name="ItemsPropertiesUpdated">
      <arg type="a(ia{sv})"/><arg type="a(ias)"/>
    </signal>
  </interface>
</node>`
